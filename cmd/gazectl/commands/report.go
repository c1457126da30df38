package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gazekit/platform/internal/analysis"
	"github.com/gazekit/platform/internal/heatmap"
	"github.com/gazekit/platform/internal/report"
	"github.com/gazekit/platform/internal/session"
)

// report <csv>: render a PDF report for a recorded trace.
func reportCmd() *cobra.Command {
	var (
		device     string
		scale      float64
		distanceCm float64
		output     string
	)

	cmd := &cobra.Command{
		Use:   "report <csv>",
		Short: "Render a PDF report for a gaze trace CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trace, err := loadTrace(args[0])
			if err != nil {
				return err
			}

			info, err := resolveDisplay(device, scale)
			if err != nil {
				return err
			}
			if distanceCm <= 0 {
				distanceCm = cfg.ViewingDistanceCm
			}

			result, err := analysis.AnalyzeWithDisplay(trace, info, distanceCm)
			if err != nil {
				return err
			}

			var frame []byte
			w, h := info.SizePoints()
			if img, err := heatmap.NewRenderer(cfg.HeatmapWidth, cfg.HeatmapHeight).Render(trace, w, h); err == nil {
				frame, _ = heatmap.EncodePNG(img)
			}

			meta := session.Session{
				ID:                args[0],
				Display:           info,
				ViewingDistanceCm: distanceCm,
				StartedAt:         time.Now(),
				SampleCount:       len(trace),
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			if err := report.Write(f, meta, result, frame); err != nil {
				return err
			}
			fmt.Println("wrote", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&device, "device", "", "display model (default from DEVICE_MODEL)")
	cmd.Flags().Float64Var(&scale, "scale", 0, "override the display scale factor")
	cmd.Flags().Float64Var(&distanceCm, "distance", 0, "viewing distance in cm (default from VIEWING_DISTANCE_CM)")
	cmd.Flags().StringVarP(&output, "output", "o", "report.pdf", "output PDF path")
	return cmd
}
