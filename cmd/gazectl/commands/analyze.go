package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gazekit/platform/internal/analysis"
	"github.com/gazekit/platform/internal/display"
	"github.com/gazekit/platform/internal/gaze"
)

// loadTrace reads a gaze CSV file, or stdin when path is "-".
func loadTrace(path string) (gaze.Trace, error) {
	if path == "-" {
		return gaze.ParseCSV(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return gaze.ParseCSV(f)
}

// resolveDisplay looks up the display model and applies overrides.
func resolveDisplay(model string, scale float64) (display.Info, error) {
	if model == "" {
		model = cfg.DeviceModel
	}
	info, err := display.NewRegistry().Lookup(model)
	if err != nil {
		return display.Info{}, err
	}
	if scale > 0 {
		info.Scale = scale
	}
	return info, nil
}

// analyze <csv>: analyze a recorded trace and print JSON to stdout.
func analyzeCmd() *cobra.Command {
	var (
		device     string
		scale      float64
		distanceCm float64
	)

	cmd := &cobra.Command{
		Use:   "analyze <csv>",
		Short: "Analyze a gaze trace CSV and print the result as JSON",
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

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&device, "device", "", "display model (default from DEVICE_MODEL)")
	cmd.Flags().Float64Var(&scale, "scale", 0, "override the display scale factor")
	cmd.Flags().Float64Var(&distanceCm, "distance", 0, "viewing distance in cm (default from VIEWING_DISTANCE_CM)")
	return cmd
}
