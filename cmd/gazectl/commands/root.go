package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gazekit/platform/internal/config"
)

var (
	cfg     *config.Config
	verbose bool
)

func Execute() error {
	root := &cobra.Command{
		Use:   "gazectl",
		Short: "Gaze analytics platform CLI",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)

			cfg = config.Load()
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(serveCmd(), analyzeCmd(), reportCmd(), devicesCmd())
	return root.Execute()
}
