package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gazekit/platform/internal/display"
)

// devices: list known display profiles.
func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List known display profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := display.NewRegistry()
			for _, model := range registry.Models() {
				info, err := registry.Lookup(model)
				if err != nil {
					return err
				}
				fmt.Printf("%-16s %4.0f ppi  scale %.0fx  %.1f x %.1f cm\n",
					model,
					info.Profile.PixelsPerInch,
					info.Scale,
					info.Profile.WidthMeters*100,
					info.Profile.HeightMeters*100,
				)
			}
			return nil
		},
	}
}
