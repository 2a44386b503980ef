package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var hotspotsCmd = &cobra.Command{
	Use:   "hotspots",
	Short: "Print current incident hotspots as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		hotspots, err := a.service.Hotspots(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(hotspots)
	},
}

func init() {
	rootCmd.AddCommand(hotspotsCmd)
}
