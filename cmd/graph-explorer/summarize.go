package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/ritzau/graph-explorer/pkg/explorer"
	"github.com/ritzau/graph-explorer/pkg/layout"
	"github.com/ritzau/graph-explorer/pkg/output"
)

func summarizeCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summarize [snapshot]",
		Short: "Print the category, topic and subtopic bubbles of a snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			graph, name, err := loadGraph(ctx, cfg)
			if err != nil {
				return err
			}

			coordinator := layout.NewCoordinator(cfg.LayoutPrimitive(), cfg.LayoutParams(), cfg.LayoutSeed)
			view, err := explorer.PositionSummary(ctx, coordinator, graph.Summary)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			output.PrintStats(os.Stdout, name, graph.Stats())
			output.PrintSummary(os.Stdout, view)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the positioned summary as JSON")
	return cmd
}
