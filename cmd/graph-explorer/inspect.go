package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/ritzau/graph-explorer/pkg/cycles"
	"github.com/ritzau/graph-explorer/pkg/explorer"
	"github.com/ritzau/graph-explorer/pkg/layout"
	"github.com/ritzau/graph-explorer/pkg/output"
)

func inspectCmd() *cobra.Command {
	var (
		search   string
		expand   []string
		disabled []string
		selected string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [snapshot]",
		Short: "Print a detail view of a snapshot",
		Long: `Print a detail view of a snapshot.

  graph-explorer inspect graph.json
  graph-explorer inspect graph.json --search payment --expand n42 --depth 2
  graph-explorer inspect graph.json --select n42 --disable MENTIONS`,
		Args: cobra.MaximumNArgs(1),
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

			session := explorer.NewSession("cli", graph, explorerOptions(cfg), nil)
			for _, t := range disabled {
				if _, err := session.ToggleRelationshipType(t); err != nil {
					return err
				}
			}
			if search != "" {
				session.Search(search)
			}
			for _, id := range expand {
				if _, err := session.Expand(id); err != nil {
					return err
				}
			}
			if err := session.SelectNode(selected); err != nil {
				return err
			}

			coordinator := layout.NewCoordinator(cfg.LayoutPrimitive(), cfg.LayoutParams(), cfg.LayoutSeed)
			view, _, err := session.PositionedDetail(ctx, coordinator)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			output.PrintStats(os.Stdout, name, graph.Stats())
			output.PrintDetail(os.Stdout, view)
			output.PrintCycles(os.Stdout, cycles.Find(graph.Index, session.State().ActiveTypes))
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Show the nodes matching a search term")
	cmd.Flags().StringSliceVar(&expand, "expand", nil, "Expand the neighbourhood of these node ids")
	cmd.Flags().StringSliceVar(&disabled, "disable", nil, "Relationship types to hide")
	cmd.Flags().StringVar(&selected, "select", "", "Select a node and report hop distances from it")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the positioned view as JSON")
	return cmd
}
