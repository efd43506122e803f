package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ritzau/graph-explorer/pkg/config"
	"github.com/ritzau/graph-explorer/pkg/explorer"
	"github.com/ritzau/graph-explorer/pkg/logging"
	"github.com/ritzau/graph-explorer/pkg/metrics"
	"github.com/ritzau/graph-explorer/pkg/source"
)

var configFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph-explorer",
		Short: "Explore and summarise knowledge graph snapshots",
		Long: `graph-explorer loads a knowledge graph snapshot (a JSON or YAML file, an
s3:// object or a gs:// object) and explores it in detail mode, where a
threshold, search and neighbourhood expansion pick the visible nodes, or in
summary mode, where nodes are grouped into category, topic and subtopic bubbles.

Configuration is read from graph-explorer.toml, GRAPH_EXPLORER_* environment
variables and flags, in increasing priority.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to the config file (default graph-explorer.toml if present)")
	flags.StringP("snapshot", "s", "", "Snapshot location: a file path, s3://bucket/key or gs://bucket/object")
	flags.CountP("verbose", "v", "Increase verbosity (-v debug, -vv trace)")
	flags.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	flags.Bool("json-logs", false, "Write logs as JSON")
	flags.Int("min-connections", 1, "Minimum connection count for the initial view")
	flags.Int("depth", 1, "Neighbourhood expansion depth (1-3)")
	flags.String("layout-engine", "force", "Layout engine: force or eades")
	flags.Uint64("layout-seed", 1, "Seed for initial layout positions")
	flags.Int("layout-iterations", 300, "Layout tick budget")

	cmd.AddCommand(
		serveCmd(),
		summarizeCmd(),
		inspectCmd(),
	)
	return cmd
}

// loadConfig reads the configuration and sets up logging. A positional
// argument overrides the snapshot location.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags(), configFile)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Snapshot = args[0]
	}

	level, err := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		return nil, err
	}
	logging.Setup(logging.Options{
		Level:  level,
		JSON:   cfg.JSONLogs,
		Writer: os.Stderr,
	})
	return cfg, nil
}

func explorerOptions(cfg *config.Config) explorer.Options {
	return explorer.Options{
		MinConnections: cfg.MinConnections,
		Depth:          cfg.Depth,
		InitialCap:     cfg.InitialCap,
		SearchCap:      cfg.SearchCap,
		MaxExpanded:    cfg.MaxExpanded,
	}
}

// openLoader resolves the configured snapshot location
func openLoader(ctx context.Context, cfg *config.Config, registry *metrics.Registry) (*source.Loader, error) {
	if cfg.Snapshot == "" {
		return nil, errors.New("no snapshot given, pass a location or set snapshot in the config")
	}
	src, err := source.Open(ctx, cfg.Snapshot, cfg.SourceOptions())
	if err != nil {
		return nil, err
	}
	return source.NewLoader(src, registry), nil
}

// loadGraph loads the snapshot once and derives the index and summary
func loadGraph(ctx context.Context, cfg *config.Config) (*explorer.Graph, string, error) {
	loader, err := openLoader(ctx, cfg, metrics.DefaultRegistry())
	if err != nil {
		return nil, "", err
	}
	snapshot, err := loader.Load(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("loading %s: %w", loader.Source().Name(), err)
	}
	classifier, err := cfg.Classifier()
	if err != nil {
		return nil, "", err
	}
	return explorer.NewGraph(snapshot, classifier), loader.Source().Name(), nil
}
