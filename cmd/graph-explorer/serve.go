package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/graph-explorer/pkg/config"
	"github.com/ritzau/graph-explorer/pkg/explorer"
	"github.com/ritzau/graph-explorer/pkg/layout"
	"github.com/ritzau/graph-explorer/pkg/logging"
	"github.com/ritzau/graph-explorer/pkg/metrics"
	"github.com/ritzau/graph-explorer/pkg/model"
	"github.com/ritzau/graph-explorer/pkg/source"
	"github.com/ritzau/graph-explorer/pkg/watcher"
	"github.com/ritzau/graph-explorer/pkg/web"
)

const (
	watchQuietPeriod = 300 * time.Millisecond
	watchMaxWait     = 2 * time.Second
	shutdownTimeout  = 5 * time.Second
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [snapshot]",
		Short: "Serve the exploration control surface over HTTP",
		Long: `Serve the exploration control surface over HTTP.

  graph-explorer serve graph.json            # serve a local snapshot
  graph-explorer serve graph.json --watch    # reload when the file changes
  graph-explorer serve s3://graphs/latest.json --port 9090

View changes and layouts are streamed to /api/subscribe/{session} as
Server-Sent Events.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "Port for the web server")
	cmd.Flags().BoolP("watch", "w", false, "Reload the snapshot when the file changes")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	registry := metrics.DefaultRegistry()

	classifier, err := cfg.Classifier()
	if err != nil {
		return err
	}

	// Without a snapshot the server starts on an empty graph
	var loader *source.Loader
	var snapshot *model.Snapshot
	if cfg.Snapshot != "" {
		if loader, err = openLoader(ctx, cfg, registry); err != nil {
			return err
		}
		if snapshot, err = loader.Load(ctx); err != nil {
			return err
		}
	} else {
		logging.Warn("no snapshot configured, serving an empty graph")
	}

	manager := explorer.NewManager(snapshot, classifier, explorerOptions(cfg), registry)
	server := web.NewServer(web.Options{
		Manager: manager,
		Loader:  loader,
		Metrics: registry,
		NewCoordinator: func() *layout.Coordinator {
			return layout.NewCoordinator(cfg.LayoutPrimitive(), cfg.LayoutParams(), cfg.LayoutSeed)
		},
	})
	if err := server.PublishReady(); err != nil {
		logging.Warn("failed to publish snapshot status", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(cfg.Port)
	})

	g.Go(func() error {
		<-gctx.Done()
		logging.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Watch {
		file, ok := sourceFile(loader)
		if !ok {
			logging.Warn("--watch only applies to local snapshot files", "snapshot", cfg.Snapshot)
		} else {
			g.Go(func() error {
				return watchSnapshot(gctx, file, server)
			})
		}
	}

	return g.Wait()
}

func sourceFile(loader *source.Loader) (string, bool) {
	if loader == nil {
		return "", false
	}
	fs, ok := loader.Source().(*source.FileSource)
	if !ok {
		return "", false
	}
	return fs.Path(), true
}

// watchSnapshot reloads the snapshot after each debounced write. A removed
// file keeps the previous snapshot in use.
func watchSnapshot(ctx context.Context, path string, server *web.Server) error {
	fw, err := watcher.NewFileWatcher(path)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := watcher.NewDebouncer(fw.Events(), watchQuietPeriod, watchMaxWait)
	debouncer.Start(ctx)
	logging.Info("watching snapshot", "path", fw.Path())

	for event := range debouncer.Output() {
		analysis := watcher.AnalyzeChanges(event)
		switch {
		case analysis.Removed:
			logging.Warn("snapshot file removed, keeping the previous snapshot", "path", path)
		case analysis.NeedReload:
			logging.Info("snapshot changed, reloading", "files", len(analysis.ChangedFiles))
			if err := server.Reload(ctx); err != nil {
				logging.Error("reload failed, keeping the previous snapshot", "error", err)
			}
		}
	}
	return nil
}
