package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"archguard-hq/warden/pkg/engine"
	"archguard-hq/warden/pkg/history"
	"archguard-hq/warden/pkg/server"
	"archguard-hq/warden/pkg/telemetry/metrics"
)

var serveFlags struct {
	listenAddress string
	projectRoot   string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the warden API server",
	Long: `Start the warden API server with background freshness detection.

The server builds an initial snapshot of the policy and topology, then keeps
it fresh by digesting the watched files (poll mode, default) or through
filesystem notifications (watch mode).

Examples:
  # Start with default config
  warden serve

  # Start with custom config and listen address
  warden serve --config /etc/warden/warden.yaml --listen 0.0.0.0:8787`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.projectRoot, "root", "", "override project root")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.projectRoot != "" {
		cfg.Engine.ProjectRoot = serveFlags.projectRoot
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var (
		eng       *engine.Engine
		collector *metrics.Collector
	)
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil, func() time.Time {
			if eng == nil {
				return time.Time{}
			}
			return eng.SnapshotBuiltAt()
		})
	}
	eng = engine.New(cfg.Engine, collector)

	var recorder server.Recorder
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer store.Close()
		recorder = store

		sched := history.NewScheduler(store, cfg.History.PruneSchedule, cfg.History.RetentionDays)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start retention scheduler: %w", err)
		}
		defer sched.Stop()
	}

	if cfg.Freshness.Enabled {
		switch cfg.Freshness.Mode {
		case "watch":
			watcher, err := engine.NewWatcher(eng, cfg.Freshness.DebounceInterval)
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			go func() {
				if err := watcher.Watch(ctx); err != nil {
					slog.Error("filesystem watcher exited", "error", err)
				}
			}()
			defer watcher.Stop()
		default:
			poller := engine.NewPoller(eng, cfg.Freshness.Interval)
			poller.Start(ctx)
			defer poller.Stop()
		}
	}

	srv := server.NewServer(&cfg.Server, &cfg.Telemetry.Metrics, eng, collector, recorder)
	return srv.Start(ctx)
}
