package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"strato-hq/tollgate/pkg/config"
	"strato-hq/tollgate/pkg/limits"
	"strato-hq/tollgate/pkg/limits/loader"
	"strato-hq/tollgate/pkg/limits/storage"
	"strato-hq/tollgate/pkg/server"
	"strato-hq/tollgate/pkg/telemetry/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the rate limiting gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGateway(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runGateway(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return err
	}
	// Components logging via slog.Default() (sweeper, watcher) pick this up.
	slog.SetDefault(logger.Slog())

	store, closeStore, err := buildStore(&cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	defs, err := loader.Load(cfg.Limits.DefinitionsFile, logger.Slog())
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := limits.NewMetrics(registry)

	engine := limits.NewEngine(store.classes, store.ledger, defs, limits.WithMetrics(metrics))

	if cfg.Limits.Watch {
		watcher := loader.NewWatcher(cfg.Limits.DefinitionsFile, func() {
			reloaded, err := loader.Load(cfg.Limits.DefinitionsFile, logger.Slog())
			if err != nil {
				logger.Error("definitions reload failed, keeping current set", "error", err)
				return
			}
			engine.Reload(reloaded)
			logger.Info("definitions reloaded", "count", len(reloaded))
		})
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	if sweepable, ok := store.ledgerAny().(storage.Sweepable); ok {
		sweeper := storage.NewSweeper(sweepable, cfg.Store.SweepSchedule)
		if err := sweeper.Start(); err != nil {
			return err
		}
		defer sweeper.Stop()
	}

	srv := server.New(server.Options{
		Config:   &cfg.Server,
		Engine:   engine,
		Logger:   logger,
		Store:    store.pinger,
		Registry: registry,
		Metrics:  cfg.Telemetry.Metrics,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return srv.Shutdown(context.Background())
	}
}

// gatewayStore bundles the configured backend behind the two engine ports.
// One backend instance serves both ports; they are separate types only so
// tests can substitute one independently.
type gatewayStore struct {
	classes storage.ClassStore
	ledger  storage.Ledger
	pinger  server.Pinger
}

func (g gatewayStore) ledgerAny() any { return g.ledger }

// buildStore constructs the configured store backend. The returned closer
// releases backend resources and is safe to call once.
func buildStore(cfg *config.StoreConfig) (gatewayStore, func(), error) {
	switch strings.ToLower(cfg.Backend) {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		st := storage.NewRedis(client,
			storage.WithPrefix(cfg.Redis.KeyPrefix),
			storage.WithOpTimeout(cfg.Redis.OpTimeout),
		)
		return gatewayStore{classes: st, ledger: st, pinger: st},
			func() { _ = client.Close() }, nil

	case "sqlite":
		st, err := storage.NewSQLite(cfg.SQLite.Path)
		if err != nil {
			return gatewayStore{}, nil, err
		}
		return gatewayStore{classes: st, ledger: st, pinger: st},
			func() { _ = st.Close() }, nil

	case "memory":
		st := storage.NewMemory()
		return gatewayStore{classes: st, ledger: st}, func() {}, nil

	default:
		return gatewayStore{}, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
