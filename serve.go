package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/whiskeyjimbo/CertMate/internal/config"
	"github.com/whiskeyjimbo/CertMate/internal/database"
	"github.com/whiskeyjimbo/CertMate/internal/health"
	"github.com/whiskeyjimbo/CertMate/internal/metrics"
	"github.com/whiskeyjimbo/CertMate/internal/monitor"
	"github.com/whiskeyjimbo/CertMate/internal/notifications"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Monitor the configured targets continuously",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := initLogger(zapcore.InfoLevel, verboseFlag(cmd))
			if err != nil {
				return err
			}
			defer logger.Sync()

			return serve(cmd.Context(), logger, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "Path to the configuration file")
	return cmd
}

func serve(ctx context.Context, logger *zap.SugaredLogger, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h := health.New()
	h.SetReady(false)

	cfg, err := config.LoadConfiguration(configPath)
	if err != nil {
		return err
	}

	notifierMap, err := initializeNotifiers(ctx, logger, cfg.Notifications)
	if err != nil {
		return err
	}
	defer closeNotifiers(logger, notifierMap)

	var db database.Database
	if cfg.Database != nil {
		db, err = database.NewDatabase(ctx, cfg.Database.Type, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	server := metrics.NewServer(logger, cfg.MetricsAddress, reg, h)
	server.Start()

	var wg sync.WaitGroup
	base := monitor.BaseContext{
		Logger:      logger,
		Site:        cfg.MonitorSite,
		Metrics:     metrics.NewPrometheusMetrics(logger, cfg.MonitorSite, reg),
		Database:    db,
		Rules:       cfg.Rules,
		NotifierMap: notifierMap,
	}
	if err := monitor.Start(ctx, &wg, base, cfg.Targets); err != nil {
		return err
	}
	h.SetTargets(len(cfg.Targets))
	h.SetReady(true)
	logger.Infow("Monitoring started",
		"site", cfg.MonitorSite,
		"targets", len(cfg.Targets),
		"metrics_address", cfg.MetricsAddress,
	)

	waitForShutdown(ctx, logger, cancel, &wg)
	h.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("Metrics server shutdown failed", "error", err)
	}
	return nil
}

func initializeNotifiers(ctx context.Context, logger *zap.SugaredLogger, configs []config.NotificationConfig) (map[string]notifications.Notifier, error) {
	notifierMap := make(map[string]notifications.Notifier)

	for _, n := range configs {
		notifier, err := notifications.NewNotifier(n.Type, notifications.Options{
			Logger:     logger,
			WebhookURL: n.WebhookURL,
		})
		if err != nil {
			return nil, err
		}
		if err := notifier.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize %s notifier: %w", n.Type, err)
		}
		notifierMap[n.Type] = notifier
	}

	return notifierMap, nil
}

func closeNotifiers(logger *zap.SugaredLogger, notifierMap map[string]notifications.Notifier) {
	for name, notifier := range notifierMap {
		if err := notifier.Close(); err != nil {
			logger.Warnw("Failed to close notifier", "notifier", name, "error", err)
		}
	}
}

// waitForShutdown blocks until SIGINT or SIGTERM arrives or ctx ends, then
// stops all target loops.
func waitForShutdown(ctx context.Context, logger *zap.SugaredLogger, cancel context.CancelFunc, wg *sync.WaitGroup) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case <-c:
		logger.Info("Received shutdown signal, exiting...")
	case <-ctx.Done():
	}
	cancel()
	wg.Wait()
}
