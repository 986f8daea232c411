package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Lectern/internal/api"
	"github.com/MikeSquared-Agency/Lectern/internal/broker"
	"github.com/MikeSquared-Agency/Lectern/internal/config"
	"github.com/MikeSquared-Agency/Lectern/internal/hermes"
	"github.com/MikeSquared-Agency/Lectern/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the analysis request broker",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sc, err := cfg.Sampling()
	if err != nil {
		return err
	}

	// History
	hs, err := newServerHistory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer hs.Close()
	if cfg.History.Backend == config.HistoryFile {
		logger.Info("history backend ready", "backend", cfg.History.Backend, "dir", cfg.ServerHistoryDir())
	} else {
		logger.Info("history backend ready", "backend", cfg.History.Backend)
	}

	// Hermes (optional)
	var hermesClient hermes.Client = hermes.Nop{}
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	comp, err := newComponents(cfg, sc, hs, hermesClient, m, logger)
	if err != nil {
		return err
	}
	if comp.Model == nil {
		logger.Warn("no inference url configured, predictability is unavailable")
	}
	weights := comp.Analyzer.Weights()
	if !weights.IsValid {
		logger.Warn("loaded weights are not valid, scores will not be certified",
			"profile", sc.Profile,
			"total_weight", weights.TotalWeight,
		)
	}

	// Broker
	b := broker.New(comp.Analyzer, hermesClient, m, broker.Options{
		Workers:       cfg.Broker.Workers,
		QueueSize:     cfg.Broker.QueueSize,
		StatsInterval: cfg.StatsInterval(),
	}, logger)
	b.Start(ctx)
	defer b.Stop()
	if err := b.SetupSubscriptions(); err != nil {
		logger.Warn("failed to subscribe to analysis requests", "error", err)
	}
	logger.Info("broker started", "workers", cfg.Broker.Workers)

	// API server
	router := api.NewRouter(api.Deps{
		Analyzer:     comp.Analyzer,
		Available:    comp.Available,
		Broker:       b,
		Model:        comp.Model,
		AdminToken:   cfg.Server.AdminToken,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}, logger)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: api.NewMetricsRouter(nil),
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
	return nil
}
