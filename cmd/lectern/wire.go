package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/Lectern/internal/analyzer"
	"github.com/MikeSquared-Agency/Lectern/internal/config"
	"github.com/MikeSquared-Agency/Lectern/internal/dimensions"
	"github.com/MikeSquared-Agency/Lectern/internal/hermes"
	"github.com/MikeSquared-Agency/Lectern/internal/inference"
	"github.com/MikeSquared-Agency/Lectern/internal/metrics"
	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
	"github.com/MikeSquared-Agency/Lectern/internal/store"
)

// newHistory opens the configured history backend.
func newHistory(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.History.Backend {
	case config.HistoryPostgres:
		return store.NewPostgresStore(ctx, c.Database.URL)
	case config.HistorySQLite:
		return store.NewSQLiteStore(c.History.SQLitePath)
	default:
		return store.NewFileStore(c.History.Dir), nil
	}
}

// newServerHistory opens the history backend for serve. File histories
// always live under a fixed root there.
func newServerHistory(ctx context.Context, c *config.Config) (store.Store, error) {
	if c.History.Backend == config.HistoryPostgres || c.History.Backend == config.HistorySQLite {
		return newHistory(ctx, c)
	}
	return store.NewFileStore(c.ServerHistoryDir()), nil
}

// newModel returns the model handle, or nil without an inference URL.
func newModel(c *config.Config, logger *slog.Logger) *inference.Handle {
	if c.Inference.URL == "" {
		return nil
	}
	client := inference.NewHTTPClient(c.Inference.URL, c.Inference.Model, c.Inference.Token)
	return inference.NewHandle(inference.HTTPLoader(client), logger)
}

type components struct {
	Analyzer  *analyzer.Analyzer
	Model     *inference.Handle
	Available []string
}

func newComponents(c *config.Config, sc sampling.Config, hs store.Store, h hermes.Client, m *metrics.Metrics, logger *slog.Logger) (*components, error) {
	model := newModel(c, logger)
	reg, err := dimensions.NewRegistry(sc.Profile, dimensions.Options{
		Model:   model,
		Timeout: c.InferenceTimeout(),
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("load dimensions: %w", err)
	}
	available := dimensions.Available()
	a, err := analyzer.New(analyzer.Deps{
		Registry:  reg,
		Config:    sc,
		Available: available,
		Targets:   c.Targets(),
		Tolerance: c.Scoring.Tolerance,
		History:   hs,
		Events:    h,
		Metrics:   m,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return &components{Analyzer: a, Model: model, Available: available}, nil
}
