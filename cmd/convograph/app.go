package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rendis/convograph/internal/client"
	"github.com/rendis/convograph/internal/engine"
	"github.com/rendis/convograph/internal/logging"
	"github.com/rendis/convograph/internal/metrics"
	"github.com/rendis/convograph/internal/store"
	"github.com/rendis/convograph/internal/streaming"
	"github.com/rendis/convograph/internal/validation"
)

// app is the wired service graph shared by the commands.
type app struct {
	cfg       Config
	level     *slog.LevelVar
	logger    *slog.Logger
	store     *store.LibSQLStore
	validator *validation.ConversationValidator
	metrics   *metrics.Metrics
	hub       *streaming.MemoryHub
	service   *engine.Service
}

// newApp opens the store, runs migrations and wires the layout service.
// Without a backend URL only stored and inline conversations can be laid out.
func newApp(ctx context.Context, c Config) (*app, error) {
	level := new(slog.LevelVar)
	level.Set(logging.ParseLevel(c.LogLevel))
	logger := logging.New(level)

	st, err := openStore(ctx, c.DBPath)
	if err != nil {
		return nil, err
	}

	v, err := validation.NewConversationValidator(c.LintRules)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("lint rules: %w", err)
	}

	var fetcher engine.Fetcher
	if c.BackendURL != "" {
		cl, err := client.New(client.Config{BaseURL: c.BackendURL}, client.WithLogger(logger))
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		fetcher = cl
	}

	a := &app{
		cfg:       c,
		level:     level,
		logger:    logger,
		store:     st,
		validator: v,
		hub:       streaming.NewMemoryHub(),
	}
	if c.Metrics {
		a.metrics = metrics.New()
	}

	engineCfg := engine.Config{
		Layout:      c.Layout,
		LabelExpr:   c.LabelExpr,
		Tenant:      c.Tenant,
		Concurrency: c.Concurrency,
	}
	a.service, err = engine.New(st, fetcher, v, engineCfg,
		engine.WithLogger(logger),
		engine.WithMetrics(a.metrics),
		engine.WithEvents(a.hub),
	)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	a.service.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", "error", err)
	}
}

func openStore(ctx context.Context, path string) (*store.LibSQLStore, error) {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") && !strings.Contains(dsn, "://") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = "file:" + path
	}
	st, err := store.NewLibSQLStore(dsn)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}
