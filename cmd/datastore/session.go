package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/datastore"
	"github.com/aretw0/datastore/internal/platform"
	"github.com/aretw0/datastore/pkg/adapters/memory"
	"github.com/aretw0/datastore/pkg/core"
	"github.com/aretw0/datastore/pkg/fixtures"
	"github.com/aretw0/datastore/pkg/metrics"
)

// session is a store loaded from the configuration file.
type session struct {
	store   *core.DataStore
	backend *memory.Adapter
	config  *platform.Config
	metrics *prometheus.Registry
}

func resolveConfig() (*platform.Config, error) {
	path := configPath
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		path, err = platform.FindConfig(cwd)
		if err != nil {
			return nil, err
		}
	}
	return datastore.LoadConfig(path)
}

// openSession builds the store and loads every configured fixture into both the
// memory backend and the store.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}
	backend := memory.New(memory.WithLogger(slog.Default()))
	reg := prometheus.NewRegistry()
	store, err := datastore.New(
		datastore.WithConfig(cfg),
		datastore.WithAdapter("memory", backend),
		datastore.WithLogger(slog.Default()),
		datastore.WithMetrics(metrics.New(reg)),
	)
	if err != nil {
		return nil, err
	}
	s := &session{store: store, backend: backend, config: cfg, metrics: reg}
	for _, path := range cfg.FixturePaths() {
		if _, err := s.load(ctx, path, true); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// load applies one fixture file. With seed set the backend receives the rows too.
func (s *session) load(ctx context.Context, path string, seed bool) (int, error) {
	set, err := fixtures.Load(path)
	if err != nil {
		return 0, err
	}
	var backend fixtures.Seeder
	if seed {
		backend = s.backend
	}
	n, err := fixtures.Apply(ctx, s.store, backend, set)
	if err != nil {
		return n, err
	}
	slog.Debug("fixtures loaded", "path", path, "records", n)
	return n, nil
}

// logMetrics writes the operation counters gathered during the session at debug level.
func (s *session) logMetrics() {
	families, err := s.metrics.Gather()
	if err != nil {
		slog.Debug("failed to gather metrics", "error", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			attrs := []any{"metric", mf.GetName(), "value", m.GetCounter().GetValue()}
			for _, l := range m.GetLabel() {
				attrs = append(attrs, l.GetName(), l.GetValue())
			}
			slog.Debug("operation counter", attrs...)
		}
	}
}

func parseObject(flag, raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%s: %w", flag, err)
	}
	return out, nil
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("Failed to encode output", err)
	}
	fmt.Println(string(data))
}
