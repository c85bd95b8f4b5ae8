package datastore

import (
	"log/slog"
	"time"

	"github.com/aretw0/datastore/internal/platform"
	"github.com/aretw0/datastore/pkg/core"
	"github.com/aretw0/datastore/pkg/typed"
)

// --- Types ---

// Model is a public alias for the typed record model.
type Model[T any] = typed.Model[T]

// Resource is a public alias for the typed resource wrapper.
type Resource[T any] = typed.Resource[T]

// Config is a public alias for the on-disk configuration.
type Config = platform.Config

// --- Configuration ---

// Option defines a functional option for configuring a DataStore.
type Option = platform.Option

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithAdapter registers a backend under name.
func WithAdapter(name string, adapter core.Adapter) Option {
	return platform.WithAdapter(name, adapter)
}

// WithDefaultAdapter selects the adapter used by resources that do not name one.
func WithDefaultAdapter(name string) Option {
	return platform.WithDefaultAdapter(name)
}

// WithMatcher replaces the query evaluator.
func WithMatcher(m core.Matcher) Option {
	return platform.WithMatcher(m)
}

// WithEventBuffer allows specifying the size of each watcher buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithClock replaces the time source of the store timestamps.
func WithClock(now func() time.Time) Option {
	return platform.WithClock(now)
}

// WithMetrics sets the recorder notified after every adapter-backed operation.
func WithMetrics(m core.MetricsRecorder) Option {
	return platform.WithMetrics(m)
}

// WithDefinitions registers resources right after the store is created.
func WithDefinitions(defs ...core.Definition) Option {
	return platform.WithDefinitions(defs...)
}

// WithConfig applies a parsed configuration file.
func WithConfig(cfg *Config) Option {
	return platform.WithConfig(cfg)
}

// --- Factory ---

// New creates a new DataStore.
func New(opts ...Option) (*core.DataStore, error) {
	return platform.New(opts...)
}

// LoadConfig reads a configuration file.
func LoadConfig(path string) (*Config, error) {
	return platform.LoadConfig(path)
}

// NewResource creates a type-safe wrapper around a registered resource.
func NewResource[T any](ds *core.DataStore, name string) *Resource[T] {
	return typed.NewResource[T](ds, name)
}
