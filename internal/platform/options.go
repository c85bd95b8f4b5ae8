package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/datastore/pkg/core"
)

type namedAdapter struct {
	name    string
	adapter core.Adapter
}

// options holds the internal configuration of a DataStore.
type options struct {
	logger         *slog.Logger
	adapters       []namedAdapter
	defaultAdapter string
	matcher        core.Matcher
	eventBuffer    int
	clock          func() time.Time
	metrics        core.MetricsRecorder
	definitions    []core.Definition
	config         *Config
}

// Option defines a functional option for configuring a DataStore.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		eventBuffer: core.DefaultEventBuffer,
	}
}

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAdapter registers a backend under name. Adapters are registered in option order,
// so the first one becomes the default unless WithDefaultAdapter says otherwise.
func WithAdapter(name string, adapter core.Adapter) Option {
	return func(o *options) {
		o.adapters = append(o.adapters, namedAdapter{name: name, adapter: adapter})
	}
}

// WithDefaultAdapter selects the adapter used by resources that do not name one.
func WithDefaultAdapter(name string) Option {
	return func(o *options) {
		o.defaultAdapter = name
	}
}

// WithMatcher replaces the query evaluator used by Filter and EjectAll.
func WithMatcher(m core.Matcher) Option {
	return func(o *options) {
		o.matcher = m
	}
}

// WithEventBuffer allows specifying the size of each watcher buffer.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithClock replaces the time source of saved and modified timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithMetrics sets the recorder notified after every adapter-backed operation.
func WithMetrics(m core.MetricsRecorder) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithDefinitions registers resources right after the store is created.
func WithDefinitions(defs ...core.Definition) Option {
	return func(o *options) {
		o.definitions = append(o.definitions, defs...)
	}
}

// WithConfig applies a parsed configuration file. Explicit options win over it.
func WithConfig(cfg *Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}
