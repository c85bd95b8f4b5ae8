package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// MetricsRecorder observes completed operations.
type MetricsRecorder interface {
	Observe(resource, operation string, elapsed time.Duration, err error)
}

// Config holds the dependencies of a DataStore.
type Config struct {
	Logger         *slog.Logger
	DefaultAdapter string
	Matcher        Matcher
	EventBuffer    int
	Clock          func() time.Time
	Metrics        MetricsRecorder
}

// DataStore is the entry point of the record store. It owns the resource registry,
// the collection store, the adapter table and the event broker.
type DataStore struct {
	registry *Registry
	store    *Store
	broker   *broker
	matcher  Matcher
	logger   *slog.Logger
	metrics  MetricsRecorder
	clock    func() time.Time

	mu             sync.RWMutex
	adapters       map[string]Adapter
	defaultAdapter string
}

// New creates a DataStore from cfg. Zero values select the defaults:
// WhereMatcher, time.Now, a buffer of DefaultEventBuffer events per watcher.
func New(cfg Config) *DataStore {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	matcher := cfg.Matcher
	if matcher == nil {
		matcher = WhereMatcher{}
	}
	return &DataStore{
		registry:       NewRegistry(),
		store:          NewStore(clock),
		broker:         newBroker(cfg.EventBuffer, cfg.Logger),
		matcher:        matcher,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		clock:          clock,
		adapters:       make(map[string]Adapter),
		defaultAdapter: cfg.DefaultAdapter,
	}
}

// DefineResource registers a resource and creates its empty collection.
func (ds *DataStore) DefineResource(def Definition) (*Definition, error) {
	stored, err := ds.registry.Register(def)
	if err != nil {
		return nil, err
	}
	ds.store.ensure(stored.Name)
	if ds.logger != nil {
		ds.logger.Debug("resource defined", "resource", stored.Name, "idAttribute", stored.IDAttribute)
	}
	return stored, nil
}

// Definition returns the registered definition of resourceName.
func (ds *DataStore) Definition(resourceName string) (*Definition, bool) {
	return ds.registry.Get(resourceName)
}

// Resources lists the registered resource names.
func (ds *DataStore) Resources() []string {
	return ds.registry.Names()
}

// RegisterAdapter makes an adapter selectable by name. The first adapter
// registered becomes the default unless one was configured.
func (ds *DataStore) RegisterAdapter(name string, a Adapter) error {
	if name == "" {
		return &IllegalArgumentError{Message: "DS.registerAdapter(name, adapter): name: Must be a non-empty string!"}
	}
	if a == nil {
		return &IllegalArgumentError{Message: "DS.registerAdapter(name, adapter): adapter: Must not be nil!"}
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.adapters[name] = a
	if ds.defaultAdapter == "" {
		ds.defaultAdapter = name
	}
	return nil
}

// Adapters lists the registered adapter names.
func (ds *DataStore) Adapters() []string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	names := make([]string, 0, len(ds.adapters))
	for name := range ds.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Watch subscribes to store events whose "resource/id" key matches the glob pattern.
// An empty pattern matches everything. The channel is closed when ctx is done.
func (ds *DataStore) Watch(ctx context.Context, pattern string) (<-chan Event, error) {
	return ds.broker.subscribe(ctx, pattern)
}

func (ds *DataStore) emit(t EventType, resource, key string) {
	ds.broker.publish(Event{
		Type:      t,
		Resource:  resource,
		ID:        key,
		Timestamp: ds.clock().UnixMilli(),
	})
}

func (ds *DataStore) observe(resource, operation string, start time.Time, err *error) {
	if ds.metrics == nil {
		return
	}
	ds.metrics.Observe(resource, operation, time.Since(start), *err)
}

// resource resolves a registered resource and its collection.
func (ds *DataStore) resource(prefix, resourceName string) (*Definition, *Collection, error) {
	def, ok := ds.registry.Get(resourceName)
	if !ok {
		return nil, nil, notRegistered(prefix, resourceName)
	}
	col, ok := ds.store.collection(resourceName)
	if !ok {
		return nil, nil, &UnhandledError{Err: fmt.Errorf("collection of %s is missing", resourceName)}
	}
	return def, col, nil
}
