// Package memory provides an in-process backend implementing core.Adapter.
// It answers queries with the same matcher the store uses for local filtering,
// which makes it suitable for tests, demos and the CLI.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/tiendc/go-deepcopy"

	"github.com/aretw0/datastore/pkg/core"
)

// ErrNotFound is returned when an id is not present in a table.
var ErrNotFound = errors.New("not found")

type table struct {
	rows  map[string]core.Attributes
	order []string
}

func newTable() *table {
	return &table{rows: make(map[string]core.Attributes)}
}

func (t *table) put(key string, row core.Attributes) {
	if _, ok := t.rows[key]; !ok {
		t.order = append(t.order, key)
	}
	t.rows[key] = row
}

func (t *table) delete(key string) {
	delete(t.rows, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

func (t *table) list() []core.Attributes {
	out := make([]core.Attributes, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.rows[k])
	}
	return out
}

// Adapter is a thread-safe in-memory backend.
type Adapter struct {
	mu       sync.RWMutex
	tables   map[string]*table
	matcher  core.Matcher
	newID    func() string
	logger   *slog.Logger
	failures map[string]error
	calls    map[string]int
}

var _ core.Adapter = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithMatcher replaces the query evaluator.
func WithMatcher(m core.Matcher) Option {
	return func(a *Adapter) {
		a.matcher = m
	}
}

// WithLogger sets the logger used for call tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithIDGenerator replaces the generator used by Create for rows without an id.
func WithIDGenerator(fn func() string) Option {
	return func(a *Adapter) {
		a.newID = fn
	}
}

// New creates an empty backend.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		tables:   make(map[string]*table),
		matcher:  core.WhereMatcher{},
		newID:    uuid.NewString,
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Seed stores rows for resource, keyed by idAttribute.
func (a *Adapter) Seed(resource, idAttribute string, rows ...core.Attributes) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	t := a.table(resource)
	for i, row := range rows {
		key, ok := core.KeyOf(row[idAttribute])
		if !ok {
			return fmt.Errorf("seed %s[%d]: missing or invalid %q", resource, i, idAttribute)
		}
		c, err := clone(row)
		if err != nil {
			return err
		}
		t.put(key, c)
	}
	return nil
}

// FailNext makes the next call of op ("create", "update", "updateAll", ...) return err.
func (a *Adapter) FailNext(op string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[op] = err
}

// Calls reports how many times op was invoked.
func (a *Adapter) Calls(op string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.calls[op]
}

// Rows returns a copy of the rows of resource in insertion order.
func (a *Adapter) Rows(resource string) []core.Attributes {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.tables[resource]
	if !ok {
		return nil
	}
	out := make([]core.Attributes, 0, len(t.order))
	for _, row := range t.list() {
		c, err := clone(row)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Create implements core.Adapter. Rows without a primary key get a generated one.
func (a *Adapter) Create(ctx context.Context, def *core.Definition, attrs any, opts *core.Options) (any, error) {
	row, err := a.begin(ctx, "create", def, attrs)
	if err != nil {
		return nil, err
	}
	defer a.mu.Unlock()

	if row == nil {
		row = core.Attributes{}
	}
	if _, ok := row[def.IDAttribute]; !ok {
		row[def.IDAttribute] = a.newID()
	}
	key, ok := core.KeyOf(row[def.IDAttribute])
	if !ok {
		return nil, fmt.Errorf("create %s: invalid %q", def.Name, def.IDAttribute)
	}
	t := a.table(def.Name)
	if _, exists := t.rows[key]; exists {
		return nil, fmt.Errorf("create %s/%s: already exists", def.Name, key)
	}
	t.put(key, row)
	return response(row)
}

// Find implements core.Adapter.
func (a *Adapter) Find(ctx context.Context, def *core.Definition, id any, opts *core.Options) (any, error) {
	if _, err := a.begin(ctx, "find", def, nil); err != nil {
		return nil, err
	}
	defer a.mu.Unlock()

	row, _, err := a.lookup(def, id)
	if err != nil {
		return nil, err
	}
	return response(row)
}

// FindAll implements core.Adapter.
func (a *Adapter) FindAll(ctx context.Context, def *core.Definition, params core.Params, opts *core.Options) (any, error) {
	if _, err := a.begin(ctx, "findAll", def, nil); err != nil {
		return nil, err
	}
	defer a.mu.Unlock()

	rows, err := core.Select(a.matcher, params, a.table(def.Name).list())
	if err != nil {
		return nil, err
	}
	return responses(rows)
}

// Update implements core.Adapter. Top-level attributes overwrite the stored ones.
func (a *Adapter) Update(ctx context.Context, def *core.Definition, id any, attrs any, opts *core.Options) (any, error) {
	patch, err := a.begin(ctx, "update", def, attrs)
	if err != nil {
		return nil, err
	}
	defer a.mu.Unlock()

	row, _, err := a.lookup(def, id)
	if err != nil {
		return nil, err
	}
	for k, v := range patch {
		if k == def.IDAttribute {
			continue
		}
		row[k] = v
	}
	return response(row)
}

// UpdateAll implements core.Adapter.
func (a *Adapter) UpdateAll(ctx context.Context, def *core.Definition, attrs any, params core.Params, opts *core.Options) (any, error) {
	patch, err := a.begin(ctx, "updateAll", def, attrs)
	if err != nil {
		return nil, err
	}
	defer a.mu.Unlock()

	rows, err := core.Select(a.matcher, params, a.table(def.Name).list())
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		own, err := clone(patch)
		if err != nil {
			return nil, err
		}
		for k, v := range own {
			if k == def.IDAttribute {
				continue
			}
			row[k] = v
		}
	}
	return responses(rows)
}

// Destroy implements core.Adapter.
func (a *Adapter) Destroy(ctx context.Context, def *core.Definition, id any, opts *core.Options) error {
	if _, err := a.begin(ctx, "destroy", def, nil); err != nil {
		return err
	}
	defer a.mu.Unlock()

	_, key, err := a.lookup(def, id)
	if err != nil {
		return err
	}
	a.table(def.Name).delete(key)
	return nil
}

// DestroyAll implements core.Adapter.
func (a *Adapter) DestroyAll(ctx context.Context, def *core.Definition, params core.Params, opts *core.Options) error {
	if _, err := a.begin(ctx, "destroyAll", def, nil); err != nil {
		return err
	}
	defer a.mu.Unlock()

	t := a.table(def.Name)
	rows, err := core.Select(a.matcher, params, t.list())
	if err != nil {
		return err
	}
	for _, row := range rows {
		if key, ok := core.KeyOf(row[def.IDAttribute]); ok {
			t.delete(key)
		}
	}
	return nil
}

// begin counts the call, honors ctx and programmed failures, decodes attrs and
// returns with the write lock held. On error the lock is released.
func (a *Adapter) begin(ctx context.Context, op string, def *core.Definition, attrs any) (core.Attributes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.calls[op]++
	if a.logger != nil {
		a.logger.Debug("memory adapter call", "operation", op, "resource", def.Name)
	}
	if err, ok := a.failures[op]; ok {
		delete(a.failures, op)
		a.mu.Unlock()
		return nil, err
	}
	if attrs == nil {
		return nil, nil
	}
	row, err := decode(attrs)
	if err != nil {
		a.mu.Unlock()
		return nil, fmt.Errorf("%s %s: %w", op, def.Name, err)
	}
	return row, nil
}

func (a *Adapter) table(resource string) *table {
	t, ok := a.tables[resource]
	if !ok {
		t = newTable()
		a.tables[resource] = t
	}
	return t
}

func (a *Adapter) lookup(def *core.Definition, id any) (core.Attributes, string, error) {
	key, ok := core.KeyOf(id)
	if !ok {
		return nil, "", fmt.Errorf("%s: invalid id %v", def.Name, id)
	}
	row, ok := a.table(def.Name).rows[key]
	if !ok {
		return nil, "", fmt.Errorf("%s/%s: %w", def.Name, key, ErrNotFound)
	}
	return row, key, nil
}

// decode accepts whatever a Serialize transform produced, as long as it is a map.
func decode(attrs any) (core.Attributes, error) {
	switch t := attrs.(type) {
	case core.Attributes:
		return clone(t)
	case map[string]any:
		return clone(core.Attributes(t))
	default:
		return nil, fmt.Errorf("unsupported payload %T", attrs)
	}
}

func clone(row core.Attributes) (core.Attributes, error) {
	var out core.Attributes
	if err := deepcopy.Copy(&out, row); err != nil {
		return nil, fmt.Errorf("failed to copy row: %w", err)
	}
	if out == nil {
		out = core.Attributes{}
	}
	return out, nil
}

// response detaches row from the table so callers never alias backend state.
func response(row core.Attributes) (any, error) {
	c, err := clone(row)
	if err != nil {
		return nil, err
	}
	return map[string]any(c), nil
}

func responses(rows []core.Attributes) (any, error) {
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		r, err := response(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
