// Package core holds the record store engine: resource definitions, the collection store,
// the injector, the lifecycle pipeline and the CRUD drivers built on top of them.
package core

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
	"github.com/tiendc/go-deepcopy"
)

// Attributes represents the flexible key-value pairs of a record.
type Attributes map[string]any

// Params carries query parameters, e.g. {"query": {"where": {"age": {"==": 33}}}}.
type Params map[string]any

// Record is the single canonical in-memory object for one entity of a resource.
// The store owns its storage; callers hold the pointer as a shared handle and
// observe every later change made through the store.
type Record struct {
	resource string
	key      string
	id       any
	detached bool

	mu    sync.RWMutex
	attrs Attributes
}

func newRecord(resource, key string, id any, attrs Attributes) *Record {
	return &Record{resource: resource, key: key, id: id, attrs: attrs}
}

// Resource returns the resource name the record belongs to.
func (r *Record) Resource() string { return r.resource }

// ID returns the primary key value as it was first seen.
func (r *Record) ID() any { return r.id }

// Key returns the normalized primary key used to index the record.
func (r *Record) Key() string { return r.key }

// Detached reports whether the record lives outside the store
// (e.g. returned by an operation called with WithCacheResponse(false)).
func (r *Record) Detached() bool { return r.detached }

// Get returns a single attribute value.
// Composite values are shared with the store; use Attributes for an isolated copy.
func (r *Record) Get(field string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.attrs[field]
	return v, ok
}

// Attributes returns a deep copy of the current attributes.
func (r *Record) Attributes() Attributes {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out, err := cloneAttributes(r.attrs)
	if err != nil {
		// deepcopy only fails on unsupported kinds (chan, func); fall back to a shallow copy.
		out = make(Attributes, len(r.attrs))
		for k, v := range r.attrs {
			out[k] = v
		}
	}
	return out
}

// MarshalJSON encodes the current attributes.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Attributes())
}

func (r *Record) String() string {
	return fmt.Sprintf("%s/%s", r.resource, r.key)
}

// merge deep-merges src into the record in place and reports whether anything changed.
// src must already be a private copy.
func (r *Record) merge(src Attributes) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attrs == nil {
		r.attrs = make(Attributes, len(src))
	}
	return deepMerge(r.attrs, src)
}

// EventType represents the type of change in the store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventSave   EventType = "SAVE"
	EventEject  EventType = "EJECT"
)

// Event represents a change of a record in the store.
type Event struct {
	Type      EventType
	Resource  string
	ID        string
	Timestamp int64 // Unix milliseconds
}

// String implements lifecycle.Event.
func (e Event) String() string {
	return fmt.Sprintf("%s %s/%s", e.Type, e.Resource, e.ID)
}

// KeyOf normalizes a primary key. Only non-empty strings and finite numbers are accepted.
// Numbers are keyed by their decimal representation, so 8, int64(8) and 8.0 address the
// same record.
func KeyOf(id any) (string, bool) {
	switch v := id.(type) {
	case string:
		return v, v != ""
	case json.Number:
		return v.String(), v != ""
	case int:
		return strconv.Itoa(v), true
	case int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(v).Int(), 10), true
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(v).Uint(), 10), true
	case float32:
		return formatFloat(float64(v))
	case float64:
		return formatFloat(v)
	default:
		return "", false
	}
}

func formatFloat(f float64) (string, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

func cloneAttributes(src Attributes) (Attributes, error) {
	if src == nil {
		return Attributes{}, nil
	}
	var out Attributes
	if err := deepcopy.Copy(&out, src); err != nil {
		return nil, fmt.Errorf("failed to copy attributes: %w", err)
	}
	return out, nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Attributes:
		return m, true
	default:
		return nil, false
	}
}

// deepMerge overwrites dst with src. Nested maps merge recursively; everything else is replaced.
func deepMerge(dst, src map[string]any) bool {
	changed := false
	for k, sv := range src {
		dv, exists := dst[k]
		if sm, ok := asMap(sv); ok && exists {
			if dm, ok := asMap(dv); ok {
				if deepMerge(dm, sm) {
					changed = true
				}
				continue
			}
		}
		if exists && reflect.DeepEqual(dv, sv) {
			continue
		}
		dst[k] = sv
		changed = true
	}
	return changed
}
