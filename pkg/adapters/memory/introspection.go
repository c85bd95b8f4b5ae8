package memory

import (
	"sort"

	"github.com/aretw0/introspection"
)

// AdapterState exposes internal state for observability.
type AdapterState struct {
	Tables  map[string]int `json:"tables"`
	Calls   map[string]int `json:"calls"`
	Pending []string       `json:"pending_failures,omitempty"`
}

// State implements introspection.Introspectable.
func (a *Adapter) State() any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	tables := make(map[string]int, len(a.tables))
	for name, t := range a.tables {
		tables[name] = len(t.rows)
	}
	calls := make(map[string]int, len(a.calls))
	for op, n := range a.calls {
		calls[op] = n
	}
	var pending []string
	for op := range a.failures {
		pending = append(pending, op)
	}
	sort.Strings(pending)

	return AdapterState{Tables: tables, Calls: calls, Pending: pending}
}

// ComponentType implements introspection.Component.
func (a *Adapter) ComponentType() string {
	return "memory-adapter"
}

var _ introspection.Introspectable = (*Adapter)(nil)
var _ introspection.Component = (*Adapter)(nil)
