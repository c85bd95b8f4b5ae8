package core

import (
	"github.com/aretw0/introspection"
)

// ResourceState summarizes one collection.
type ResourceState struct {
	Name           string `json:"name"`
	IDAttribute    string `json:"id_attribute"`
	DefaultAdapter string `json:"default_adapter,omitempty"`
	Records        int    `json:"records"`
}

// DataStoreState exposes internal state for observability.
type DataStoreState struct {
	Resources      []ResourceState   `json:"resources"`
	Adapters       map[string]string `json:"adapters"`
	DefaultAdapter string            `json:"default_adapter"`
	Watchers       int               `json:"watchers"`
}

// State implements introspection.Introspectable.
func (ds *DataStore) State() any {
	var resources []ResourceState
	for _, name := range ds.registry.Names() {
		def, _ := ds.registry.Get(name)
		rs := ResourceState{Name: name, IDAttribute: def.IDAttribute, DefaultAdapter: def.DefaultAdapter}
		if col, ok := ds.store.collection(name); ok {
			rs.Records = col.len()
		}
		resources = append(resources, rs)
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()
	adapters := make(map[string]string, len(ds.adapters))
	for name, a := range ds.adapters {
		kind := "adapter"
		// Report the component type when the adapter exposes one.
		if comp, ok := a.(introspection.Component); ok {
			kind = comp.ComponentType()
		}
		adapters[name] = kind
	}

	return DataStoreState{
		Resources:      resources,
		Adapters:       adapters,
		DefaultAdapter: ds.defaultAdapter,
		Watchers:       ds.broker.count(),
	}
}

// ComponentType implements introspection.Component.
func (ds *DataStore) ComponentType() string {
	return "datastore"
}

var _ introspection.Introspectable = (*DataStore)(nil)
var _ introspection.Component = (*DataStore)(nil)
