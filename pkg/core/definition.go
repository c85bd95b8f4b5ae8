package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Stage names a lifecycle hook point of a resource.
type Stage string

const (
	StageBeforeValidate Stage = "beforeValidate"
	StageValidate       Stage = "validate"
	StageAfterValidate  Stage = "afterValidate"
	StageBeforeCreate   Stage = "beforeCreate"
	StageAfterCreate    Stage = "afterCreate"
	StageBeforeUpdate   Stage = "beforeUpdate"
	StageAfterUpdate    Stage = "afterUpdate"
	StageBeforeDestroy  Stage = "beforeDestroy"
	StageAfterDestroy   Stage = "afterDestroy"
	StageBeforeInject   Stage = "beforeInject"
	StageAfterInject    Stage = "afterInject"
	StageBeforeEject    Stage = "beforeEject"
	StageAfterEject     Stage = "afterEject"
	StageQueryTransform Stage = "queryTransform"
)

// HookFunc is a lifecycle hook. It receives the resource name and the current payload and
// returns the (possibly transformed) payload. A hook may block (e.g. on I/O); it should
// honor ctx. A synchronous hook is simply one that returns immediately.
type HookFunc func(ctx context.Context, resourceName string, payload any) (any, error)

// TransformFunc is a pure, synchronous serialize/deserialize transform.
type TransformFunc func(resourceName string, data any) any

// Definition describes a registered resource. It must not be mutated after registration.
type Definition struct {
	Name           string
	IDAttribute    string
	DefaultAdapter string
	Hooks          map[Stage]HookFunc
	Serialize      TransformFunc
	Deserialize    TransformFunc
}

// Hook returns the hook registered for stage, or nil.
func (d *Definition) Hook(stage Stage) HookFunc {
	if d.Hooks == nil {
		return nil
	}
	return d.Hooks[stage]
}

func (d *Definition) serialize(data any) any {
	if d.Serialize == nil {
		return data
	}
	return d.Serialize(d.Name, data)
}

func (d *Definition) deserialize(data any) any {
	if d.Deserialize == nil {
		return data
	}
	return d.Deserialize(d.Name, data)
}

// primaryKey extracts the normalized primary key from attrs.
func (d *Definition) primaryKey(attrs Attributes) (string, any, bool) {
	raw, ok := attrs[d.IDAttribute]
	if !ok {
		return "", nil, false
	}
	key, ok := KeyOf(raw)
	return key, raw, ok
}

// Registry holds resource definitions keyed by name.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[string]*Definition)}
}

// Register validates and stores a copy of def. Names are unique.
func (r *Registry) Register(def Definition) (*Definition, error) {
	if def.Name == "" {
		return nil, &IllegalArgumentError{Message: "DS.defineResource(definition): name: Must be a non-empty string!"}
	}
	if def.IDAttribute == "" {
		def.IDAttribute = "id"
	}
	hooks := make(map[Stage]HookFunc, len(def.Hooks))
	for stage, fn := range def.Hooks {
		hooks[stage] = fn
	}
	def.Hooks = hooks

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.definitions[def.Name]; exists {
		return nil, &RuntimeError{Message: fmt.Sprintf("DS.defineResource(definition): %s is already registered!", def.Name)}
	}
	stored := def
	r.definitions[def.Name] = &stored
	return &stored, nil
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.definitions[name]
	return d, ok
}

// Names returns the registered resource names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
