package core_test

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/datastore/pkg/core"
)

var errBackend = errors.New("backend unavailable")

// fakeAdapter records every call and answers with programmable responses.
// Unset responders echo the request back.
type fakeAdapter struct {
	mu    sync.Mutex
	calls []string

	onUpdate    func(id any, attrs any) (any, error)
	onUpdateAll func(attrs any, params core.Params) (any, error)
	onFind      func(id any) (any, error)
	onFindAll   func(params core.Params) (any, error)
	onDestroy   func(id any) error

	lastAttrs  any
	lastParams core.Params
}

func (f *fakeAdapter) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
}

func (f *fakeAdapter) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeAdapter) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAdapter) Create(ctx context.Context, def *core.Definition, attrs any, opts *core.Options) (any, error) {
	f.record("create")
	f.mu.Lock()
	f.lastAttrs = attrs
	f.mu.Unlock()
	return attrs, nil
}

func (f *fakeAdapter) Find(ctx context.Context, def *core.Definition, id any, opts *core.Options) (any, error) {
	f.record("find")
	if f.onFind != nil {
		return f.onFind(id)
	}
	return map[string]any{def.IDAttribute: id}, nil
}

func (f *fakeAdapter) FindAll(ctx context.Context, def *core.Definition, params core.Params, opts *core.Options) (any, error) {
	f.record("findAll")
	f.mu.Lock()
	f.lastParams = params
	f.mu.Unlock()
	if f.onFindAll != nil {
		return f.onFindAll(params)
	}
	return []any{}, nil
}

func (f *fakeAdapter) Update(ctx context.Context, def *core.Definition, id any, attrs any, opts *core.Options) (any, error) {
	f.record("update")
	f.mu.Lock()
	f.lastAttrs = attrs
	f.mu.Unlock()
	if f.onUpdate != nil {
		return f.onUpdate(id, attrs)
	}
	out := map[string]any{def.IDAttribute: id}
	if m, ok := attrs.(core.Attributes); ok {
		for k, v := range m {
			out[k] = v
		}
	}
	return out, nil
}

func (f *fakeAdapter) UpdateAll(ctx context.Context, def *core.Definition, attrs any, params core.Params, opts *core.Options) (any, error) {
	f.record("updateAll")
	f.mu.Lock()
	f.lastAttrs = attrs
	f.lastParams = params
	f.mu.Unlock()
	if f.onUpdateAll != nil {
		return f.onUpdateAll(attrs, params)
	}
	return nil, nil
}

func (f *fakeAdapter) Destroy(ctx context.Context, def *core.Definition, id any, opts *core.Options) error {
	f.record("destroy")
	if f.onDestroy != nil {
		return f.onDestroy(id)
	}
	return nil
}

func (f *fakeAdapter) DestroyAll(ctx context.Context, def *core.Definition, params core.Params, opts *core.Options) error {
	f.record("destroyAll")
	f.mu.Lock()
	f.lastParams = params
	f.mu.Unlock()
	return nil
}

// hookCounter counts hook and transform invocations per stage.
type hookCounter struct {
	mu     sync.Mutex
	counts map[string]int
	order  []string
}

func newHookCounter() *hookCounter {
	return &hookCounter{counts: make(map[string]int)}
}

func (h *hookCounter) hit(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[name]++
	h.order = append(h.order, name)
}

func (h *hookCounter) get(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[name]
}

// definition returns a Definition whose every stage and transform is an
// identity function counted by h.
func (h *hookCounter) definition(name string) core.Definition {
	hooks := make(map[core.Stage]core.HookFunc)
	for _, stage := range []core.Stage{
		core.StageBeforeValidate, core.StageValidate, core.StageAfterValidate,
		core.StageBeforeCreate, core.StageAfterCreate,
		core.StageBeforeUpdate, core.StageAfterUpdate,
		core.StageBeforeDestroy, core.StageAfterDestroy,
		core.StageBeforeInject, core.StageAfterInject,
		core.StageBeforeEject, core.StageAfterEject,
		core.StageQueryTransform,
	} {
		stage := stage
		hooks[stage] = func(ctx context.Context, resourceName string, payload any) (any, error) {
			h.hit(string(stage))
			return payload, nil
		}
	}
	return core.Definition{
		Name:  name,
		Hooks: hooks,
		Serialize: func(resourceName string, data any) any {
			h.hit("serialize")
			return data
		},
		Deserialize: func(resourceName string, data any) any {
			h.hit("deserialize")
			return data
		},
	}
}

func newTestStore(adapter core.Adapter, defs ...core.Definition) (*core.DataStore, error) {
	ds := core.New(core.Config{})
	if err := ds.RegisterAdapter("fake", adapter); err != nil {
		return nil, err
	}
	for _, def := range defs {
		if _, err := ds.DefineResource(def); err != nil {
			return nil, err
		}
	}
	return ds, nil
}
