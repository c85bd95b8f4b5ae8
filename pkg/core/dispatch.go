package core

import "fmt"

// call bundles the resolved state of a single driver invocation.
type call struct {
	prefix  string
	def     *Definition
	col     *Collection
	opts    *Options
	adapter Adapter
	// adapterName is the adapter actually selected.
	adapterName string
}

// check is a precondition evaluated after the resource lookup and before options.
type check func() error

func checkID(prefix string, id any) check {
	return func() error {
		if _, ok := KeyOf(id); !ok {
			return illegalArgument(prefix, "id: Must be a string or a number!", map[string]any{"actual": fmt.Sprintf("%T", id)})
		}
		return nil
	}
}

func checkAttrs(prefix string, attrs Attributes) check {
	return func() error {
		if attrs == nil {
			return illegalArgument(prefix, "attrs: Must be an object!", nil)
		}
		return nil
	}
}

// prepare validates a driver call in order: resource, positional arguments,
// options, and finally the adapter. Nothing has run when it fails.
func (ds *DataStore) prepare(prefix, resourceName string, opts []CallOption, checks ...check) (*call, error) {
	def, col, err := ds.resource(prefix, resourceName)
	if err != nil {
		return nil, err
	}
	for _, c := range checks {
		if err := c(); err != nil {
			return nil, err
		}
	}
	o, err := buildOptions(prefix, opts)
	if err != nil {
		return nil, err
	}
	adapter, name, err := ds.resolveAdapter(prefix, def, o)
	if err != nil {
		return nil, err
	}
	return &call{prefix: prefix, def: def, col: col, opts: o, adapter: adapter, adapterName: name}, nil
}

// resolveAdapter picks, in order, the per-call adapter, the resource default
// and the store default.
func (ds *DataStore) resolveAdapter(prefix string, def *Definition, opts *Options) (Adapter, string, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	name := opts.Adapter
	if name == "" {
		name = def.DefaultAdapter
	}
	if name == "" {
		name = ds.defaultAdapter
	}
	if name == "" {
		return nil, "", &RuntimeError{Message: prefix + "no adapter is registered!"}
	}
	a, ok := ds.adapters[name]
	if !ok {
		return nil, "", &RuntimeError{Message: fmt.Sprintf("%s%s is not a registered adapter!", prefix, name)}
	}
	return a, name, nil
}
