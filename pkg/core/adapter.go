package core

import "context"

// Adapter defines the contract for a remote backend.
// Adhering to this interface keeps the store independent of the wire transport
// (HTTP, RPC, SQL, in-process, ...). Payloads are backend-defined: the store only
// requires that the resource's Deserialize transform turns a response into attributes
// (or, for the *All variants, a list of attributes).
type Adapter interface {
	// Create persists a new item and returns the backend's representation of it.
	Create(ctx context.Context, def *Definition, attrs any, opts *Options) (any, error)

	// Find retrieves a single item by primary key.
	Find(ctx context.Context, def *Definition, id any, opts *Options) (any, error)

	// FindAll retrieves every item matching params.
	FindAll(ctx context.Context, def *Definition, params Params, opts *Options) (any, error)

	// Update applies attrs to the item identified by id and returns the updated item.
	Update(ctx context.Context, def *Definition, id any, attrs any, opts *Options) (any, error)

	// UpdateAll applies attrs to every item matching params in a single bulk operation
	// and returns the updated items.
	UpdateAll(ctx context.Context, def *Definition, attrs any, params Params, opts *Options) (any, error)

	// Destroy removes the item identified by id.
	Destroy(ctx context.Context, def *Definition, id any, opts *Options) error

	// DestroyAll removes every item matching params.
	DestroyAll(ctx context.Context, def *Definition, params Params, opts *Options) error
}

// Options holds the per-call configuration of an operation.
type Options struct {
	// Adapter overrides the resource's default adapter.
	Adapter string
	// CacheResponse injects the backend response into the store. Default: true.
	CacheResponse bool
	// BypassCache forces Find to hit the adapter even if the item is cached.
	BypassCache bool
	// ChangesOnly makes Save send only the attributes changed since the last save.
	ChangesOnly bool
	// Extra carries adapter-specific settings untouched by the store.
	Extra map[string]any
}

// CallOption configures a single operation.
type CallOption func(*Options)

// WithAdapter selects the adapter registered under name for this call.
func WithAdapter(name string) CallOption {
	return func(o *Options) {
		o.Adapter = name
	}
}

// WithCacheResponse controls whether the backend response is injected into the store.
func WithCacheResponse(cache bool) CallOption {
	return func(o *Options) {
		o.CacheResponse = cache
	}
}

// WithBypassCache forces Find to ask the adapter even when the item is cached.
func WithBypassCache(bypass bool) CallOption {
	return func(o *Options) {
		o.BypassCache = bypass
	}
}

// WithChangesOnly makes Save send only the changed attributes.
func WithChangesOnly(changesOnly bool) CallOption {
	return func(o *Options) {
		o.ChangesOnly = changesOnly
	}
}

// WithExtra passes an adapter-specific setting through to the adapter.
func WithExtra(key string, value any) CallOption {
	return func(o *Options) {
		if o.Extra == nil {
			o.Extra = make(map[string]any)
		}
		o.Extra[key] = value
	}
}

// buildOptions applies opts over the defaults. A nil option is a caller error.
func buildOptions(prefix string, opts []CallOption) (*Options, error) {
	o := &Options{CacheResponse: true}
	for _, opt := range opts {
		if opt == nil {
			return nil, illegalArgument(prefix, "options: Must be an object!", nil)
		}
		opt(o)
	}
	return o, nil
}
