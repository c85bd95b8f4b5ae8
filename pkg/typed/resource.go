package typed

import (
	"context"
	"fmt"

	"github.com/aretw0/datastore/pkg/core"
)

// Resource provides type-safe access to one registered resource.
type Resource[T any] struct {
	store *core.DataStore
	name  string
}

// NewResource wraps the resource registered under name.
func NewResource[T any](store *core.DataStore, name string) *Resource[T] {
	return &Resource[T]{store: store, name: name}
}

// Name returns the wrapped resource name.
func (r *Resource[T]) Name() string { return r.name }

// Get returns the cached record for id.
func (r *Resource[T]) Get(id any) (*Model[T], error) {
	rec, err := r.store.Get(r.name, id)
	if err != nil {
		return nil, err
	}
	return fromRecord[T](rec, r)
}

// Filter evaluates params against the cached records.
func (r *Resource[T]) Filter(params core.Params) ([]*Model[T], error) {
	recs, err := r.store.Filter(r.name, params)
	if err != nil {
		return nil, err
	}
	return fromRecords[T](recs, r)
}

// Inject merges v into the store without a backend round trip.
func (r *Resource[T]) Inject(ctx context.Context, v T) (*Model[T], error) {
	attrs, err := encode(v)
	if err != nil {
		return nil, err
	}
	rec, err := r.store.Inject(ctx, r.name, attrs)
	if err != nil {
		return nil, err
	}
	return fromRecord[T](rec, r)
}

// Create persists v through the backend.
func (r *Resource[T]) Create(ctx context.Context, v T, opts ...core.CallOption) (*Model[T], error) {
	attrs, err := encode(v)
	if err != nil {
		return nil, err
	}
	rec, err := r.store.Create(ctx, r.name, attrs, opts...)
	if err != nil {
		return nil, err
	}
	return fromRecord[T](rec, r)
}

// Find loads id from the cache or the backend.
func (r *Resource[T]) Find(ctx context.Context, id any, opts ...core.CallOption) (*Model[T], error) {
	rec, err := r.store.Find(ctx, r.name, id, opts...)
	if err != nil {
		return nil, err
	}
	return fromRecord[T](rec, r)
}

// FindAll loads every item matching params from the backend.
func (r *Resource[T]) FindAll(ctx context.Context, params core.Params, opts ...core.CallOption) ([]*Model[T], error) {
	recs, err := r.store.FindAll(ctx, r.name, params, opts...)
	if err != nil {
		return nil, err
	}
	return fromRecords[T](recs, r)
}

// Update persists v as the new state of id.
func (r *Resource[T]) Update(ctx context.Context, id any, v T, opts ...core.CallOption) (*Model[T], error) {
	attrs, err := encode(v)
	if err != nil {
		return nil, err
	}
	rec, err := r.store.Update(ctx, r.name, id, attrs, opts...)
	if err != nil {
		return nil, err
	}
	return fromRecord[T](rec, r)
}

// UpdateAll applies a partial update to every item matching params.
func (r *Resource[T]) UpdateAll(ctx context.Context, attrs core.Attributes, params core.Params, opts ...core.CallOption) ([]*Model[T], error) {
	recs, err := r.store.UpdateAll(ctx, r.name, attrs, params, opts...)
	if err != nil {
		return nil, err
	}
	return fromRecords[T](recs, r)
}

// Destroy removes id from the backend and the store.
func (r *Resource[T]) Destroy(ctx context.Context, id any, opts ...core.CallOption) error {
	return r.store.Destroy(ctx, r.name, id, opts...)
}

// Save implements Saver by updating the model's record with its Data.
func (r *Resource[T]) Save(ctx context.Context, m *Model[T]) error {
	if m.Record == nil {
		return fmt.Errorf("model has no record")
	}
	if m.Saver == nil {
		m.Saver = r
	}
	attrs, err := encode(m.Data)
	if err != nil {
		return err
	}
	rec, err := r.store.Update(ctx, r.name, m.Record.ID(), attrs)
	if err != nil {
		return err
	}
	m.Record = rec
	return m.Refresh()
}

// Watch streams the events of this resource.
func (r *Resource[T]) Watch(ctx context.Context) (<-chan core.Event, error) {
	return r.store.Watch(ctx, r.name+"/*")
}
