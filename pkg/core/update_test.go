package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/datastore/pkg/core"
)

func TestUpdate_Preconditions(t *testing.T) {
	hooks := newHookCounter()
	adapter := &fakeAdapter{}
	ds, err := newTestStore(adapter, hooks.definition("post"))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("unregistered resource", func(t *testing.T) {
		_, err := ds.Update(ctx, "comment", 5, core.Attributes{"a": 1})
		require.Error(t, err)
		assert.True(t, core.IsRuntime(err))
		assert.Equal(t, "DS.update(resourceName, id, attrs[, options]): comment is not a registered resource!", err.Error())
	})

	t.Run("bad id", func(t *testing.T) {
		for _, id := range []any{nil, true, "", []int{1}, map[string]any{}} {
			_, err := ds.Update(ctx, "post", id, core.Attributes{"a": 1})
			require.Error(t, err)
			assert.True(t, core.IsIllegalArgument(err), "id %v", id)
			assert.Equal(t, "DS.update(resourceName, id, attrs[, options]): id: Must be a string or a number!", err.Error())
		}
	})

	t.Run("nil attrs", func(t *testing.T) {
		_, err := ds.Update(ctx, "post", 5, nil)
		require.Error(t, err)
		assert.True(t, core.IsIllegalArgument(err))
		assert.Equal(t, "DS.update(resourceName, id, attrs[, options]): attrs: Must be an object!", err.Error())
	})

	t.Run("nil option", func(t *testing.T) {
		_, err := ds.Update(ctx, "post", 5, core.Attributes{"a": 1}, nil)
		require.Error(t, err)
		assert.True(t, core.IsIllegalArgument(err))
		assert.Equal(t, "DS.update(resourceName, id, attrs[, options]): options: Must be an object!", err.Error())
	})

	t.Run("unknown adapter", func(t *testing.T) {
		_, err := ds.Update(ctx, "post", 5, core.Attributes{"a": 1}, core.WithAdapter("http"))
		require.Error(t, err)
		assert.True(t, core.IsRuntime(err))
	})

	// Nothing ran for any of the rejected calls.
	assert.Zero(t, hooks.get("beforeValidate"))
	assert.Zero(t, hooks.get("beforeUpdate"))
	assert.Zero(t, adapter.total())
}

func TestUpdate_RoundTrip(t *testing.T) {
	hooks := newHookCounter()
	adapter := &fakeAdapter{
		onUpdate: func(id any, attrs any) (any, error) {
			// The server asserts its own view of the record.
			return map[string]any{"id": id, "author": "John", "age": 31, "edited": true}, nil
		},
	}
	ds, err := newTestStore(adapter, hooks.definition("post"))
	require.NoError(t, err)
	ctx := context.Background()

	live, err := ds.Inject(ctx, "post", core.Attributes{"id": 5, "author": "John", "age": 30})
	require.NoError(t, err)

	before, err := ds.LastSaved("post", 5)
	require.NoError(t, err)
	assert.Zero(t, before)

	got, err := ds.Update(ctx, "post", 5, core.Attributes{"age": 31})
	require.NoError(t, err)

	assert.Same(t, live, got, "update must return the live record")
	age, _ := live.Get("age")
	assert.Equal(t, 31, age)
	edited, _ := live.Get("edited")
	assert.Equal(t, true, edited)

	after, err := ds.LastSaved("post", 5)
	require.NoError(t, err)
	assert.Greater(t, after, before)

	prev, err := ds.Previous("post", 5)
	require.NoError(t, err)
	assert.Equal(t, live.Attributes(), prev)

	assert.Equal(t, []string{
		"beforeInject", "afterInject",
		"beforeValidate", "validate", "afterValidate", "beforeUpdate",
		"serialize", "deserialize", "afterUpdate",
		"beforeInject", "afterInject",
	}, hooks.order)
}

func TestUpdate_DoesNotMutateCallerAttrs(t *testing.T) {
	def := core.Definition{
		Name: "post",
		Hooks: map[core.Stage]core.HookFunc{
			core.StageBeforeUpdate: func(ctx context.Context, _ string, payload any) (any, error) {
				attrs := payload.(core.Attributes)
				attrs["slug"] = "generated"
				return attrs, nil
			},
		},
	}
	adapter := &fakeAdapter{}
	ds, err := newTestStore(adapter, def)
	require.NoError(t, err)

	input := core.Attributes{"title": "hello"}
	rec, err := ds.Update(context.Background(), "post", "p1", input)
	require.NoError(t, err)

	assert.NotContains(t, input, "slug")
	slug, _ := rec.Get("slug")
	assert.Equal(t, "generated", slug)
}

func TestUpdate_ValidationFailure(t *testing.T) {
	errInvalid := errors.New("title is required")
	hooks := newHookCounter()
	def := hooks.definition("post")
	def.Hooks[core.StageValidate] = func(ctx context.Context, _ string, payload any) (any, error) {
		return nil, errInvalid
	}
	adapter := &fakeAdapter{}
	ds, err := newTestStore(adapter, def)
	require.NoError(t, err)
	ctx := context.Background()

	live, err := ds.Inject(ctx, "post", core.Attributes{"id": 1, "title": "a"})
	require.NoError(t, err)

	_, err = ds.Update(ctx, "post", 1, core.Attributes{"title": ""})
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.ErrorIs(t, err, errInvalid)

	assert.Equal(t, 1, hooks.get("beforeValidate"))
	assert.Zero(t, hooks.get("afterValidate"))
	assert.Zero(t, hooks.get("beforeUpdate"))
	assert.Zero(t, adapter.count("update"))

	title, _ := live.Get("title")
	assert.Equal(t, "a", title)
	saved, err := ds.LastSaved("post", 1)
	require.NoError(t, err)
	assert.Zero(t, saved)
}

func TestUpdate_AdapterFailureLeavesStoreUnchanged(t *testing.T) {
	hooks := newHookCounter()
	adapter := &fakeAdapter{
		onUpdate: func(id any, attrs any) (any, error) { return nil, errBackend },
	}
	ds, err := newTestStore(adapter, hooks.definition("post"))
	require.NoError(t, err)
	ctx := context.Background()

	live, err := ds.Inject(ctx, "post", core.Attributes{"id": 1, "title": "a"})
	require.NoError(t, err)
	modified, err := ds.LastModified("post", 1)
	require.NoError(t, err)

	_, err = ds.Update(ctx, "post", 1, core.Attributes{"title": "b"})
	require.ErrorIs(t, err, errBackend)
	assert.False(t, core.IsUnhandled(err), "adapter errors propagate unchanged")

	assert.Zero(t, hooks.get("afterUpdate"))
	assert.Zero(t, hooks.get("deserialize"))
	title, _ := live.Get("title")
	assert.Equal(t, "a", title)

	saved, _ := ds.LastSaved("post", 1)
	assert.Zero(t, saved)
	stillModified, _ := ds.LastModified("post", 1)
	assert.Equal(t, modified, stillModified)
	prev, _ := ds.Previous("post", 1)
	assert.Nil(t, prev)
}

func TestUpdate_WithoutCacheResponse(t *testing.T) {
	adapter := &fakeAdapter{
		onUpdate: func(id any, attrs any) (any, error) {
			return map[string]any{"id": id, "title": "server"}, nil
		},
	}
	def := core.Definition{
		Name: "post",
		Deserialize: func(_ string, data any) any {
			m := data.(map[string]any)
			m["deserialized"] = true
			return m
		},
	}
	ds, err := newTestStore(adapter, def)
	require.NoError(t, err)
	ctx := context.Background()

	live, err := ds.Inject(ctx, "post", core.Attributes{"id": 1, "title": "local"})
	require.NoError(t, err)

	rec, err := ds.Update(ctx, "post", 1, core.Attributes{"title": "server"}, core.WithCacheResponse(false))
	require.NoError(t, err)
	assert.True(t, rec.Detached())
	assert.NotSame(t, live, rec)
	assert.Equal(t, core.Attributes{"id": 1, "title": "server", "deserialized": true}, rec.Attributes())

	title, _ := live.Get("title")
	assert.Equal(t, "local", title)
	saved, _ := ds.LastSaved("post", 1)
	assert.Zero(t, saved)
}

func TestUpdate_ResponseWithoutID(t *testing.T) {
	adapter := &fakeAdapter{
		onUpdate: func(id any, attrs any) (any, error) {
			return map[string]any{"title": "partial"}, nil
		},
	}
	ds, err := newTestStore(adapter, core.Definition{Name: "post"})
	require.NoError(t, err)

	rec, err := ds.Update(context.Background(), "post", 12, core.Attributes{"title": "partial"})
	require.NoError(t, err)
	assert.Equal(t, "12", rec.Key())

	cached, err := ds.Get("post", "12")
	require.NoError(t, err)
	assert.Same(t, rec, cached)
}

func TestUpdate_BadResponseIsUnhandled(t *testing.T) {
	adapter := &fakeAdapter{
		onUpdate: func(id any, attrs any) (any, error) { return "not an object", nil },
	}
	ds, err := newTestStore(adapter, core.Definition{Name: "post"})
	require.NoError(t, err)

	_, err = ds.Update(context.Background(), "post", 1, core.Attributes{"title": "x"})
	require.Error(t, err)
	assert.True(t, core.IsUnhandled(err))
}

func TestUpdate_ConcurrentSameID(t *testing.T) {
	adapter := &fakeAdapter{}
	ds, err := newTestStore(adapter, core.Definition{Name: "post"})
	require.NoError(t, err)
	ctx := context.Background()

	live, err := ds.Inject(ctx, "post", core.Attributes{"id": 1, "n": -1})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ds.Update(ctx, "post", 1, core.Attributes{"n": i})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := ds.GetAll("post")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Same(t, live, all[0])

	prev, err := ds.Previous("post", 1)
	require.NoError(t, err)
	assert.Equal(t, live.Attributes(), prev, "the snapshot matches the last commit")
	assert.Equal(t, 50, adapter.count("update"))
}

func TestSave_ChangesOnly(t *testing.T) {
	adapter := &fakeAdapter{}
	ds, err := newTestStore(adapter, core.Definition{Name: "post"})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = ds.Update(ctx, "post", 1, core.Attributes{"title": "a", "body": "b"})
	require.NoError(t, err)

	// Nothing changed since the last save: no round trip.
	_, err = ds.Save(ctx, "post", 1, core.WithChangesOnly(true))
	require.NoError(t, err)
	assert.Equal(t, 1, adapter.count("update"))

	_, err = ds.Modify(ctx, "post", 1, core.Attributes{"title": "c"})
	require.NoError(t, err)
	dirty, err := ds.HasChanges("post", 1)
	require.NoError(t, err)
	assert.True(t, dirty)

	_, err = ds.Save(ctx, "post", 1, core.WithChangesOnly(true))
	require.NoError(t, err)
	assert.Equal(t, 2, adapter.count("update"))
	assert.Equal(t, core.Attributes{"title": "c"}, adapter.lastAttrs)

	dirty, err = ds.HasChanges("post", 1)
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestSave_NotInStore(t *testing.T) {
	ds, err := newTestStore(&fakeAdapter{}, core.Definition{Name: "post"})
	require.NoError(t, err)

	_, err = ds.Save(context.Background(), "post", 404)
	require.Error(t, err)
	assert.True(t, core.IsRuntime(err))
	assert.ErrorIs(t, err, core.ErrNotInStore)
}
