package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/datastore/pkg/core"
)

func TestUpdateAll_KeepsIdentity(t *testing.T) {
	hooks := newHookCounter()
	adapter := &fakeAdapter{
		onUpdateAll: func(attrs any, params core.Params) (any, error) {
			return []any{
				map[string]any{"id": 8, "age": 27, "author": "Adam"},
				map[string]any{"id": 9, "age": 27, "author": "Adam"},
			}, nil
		},
	}
	ds, err := newTestStore(adapter, hooks.definition("post"))
	require.NoError(t, err)
	ctx := context.Background()

	p8, err := ds.Inject(ctx, "post", core.Attributes{"id": 8, "age": 33, "author": "Adam"})
	require.NoError(t, err)
	p9, err := ds.Inject(ctx, "post", core.Attributes{"id": 9, "age": 33, "author": "Adam"})
	require.NoError(t, err)
	p10, err := ds.Inject(ctx, "post", core.Attributes{"id": 10, "age": 40, "author": "Eve"})
	require.NoError(t, err)

	modified8, _ := ds.LastModified("post", 8)
	saved8, _ := ds.LastSaved("post", 8)
	modified10, _ := ds.LastModified("post", 10)

	params := core.Where("age", "==", 33)
	recs, err := ds.UpdateAll(ctx, "post", core.Attributes{"age": 27}, params)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Same(t, p8, recs[0])
	assert.Same(t, p9, recs[1])

	for _, p := range []*core.Record{p8, p9} {
		age, _ := p.Get("age")
		assert.Equal(t, 27, age)
	}
	age10, _ := p10.Get("age")
	assert.Equal(t, 40, age10, "non-matching records are untouched")
	unchanged10, _ := ds.LastModified("post", 10)
	assert.Equal(t, modified10, unchanged10)

	newModified8, _ := ds.LastModified("post", 8)
	newSaved8, _ := ds.LastSaved("post", 8)
	assert.Greater(t, newModified8, modified8)
	assert.Greater(t, newSaved8, saved8)

	// The local view over the updated predicate agrees with the server response.
	local, err := ds.Filter("post", core.Where("age", "==", 27))
	require.NoError(t, err)
	assert.Equal(t, recs, local)

	assert.Equal(t, params, adapter.lastParams)
	assert.Equal(t, 1, hooks.get("queryTransform"))
	assert.Equal(t, 1, hooks.get("beforeUpdate"))
	assert.Equal(t, 1, hooks.get("afterUpdate"))
	assert.Equal(t, 1, hooks.get("serialize"))
	assert.Equal(t, 1, hooks.get("deserialize"))
	assert.Equal(t, 3+2, hooks.get("beforeInject"))
	assert.Equal(t, 3+2, hooks.get("afterInject"))

	// A second call counts once more per invocation.
	_, err = ds.UpdateAll(ctx, "post", core.Attributes{"age": 27}, params)
	require.NoError(t, err)
	assert.Equal(t, 2, hooks.get("beforeUpdate"))
	assert.Equal(t, 2, hooks.get("afterUpdate"))
	assert.Equal(t, 2, hooks.get("serialize"))
	assert.Equal(t, 2, hooks.get("deserialize"))
}

func TestUpdateAll_Preconditions(t *testing.T) {
	hooks := newHookCounter()
	adapter := &fakeAdapter{}
	ds, err := newTestStore(adapter, hooks.definition("post"))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = ds.UpdateAll(ctx, "user", core.Attributes{}, nil)
	assert.True(t, core.IsRuntime(err))
	assert.Equal(t, "DS.updateAll(resourceName, attrs, params[, options]): user is not a registered resource!", err.Error())

	_, err = ds.UpdateAll(ctx, "post", nil, nil)
	assert.True(t, core.IsIllegalArgument(err))
	assert.Equal(t, "DS.updateAll(resourceName, attrs, params[, options]): attrs: Must be an object!", err.Error())

	_, err = ds.UpdateAll(ctx, "post", core.Attributes{}, nil, nil)
	assert.True(t, core.IsIllegalArgument(err))

	assert.Zero(t, hooks.get("beforeUpdate"))
	assert.Zero(t, adapter.total())

	// Nil params are allowed and mean "everything".
	recs, err := ds.UpdateAll(ctx, "post", core.Attributes{"age": 1}, nil)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Nil(t, adapter.lastParams)
}

func TestUpdateAll_QueryTransform(t *testing.T) {
	def := core.Definition{
		Name: "post",
		Hooks: map[core.Stage]core.HookFunc{
			core.StageQueryTransform: func(ctx context.Context, _ string, payload any) (any, error) {
				return core.Where("published", "==", true), nil
			},
		},
	}
	adapter := &fakeAdapter{}
	ds, err := newTestStore(adapter, def)
	require.NoError(t, err)

	_, err = ds.UpdateAll(context.Background(), "post", core.Attributes{"age": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, core.Where("published", "==", true), adapter.lastParams)
}

func TestUpdateAll_WithoutCacheResponse(t *testing.T) {
	adapter := &fakeAdapter{
		onUpdateAll: func(attrs any, params core.Params) (any, error) {
			return []map[string]any{{"id": 1, "age": 2}}, nil
		},
	}
	ds, err := newTestStore(adapter, core.Definition{Name: "post"})
	require.NoError(t, err)

	recs, err := ds.UpdateAll(context.Background(), "post", core.Attributes{"age": 2}, nil, core.WithCacheResponse(false))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Detached())

	all, err := ds.GetAll("post")
	require.NoError(t, err)
	assert.Empty(t, all)
}
