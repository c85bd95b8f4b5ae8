package platform_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/datastore/internal/platform"
	"github.com/aretw0/datastore/pkg/adapters/memory"
	"github.com/aretw0/datastore/pkg/core"
)

func TestNew_WiresOptions(t *testing.T) {
	primary := memory.New()
	secondary := memory.New()
	fixed := time.UnixMilli(1_000)

	ds, err := platform.New(
		platform.WithAdapter("primary", primary),
		platform.WithAdapter("secondary", secondary),
		platform.WithDefaultAdapter("secondary"),
		platform.WithClock(func() time.Time { return fixed }),
		platform.WithDefinitions(core.Definition{Name: "post"}),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"primary", "secondary"}, ds.Adapters())

	_, err = ds.Create(context.Background(), "post", core.Attributes{"id": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, secondary.Calls("create"))
	assert.Zero(t, primary.Calls("create"))

	// The clock is frozen; timestamps still advance strictly.
	saved, err := ds.LastSaved("post", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), saved)
	_, err = ds.Update(context.Background(), "post", 1, core.Attributes{"a": 1})
	require.NoError(t, err)
	next, _ := ds.LastSaved("post", 1)
	assert.Equal(t, int64(1_001), next)
}

func TestNew_FromConfig(t *testing.T) {
	cfg := &platform.Config{
		DefaultAdapter: "memory",
		Resources:      []platform.ResourceConfig{{Name: "user", IDAttribute: "uid"}},
	}
	ds, err := platform.New(
		platform.WithConfig(cfg),
		platform.WithAdapter("memory", memory.New()),
		platform.WithDefinitions(core.Definition{Name: "post"}),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"post", "user"}, ds.Resources())

	def, ok := ds.Definition("user")
	require.True(t, ok)
	assert.Equal(t, "uid", def.IDAttribute)
}

func TestNew_DuplicateDefinition(t *testing.T) {
	_, err := platform.New(platform.WithDefinitions(core.Definition{Name: "post"}, core.Definition{Name: "post"}))
	require.Error(t, err)
	assert.True(t, core.IsRuntime(err))
}
