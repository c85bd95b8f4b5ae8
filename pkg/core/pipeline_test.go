package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendHook(tag string, log *[]string) HookFunc {
	return func(ctx context.Context, _ string, payload any) (any, error) {
		*log = append(*log, tag)
		return payload.(string) + tag, nil
	}
}

func TestRunPipeline_Order(t *testing.T) {
	var log []string
	def := &Definition{Name: "post", Hooks: map[Stage]HookFunc{
		StageBeforeValidate: appendHook("1", &log),
		StageAfterValidate:  appendHook("3", &log),
		StageBeforeUpdate:   appendHook("4", &log),
	}}

	out, err := RunPipeline(context.Background(), def, updateStages, "x")
	require.NoError(t, err)
	assert.Equal(t, "x134", out, "a missing stage is identity")
	assert.Equal(t, []string{"1", "3", "4"}, log)
}

func TestRunPipeline_AbortsOnFailure(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	def := &Definition{Name: "post", Hooks: map[Stage]HookFunc{
		StageBeforeValidate: func(ctx context.Context, _ string, payload any) (any, error) {
			return nil, boom
		},
		StageValidate: appendHook("2", &log),
	}}

	_, err := RunPipeline(context.Background(), def, updateStages, "x")
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsValidation(err))
	assert.Empty(t, log)
}

func TestRunPipeline_ValidationError(t *testing.T) {
	bad := errors.New("bad")
	def := &Definition{Name: "post", Hooks: map[Stage]HookFunc{
		StageValidate: func(ctx context.Context, _ string, payload any) (any, error) {
			return nil, bad
		},
	}}

	_, err := RunPipeline(context.Background(), def, createStages, "x")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "post", ve.Resource)
	assert.ErrorIs(t, err, bad)
}

func TestRunPipeline_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	def := &Definition{Name: "post"}
	_, err := RunPipeline(ctx, def, queryStages, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
