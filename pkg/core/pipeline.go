package core

import (
	"context"
	"errors"
)

// Standard stage sets, in execution order.
var (
	createStages  = []Stage{StageBeforeValidate, StageValidate, StageAfterValidate, StageBeforeCreate}
	updateStages  = []Stage{StageBeforeValidate, StageValidate, StageAfterValidate, StageBeforeUpdate}
	destroyStages = []Stage{StageBeforeDestroy}
	queryStages   = []Stage{StageQueryTransform}
)

// RunPipeline threads payload through the hooks named by stages, in order.
// Each hook's output feeds the next one. A missing hook behaves as identity.
// The first failure aborts the pipeline: later hooks never run and the error
// is returned as-is, except for the validate stage, whose failures are wrapped
// in a ValidationError.
func RunPipeline(ctx context.Context, def *Definition, stages []Stage, payload any) (any, error) {
	current := payload
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hook := def.Hook(stage)
		if hook == nil {
			continue
		}
		next, err := hook(ctx, def.Name, current)
		if err != nil {
			if stage == StageValidate {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					err = &ValidationError{Resource: def.Name, Err: err}
				}
			}
			return nil, err
		}
		current = next
	}
	return current, nil
}

// runHook runs a single stage.
func runHook(ctx context.Context, def *Definition, stage Stage, payload any) (any, error) {
	return RunPipeline(ctx, def, []Stage{stage}, payload)
}
