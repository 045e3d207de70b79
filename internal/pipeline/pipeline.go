// Package pipeline implements the plugin-based pre/operation/post execution
// model: stage registration, sequential dispatch, and halt/continue/error
// semantics.
package pipeline

import (
	"context"

	"github.com/coderisk/gkg/internal/types"
)

// Stage identifies one of the three ordered execution stages. Operation is
// a sentinel attachment point: the transport invokes the actual business
// operation between PreOperation and PostOperation; plugins registered
// under Operation are reserved for observers.
type Stage int

const (
	PreOperation Stage = iota
	Operation
	PostOperation
)

// Outcome is a plugin's instruction to the runner.
type Outcome int

const (
	Continue Outcome = iota
	Halt
	HaltWithError
)

// Result is returned by Plugin.Call.
type Result struct {
	Outcome Outcome
	Err     error // set when Outcome == HaltWithError
}

func ContinueResult() Result { return Result{Outcome: Continue} }
func HaltResult() Result     { return Result{Outcome: Halt} }
func HaltWithErrorResult(err error) Result {
	return Result{Outcome: HaltWithError, Err: err}
}

// Plugin is a registered unit of behavior that runs at a pipeline stage.
type Plugin interface {
	Name() string
	Init(config map[string]interface{}) error
	Call(ctx context.Context, rc *types.RequestContext) Result
	Teardown() error
}

// Runner owns the per-stage plugin lists, populated at startup and treated
// as read-only thereafter.
type Runner struct {
	stages map[Stage][]Plugin
	order  []Plugin // registration order, for reverse-order teardown
}

// NewRunner creates an empty runner.
func NewRunner() *Runner {
	return &Runner{stages: make(map[Stage][]Plugin)}
}

// Register adds a plugin to a stage in insertion order. No implicit
// dependency resolution: callers control ordering by registration order.
func (r *Runner) Register(stage Stage, p Plugin) {
	r.stages[stage] = append(r.stages[stage], p)
	r.order = append(r.order, p)
}

// Init runs Init on every registered plugin; a failure aborts startup.
func (r *Runner) Init(config map[string]interface{}) error {
	for _, p := range r.order {
		if err := p.Init(config); err != nil {
			return err
		}
	}
	return nil
}

// Teardown runs Teardown on every plugin in reverse registration order.
func (r *Runner) Teardown() error {
	var first error
	for i := len(r.order) - 1; i >= 0; i-- {
		if err := r.order[i].Teardown(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RunStage executes a single stage's plugins in order. It returns the
// terminal Result: Continue if every plugin continued, or the Halt/
// HaltWithError that stopped the stage.
//
// Context mutation is not concurrent: within one request, only
// one plugin runs at a time, even though the request's own context may be
// cancelled out from under it — the runner checks for cancellation before
// starting the next plugin, not mid-call (in-flight plugin calls are
// allowed to finish, since a plugin may have applied partial effects to
// rc).
func (r *Runner) RunStage(ctx context.Context, stage Stage, rc *types.RequestContext) Result {
	for _, p := range r.stages[stage] {
		select {
		case <-ctx.Done():
			return HaltResult()
		default:
		}

		res := p.Call(ctx, rc)
		switch res.Outcome {
		case Continue:
			continue
		case Halt:
			return res
		case HaltWithError:
			rc.Err = res.Err
			return res
		}
	}
	return ContinueResult()
}

// RunRequest drives a full request through Pre -> op -> Post, invoking op
// between the two plugin stages. If PreOperation
// halts with an error, op is never called and PostOperation is skipped. If
// PreOperation halts without an error, op still runs (only a
// HaltWithError prevents the operation), and PostOperation is skipped only
// if rc.Err is now set.
func (r *Runner) RunRequest(ctx context.Context, rc *types.RequestContext, op func(context.Context, *types.RequestContext) error) error {
	preResult := r.RunStage(ctx, PreOperation, rc)
	if preResult.Outcome == HaltWithError {
		return rc.Err
	}

	if err := op(ctx, rc); err != nil {
		rc.Err = err
		return err
	}
	if rc.Err != nil {
		return rc.Err
	}

	postResult := r.RunStage(ctx, PostOperation, rc)
	if postResult.Outcome == HaltWithError {
		return rc.Err
	}
	return nil
}
