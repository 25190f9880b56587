// Package mutations implements one handler per mutation type. Each handler
// validates its inputs against the current situation, applies the change, and
// emits a forward/backward patch pair plus zero or more messages. Validation
// always short-circuits before any mutation of shared state.
package mutations

import (
	"context"

	"pension-calculation-engine/internal/model"
	"pension-calculation-engine/internal/patch"
	"pension-calculation-engine/internal/schemeregistry"
)

// Handler is the single capability all mutation implementations share.
// Handlers must not retain the situation beyond their own invocation.
type Handler interface {
	Execute(ctx context.Context, state *model.Situation, mutation *model.Mutation, schemes *schemeregistry.Client) Result
}

// Result is a handler's verdict. A critical result never carries patches:
// nothing is committed when validation fails.
type Result struct {
	Messages []model.CalculationMessage
	Critical bool
	Forward  []patch.Op
	Backward []patch.Op
}

func (r Result) HasPatches() bool {
	return r.Forward != nil
}

func Critical(msg model.CalculationMessage) Result {
	return Result{Messages: []model.CalculationMessage{msg}, Critical: true}
}

func SuccessWithPatches(forward, backward []patch.Op) Result {
	return Result{Forward: forward, Backward: backward}
}

func Warnings(msgs []model.CalculationMessage) Result {
	return Result{Messages: msgs}
}

func WarningsWithPatches(msgs []model.CalculationMessage, forward, backward []patch.Op) Result {
	return Result{Messages: msgs, Forward: forward, Backward: backward}
}
