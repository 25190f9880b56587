// Package engine drives an ordered batch of mutations against one situation:
// sequential handler dispatch, message aggregation, and whole-batch atomicity
// via an undo stack of backward patches.
package engine

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"pension-calculation-engine/internal/model"
	"pension-calculation-engine/internal/mutations"
	"pension-calculation-engine/internal/patch"
	"pension-calculation-engine/internal/schemeregistry"
)

type Engine struct {
	schemes *schemeregistry.Client
}

// New builds an engine. schemes may be nil, in which case every handler uses
// the default accrual rate.
func New(schemes *schemeregistry.Client) *Engine {
	return &Engine{schemes: schemes}
}

// Process runs the batch. The boundary layer has already checked that the
// tenant id and mutation list are non-empty. A batch either fully applies or
// fully reverts: on the first critical result, every committed change is
// unwound by applying the recorded backward patches in LIFO order, and the
// response carries no net patch.
func (e *Engine) Process(ctx context.Context, req *model.CalculationRequest) *model.CalculationResponse {
	start := time.Now()

	state := copySituation(req.Situation)
	initial := copySituation(req.Situation) // immutable snapshot for the response

	var (
		allMessages []model.CalculationMessage
		processed   []model.ProcessedMutation
		undoStack   [][]patch.Op
		forward     []patch.Op
	)
	outcome := model.OutcomeSuccess

	muts := req.CalculationInstructions.Mutations
	lastMutationID := muts[0].MutationID
	lastMutationIndex := 0
	lastActualAt := muts[0].ActualAt

	for i := range muts {
		mut := &muts[i]

		handler, ok := mutations.Get(mut.MutationDefinitionName)
		if !ok {
			msg := model.Critical("UNKNOWN_MUTATION_TYPE",
				fmt.Sprintf("Unknown mutation type: %s", mut.MutationDefinitionName))
			msg.ID = len(allMessages)
			allMessages = append(allMessages, msg)
			processed = append(processed, model.ProcessedMutation{
				Mutation:                  *mut,
				CalculationMessageIndexes: []int{msg.ID},
			})
			outcome = model.OutcomeFailure
			break
		}

		res := handler.Execute(ctx, state, mut, e.schemes)

		var msgIndexes []int
		for _, m := range res.Messages {
			m.ID = len(allMessages)
			allMessages = append(allMessages, m)
			msgIndexes = append(msgIndexes, m.ID)
		}
		processed = append(processed, model.ProcessedMutation{
			Mutation:                  *mut,
			CalculationMessageIndexes: msgIndexes,
		})

		if res.Critical {
			outcome = model.OutcomeFailure
			break
		}

		if res.HasPatches() {
			undoStack = append(undoStack, res.Backward)
			forward = append(forward, res.Forward...)
		}
		lastMutationID = mut.MutationID
		lastMutationIndex = i
		lastActualAt = mut.ActualAt
	}

	backward := []patch.Op{}
	if outcome == model.OutcomeSuccess {
		for i := len(undoStack) - 1; i >= 0; i-- {
			backward = append(backward, undoStack[i]...)
		}
	} else {
		state = unwind(state, initial, undoStack)
		forward = nil
		// nothing committed: the end envelope points back at the batch start
		lastMutationID = muts[0].MutationID
		lastMutationIndex = 0
		lastActualAt = muts[0].ActualAt
	}

	if allMessages == nil {
		allMessages = []model.CalculationMessage{}
	}
	if forward == nil {
		forward = []patch.Op{}
	}

	elapsed := time.Since(start)
	now := time.Now().UTC()

	return &model.CalculationResponse{
		CalculationMetadata: model.CalculationMetadata{
			CalculationID:          uuid.New().String(),
			TenantID:               req.TenantID,
			CalculationStartedAt:   now.Add(-elapsed).Format(time.RFC3339),
			CalculationCompletedAt: now.Format(time.RFC3339),
			CalculationDurationMs:  elapsed.Milliseconds(),
			CalculationOutcome:     outcome,
		},
		CalculationResult: model.CalculationResult{
			Messages:      allMessages,
			Mutations:     processed,
			ForwardPatch:  forward,
			BackwardPatch: backward,
			EndSituation: model.SituationEnvelope{
				MutationID:    lastMutationID,
				MutationIndex: lastMutationIndex,
				ActualAt:      lastActualAt,
				Situation:     *state,
			},
			InitialSituation: model.InitialSituation{
				ActualAt:  muts[0].ActualAt,
				Situation: *initial,
			},
		},
	}
}

// unwind applies the recorded backward patches in LIFO order against the
// situation tree. Backward patches are handler-built; an apply failure here
// is a handler bug, in which case the pre-batch snapshot is restored instead.
func unwind(state, initial *model.Situation, undoStack [][]patch.Op) *model.Situation {
	if len(undoStack) == 0 {
		return copySituation(initial)
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return copySituation(initial)
	}
	var tree interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return copySituation(initial)
	}

	for i := len(undoStack) - 1; i >= 0; i-- {
		tree, err = patch.Apply(tree, undoStack[i])
		if err != nil {
			return copySituation(initial)
		}
	}

	rebuilt, err := json.Marshal(tree)
	if err != nil {
		return copySituation(initial)
	}
	restored := &model.Situation{}
	if err := json.Unmarshal(rebuilt, restored); err != nil {
		return copySituation(initial)
	}
	normalize(restored)
	return restored
}

// copySituation deep-copies the caller's situation so handlers never alias
// request memory. nil means an empty situation.
func copySituation(s *model.Situation) *model.Situation {
	if s == nil {
		return &model.Situation{}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return &model.Situation{}
	}
	out := &model.Situation{}
	if err := json.Unmarshal(raw, out); err != nil {
		return &model.Situation{}
	}
	normalize(out)
	return out
}

// normalize rebuilds derived fields that do not travel on the wire and
// coerces nil collections to empty ones so patch paths like
// /dossier/policies/- resolve the same way on every serialization of the
// situation.
func normalize(s *model.Situation) {
	if s.Dossier == nil {
		return
	}
	if s.Dossier.Persons == nil {
		s.Dossier.Persons = []model.Person{}
	}
	if s.Dossier.Policies == nil {
		s.Dossier.Policies = []model.Policy{}
	}
	s.Dossier.PolicySeq = len(s.Dossier.Policies)
}
