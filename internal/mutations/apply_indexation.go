package mutations

import (
	"context"
	"strconv"

	json "github.com/goccy/go-json"

	"pension-calculation-engine/internal/model"
	"pension-calculation-engine/internal/patch"
	"pension-calculation-engine/internal/schemeregistry"
)

type applyIndexationProps struct {
	Percentage      float64 `json:"percentage"`
	SchemeID        string  `json:"scheme_id,omitempty"`
	EffectiveBefore string  `json:"effective_before,omitempty"`
}

// ApplyIndexationHandler multiplies the salary of matching policies by
// 1 + percentage. Filters are optional; an empty filter matches every policy.
type ApplyIndexationHandler struct{}

func (h *ApplyIndexationHandler) Execute(_ context.Context, state *model.Situation, mutation *model.Mutation, _ *schemeregistry.Client) Result {
	if state.Dossier == nil {
		return Critical(model.Critical("DOSSIER_NOT_FOUND", "No dossier exists in the situation"))
	}
	if len(state.Dossier.Policies) == 0 {
		return Critical(model.Critical("NO_POLICIES", "Dossier has no policies"))
	}

	var props applyIndexationProps
	if err := json.Unmarshal(mutation.MutationProperties, &props); err != nil {
		return Critical(model.Critical("INVALID_PROPERTIES", "Mutation properties are not valid JSON"))
	}

	hasFilter := props.SchemeID != "" || props.EffectiveBefore != ""

	var msgs []model.CalculationMessage
	fwd := patch.NewBuilder(len(state.Dossier.Policies))
	bwd := patch.NewBuilder(len(state.Dossier.Policies))
	matched := false

	for i := range state.Dossier.Policies {
		p := &state.Dossier.Policies[i]
		if !matchesFilter(p, props) {
			continue
		}
		matched = true

		oldSalary := p.Salary
		newSalary := oldSalary * (1 + props.Percentage)
		if newSalary < 0 {
			newSalary = 0
			msgs = append(msgs, model.Warning("NEGATIVE_SALARY_CLAMPED",
				"Salary for policy "+p.PolicyID+" clamped to 0"))
		}
		p.Salary = newSalary

		path := "/dossier/policies/" + strconv.Itoa(i) + "/salary"
		fwd.Replace(path, newSalary)
		bwd.Replace(path, oldSalary)
	}

	if !matched {
		if hasFilter {
			return Warnings([]model.CalculationMessage{
				model.Warning("NO_MATCHING_POLICIES", "No policies match the provided filter criteria"),
			})
		}
		return Result{}
	}

	if msgs != nil {
		return WarningsWithPatches(msgs, fwd.Build(), bwd.Build())
	}
	return SuccessWithPatches(fwd.Build(), bwd.Build())
}

func matchesFilter(p *model.Policy, props applyIndexationProps) bool {
	if props.SchemeID != "" && p.SchemeID != props.SchemeID {
		return false
	}
	if props.EffectiveBefore != "" && p.EmploymentStartDate >= props.EffectiveBefore {
		return false
	}
	return true
}
