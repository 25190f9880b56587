package mutations

import (
	"context"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"

	"pension-calculation-engine/internal/model"
	"pension-calculation-engine/internal/patch"
	"pension-calculation-engine/internal/schemeregistry"
)

type addPolicyProps struct {
	SchemeID            string  `json:"scheme_id"`
	EmploymentStartDate string  `json:"employment_start_date"`
	Salary              float64 `json:"salary"`
	PartTimeFactor      float64 `json:"part_time_factor"`
}

type AddPolicyHandler struct{}

func (h *AddPolicyHandler) Execute(_ context.Context, state *model.Situation, mutation *model.Mutation, _ *schemeregistry.Client) Result {
	if state.Dossier == nil {
		return Critical(model.Critical("DOSSIER_NOT_FOUND", "No dossier exists in the situation"))
	}

	var props addPolicyProps
	if err := json.Unmarshal(mutation.MutationProperties, &props); err != nil {
		return Critical(model.Critical("INVALID_PROPERTIES", "Mutation properties are not valid JSON"))
	}

	if props.Salary < 0 {
		return Critical(model.Critical("INVALID_SALARY", "Salary must not be negative"))
	}
	if props.PartTimeFactor < 0 || props.PartTimeFactor > 1 {
		return Critical(model.Critical("INVALID_PART_TIME_FACTOR", "Part-time factor must be between 0 and 1"))
	}

	// Duplicate (scheme_id, employment_start_date) is allowed but warned.
	var warnings []model.CalculationMessage
	for _, p := range state.Dossier.Policies {
		if p.SchemeID == props.SchemeID && p.EmploymentStartDate == props.EmploymentStartDate {
			warnings = append(warnings, model.Warning("DUPLICATE_POLICY",
				fmt.Sprintf("A policy with scheme_id %s and employment_start_date %s already exists",
					props.SchemeID, props.EmploymentStartDate)))
			break
		}
	}

	policy := model.Policy{
		PolicyID:            fmt.Sprintf("%s-%d", state.Dossier.DossierID, state.Dossier.NextPolicySequence()),
		SchemeID:            props.SchemeID,
		EmploymentStartDate: props.EmploymentStartDate,
		Salary:              props.Salary,
		PartTimeFactor:      props.PartTimeFactor,
	}

	newIndex := len(state.Dossier.Policies)
	state.Dossier.Policies = append(state.Dossier.Policies, policy)

	fwd := patch.NewBuilder(1).Add("/dossier/policies/-", policy).Build()
	bwd := patch.NewBuilder(1).Remove("/dossier/policies/" + strconv.Itoa(newIndex)).Build()

	if warnings != nil {
		return WarningsWithPatches(warnings, fwd, bwd)
	}
	return SuccessWithPatches(fwd, bwd)
}
