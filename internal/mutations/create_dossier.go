package mutations

import (
	"context"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"pension-calculation-engine/internal/model"
	"pension-calculation-engine/internal/patch"
	"pension-calculation-engine/internal/schemeregistry"
)

type createDossierProps struct {
	DossierID string `json:"dossier_id"`
	PersonID  string `json:"person_id"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
}

type CreateDossierHandler struct{}

func (h *CreateDossierHandler) Execute(_ context.Context, state *model.Situation, mutation *model.Mutation, _ *schemeregistry.Client) Result {
	if state.Dossier != nil {
		return Critical(model.Critical("DOSSIER_ALREADY_EXISTS", "A dossier already exists in the situation"))
	}

	var props createDossierProps
	if err := json.Unmarshal(mutation.MutationProperties, &props); err != nil {
		return Critical(model.Critical("INVALID_PROPERTIES", "Mutation properties are not valid JSON"))
	}

	if strings.TrimSpace(props.Name) == "" {
		return Critical(model.Critical("INVALID_NAME", "Name is empty or blank"))
	}

	birthDate, ok := fastParseDate(props.BirthDate)
	if !ok {
		return Critical(model.Critical("INVALID_BIRTH_DATE", "Birth date is not a valid date"))
	}
	if birthDate.After(time.Now()) {
		return Critical(model.Critical("INVALID_BIRTH_DATE", "Birth date is in the future"))
	}

	state.Dossier = &model.Dossier{
		DossierID:      props.DossierID,
		Status:         model.DossierStatusActive,
		RetirementDate: nil,
		Persons: []model.Person{{
			PersonID:  props.PersonID,
			Role:      model.RoleParticipant,
			Name:      props.Name,
			BirthDate: props.BirthDate,
		}},
		Policies: []model.Policy{},
	}

	// replace rather than add/remove: the wire format always carries the
	// /dossier key (null when absent), so the pair round-trips exactly.
	fwd := patch.NewBuilder(1).Replace("/dossier", state.Dossier).Build()
	bwd := patch.NewBuilder(1).Replace("/dossier", nil).Build()
	return SuccessWithPatches(fwd, bwd)
}
