package mutations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"pension-calculation-engine/internal/model"
)

func dossierWithPolicies(policies ...model.Policy) *model.Situation {
	return &model.Situation{Dossier: &model.Dossier{
		DossierID: "d-1",
		Status:    model.DossierStatusActive,
		Persons:   []model.Person{{PersonID: "p-1", Role: model.RoleParticipant, Name: "Jane", BirthDate: "1960-06-15"}},
		Policies:  policies,
		PolicySeq: len(policies),
	}}
}

func TestAddPolicy(t *testing.T) {
	state := dossierWithPolicies()
	mut := mutationWithProps(t, "add_policy", map[string]interface{}{
		"scheme_id":             "S1",
		"employment_start_date": "2020-01-01",
		"salary":                3000.0,
		"part_time_factor":      1.0,
	})

	res := (&AddPolicyHandler{}).Execute(context.Background(), state, mut, nil)

	require.False(t, res.Critical)
	require.Empty(t, res.Messages)
	require.Len(t, state.Dossier.Policies, 1)

	p := state.Dossier.Policies[0]
	require.Equal(t, "d-1-1", p.PolicyID)
	require.Equal(t, "S1", p.SchemeID)
	require.Nil(t, p.AttainablePension)
	require.Nil(t, p.Projections)

	require.Len(t, res.Forward, 1)
	require.Equal(t, "add", res.Forward[0].Op)
	require.Equal(t, "/dossier/policies/-", res.Forward[0].Path)
	require.Len(t, res.Backward, 1)
	require.Equal(t, "remove", res.Backward[0].Op)
	require.Equal(t, "/dossier/policies/0", res.Backward[0].Path)
}

func TestAddPolicySequenceIsMonotonic(t *testing.T) {
	state := dossierWithPolicies()
	h := &AddPolicyHandler{}

	for _, scheme := range []string{"S1", "S2", "S3"} {
		mut := mutationWithProps(t, "add_policy", map[string]interface{}{
			"scheme_id":             scheme,
			"employment_start_date": "2020-01-01",
			"salary":                1000.0,
			"part_time_factor":      0.5,
		})
		res := h.Execute(context.Background(), state, mut, nil)
		require.False(t, res.Critical)
		require.Equal(t, "remove", res.Backward[0].Op)
	}

	require.Equal(t, "d-1-1", state.Dossier.Policies[0].PolicyID)
	require.Equal(t, "d-1-2", state.Dossier.Policies[1].PolicyID)
	require.Equal(t, "d-1-3", state.Dossier.Policies[2].PolicyID)
}

func TestAddPolicyDuplicateWarnsButAppends(t *testing.T) {
	state := dossierWithPolicies(model.Policy{
		PolicyID: "d-1-1", SchemeID: "S1", EmploymentStartDate: "2020-01-01", Salary: 3000, PartTimeFactor: 1,
	})
	mut := mutationWithProps(t, "add_policy", map[string]interface{}{
		"scheme_id":             "S1",
		"employment_start_date": "2020-01-01",
		"salary":                2000.0,
		"part_time_factor":      0.8,
	})

	res := (&AddPolicyHandler{}).Execute(context.Background(), state, mut, nil)

	require.False(t, res.Critical)
	require.Len(t, res.Messages, 1)
	require.Equal(t, model.LevelWarning, res.Messages[0].Level)
	require.Equal(t, "DUPLICATE_POLICY", res.Messages[0].Code)
	require.Len(t, state.Dossier.Policies, 2)
	require.Equal(t, "d-1-2", state.Dossier.Policies[1].PolicyID)
	require.True(t, res.HasPatches())
}

func TestAddPolicyValidation(t *testing.T) {
	for _, tc := range []struct {
		name  string
		props map[string]interface{}
		code  string
	}{
		{"negative salary", map[string]interface{}{
			"scheme_id": "S1", "employment_start_date": "2020-01-01", "salary": -1.0, "part_time_factor": 1.0,
		}, "INVALID_SALARY"},
		{"part time factor above one", map[string]interface{}{
			"scheme_id": "S1", "employment_start_date": "2020-01-01", "salary": 1000.0, "part_time_factor": 1.5,
		}, "INVALID_PART_TIME_FACTOR"},
		{"part time factor below zero", map[string]interface{}{
			"scheme_id": "S1", "employment_start_date": "2020-01-01", "salary": 1000.0, "part_time_factor": -0.1,
		}, "INVALID_PART_TIME_FACTOR"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			state := dossierWithPolicies()
			mut := mutationWithProps(t, "add_policy", tc.props)

			res := (&AddPolicyHandler{}).Execute(context.Background(), state, mut, nil)

			require.True(t, res.Critical)
			require.Equal(t, tc.code, res.Messages[0].Code)
			require.Empty(t, state.Dossier.Policies)
		})
	}
}

func TestAddPolicyWithoutDossier(t *testing.T) {
	state := &model.Situation{}
	mut := mutationWithProps(t, "add_policy", map[string]interface{}{
		"scheme_id": "S1", "employment_start_date": "2020-01-01", "salary": 1000.0, "part_time_factor": 1.0,
	})

	res := (&AddPolicyHandler{}).Execute(context.Background(), state, mut, nil)

	require.True(t, res.Critical)
	require.Equal(t, "DOSSIER_NOT_FOUND", res.Messages[0].Code)
}
