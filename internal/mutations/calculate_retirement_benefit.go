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

type calcRetirementProps struct {
	RetirementDate string `json:"retirement_date"`
}

// CalculateRetirementBenefitHandler computes the attainable pension per
// policy at the given retirement date, sets the dossier to RETIRED, and
// records the retirement date.
type CalculateRetirementBenefitHandler struct{}

func (h *CalculateRetirementBenefitHandler) Execute(ctx context.Context, state *model.Situation, mutation *model.Mutation, schemes *schemeregistry.Client) Result {
	if state.Dossier == nil {
		return Critical(model.Critical("DOSSIER_NOT_FOUND", "No dossier exists in the situation"))
	}
	if len(state.Dossier.Policies) == 0 {
		return Critical(model.Critical("NO_POLICIES", "Dossier has no policies"))
	}
	if len(state.Dossier.Persons) == 0 {
		return Critical(model.Critical("NO_PARTICIPANT", "Dossier has no participant"))
	}

	var props calcRetirementProps
	if err := json.Unmarshal(mutation.MutationProperties, &props); err != nil {
		return Critical(model.Critical("INVALID_PROPERTIES", "Mutation properties are not valid JSON"))
	}

	retDate, ok := fastParseDate(props.RetirementDate)
	if !ok {
		return Critical(model.Critical("INVALID_RETIREMENT_DATE", "Retirement date is not a valid date"))
	}

	policies := state.Dossier.Policies
	n := len(policies)

	years := make([]float64, n)
	var totalYears float64
	for i, p := range policies {
		empStart, _ := fastParseDate(p.EmploymentStartDate)
		years[i] = yearsOfService(empStart, retDate)
		totalYears += years[i]
	}

	// Eligibility: 65 or older on the retirement date, or 40 years of
	// combined service.
	birthDate, _ := fastParseDate(state.Dossier.Persons[0].BirthDate)
	age := calendarYears(birthDate, retDate)
	if age < 65 && totalYears < 40 {
		return Critical(model.Critical("NOT_ELIGIBLE",
			fmt.Sprintf("Participant is %d years old with %.1f years of service", age, totalYears)))
	}

	var warnings []model.CalculationMessage
	for _, p := range policies {
		if props.RetirementDate < p.EmploymentStartDate {
			warnings = append(warnings, model.Warning("RETIREMENT_BEFORE_EMPLOYMENT",
				"Retirement date is before employment start date for policy "+p.PolicyID))
		}
	}

	rates := resolveRates(ctx, schemes, policies)

	// Time-weighted average of effective salary across all policies; each
	// policy's benefit is the average credited over its own tenure at its
	// scheme's accrual rate.
	var weightedSum float64
	for i, p := range policies {
		weightedSum += p.Salary * p.PartTimeFactor * years[i]
	}
	var weightedAvg float64
	if totalYears > 0 {
		weightedAvg = weightedSum / totalYears
	}

	oldStatus := state.Dossier.Status
	oldRetirement := state.Dossier.RetirementDate

	fwd := patch.NewBuilder(n + 2)
	bwd := patch.NewBuilder(n + 2)
	fwd.Replace("/dossier/status", model.DossierStatusRetired)
	bwd.Replace("/dossier/status", oldStatus)
	fwd.Replace("/dossier/retirement_date", props.RetirementDate)
	bwd.Replace("/dossier/retirement_date", oldRetirement)

	for i := range state.Dossier.Policies {
		p := &state.Dossier.Policies[i]
		pension := weightedAvg * years[i] * rates[p.SchemeID]

		path := "/dossier/policies/" + strconv.Itoa(i) + "/attainable_pension"
		fwd.Replace(path, pension)
		bwd.Replace(path, p.AttainablePension)

		p.AttainablePension = &pension
	}

	state.Dossier.Status = model.DossierStatusRetired
	state.Dossier.RetirementDate = &props.RetirementDate

	if warnings != nil {
		return WarningsWithPatches(warnings, fwd.Build(), bwd.Build())
	}
	return SuccessWithPatches(fwd.Build(), bwd.Build())
}

// resolveRates returns a per-scheme accrual rate for every policy, falling
// back to the default when the registry is disabled or an id is unresolved.
func resolveRates(ctx context.Context, schemes *schemeregistry.Client, policies []model.Policy) map[string]float64 {
	var fetched map[string]float64
	if schemes != nil {
		fetched = schemes.GetAccrualRates(ctx, policies)
	}
	rates := make(map[string]float64, len(policies))
	for _, p := range policies {
		rate, ok := fetched[p.SchemeID]
		if !ok {
			rate = schemeregistry.DefaultAccrualRate
		}
		rates[p.SchemeID] = rate
	}
	return rates
}
