package mutations

import (
	"context"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"pension-calculation-engine/internal/model"
	"pension-calculation-engine/internal/patch"
	"pension-calculation-engine/internal/schemeregistry"
)

type projectFutureBenefitsProps struct {
	ProjectionStartDate    string `json:"projection_start_date"`
	ProjectionEndDate      string `json:"projection_end_date"`
	ProjectionIntervalMths int    `json:"projection_interval_months"`
}

// ProjectFutureBenefitsHandler replaces every policy's projection series with
// point estimates over the closed [start, end] interval, stepped by the given
// number of months.
//
// The benchmark salary at each projection date is the time-weighted average
// of effective salary across ALL policies, so one policy's projection depends
// on every other policy's tenure. This mirrors the observed production
// behavior and must not be "fixed" to a per-policy average.
type ProjectFutureBenefitsHandler struct{}

func (h *ProjectFutureBenefitsHandler) Execute(ctx context.Context, state *model.Situation, mutation *model.Mutation, schemes *schemeregistry.Client) Result {
	if state.Dossier == nil {
		return Critical(model.Critical("DOSSIER_NOT_FOUND", "No dossier exists in the situation"))
	}
	policies := state.Dossier.Policies
	if len(policies) == 0 {
		return Critical(model.Critical("NO_POLICIES", "Dossier has no policies"))
	}

	var props projectFutureBenefitsProps
	if err := json.Unmarshal(mutation.MutationProperties, &props); err != nil {
		return Critical(model.Critical("INVALID_PROPERTIES", "Mutation properties are not valid JSON"))
	}

	startDate, okStart := fastParseDate(props.ProjectionStartDate)
	endDate, okEnd := fastParseDate(props.ProjectionEndDate)
	if !okStart || !okEnd || props.ProjectionEndDate <= props.ProjectionStartDate {
		return Critical(model.Critical("INVALID_DATE_RANGE", "Projection end date must be after start date"))
	}
	if props.ProjectionIntervalMths <= 0 {
		return Critical(model.Critical("INVALID_INTERVAL", "Projection interval must be a positive number of months"))
	}

	var warnings []model.CalculationMessage
	for _, p := range policies {
		if props.ProjectionStartDate < p.EmploymentStartDate {
			warnings = append(warnings, model.Warning("PROJECTION_BEFORE_EMPLOYMENT",
				"Projection start date is before employment start date for policy "+p.PolicyID))
		}
	}

	rates := resolveRates(ctx, schemes, policies)

	n := len(policies)
	empStarts := make([]time.Time, n)
	effectiveSalaries := make([]float64, n)
	for i, p := range policies {
		empStarts[i], _ = fastParseDate(p.EmploymentStartDate)
		effectiveSalaries[i] = p.Salary * p.PartTimeFactor
	}

	// Projection dates form a closed interval; the count is fixed up front.
	dateCount := 0
	for d := startDate; !d.After(endDate); d = d.AddDate(0, props.ProjectionIntervalMths, 0) {
		dateCount++
	}

	series := make([][]model.Projection, n)
	for i := range series {
		series[i] = make([]model.Projection, 0, dateCount)
	}

	years := make([]float64, n)
	for d := startDate; !d.After(endDate); d = d.AddDate(0, props.ProjectionIntervalMths, 0) {
		dateStr := d.Format(dateLayout)

		var totalYears, weightedSum float64
		for i := range policies {
			years[i] = yearsOfService(empStarts[i], d)
			totalYears += years[i]
			weightedSum += effectiveSalaries[i] * years[i]
		}

		var weightedAvg float64
		if totalYears > 0 {
			weightedAvg = weightedSum / totalYears
		}

		for i, p := range policies {
			series[i] = append(series[i], model.Projection{
				Date:             dateStr,
				ProjectedPension: weightedAvg * years[i] * rates[p.SchemeID],
			})
		}
	}

	fwd := patch.NewBuilder(n)
	bwd := patch.NewBuilder(n)
	for i := range state.Dossier.Policies {
		p := &state.Dossier.Policies[i]
		path := "/dossier/policies/" + strconv.Itoa(i) + "/projections"
		fwd.Replace(path, series[i])
		bwd.Replace(path, p.Projections)
		p.Projections = series[i]
	}

	if warnings != nil {
		return WarningsWithPatches(warnings, fwd.Build(), bwd.Build())
	}
	return SuccessWithPatches(fwd.Build(), bwd.Build())
}
