package mutations

// registry maps mutation-type names to handlers. Unknown names are an input
// error surfaced by the engine as a critical message, never a panic.
var registry = map[string]Handler{
	"create_dossier":               &CreateDossierHandler{},
	"add_policy":                   &AddPolicyHandler{},
	"apply_indexation":             &ApplyIndexationHandler{},
	"calculate_retirement_benefit": &CalculateRetirementBenefitHandler{},
	"project_future_benefits":      &ProjectFutureBenefitsHandler{},
}

func Get(name string) (Handler, bool) {
	h, ok := registry[name]
	return h, ok
}
