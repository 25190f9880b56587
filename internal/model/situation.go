// Package model holds the in-memory domain graph one calculation request
// operates on, plus the request/response wire shapes.
package model

// Situation is the root aggregate. It is owned by exactly one request;
// mutations are applied to it strictly in sequence.
type Situation struct {
	Dossier *Dossier `json:"dossier"`
}

type Dossier struct {
	DossierID      string   `json:"dossier_id"`
	Status         string   `json:"status"`
	RetirementDate *string  `json:"retirement_date"`
	Persons        []Person `json:"persons"`
	Policies       []Policy `json:"policies"`
	PolicySeq      int      `json:"-"` // internal: next policy sequence number
}

// NextPolicySequence increments and returns the per-dossier counter used to
// derive policy ids.
func (d *Dossier) NextPolicySequence() int {
	d.PolicySeq++
	return d.PolicySeq
}

type Person struct {
	PersonID  string `json:"person_id"`
	Role      string `json:"role"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
}

type Policy struct {
	PolicyID            string       `json:"policy_id"`
	SchemeID            string       `json:"scheme_id"`
	EmploymentStartDate string       `json:"employment_start_date"`
	Salary              float64      `json:"salary"`
	PartTimeFactor      float64      `json:"part_time_factor"`
	AttainablePension   *float64     `json:"attainable_pension"`
	Projections         []Projection `json:"projections"`
}

type Projection struct {
	Date             string  `json:"date"`
	ProjectedPension float64 `json:"projected_pension"`
}

const (
	DossierStatusActive  = "ACTIVE"
	DossierStatusRetired = "RETIRED"

	RoleParticipant = "PARTICIPANT"
)
