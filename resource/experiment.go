package resource

import (
	"encoding/json"
	"fmt"
)

// ExperimentStatus is the lifecycle state of an experiment.
type ExperimentStatus string

const (
	StatusDraft      ExperimentStatus = "DRAFT"
	StatusLive       ExperimentStatus = "LIVE"
	StatusPaused     ExperimentStatus = "PAUSED"
	StatusConcluded  ExperimentStatus = "CONCLUDED"
	StatusTerminated ExperimentStatus = "TERMINATED"
)

// Valid reports whether s is a known status.
func (s ExperimentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusLive, StatusPaused, StatusConcluded, StatusTerminated:
		return true
	}
	return false
}

// Settable reports whether s can be requested through a status update.
// DRAFT is only ever assigned by the server on creation.
func (s ExperimentStatus) Settable() bool {
	return s.Valid() && s != StatusDraft
}

// AssignmentType discriminates how users are split between variants.
type AssignmentType string

const (
	// AssignmentCohort splits traffic by percentage weights.
	AssignmentCohort AssignmentType = "COHORT"
	// AssignmentStratified assigns whole strata (segment values) to variants.
	AssignmentStratified AssignmentType = "STRATIFIED"
)

// Experiment is an A/B experiment.
type Experiment struct {
	ID             string           `json:"id,omitempty"`
	Name           string           `json:"name"`
	Description    *string          `json:"description,omitempty"`
	Hypothesis     *string          `json:"hypothesis,omitempty"`
	Status         ExperimentStatus `json:"status,omitempty"`
	Tags           []string         `json:"tags,omitempty"`
	AudienceID     *string          `json:"audienceId,omitempty"`
	Variants       []Variant        `json:"variants"`
	Assignment     Assignment       `json:"assignment"`
	WinningVariant *string          `json:"winningVariant,omitempty"`
	CreatedAt      int64            `json:"createdAt,omitempty"`
	UpdatedAt      int64            `json:"updatedAt,omitempty"`
	StartedAt      *int64           `json:"startedAt,omitempty"`
	EndedAt        *int64           `json:"endedAt,omitempty"`
}

// Variant is one arm of an experiment.
type Variant struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Control     bool    `json:"control"`
}

// Assignment is a tagged union over AssignmentType. Exactly one of
// CohortWeights and StratifiedWeights is meaningful, chosen by Type.
type Assignment struct {
	Type AssignmentType `json:"type"`

	// CohortWeights maps variant key to traffic percentage.
	CohortWeights map[string]float64 `json:"cohortWeights,omitempty"`

	// StratifiedWeights maps variant key to the strata it receives.
	StratifiedWeights map[string][]string `json:"stratifiedWeights,omitempty"`

	// StrataAttribute names the user attribute strata are drawn from.
	StrataAttribute *string `json:"strataAttribute,omitempty"`
}

// ExperimentWire is the wire form of an experiment.
type ExperimentWire struct {
	ID             string         `json:"id,omitempty"`
	Name           string         `json:"name"`
	Description    *string        `json:"description,omitempty"`
	Hypothesis     *string        `json:"hypothesis,omitempty"`
	Status         string         `json:"status,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	AudienceID     *string        `json:"audience_id,omitempty"`
	Variants       []VariantWire  `json:"variants"`
	Assignment     AssignmentWire `json:"assignment"`
	WinningVariant *string        `json:"winning_variant,omitempty"`
	CreatedAt      int64          `json:"created_at,omitempty"`
	UpdatedAt      int64          `json:"updated_at,omitempty"`
	StartedAt      *int64         `json:"started_at,omitempty"`
	EndedAt        *int64         `json:"ended_at,omitempty"`
}

// VariantWire is the wire form of a variant.
type VariantWire struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	IsControl   bool    `json:"is_control"`
}

// AssignmentWire is the wire form of an assignment. Its weights member is
// either an object of numbers or an object of string arrays depending on
// the type tag, so it is decoded by hand.
type AssignmentWire struct {
	Type       string
	Cohort     map[string]float64
	Stratified map[string][]string
	StrataKey  *string
}

type assignmentJSON struct {
	Type      string          `json:"type"`
	Weights   json.RawMessage `json:"weights,omitempty"`
	StrataKey *string         `json:"strata_key,omitempty"`
}

// MarshalJSON encodes the weights matching Type.
func (a AssignmentWire) MarshalJSON() ([]byte, error) {
	out := assignmentJSON{Type: a.Type, StrataKey: a.StrataKey}
	var weights any
	switch AssignmentType(a.Type) {
	case AssignmentCohort:
		if a.Cohort != nil {
			weights = a.Cohort
		}
	case AssignmentStratified:
		if a.Stratified != nil {
			weights = a.Stratified
		}
	}
	if weights != nil {
		raw, err := json.Marshal(weights)
		if err != nil {
			return nil, err
		}
		out.Weights = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the weights according to the type tag. Weights of
// an unknown type are ignored; weights whose shape contradicts a known
// type are an error.
func (a *AssignmentWire) UnmarshalJSON(data []byte) error {
	var in assignmentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*a = AssignmentWire{Type: in.Type, StrataKey: in.StrataKey}
	if len(in.Weights) == 0 || string(in.Weights) == "null" {
		return nil
	}
	switch AssignmentType(in.Type) {
	case AssignmentCohort:
		if err := json.Unmarshal(in.Weights, &a.Cohort); err != nil {
			return fmt.Errorf("resource: %s weights: %w", in.Type, err)
		}
	case AssignmentStratified:
		if err := json.Unmarshal(in.Weights, &a.Stratified); err != nil {
			return fmt.Errorf("resource: %s weights: %w", in.Type, err)
		}
	}
	return nil
}

// ExperimentFromWire converts a wire experiment.
func ExperimentFromWire(w ExperimentWire) Experiment {
	e := Experiment{
		ID:             w.ID,
		Name:           w.Name,
		Description:    w.Description,
		Hypothesis:     w.Hypothesis,
		Status:         ExperimentStatus(w.Status),
		Tags:           w.Tags,
		AudienceID:     w.AudienceID,
		WinningVariant: w.WinningVariant,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
		StartedAt:      w.StartedAt,
		EndedAt:        w.EndedAt,
		Assignment: Assignment{
			Type:              AssignmentType(w.Assignment.Type),
			CohortWeights:     w.Assignment.Cohort,
			StratifiedWeights: w.Assignment.Stratified,
			StrataAttribute:   w.Assignment.StrataKey,
		},
	}
	if w.Variants != nil {
		e.Variants = make([]Variant, len(w.Variants))
		for i, v := range w.Variants {
			e.Variants[i] = Variant{Key: v.Key, Name: v.Name, Description: v.Description, Control: v.IsControl}
		}
	}
	return e
}

// ExperimentToWire builds the request body for creating an experiment.
func ExperimentToWire(e Experiment) ExperimentWire {
	w := ExperimentWire{
		Name:           e.Name,
		Description:    e.Description,
		Hypothesis:     e.Hypothesis,
		Status:         string(e.Status),
		Tags:           e.Tags,
		AudienceID:     e.AudienceID,
		WinningVariant: e.WinningVariant,
		Assignment: AssignmentWire{
			Type:      string(e.Assignment.Type),
			StrataKey: e.Assignment.StrataAttribute,
		},
	}
	switch e.Assignment.Type {
	case AssignmentCohort:
		w.Assignment.Cohort = e.Assignment.CohortWeights
	case AssignmentStratified:
		w.Assignment.Stratified = e.Assignment.StratifiedWeights
	}
	if e.Variants != nil {
		w.Variants = make([]VariantWire, len(e.Variants))
		for i, v := range e.Variants {
			w.Variants[i] = VariantWire{Key: v.Key, Name: v.Name, Description: v.Description, IsControl: v.Control}
		}
	}
	return w
}

// StatusUpdate is a requested status transition.
type StatusUpdate struct {
	Status         ExperimentStatus
	WinningVariant *string
}

// StatusUpdateWire is the PATCH body for a status transition.
type StatusUpdateWire struct {
	Status         string  `json:"status"`
	WinningVariant *string `json:"winning_variant,omitempty"`
}

// StatusUpdateToWire converts a status update.
func StatusUpdateToWire(u StatusUpdate) StatusUpdateWire {
	return StatusUpdateWire{Status: string(u.Status), WinningVariant: u.WinningVariant}
}
