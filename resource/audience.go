package resource

// Audience is a reusable targeting definition.
type Audience struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Description *string        `json:"description,omitempty"`
	Rules       []AudienceRule `json:"rules"`
	// EstimatedSize is computed by the server.
	EstimatedSize *int64 `json:"estimatedSize,omitempty"`
	CreatedAt     int64  `json:"createdAt,omitempty"`
	UpdatedAt     int64  `json:"updatedAt,omitempty"`
}

// AudienceRule matches users whose attribute compares to Values under
// Operator.
type AudienceRule struct {
	Attribute string   `json:"attribute"`
	Operator  Operator `json:"operator"`
	Values    []string `json:"values"`
}

// Operator is an audience rule comparison.
type Operator string

const (
	OpEquals      Operator = "EQUALS"
	OpNotEquals   Operator = "NOT_EQUALS"
	OpIn          Operator = "IN"
	OpNotIn       Operator = "NOT_IN"
	OpContains    Operator = "CONTAINS"
	OpGreaterThan Operator = "GREATER_THAN"
	OpLessThan    Operator = "LESS_THAN"
)

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	switch op {
	case OpEquals, OpNotEquals, OpIn, OpNotIn, OpContains, OpGreaterThan, OpLessThan:
		return true
	}
	return false
}

// multiValued reports whether op accepts more than one value.
func (op Operator) multiValued() bool {
	return op == OpIn || op == OpNotIn
}

// AudienceWire is the wire form of an audience.
type AudienceWire struct {
	ID            string             `json:"id,omitempty"`
	Name          string             `json:"name"`
	Description   *string            `json:"description,omitempty"`
	Rules         []AudienceRuleWire `json:"rules"`
	EstimatedSize *int64             `json:"estimated_size,omitempty"`
	CreatedAt     int64              `json:"created_at,omitempty"`
	UpdatedAt     int64              `json:"updated_at,omitempty"`
}

// AudienceRuleWire is the wire form of an audience rule.
type AudienceRuleWire struct {
	Attribute string   `json:"attribute"`
	Operator  string   `json:"operator"`
	Values    []string `json:"values"`
}

// AudienceFromWire converts a wire audience.
func AudienceFromWire(w AudienceWire) Audience {
	a := Audience{
		ID:            w.ID,
		Name:          w.Name,
		Description:   w.Description,
		EstimatedSize: w.EstimatedSize,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
	if w.Rules != nil {
		a.Rules = make([]AudienceRule, len(w.Rules))
		for i, r := range w.Rules {
			a.Rules[i] = AudienceRule{Attribute: r.Attribute, Operator: Operator(r.Operator), Values: r.Values}
		}
	}
	return a
}

// AudienceToWire builds the request body for creating an audience.
func AudienceToWire(a Audience) AudienceWire {
	w := AudienceWire{
		Name:        a.Name,
		Description: a.Description,
	}
	if a.Rules != nil {
		w.Rules = make([]AudienceRuleWire, len(a.Rules))
		for i, r := range a.Rules {
			w.Rules[i] = AudienceRuleWire{Attribute: r.Attribute, Operator: string(r.Operator), Values: r.Values}
		}
	}
	return w
}
