package mockapi

import (
	"github.com/jonwraymond/abclient/resource"
)

// Fixture identifies the data created by Seed.
type Fixture struct {
	TenantID   string
	ProjectID  string
	KeyID      string
	APIKey     string
	AudienceID string

	// ExperimentIDs are the seeded experiments in creation order: one LIVE,
	// one DRAFT and one PAUSED.
	ExperimentIDs []string
}

// Seed creates a tenant with one project, an API key for it, an audience
// and three experiments. Each call creates an independent tenant.
func (s *Server) Seed() Fixture {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant := s.insertTenant(resource.Tenant{Name: "Acme"})
	project := s.insertProject(resource.Project{
		TenantID:    tenant.wire.ID,
		Name:        "Storefront",
		Description: resource.String("Web shop experiments"),
	})
	key := s.insertKey(tenant.wire.ID, project.wire.ID, resource.APIKey{Name: "default"}, newSecret())

	audience := s.insertAudience(project.wire.ID, resource.Audience{
		Name: "Returning shoppers",
		Rules: []resource.AudienceRule{
			{Attribute: "country", Operator: resource.OpIn, Values: []string{"US", "CA"}},
			{Attribute: "visits", Operator: resource.OpGreaterThan, Values: []string{"3"}},
		},
	})

	fixture := Fixture{
		TenantID:   tenant.wire.ID,
		ProjectID:  project.wire.ID,
		KeyID:      key.wire.ID,
		APIKey:     key.secret,
		AudienceID: audience.wire.ID,
	}

	live := s.insertExperiment(project.wire.ID, resource.Experiment{
		Name:       "Checkout button color",
		Hypothesis: resource.String("A green button increases checkout starts"),
		Tags:       []string{"checkout", "ui"},
		AudienceID: resource.String(audience.wire.ID),
		Variants: []resource.Variant{
			{Key: "control", Name: "Blue", Control: true},
			{Key: "green", Name: "Green"},
		},
		Assignment: resource.Assignment{
			Type:          resource.AssignmentCohort,
			CohortWeights: map[string]float64{"control": 50, "green": 50},
		},
	})
	_ = s.transition(live, resource.StatusUpdate{Status: resource.StatusLive})

	draft := s.insertExperiment(project.wire.ID, resource.Experiment{
		Name: "Pricing page layout",
		Tags: []string{"pricing"},
		Variants: []resource.Variant{
			{Key: "control", Name: "Current", Control: true},
			{Key: "table", Name: "Comparison table"},
			{Key: "cards", Name: "Plan cards"},
		},
		Assignment: resource.Assignment{
			Type:          resource.AssignmentCohort,
			CohortWeights: map[string]float64{"control": 34, "table": 33, "cards": 33},
		},
	})

	paused := s.insertExperiment(project.wire.ID, resource.Experiment{
		Name: "Onboarding by plan",
		Tags: []string{"onboarding"},
		Variants: []resource.Variant{
			{Key: "control", Name: "Tour", Control: true},
			{Key: "checklist", Name: "Checklist"},
		},
		Assignment: resource.Assignment{
			Type:              resource.AssignmentStratified,
			StratifiedWeights: map[string][]string{"control": {"free"}, "checklist": {"pro", "team"}},
			StrataAttribute:   resource.String("plan"),
		},
	})
	_ = s.transition(paused, resource.StatusUpdate{Status: resource.StatusLive})
	_ = s.transition(paused, resource.StatusUpdate{Status: resource.StatusPaused})

	fixture.ExperimentIDs = []string{live.wire.ID, draft.wire.ID, paused.wire.ID}
	return fixture
}
