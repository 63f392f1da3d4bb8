package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/abclient/apierr"
	"github.com/jonwraymond/abclient/auth"
	"github.com/jonwraymond/abclient/config"
	"github.com/jonwraymond/abclient/mockapi"
	"github.com/jonwraymond/abclient/query"
	"github.com/jonwraymond/abclient/resilience"
	"github.com/jonwraymond/abclient/resource"
	"github.com/jonwraymond/abclient/transport"
)

type testEnv struct {
	srv     *mockapi.Server
	fixture mockapi.Fixture
	store   *auth.MemoryStore
	q       *query.Client
	api     *Client
	hits    *atomic.Int64
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	srv := mockapi.New()
	fixture := srv.Seed()

	hits := &atomic.Int64{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		srv.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	rt := config.NewRuntimeSource()
	rt.Set(config.KeyAPIBaseURL, ts.URL)
	rt.Set(config.KeyIdentityBaseURL, ts.URL)
	store := auth.NewMemoryStore(auth.Session{
		TenantID:  fixture.TenantID,
		ProjectID: fixture.ProjectID,
		APIKey:    fixture.APIKey,
	})

	q := query.NewClient(query.WithDefaults(query.WithRetry(1)))
	t.Cleanup(q.Close)

	opts = append([]Option{WithMutationRetryDelay(resilience.Constant(time.Millisecond))}, opts...)
	return &testEnv{
		srv:     srv,
		fixture: fixture,
		store:   store,
		q:       q,
		api:     New(transport.New(config.NewChain(rt), store), q, opts...),
		hits:    hits,
	}
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newExperiment() resource.Experiment {
	return resource.Experiment{
		Name: "Search ranking",
		Tags: []string{"search"},
		Variants: []resource.Variant{
			{Key: "control", Name: "BM25", Control: true},
			{Key: "neural", Name: "Neural"},
		},
		Assignment: resource.Assignment{
			Type:          resource.AssignmentCohort,
			CohortWeights: map[string]float64{"control": 50, "neural": 50},
		},
	}
}

func TestClient_Experiments(t *testing.T) {
	e := newTestEnv(t)
	ctx := testCtx(t)

	page, err := e.api.ListExperiments(ctx, ExperimentFilter{})
	if err != nil {
		t.Fatalf("ListExperiments: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 3 {
		t.Fatalf("page = %+v", page)
	}
	first := page.Items[0]
	if first.Status != resource.StatusLive || !first.Variants[0].Control || first.StartedAt == nil {
		t.Errorf("first = %+v", first)
	}
	stratified := page.Items[2].Assignment
	if stratified.Type != resource.AssignmentStratified || *stratified.StrataAttribute != "plan" {
		t.Errorf("stratified assignment = %+v", stratified)
	}
	if got := stratified.StratifiedWeights["checklist"]; len(got) != 2 {
		t.Errorf("stratified weights = %v", stratified.StratifiedWeights)
	}

	drafts, err := e.api.ListExperiments(ctx, ExperimentFilter{Status: string(resource.StatusDraft)})
	if err != nil || drafts.Total != 1 || drafts.Items[0].Name != "Pricing page layout" {
		t.Errorf("DRAFT filter = %+v, %v", drafts, err)
	}

	firstPage, err := e.api.ListExperiments(ctx, ExperimentFilter{Page: 1, Limit: 2})
	if err != nil || len(firstPage.Items) != 2 || !firstPage.HasNext() {
		t.Errorf("page 1 of 2 = %+v, %v", firstPage, err)
	}

	got, err := e.api.GetExperiment(ctx, e.fixture.ExperimentIDs[0])
	if err != nil {
		t.Fatalf("GetExperiment: %v", err)
	}
	if got.AudienceID == nil || *got.AudienceID != e.fixture.AudienceID {
		t.Errorf("audience = %v, want %s", got.AudienceID, e.fixture.AudienceID)
	}

	created, err := e.api.CreateExperiment(ctx, newExperiment())
	if err != nil {
		t.Fatalf("CreateExperiment: %v", err)
	}
	if created.ID == "" || created.Status != resource.StatusDraft || created.CreatedAt == 0 {
		t.Errorf("created = %+v", created)
	}

	updated, err := e.api.UpdateExperimentStatus(ctx, StatusChange{
		ID:           created.ID,
		StatusUpdate: resource.StatusUpdate{Status: resource.StatusLive},
	})
	if err != nil {
		t.Fatalf("UpdateExperimentStatus: %v", err)
	}
	if updated.Status != resource.StatusLive || updated.StartedAt == nil {
		t.Errorf("updated = %+v", updated)
	}
}

func TestClient_ServerErrors(t *testing.T) {
	e := newTestEnv(t)
	ctx := testCtx(t)

	_, err := e.api.GetExperiment(ctx, "missing")
	if !errors.Is(err, apierr.ErrNotFound) {
		t.Errorf("GetExperiment(missing) = %v, want not found", err)
	}

	_, err = e.api.UpdateExperimentStatus(ctx, StatusChange{
		ID:           e.fixture.ExperimentIDs[1],
		StatusUpdate: resource.StatusUpdate{Status: resource.StatusPaused},
	})
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict || apiErr.Code != "INVALID_TRANSITION" {
		t.Errorf("DRAFT->PAUSED = %v", err)
	}

	e.srv.FailNext("GET /audiences", http.StatusBadGateway, 1)
	if _, err := e.api.ListAudiences(ctx); !errors.Is(err, apierr.ErrServer) {
		t.Errorf("ListAudiences = %v, want server error", err)
	}
}

func TestClient_ValidationSkipsTransport(t *testing.T) {
	e := newTestEnv(t)
	ref := ProjectRef{TenantID: e.fixture.TenantID, ProjectID: e.fixture.ProjectID}

	tests := []struct {
		name string
		call func(context.Context) error
	}{
		{"unknown status filter", func(ctx context.Context) error {
			_, err := e.api.ListExperiments(ctx, ExperimentFilter{Status: "RUNNING"})
			return err
		}},
		{"negative page", func(ctx context.Context) error {
			_, err := e.api.ListExperiments(ctx, ExperimentFilter{Page: -1})
			return err
		}},
		{"empty experiment id", func(ctx context.Context) error {
			_, err := e.api.GetExperiment(ctx, "")
			return err
		}},
		{"invalid experiment", func(ctx context.Context) error {
			_, err := e.api.CreateExperiment(ctx, resource.Experiment{})
			return err
		}},
		{"status change to DRAFT", func(ctx context.Context) error {
			_, err := e.api.UpdateExperimentStatus(ctx, StatusChange{ID: "x", StatusUpdate: resource.StatusUpdate{Status: resource.StatusDraft}})
			return err
		}},
		{"status change without id", func(ctx context.Context) error {
			_, err := e.api.UpdateExperimentStatus(ctx, StatusChange{StatusUpdate: resource.StatusUpdate{Status: resource.StatusLive}})
			return err
		}},
		{"empty audience id", func(ctx context.Context) error {
			_, err := e.api.GetAudience(ctx, "")
			return err
		}},
		{"audience without rules", func(ctx context.Context) error {
			_, err := e.api.CreateAudience(ctx, resource.Audience{Name: "Everyone"})
			return err
		}},
		{"tenant without name", func(ctx context.Context) error {
			_, err := e.api.CreateTenant(ctx, resource.Tenant{})
			return err
		}},
		{"projects without tenant", func(ctx context.Context) error {
			_, err := e.api.ListProjects(ctx, "")
			return err
		}},
		{"project without tenant", func(ctx context.Context) error {
			_, err := e.api.CreateProject(ctx, resource.Project{Name: "Mobile"})
			return err
		}},
		{"keys without project", func(ctx context.Context) error {
			_, err := e.api.ListAPIKeys(ctx, ProjectRef{TenantID: e.fixture.TenantID})
			return err
		}},
		{"key without name", func(ctx context.Context) error {
			_, err := e.api.CreateAPIKey(ctx, NewAPIKey{ProjectRef: ref})
			return err
		}},
		{"rotate without key id", func(ctx context.Context) error {
			_, err := e.api.RotateAPIKey(ctx, KeyRef{ProjectRef: ref})
			return err
		}},
		{"select without key", func(ctx context.Context) error {
			return e.api.SelectProject(ctx, Selection{ProjectRef: ref})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := e.hits.Load()
			err := tt.call(testCtx(t))
			if kind, _ := apierr.KindOf(err); kind != apierr.KindValidation {
				t.Fatalf("err = %v, want a validation error", err)
			}
			if e.hits.Load() != before {
				t.Error("invalid input reached the server")
			}
		})
	}
}

func TestClient_IdentityFlow(t *testing.T) {
	e := newTestEnv(t)
	ctx := testCtx(t)

	tenants, err := e.api.ListTenants(ctx)
	if err != nil || len(tenants) != 1 || tenants[0].Name != "Acme" {
		t.Fatalf("ListTenants = %+v, %v", tenants, err)
	}

	tenant, err := e.api.CreateTenant(ctx, resource.Tenant{Name: "Globex", Slug: resource.String("globex")})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	project, err := e.api.CreateProject(ctx, resource.Project{TenantID: tenant.ID, Name: "Mobile"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if project.TenantID != tenant.ID {
		t.Errorf("project tenant = %q, want %q", project.TenantID, tenant.ID)
	}
	projects, err := e.api.ListProjects(ctx, tenant.ID)
	if err != nil || len(projects) != 1 || projects[0].ID != project.ID {
		t.Errorf("ListProjects = %+v, %v", projects, err)
	}

	ref := ProjectRef{TenantID: tenant.ID, ProjectID: project.ID}
	key, err := e.api.CreateAPIKey(ctx, NewAPIKey{ProjectRef: ref, APIKey: resource.APIKey{Name: "ci"}})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	if key.Secret == nil || key.ProjectID != project.ID {
		t.Fatalf("created key = %+v", key)
	}
	keys, err := e.api.ListAPIKeys(ctx, ref)
	if err != nil || len(keys) != 1 || keys[0].Secret != nil {
		t.Errorf("ListAPIKeys = %+v, %v", keys, err)
	}

	rotated, err := e.api.RotateAPIKey(ctx, KeyRef{ProjectRef: ref, KeyID: key.ID})
	if err != nil {
		t.Fatalf("RotateAPIKey: %v", err)
	}
	if rotated.Secret == nil || *rotated.Secret == *key.Secret {
		t.Fatalf("rotated = %+v", rotated)
	}

	if err := e.api.SelectProject(ctx, Selection{ProjectRef: ref, APIKey: *rotated.Secret}); err != nil {
		t.Fatalf("SelectProject: %v", err)
	}
	sess, _ := e.store.Load(ctx)
	if sess.ProjectID != project.ID || sess.APIKey != *rotated.Secret {
		t.Errorf("session = %+v", sess)
	}
	page, err := e.api.ListExperiments(ctx, ExperimentFilter{})
	if err != nil || page.Total != 0 {
		t.Errorf("experiments of the new project = %+v, %v", page, err)
	}
}

func TestClient_UnauthorizedClearsSession(t *testing.T) {
	e := newTestEnv(t)
	ctx := testCtx(t)

	if err := e.store.SelectProject(ctx, e.fixture.TenantID, e.fixture.ProjectID, "sk_revoked"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.api.ListAudiences(ctx); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("ListAudiences = %v, want unauthorized", err)
	}
	sess, _ := e.store.Load(ctx)
	if !sess.Empty() {
		t.Errorf("session after 401 = %+v, want cleared", sess)
	}
}

func TestClient_Health(t *testing.T) {
	e := newTestEnv(t)

	h, err := e.api.Health(testCtx(t))
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.Status != "healthy" || h.Checks["store"].Status != "healthy" {
		t.Errorf("health = %+v", h)
	}
}
