package api

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jonwraymond/abclient/apierr"
	"github.com/jonwraymond/abclient/query"
	"github.com/jonwraymond/abclient/resource"
)

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMutateCreateExperiment_RefreshesLists(t *testing.T) {
	e := newTestEnv(t)
	ctx := testCtx(t)

	list := e.api.ObserveExperiments(ExperimentFilter{})
	defer list.Unsubscribe()
	page, err := list.Wait(ctx)
	if err != nil || page.Total != 3 {
		t.Fatalf("initial list = %+v, %v", page, err)
	}

	created, err := e.api.MutateCreateExperiment(ctx, newExperiment()).Wait(ctx)
	if err != nil {
		t.Fatalf("MutateCreateExperiment: %v", err)
	}

	cached, ok := query.EntryDataOf[resource.Experiment](e.q, ExperimentKeys.Detail(created.ID))
	if !ok || cached.Name != "Search ranking" {
		t.Errorf("detail entry = %+v, %v; want it seeded", cached, ok)
	}
	eventually(t, "the list to include the new experiment", func() bool {
		st := list.State()
		return st.HasData && st.Data.Total == 4
	})
}

func TestMutateUpdateExperimentStatus_ReplacesDetail(t *testing.T) {
	e := newTestEnv(t)
	ctx := testCtx(t)
	id := e.fixture.ExperimentIDs[1]

	detail := e.api.ObserveExperiment(id)
	defer detail.Unsubscribe()
	if got, err := detail.Wait(ctx); err != nil || got.Status != resource.StatusDraft {
		t.Fatalf("initial detail = %+v, %v", got, err)
	}

	m := e.api.MutateUpdateExperimentStatus(ctx, StatusChange{
		ID:           id,
		StatusUpdate: resource.StatusUpdate{Status: resource.StatusLive},
	})
	if _, err := m.Wait(ctx); err != nil {
		t.Fatalf("MutateUpdateExperimentStatus: %v", err)
	}
	if st := detail.State(); st.Data.Status != resource.StatusLive {
		t.Errorf("detail status = %s, want LIVE as soon as the mutation resolves", st.Data.Status)
	}
}

func TestMutate_RetriesRetryableFailure(t *testing.T) {
	e := newTestEnv(t, WithMutationRetry(2))
	ctx := testCtx(t)
	e.srv.FailNext("POST /audiences", http.StatusServiceUnavailable, 1)

	audience := resource.Audience{
		Name:  "Beta testers",
		Rules: []resource.AudienceRule{{Attribute: "beta", Operator: resource.OpEquals, Values: []string{"true"}}},
	}
	created, err := e.api.MutateCreateAudience(ctx, audience).Wait(ctx)
	if err != nil {
		t.Fatalf("MutateCreateAudience: %v", err)
	}
	if created.ID == "" {
		t.Error("created audience has no id")
	}
	if got := e.srv.Requests("POST /audiences"); got != 2 {
		t.Errorf("POST /audiences requests = %d, want 2", got)
	}
}

func TestMutate_DoesNotRetryClientErrors(t *testing.T) {
	e := newTestEnv(t, WithMutationRetry(2))
	ctx := testCtx(t)

	m := e.api.MutateUpdateExperimentStatus(ctx, StatusChange{
		ID:           e.fixture.ExperimentIDs[0],
		StatusUpdate: resource.StatusUpdate{Status: resource.StatusLive},
	})
	if _, err := m.Wait(ctx); err == nil {
		t.Fatal("LIVE->LIVE succeeded")
	}
	if m.Status() != query.MutationError {
		t.Errorf("status = %s", m.Status())
	}
	if got := e.srv.Requests("PATCH /experiments/{id}"); got != 1 {
		t.Errorf("PATCH requests = %d, want 1", got)
	}

	before := e.hits.Load()
	_, err := e.api.MutateCreateTenant(ctx, resource.Tenant{}).Wait(ctx)
	if !errors.Is(err, apierr.ErrValidation) {
		t.Errorf("MutateCreateTenant = %v, want validation error", err)
	}
	if e.hits.Load() != before {
		t.Error("invalid tenant reached the server")
	}
}

func TestSelectProject_InvalidatesProjectScopedQueries(t *testing.T) {
	e := newTestEnv(t)
	ctx := testCtx(t)

	experiments := e.api.ObserveExperiments(ExperimentFilter{})
	defer experiments.Unsubscribe()
	audiences := e.api.ObserveAudiences()
	defer audiences.Unsubscribe()
	tenants := e.api.ObserveTenants()
	defer tenants.Unsubscribe()

	if _, err := experiments.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := audiences.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := tenants.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	project, err := e.api.CreateProject(ctx, resource.Project{TenantID: e.fixture.TenantID, Name: "Empty"})
	if err != nil {
		t.Fatal(err)
	}
	ref := ProjectRef{TenantID: e.fixture.TenantID, ProjectID: project.ID}
	key, err := e.api.CreateAPIKey(ctx, NewAPIKey{ProjectRef: ref, APIKey: resource.APIKey{Name: "default"}})
	if err != nil {
		t.Fatal(err)
	}

	if err := e.api.SelectProject(ctx, Selection{ProjectRef: ref, APIKey: *key.Secret}); err != nil {
		t.Fatalf("SelectProject: %v", err)
	}

	eventually(t, "experiments of the new project", func() bool {
		st := experiments.State()
		return st.Status == query.StatusSuccess && st.Data.Total == 0
	})
	eventually(t, "audiences of the new project", func() bool {
		st := audiences.State()
		return st.Status == query.StatusSuccess && len(st.Data) == 0
	})
	if st := tenants.State(); st.IsStale {
		t.Error("tenant list was invalidated by a project switch")
	}
}

func TestObserve_MissingIDIsDisabled(t *testing.T) {
	e := newTestEnv(t)
	ctx := testCtx(t)

	detail := e.api.ObserveExperiment("")
	defer detail.Unsubscribe()
	if _, err := detail.Wait(ctx); !errors.Is(err, query.ErrDisabled) {
		t.Errorf("Wait = %v, want ErrDisabled", err)
	}

	keys := e.api.ObserveAPIKeys(ProjectRef{TenantID: e.fixture.TenantID})
	defer keys.Unsubscribe()
	if _, err := keys.Wait(ctx); !errors.Is(err, query.ErrDisabled) {
		t.Errorf("Wait = %v, want ErrDisabled", err)
	}
	if e.hits.Load() != 0 {
		t.Errorf("disabled queries sent %d requests", e.hits.Load())
	}
}

func TestObserveAPIKeys(t *testing.T) {
	e := newTestEnv(t)
	ctx := testCtx(t)
	ref := ProjectRef{TenantID: e.fixture.TenantID, ProjectID: e.fixture.ProjectID}

	keys := e.api.ObserveAPIKeys(ref)
	defer keys.Unsubscribe()
	list, err := keys.Wait(ctx)
	if err != nil || len(list) != 1 || list[0].ID != e.fixture.KeyID {
		t.Fatalf("keys = %+v, %v", list, err)
	}

	if _, err := e.api.MutateRotateAPIKey(ctx, KeyRef{ProjectRef: ref, KeyID: e.fixture.KeyID}).Wait(ctx); err != nil {
		t.Fatalf("MutateRotateAPIKey: %v", err)
	}
	eventually(t, "the key list to refetch", func() bool {
		st := keys.State()
		return st.Status == query.StatusSuccess && len(st.Data) == 1 && st.Data[0].Prefix != list[0].Prefix
	})
}
