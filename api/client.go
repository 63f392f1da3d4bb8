package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jonwraymond/abclient/apierr"
	"github.com/jonwraymond/abclient/health"
	"github.com/jonwraymond/abclient/query"
	"github.com/jonwraymond/abclient/resilience"
	"github.com/jonwraymond/abclient/resource"
	"github.com/jonwraymond/abclient/transport"
)

// Client issues typed calls against the console API.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: every failure is an *apierr.Error; invalid input fails with
//     kind KindValidation without a request being sent.
type Client struct {
	t *transport.Client
	q *query.Client

	queryOpts    []query.Option
	mutationOpts mutationSettings
}

type mutationSettings struct {
	retry int
	delay resilience.Backoff
}

// Option configures a Client.
type Option func(*Client)

// WithQueryOptions sets options applied to every Observe* query before the
// per-call options.
func WithQueryOptions(opts ...query.Option) Option {
	return func(c *Client) { c.queryOpts = append(c.queryOpts, opts...) }
}

// WithMutationRetry sets the total attempts of Mutate* calls. Values are
// clamped to query.MaxMutationAttempts.
func WithMutationRetry(attempts int) Option {
	return func(c *Client) { c.mutationOpts.retry = attempts }
}

// WithMutationRetryDelay sets the backoff before a Mutate* retry.
func WithMutationRetryDelay(b resilience.Backoff) Option {
	return func(c *Client) { c.mutationOpts.delay = b }
}

// New creates a Client. q may be nil when only the direct calls are used.
func New(t *transport.Client, q *query.Client, opts ...Option) *Client {
	c := &Client{t: t, q: q}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transport returns the underlying transport client.
func (c *Client) Transport() *transport.Client { return c.t }

// Cache returns the query client, or nil.
func (c *Client) Cache() *query.Client { return c.q }

func required(field, value string) error {
	if value == "" {
		return apierr.Validation(map[string]string{field: "is required"})
	}
	return nil
}

func segment(s string) string { return url.PathEscape(s) }

// ListExperiments returns one page of experiments matching f.
func (c *Client) ListExperiments(ctx context.Context, f ExperimentFilter) (resource.Page[resource.Experiment], error) {
	if f.Status != "" && !resource.ExperimentStatus(f.Status).Valid() {
		return resource.Page[resource.Experiment]{}, apierr.Validation(map[string]string{"status": fmt.Sprintf("unknown status %q", f.Status)})
	}
	if f.Page < 0 || f.Limit < 0 {
		return resource.Page[resource.Experiment]{}, apierr.Validation(map[string]string{"page": "page and limit must not be negative"})
	}

	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Tag != "" {
		q.Set("tag", f.Tag)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}

	var w resource.PageWire[resource.ExperimentWire]
	err := c.t.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		Path:    "/experiments",
		Query:   q,
		Service: transport.ServiceProject,
		Name:    "experiments.list",
	}, &w)
	if err != nil {
		return resource.Page[resource.Experiment]{}, err
	}
	return resource.PageFromWire(w, resource.ExperimentFromWire), nil
}

// GetExperiment returns one experiment.
func (c *Client) GetExperiment(ctx context.Context, id string) (resource.Experiment, error) {
	if err := required("id", id); err != nil {
		return resource.Experiment{}, err
	}
	var w resource.ExperimentWire
	err := c.t.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		Path:    "/experiments/" + segment(id),
		Route:   "/experiments/{id}",
		Service: transport.ServiceProject,
		Name:    "experiments.get",
	}, &w)
	if err != nil {
		return resource.Experiment{}, err
	}
	return resource.ExperimentFromWire(w), nil
}

// CreateExperiment creates an experiment and returns it as stored.
func (c *Client) CreateExperiment(ctx context.Context, e resource.Experiment) (resource.Experiment, error) {
	if err := e.Validate(); err != nil {
		return resource.Experiment{}, err
	}
	var w resource.ExperimentWire
	err := c.t.Do(ctx, transport.Request{
		Method:  http.MethodPost,
		Path:    "/experiments",
		Body:    resource.ExperimentToWire(e),
		Service: transport.ServiceProject,
		Name:    "experiments.create",
	}, &w)
	if err != nil {
		return resource.Experiment{}, err
	}
	return resource.ExperimentFromWire(w), nil
}

// StatusChange is a status transition of one experiment.
type StatusChange struct {
	ID string
	resource.StatusUpdate
}

// UpdateExperimentStatus transitions an experiment and returns it as stored.
func (c *Client) UpdateExperimentStatus(ctx context.Context, change StatusChange) (resource.Experiment, error) {
	if err := required("id", change.ID); err != nil {
		return resource.Experiment{}, err
	}
	if err := change.Validate(); err != nil {
		return resource.Experiment{}, err
	}
	var w resource.ExperimentWire
	err := c.t.Do(ctx, transport.Request{
		Method:  http.MethodPatch,
		Path:    "/experiments/" + segment(change.ID),
		Route:   "/experiments/{id}",
		Body:    resource.StatusUpdateToWire(change.StatusUpdate),
		Service: transport.ServiceProject,
		Name:    "experiments.update_status",
	}, &w)
	if err != nil {
		return resource.Experiment{}, err
	}
	return resource.ExperimentFromWire(w), nil
}

// ListAudiences returns every audience of the selected project.
func (c *Client) ListAudiences(ctx context.Context) ([]resource.Audience, error) {
	var w []resource.AudienceWire
	err := c.t.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		Path:    "/audiences",
		Service: transport.ServiceProject,
		Name:    "audiences.list",
	}, &w)
	if err != nil {
		return nil, err
	}
	return resource.MapSlice(w, resource.AudienceFromWire), nil
}

// GetAudience returns one audience.
func (c *Client) GetAudience(ctx context.Context, id string) (resource.Audience, error) {
	if err := required("id", id); err != nil {
		return resource.Audience{}, err
	}
	var w resource.AudienceWire
	err := c.t.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		Path:    "/audiences/" + segment(id),
		Route:   "/audiences/{id}",
		Service: transport.ServiceProject,
		Name:    "audiences.get",
	}, &w)
	if err != nil {
		return resource.Audience{}, err
	}
	return resource.AudienceFromWire(w), nil
}

// CreateAudience creates an audience.
func (c *Client) CreateAudience(ctx context.Context, a resource.Audience) (resource.Audience, error) {
	if err := a.Validate(); err != nil {
		return resource.Audience{}, err
	}
	var w resource.AudienceWire
	err := c.t.Do(ctx, transport.Request{
		Method:  http.MethodPost,
		Path:    "/audiences",
		Body:    resource.AudienceToWire(a),
		Service: transport.ServiceProject,
		Name:    "audiences.create",
	}, &w)
	if err != nil {
		return resource.Audience{}, err
	}
	return resource.AudienceFromWire(w), nil
}

// ListTenants returns the tenants visible to the signed-in user.
func (c *Client) ListTenants(ctx context.Context) ([]resource.Tenant, error) {
	var w []resource.TenantWire
	err := c.t.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		Path:    "/tenants",
		Service: transport.ServiceIdentity,
		Name:    "tenants.list",
	}, &w)
	if err != nil {
		return nil, err
	}
	return resource.MapSlice(w, resource.TenantFromWire), nil
}

// CreateTenant creates a tenant.
func (c *Client) CreateTenant(ctx context.Context, t resource.Tenant) (resource.Tenant, error) {
	if err := t.Validate(); err != nil {
		return resource.Tenant{}, err
	}
	var w resource.TenantWire
	err := c.t.Do(ctx, transport.Request{
		Method:  http.MethodPost,
		Path:    "/tenants",
		Body:    resource.TenantToWire(t),
		Service: transport.ServiceIdentity,
		Name:    "tenants.create",
	}, &w)
	if err != nil {
		return resource.Tenant{}, err
	}
	return resource.TenantFromWire(w), nil
}

// ListProjects returns the projects of a tenant.
func (c *Client) ListProjects(ctx context.Context, tenantID string) ([]resource.Project, error) {
	if err := required("tenant_id", tenantID); err != nil {
		return nil, err
	}
	var w []resource.ProjectWire
	err := c.t.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		Path:    "/tenants/" + segment(tenantID) + "/projects",
		Route:   "/tenants/{id}/projects",
		Service: transport.ServiceIdentity,
		Name:    "projects.list",
	}, &w)
	if err != nil {
		return nil, err
	}
	return resource.MapSlice(w, resource.ProjectFromWire), nil
}

// CreateProject creates a project under p.TenantID.
func (c *Client) CreateProject(ctx context.Context, p resource.Project) (resource.Project, error) {
	if err := p.Validate(); err != nil {
		return resource.Project{}, err
	}
	var w resource.ProjectWire
	err := c.t.Do(ctx, transport.Request{
		Method:  http.MethodPost,
		Path:    "/tenants/" + segment(p.TenantID) + "/projects",
		Route:   "/tenants/{id}/projects",
		Body:    resource.ProjectToWire(p),
		Service: transport.ServiceIdentity,
		Name:    "projects.create",
	}, &w)
	if err != nil {
		return resource.Project{}, err
	}
	out := resource.ProjectFromWire(w)
	if out.TenantID == "" {
		out.TenantID = p.TenantID
	}
	return out, nil
}

// ProjectRef identifies a project.
type ProjectRef struct {
	TenantID  string
	ProjectID string
}

func (r ProjectRef) validate() error {
	fields := map[string]string{}
	if r.TenantID == "" {
		fields["tenant_id"] = "is required"
	}
	if r.ProjectID == "" {
		fields["project_id"] = "is required"
	}
	return apierr.Validation(fields)
}

func (r ProjectRef) keysPath() string {
	return "/tenants/" + segment(r.TenantID) + "/projects/" + segment(r.ProjectID) + "/api-keys"
}

// ListAPIKeys returns the key metadata of a project. Secrets are never
// listed.
func (c *Client) ListAPIKeys(ctx context.Context, ref ProjectRef) ([]resource.APIKey, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	var w []resource.APIKeyWire
	err := c.t.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		Path:    ref.keysPath(),
		Route:   "/tenants/{id}/projects/{pid}/api-keys",
		Service: transport.ServiceIdentity,
		Name:    "apikeys.list",
	}, &w)
	if err != nil {
		return nil, err
	}
	return resource.MapSlice(w, resource.APIKeyFromWire), nil
}

// NewAPIKey is a key creation request.
type NewAPIKey struct {
	ProjectRef
	resource.APIKey
}

// CreateAPIKey creates a key and returns it with its secret.
func (c *Client) CreateAPIKey(ctx context.Context, req NewAPIKey) (resource.APIKey, error) {
	if err := req.ProjectRef.validate(); err != nil {
		return resource.APIKey{}, err
	}
	if err := req.APIKey.Validate(); err != nil {
		return resource.APIKey{}, err
	}
	var w resource.APIKeySecretWire
	err := c.t.Do(ctx, transport.Request{
		Method:  http.MethodPost,
		Path:    req.keysPath(),
		Route:   "/tenants/{id}/projects/{pid}/api-keys",
		Body:    resource.APIKeyToWire(req.APIKey),
		Service: transport.ServiceIdentity,
		Name:    "apikeys.create",
	}, &w)
	if err != nil {
		return resource.APIKey{}, err
	}
	return resource.APIKeyFromSecretWire(w), nil
}

// KeyRef identifies an API key.
type KeyRef struct {
	ProjectRef
	KeyID string
}

// RotateAPIKey replaces a key's secret and returns the new one.
func (c *Client) RotateAPIKey(ctx context.Context, ref KeyRef) (resource.APIKey, error) {
	if err := ref.ProjectRef.validate(); err != nil {
		return resource.APIKey{}, err
	}
	if err := required("key_id", ref.KeyID); err != nil {
		return resource.APIKey{}, err
	}
	var w resource.APIKeySecretWire
	err := c.t.Do(ctx, transport.Request{
		Method:  http.MethodPost,
		Path:    ref.keysPath() + "/" + segment(ref.KeyID) + "/rotate",
		Route:   "/tenants/{id}/projects/{pid}/api-keys/{kid}/rotate",
		Service: transport.ServiceIdentity,
		Name:    "apikeys.rotate",
	}, &w)
	if err != nil {
		return resource.APIKey{}, err
	}
	return resource.APIKeyFromSecretWire(w), nil
}

// Selection is the project whose API key authenticates project-scoped
// calls.
type Selection struct {
	ProjectRef
	APIKey string
}

// SelectProject persists the selected project and its API key. Later
// project-scoped requests pick it up because the transport re-reads the
// session on every call. Cached project-scoped data is invalidated when a
// query client is attached.
func (c *Client) SelectProject(ctx context.Context, sel Selection) error {
	if err := sel.ProjectRef.validate(); err != nil {
		return err
	}
	if err := required("api_key", sel.APIKey); err != nil {
		return err
	}
	if err := c.t.Store().SelectProject(ctx, sel.TenantID, sel.ProjectID, sel.APIKey); err != nil {
		return apierr.Setup(fmt.Errorf("save session: %w", err))
	}
	if c.q != nil {
		b := &query.Batch{}
		for _, prefix := range InvalidationsFor(OpSelectProject) {
			b.Invalidate(prefix)
		}
		c.q.Apply(b)
	}
	return nil
}

// Health fetches the project API's detailed health report. An unhealthy
// backend answers 503, which surfaces as a KindServer error.
func (c *Client) Health(ctx context.Context) (health.HealthResponse, error) {
	var h health.HealthResponse
	err := c.t.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		Path:    "/health",
		Service: transport.ServiceProject,
		Name:    "health",
	}, &h)
	return h, err
}
