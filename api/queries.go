package api

import (
	"context"

	"github.com/jonwraymond/abclient/query"
	"github.com/jonwraymond/abclient/resource"
)

func (c *Client) options(extra []query.Option) []query.Option {
	opts := make([]query.Option, 0, len(c.queryOpts)+len(extra))
	opts = append(opts, c.queryOpts...)
	return append(opts, extra...)
}

// ObserveExperiments observes one page of experiments.
func (c *Client) ObserveExperiments(f ExperimentFilter, opts ...query.Option) *query.Subscription[resource.Page[resource.Experiment]] {
	return query.Observe(c.q, ExperimentKeys.List(f), func(ctx context.Context) (resource.Page[resource.Experiment], error) {
		return c.ListExperiments(ctx, f)
	}, c.options(opts)...)
}

// ObserveExperiment observes one experiment. An empty id yields a disabled
// query, for screens whose id is not known yet.
func (c *Client) ObserveExperiment(id string, opts ...query.Option) *query.Subscription[resource.Experiment] {
	return query.Observe(c.q, ExperimentKeys.Detail(id), func(ctx context.Context) (resource.Experiment, error) {
		return c.GetExperiment(ctx, id)
	}, c.options(append(opts, disabledIfEmpty(id)))...)
}

// ObserveAudiences observes the audience list.
func (c *Client) ObserveAudiences(opts ...query.Option) *query.Subscription[[]resource.Audience] {
	return query.Observe(c.q, AudienceKeys.List(), c.ListAudiences, c.options(opts)...)
}

// ObserveAudience observes one audience.
func (c *Client) ObserveAudience(id string, opts ...query.Option) *query.Subscription[resource.Audience] {
	return query.Observe(c.q, AudienceKeys.Detail(id), func(ctx context.Context) (resource.Audience, error) {
		return c.GetAudience(ctx, id)
	}, c.options(append(opts, disabledIfEmpty(id)))...)
}

// ObserveTenants observes the tenant list.
func (c *Client) ObserveTenants(opts ...query.Option) *query.Subscription[[]resource.Tenant] {
	return query.Observe(c.q, TenantKeys.List(), c.ListTenants, c.options(opts)...)
}

// ObserveProjects observes the projects of a tenant.
func (c *Client) ObserveProjects(tenantID string, opts ...query.Option) *query.Subscription[[]resource.Project] {
	return query.Observe(c.q, ProjectKeys.List(tenantID), func(ctx context.Context) ([]resource.Project, error) {
		return c.ListProjects(ctx, tenantID)
	}, c.options(append(opts, disabledIfEmpty(tenantID)))...)
}

// ObserveAPIKeys observes the keys of a project.
func (c *Client) ObserveAPIKeys(ref ProjectRef, opts ...query.Option) *query.Subscription[[]resource.APIKey] {
	return query.Observe(c.q, APIKeyKeys.List(ref.TenantID, ref.ProjectID), func(ctx context.Context) ([]resource.APIKey, error) {
		return c.ListAPIKeys(ctx, ref)
	}, c.options(append(opts, disabledIfEmpty(ref.TenantID, ref.ProjectID)))...)
}

// disabledIfEmpty disables a query whose identifying arguments are missing.
// It leaves Enabled untouched otherwise, so callers can still disable.
func disabledIfEmpty(ids ...string) query.Option {
	return func(o *query.Options) {
		for _, id := range ids {
			if id == "" {
				o.Enabled = false
				return
			}
		}
	}
}

func mutate[V, T any](ctx context.Context, c *Client, op Operation, fn query.MutationFunc[V, T], vars V, onSuccess func(T, V, *query.Batch)) *query.Mutation[V, T] {
	return query.Mutate(ctx, c.q, fn, vars, query.MutationOptions[V, T]{
		Retry:       c.mutationOpts.retry,
		RetryDelay:  c.mutationOpts.delay,
		Invalidates: InvalidationsFor(op),
		OnSuccess:   onSuccess,
	})
}

// MutateCreateExperiment creates an experiment and seeds its detail entry.
func (c *Client) MutateCreateExperiment(ctx context.Context, e resource.Experiment) *query.Mutation[resource.Experiment, resource.Experiment] {
	return mutate(ctx, c, OpCreateExperiment, c.CreateExperiment, e,
		func(created resource.Experiment, _ resource.Experiment, b *query.Batch) {
			seed(b, ExperimentKeys.Detail(created.ID), created)
		})
}

// MutateUpdateExperimentStatus transitions an experiment. The returned
// experiment replaces the cached detail entry.
func (c *Client) MutateUpdateExperimentStatus(ctx context.Context, change StatusChange) *query.Mutation[StatusChange, resource.Experiment] {
	return mutate(ctx, c, OpUpdateExperimentStatus, c.UpdateExperimentStatus, change,
		func(updated resource.Experiment, _ StatusChange, b *query.Batch) {
			seed(b, ExperimentKeys.Detail(updated.ID), updated)
		})
}

// MutateCreateAudience creates an audience.
func (c *Client) MutateCreateAudience(ctx context.Context, a resource.Audience) *query.Mutation[resource.Audience, resource.Audience] {
	return mutate(ctx, c, OpCreateAudience, c.CreateAudience, a,
		func(created resource.Audience, _ resource.Audience, b *query.Batch) {
			seed(b, AudienceKeys.Detail(created.ID), created)
		})
}

// MutateCreateTenant creates a tenant.
func (c *Client) MutateCreateTenant(ctx context.Context, t resource.Tenant) *query.Mutation[resource.Tenant, resource.Tenant] {
	return mutate(ctx, c, OpCreateTenant, c.CreateTenant, t, nil)
}

// MutateCreateProject creates a project.
func (c *Client) MutateCreateProject(ctx context.Context, p resource.Project) *query.Mutation[resource.Project, resource.Project] {
	return mutate(ctx, c, OpCreateProject, c.CreateProject, p, nil)
}

// MutateCreateAPIKey creates an API key. The secret is only available in
// the mutation result; it is never cached.
func (c *Client) MutateCreateAPIKey(ctx context.Context, req NewAPIKey) *query.Mutation[NewAPIKey, resource.APIKey] {
	return mutate(ctx, c, OpCreateAPIKey, c.CreateAPIKey, req, nil)
}

// MutateRotateAPIKey rotates an API key.
func (c *Client) MutateRotateAPIKey(ctx context.Context, ref KeyRef) *query.Mutation[KeyRef, resource.APIKey] {
	return mutate(ctx, c, OpRotateAPIKey, c.RotateAPIKey, ref, nil)
}

func seed[T any](b *query.Batch, key query.Key, v T) {
	b.SetEntryData(key, func(any, bool) any { return v })
}
