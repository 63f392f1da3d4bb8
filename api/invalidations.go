package api

import "github.com/jonwraymond/abclient/query"

// Operation names a write.
type Operation string

const (
	OpCreateExperiment       Operation = "experiments.create"
	OpUpdateExperimentStatus Operation = "experiments.update_status"
	OpCreateAudience         Operation = "audiences.create"
	OpCreateTenant           Operation = "tenants.create"
	OpCreateProject          Operation = "projects.create"
	OpCreateAPIKey           Operation = "apikeys.create"
	OpRotateAPIKey           Operation = "apikeys.rotate"
	OpSelectProject          Operation = "session.select_project"
)

// Invalidations lists the key prefixes each write invalidates on success.
// Switching projects changes which data the API key can see, so every
// project-scoped resource is invalidated.
var Invalidations = map[Operation][]query.Key{
	OpCreateExperiment:       {ExperimentKeys.Lists()},
	OpUpdateExperimentStatus: {ExperimentKeys.All()},
	OpCreateAudience:         {AudienceKeys.All()},
	OpCreateTenant:           {TenantKeys.All()},
	OpCreateProject:          {ProjectKeys.All()},
	OpCreateAPIKey:           {APIKeyKeys.All()},
	OpRotateAPIKey:           {APIKeyKeys.All()},
	OpSelectProject:          {ExperimentKeys.All(), AudienceKeys.All()},
}

// InvalidationsFor returns a copy of the prefixes op invalidates.
func InvalidationsFor(op Operation) []query.Key {
	keys := Invalidations[op]
	out := make([]query.Key, len(keys))
	copy(out, keys)
	return out
}
