package api

import "github.com/jonwraymond/abclient/query"

// ExperimentFilter selects a page of experiments. It is part of the list
// query key, so two filters with the same fields share a cache entry.
type ExperimentFilter struct {
	Status string `json:"status,omitempty"`
	Tag    string `json:"tag,omitempty"`
	Page   int    `json:"page,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// Key factories. All() is the root prefix of a resource; invalidating it
// covers every list and detail below it.
var (
	ExperimentKeys = experimentKeys{}
	AudienceKeys   = audienceKeys{}
	TenantKeys     = tenantKeys{}
	ProjectKeys    = projectKeys{}
	APIKeyKeys     = apiKeyKeys{}
)

type experimentKeys struct{}

func (experimentKeys) All() query.Key     { return query.Key{"experiments"} }
func (experimentKeys) Lists() query.Key   { return query.Key{"experiments", "list"} }
func (experimentKeys) Details() query.Key { return query.Key{"experiments", "detail"} }

func (k experimentKeys) List(f ExperimentFilter) query.Key {
	return append(k.Lists(), f)
}

func (k experimentKeys) Detail(id string) query.Key {
	return append(k.Details(), id)
}

type audienceKeys struct{}

func (audienceKeys) All() query.Key     { return query.Key{"audiences"} }
func (audienceKeys) List() query.Key    { return query.Key{"audiences", "list"} }
func (audienceKeys) Details() query.Key { return query.Key{"audiences", "detail"} }

func (k audienceKeys) Detail(id string) query.Key {
	return append(k.Details(), id)
}

type tenantKeys struct{}

func (tenantKeys) All() query.Key  { return query.Key{"tenants"} }
func (tenantKeys) List() query.Key { return query.Key{"tenants", "list"} }

type projectKeys struct{}

func (projectKeys) All() query.Key { return query.Key{"projects"} }

func (projectKeys) List(tenantID string) query.Key {
	return query.Key{"projects", "list", tenantID}
}

type apiKeyKeys struct{}

func (apiKeyKeys) All() query.Key { return query.Key{"apikeys"} }

func (apiKeyKeys) List(tenantID, projectID string) query.Key {
	return query.Key{"apikeys", "list", tenantID, projectID}
}
