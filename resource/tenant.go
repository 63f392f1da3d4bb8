package resource

// Tenant is an organization owning projects.
type Tenant struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name"`
	Slug      *string `json:"slug,omitempty"`
	CreatedAt int64   `json:"createdAt,omitempty"`
}

// TenantWire is the wire form of a tenant.
type TenantWire struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name"`
	Slug      *string `json:"slug,omitempty"`
	CreatedAt int64   `json:"created_at,omitempty"`
}

// TenantFromWire converts a wire tenant.
func TenantFromWire(w TenantWire) Tenant {
	return Tenant{ID: w.ID, Name: w.Name, Slug: w.Slug, CreatedAt: w.CreatedAt}
}

// TenantToWire builds the request body for creating a tenant.
func TenantToWire(t Tenant) TenantWire {
	return TenantWire{Name: t.Name, Slug: t.Slug}
}

// Project groups experiments and audiences under a tenant. Project-scoped
// API calls are authenticated with one of its API keys.
type Project struct {
	ID          string  `json:"id,omitempty"`
	TenantID    string  `json:"tenantId"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	CreatedAt   int64   `json:"createdAt,omitempty"`
}

// ProjectWire is the wire form of a project. The server nests the owning
// tenant as {"tenant": {"id": ...}}.
type ProjectWire struct {
	ID          string         `json:"id,omitempty"`
	Tenant      *TenantRefWire `json:"tenant,omitempty"`
	Name        string         `json:"name"`
	Description *string        `json:"description,omitempty"`
	CreatedAt   int64          `json:"created_at,omitempty"`
}

// TenantRefWire references a tenant by id.
type TenantRefWire struct {
	ID string `json:"id"`
}

// ProjectFromWire converts a wire project.
func ProjectFromWire(w ProjectWire) Project {
	p := Project{ID: w.ID, Name: w.Name, Description: w.Description, CreatedAt: w.CreatedAt}
	if w.Tenant != nil {
		p.TenantID = w.Tenant.ID
	}
	return p
}

// ProjectToWire builds the request body for creating a project. The tenant
// travels in the request path, not the body.
func ProjectToWire(p Project) ProjectWire {
	return ProjectWire{Name: p.Name, Description: p.Description}
}
