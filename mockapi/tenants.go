package mockapi

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/jonwraymond/abclient/resource"
)

type tenantRecord struct {
	seq  uint64
	wire resource.TenantWire
}

type projectRecord struct {
	seq      uint64
	tenantID string
	wire     resource.ProjectWire
}

type keyRecord struct {
	seq       uint64
	tenantID  string
	projectID string
	wire      resource.APIKeyWire
	secret    string
}

func (s *Server) handleListTenants(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	recs := make([]tenantRecord, 0, len(s.tenants))
	for _, rec := range s.tenants {
		recs = append(recs, *rec)
	}
	s.mu.Unlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	out := make([]resource.TenantWire, len(recs))
	for i, rec := range recs {
		out[i] = rec.wire
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var body resource.TenantWire
	if !decodeBody(w, r, &body) {
		return
	}
	t := resource.TenantFromWire(body)
	if err := t.Validate(); err != nil {
		writeValidation(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Slug != nil {
		for _, rec := range s.tenants {
			if rec.wire.Slug != nil && *rec.wire.Slug == *t.Slug {
				writeError(w, http.StatusConflict, "SLUG_TAKEN", "a tenant with this slug already exists", nil)
				return
			}
		}
	}
	writeData(w, http.StatusCreated, s.insertTenant(t).wire)
}

// insertTenant stores t. s.mu must be held.
func (s *Server) insertTenant(t resource.Tenant) *tenantRecord {
	wire := resource.TenantToWire(t)
	wire.ID = newID()
	wire.CreatedAt = s.now()
	rec := &tenantRecord{seq: s.nextSeq(), wire: wire}
	s.tenants[wire.ID] = rec
	return rec
}

// tenantExists writes a 404 unless the {tid} path variable names a tenant.
// s.mu must be held.
func (s *Server) tenantExists(w http.ResponseWriter, r *http.Request) (string, bool) {
	tid := mux.Vars(r)["tid"]
	if _, ok := s.tenants[tid]; !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "tenant not found", nil)
		return "", false
	}
	return tid, true
}

// projectExists writes a 404 unless {tid} and {pid} name a project of that
// tenant. s.mu must be held.
func (s *Server) projectExists(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	tid, ok := s.tenantExists(w, r)
	if !ok {
		return "", "", false
	}
	pid := mux.Vars(r)["pid"]
	if rec, ok := s.projects[pid]; !ok || rec.tenantID != tid {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "project not found", nil)
		return "", "", false
	}
	return tid, pid, true
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tid, ok := s.tenantExists(w, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	var recs []projectRecord
	for _, rec := range s.projects {
		if rec.tenantID == tid {
			recs = append(recs, *rec)
		}
	}
	s.mu.Unlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	out := make([]resource.ProjectWire, len(recs))
	for i, rec := range recs {
		out[i] = rec.wire
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var body resource.ProjectWire
	if !decodeBody(w, r, &body) {
		return
	}
	p := resource.ProjectFromWire(body)
	p.TenantID = mux.Vars(r)["tid"]
	if err := p.Validate(); err != nil {
		writeValidation(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenantExists(w, r); !ok {
		return
	}
	writeData(w, http.StatusCreated, s.insertProject(p).wire)
}

// insertProject stores p under p.TenantID. s.mu must be held.
func (s *Server) insertProject(p resource.Project) *projectRecord {
	wire := resource.ProjectToWire(p)
	wire.ID = newID()
	wire.Tenant = &resource.TenantRefWire{ID: p.TenantID}
	wire.CreatedAt = s.now()
	rec := &projectRecord{seq: s.nextSeq(), tenantID: p.TenantID, wire: wire}
	s.projects[wire.ID] = rec
	return rec
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, pid, ok := s.projectExists(w, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	var recs []keyRecord
	for _, rec := range s.keys {
		if rec.projectID == pid {
			recs = append(recs, *rec)
		}
	}
	s.mu.Unlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	out := make([]resource.APIKeyWire, len(recs))
	for i, rec := range recs {
		out[i] = rec.wire
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var body resource.APIKeyWire
	if !decodeBody(w, r, &body) {
		return
	}
	k := resource.APIKeyFromWire(body)
	if err := k.Validate(); err != nil {
		writeValidation(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tid, pid, ok := s.projectExists(w, r)
	if !ok {
		return
	}
	rec := s.insertKey(tid, pid, k, newSecret())
	writeData(w, http.StatusCreated, resource.APIKeySecretWire{APIKey: rec.wire, Key: rec.secret})
}

// insertKey stores k with secret. s.mu must be held.
func (s *Server) insertKey(tenantID, projectID string, k resource.APIKey, secret string) *keyRecord {
	wire := resource.APIKeyToWire(k)
	wire.ID = newID()
	wire.ProjectID = projectID
	wire.Prefix = prefixOf(secret)
	wire.CreatedAt = s.now()
	rec := &keyRecord{seq: s.nextSeq(), tenantID: tenantID, projectID: projectID, wire: wire, secret: secret}
	s.keys[wire.ID] = rec
	return rec
}

func (s *Server) handleRotateKey(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, pid, ok := s.projectExists(w, r)
	if !ok {
		return
	}
	rec, ok := s.keys[mux.Vars(r)["kid"]]
	if !ok || rec.projectID != pid {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "API key not found", nil)
		return
	}

	// Records are shared with in-flight requests authenticated by the old
	// secret, so rotation replaces the record instead of mutating it.
	rotated := *rec
	rotated.secret = newSecret()
	rotated.wire.Prefix = prefixOf(rotated.secret)
	s.keys[rec.wire.ID] = &rotated
	writeData(w, http.StatusOK, resource.APIKeySecretWire{APIKey: rotated.wire, Key: rotated.secret})
}

func prefixOf(secret string) string {
	if len(secret) <= 10 {
		return secret
	}
	return secret[:10]
}
