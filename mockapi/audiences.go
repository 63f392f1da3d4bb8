package mockapi

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/jonwraymond/abclient/resource"
)

type audienceRecord struct {
	seq       uint64
	projectID string
	wire      resource.AudienceWire
}

func (s *Server) handleListAudiences(w http.ResponseWriter, r *http.Request) {
	projectID := projectOf(r).projectID

	s.mu.Lock()
	var matched []audienceRecord
	for _, rec := range s.audiences {
		if rec.projectID == projectID {
			matched = append(matched, *rec)
		}
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })
	out := make([]resource.AudienceWire, len(matched))
	for i, rec := range matched {
		out[i] = rec.wire
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleGetAudience(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	rec, ok := s.audiences[id]
	var out resource.AudienceWire
	if ok {
		out = rec.wire
	}
	s.mu.Unlock()

	if !ok || rec.projectID != projectOf(r).projectID {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "audience not found", nil)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleCreateAudience(w http.ResponseWriter, r *http.Request) {
	var body resource.AudienceWire
	if !decodeBody(w, r, &body) {
		return
	}
	a := resource.AudienceFromWire(body)
	if err := a.Validate(); err != nil {
		writeValidation(w, err)
		return
	}

	s.mu.Lock()
	rec := s.insertAudience(projectOf(r).projectID, a)
	out := rec.wire
	s.mu.Unlock()
	writeData(w, http.StatusCreated, out)
}

// insertAudience stores a. s.mu must be held.
func (s *Server) insertAudience(projectID string, a resource.Audience) *audienceRecord {
	now := s.now()
	wire := resource.AudienceToWire(a)
	wire.ID = newID()
	wire.EstimatedSize = estimateSize(a.Rules)
	wire.CreatedAt = now
	wire.UpdatedAt = now

	rec := &audienceRecord{seq: s.nextSeq(), projectID: projectID, wire: wire}
	s.audiences[wire.ID] = rec
	return rec
}

// estimateSize halves a notional population of 100k users for every rule.
func estimateSize(rules []resource.AudienceRule) *int64 {
	size := int64(100_000) >> len(rules)
	return &size
}
