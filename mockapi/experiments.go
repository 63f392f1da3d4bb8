package mockapi

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jonwraymond/abclient/resource"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type experimentRecord struct {
	seq       uint64
	projectID string
	wire      resource.ExperimentWire
}

// transitions lists the statuses reachable from each status. CONCLUDED
// and TERMINATED are final.
var transitions = map[resource.ExperimentStatus][]resource.ExperimentStatus{
	resource.StatusDraft:  {resource.StatusLive, resource.StatusTerminated},
	resource.StatusLive:   {resource.StatusPaused, resource.StatusConcluded, resource.StatusTerminated},
	resource.StatusPaused: {resource.StatusLive, resource.StatusConcluded, resource.StatusTerminated},
}

func canTransition(from, to resource.ExperimentStatus) bool {
	return slices.Contains(transitions[from], to)
}

func pagination(w http.ResponseWriter, q url.Values) (page, limit int, ok bool) {
	page, limit = 1, defaultLimit
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "page must be a positive integer", nil)
			return 0, 0, false
		}
		page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxLimit {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("limit must be between 1 and %d", maxLimit), nil)
			return 0, 0, false
		}
		limit = n
	}
	return page, limit, true
}

func (s *Server) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	projectID := projectOf(r).projectID
	q := r.URL.Query()
	page, limit, ok := pagination(w, q)
	if !ok {
		return
	}
	status, tag := q.Get("status"), q.Get("tag")

	s.mu.Lock()
	var matched []*experimentRecord
	for _, rec := range s.experiments {
		if rec.projectID != projectID {
			continue
		}
		if status != "" && rec.wire.Status != status {
			continue
		}
		if tag != "" && !slices.Contains(rec.wire.Tags, tag) {
			continue
		}
		copied := *rec
		matched = append(matched, &copied)
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	items := []resource.ExperimentWire{}
	if start := (page - 1) * limit; start < len(matched) {
		end := min(start+limit, len(matched))
		for _, rec := range matched[start:end] {
			items = append(items, rec.wire)
		}
	}
	writeData(w, http.StatusOK, resource.PageWire[resource.ExperimentWire]{
		Items: items,
		Total: len(matched),
		Page:  page,
		Limit: limit,
	})
}

func (s *Server) handleGetExperiment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	rec, ok := s.experiments[id]
	var out resource.ExperimentWire
	if ok {
		out = rec.wire
	}
	s.mu.Unlock()

	if !ok || rec.projectID != projectOf(r).projectID {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "experiment not found", nil)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleCreateExperiment(w http.ResponseWriter, r *http.Request) {
	var body resource.ExperimentWire
	if !decodeBody(w, r, &body) {
		return
	}
	e := resource.ExperimentFromWire(body)
	if err := e.Validate(); err != nil {
		writeValidation(w, err)
		return
	}
	projectID := projectOf(r).projectID

	s.mu.Lock()
	defer s.mu.Unlock()
	if e.AudienceID != nil {
		if a, ok := s.audiences[*e.AudienceID]; !ok || a.projectID != projectID {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid input",
				map[string]string{"audience_id": "unknown audience"})
			return
		}
	}
	rec := s.insertExperiment(projectID, e)
	writeData(w, http.StatusCreated, rec.wire)
}

// insertExperiment stores e as a new DRAFT experiment. s.mu must be held.
func (s *Server) insertExperiment(projectID string, e resource.Experiment) *experimentRecord {
	now := s.now()
	wire := resource.ExperimentToWire(e)
	wire.ID = newID()
	wire.Status = string(resource.StatusDraft)
	wire.WinningVariant = nil
	wire.CreatedAt = now
	wire.UpdatedAt = now

	rec := &experimentRecord{seq: s.nextSeq(), projectID: projectID, wire: wire}
	s.experiments[wire.ID] = rec
	return rec
}

func (s *Server) handleUpdateExperiment(w http.ResponseWriter, r *http.Request) {
	var body resource.StatusUpdateWire
	if !decodeBody(w, r, &body) {
		return
	}
	update := resource.StatusUpdate{
		Status:         resource.ExperimentStatus(body.Status),
		WinningVariant: body.WinningVariant,
	}
	if err := update.Validate(); err != nil {
		writeValidation(w, err)
		return
	}

	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.experiments[id]
	if !ok || rec.projectID != projectOf(r).projectID {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "experiment not found", nil)
		return
	}
	if err := s.transition(rec, update); err != nil {
		writeError(w, err.status, err.code, err.message, err.cause)
		return
	}
	writeData(w, http.StatusOK, rec.wire)
}

type handlerError struct {
	status  int
	code    string
	message string
	cause   any
}

// transition applies update to rec. s.mu must be held.
func (s *Server) transition(rec *experimentRecord, update resource.StatusUpdate) *handlerError {
	from := resource.ExperimentStatus(rec.wire.Status)
	if !canTransition(from, update.Status) {
		return &handlerError{
			status:  http.StatusConflict,
			code:    "INVALID_TRANSITION",
			message: fmt.Sprintf("cannot change status from %s to %s", from, update.Status),
		}
	}
	if update.WinningVariant != nil {
		known := slices.ContainsFunc(rec.wire.Variants, func(v resource.VariantWire) bool {
			return v.Key == *update.WinningVariant
		})
		if !known {
			return &handlerError{
				status:  http.StatusUnprocessableEntity,
				code:    "VALIDATION_ERROR",
				message: "invalid input",
				cause:   map[string]string{"winning_variant": "unknown variant"},
			}
		}
	}

	now := s.now()
	wire := rec.wire
	wire.Status = string(update.Status)
	wire.UpdatedAt = now
	switch update.Status {
	case resource.StatusLive:
		if wire.StartedAt == nil {
			wire.StartedAt = &now
		}
	case resource.StatusConcluded, resource.StatusTerminated:
		wire.EndedAt = &now
		wire.WinningVariant = update.WinningVariant
	}
	rec.wire = wire
	return nil
}
