package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"

	"github.com/jonwraymond/abclient/apierr"
	"github.com/jonwraymond/abclient/health"
	"github.com/jonwraymond/abclient/observe"
)

// Server is the mock backend. It implements http.Handler.
type Server struct {
	router *mux.Router
	health *health.Aggregator
	clock  clockwork.Clock
	logger observe.Logger
	token  string

	mu          sync.Mutex
	seq         uint64
	experiments map[string]*experimentRecord
	audiences   map[string]*audienceRecord
	tenants     map[string]*tenantRecord
	projects    map[string]*projectRecord
	keys        map[string]*keyRecord
	faults      []*fault
	requests    map[string]int
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock used for timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// WithLogger sets the request logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithToken requires "Authorization: Bearer <token>" on tenant-management
// routes.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// New creates an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		clock:       clockwork.NewRealClock(),
		logger:      observe.NoopLogger(),
		experiments: make(map[string]*experimentRecord),
		audiences:   make(map[string]*audienceRecord),
		tenants:     make(map[string]*tenantRecord),
		projects:    make(map[string]*projectRecord),
		keys:        make(map[string]*keyRecord),
		requests:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.health = health.NewAggregator(health.AggregatorConfig{Parallel: true, Clock: s.clock})
	s.health.Register(health.NewCheckerFunc("store", s.checkStore))
	s.routes()
	return s
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	r.Use(s.logRequests, s.injectFaults)

	health.RegisterHandlers(r, s.health)

	project := r.NewRoute().Subrouter()
	project.Use(s.requireAPIKey)
	project.HandleFunc("/experiments", s.handleListExperiments).Methods(http.MethodGet)
	project.HandleFunc("/experiments", s.handleCreateExperiment).Methods(http.MethodPost)
	project.HandleFunc("/experiments/{id}", s.handleGetExperiment).Methods(http.MethodGet)
	project.HandleFunc("/experiments/{id}", s.handleUpdateExperiment).Methods(http.MethodPatch)
	project.HandleFunc("/audiences", s.handleListAudiences).Methods(http.MethodGet)
	project.HandleFunc("/audiences", s.handleCreateAudience).Methods(http.MethodPost)
	project.HandleFunc("/audiences/{id}", s.handleGetAudience).Methods(http.MethodGet)

	identity := r.PathPrefix("/tenants").Subrouter()
	identity.Use(s.requireToken)
	identity.HandleFunc("", s.handleListTenants).Methods(http.MethodGet)
	identity.HandleFunc("", s.handleCreateTenant).Methods(http.MethodPost)
	identity.HandleFunc("/{tid}/projects", s.handleListProjects).Methods(http.MethodGet)
	identity.HandleFunc("/{tid}/projects", s.handleCreateProject).Methods(http.MethodPost)
	identity.HandleFunc("/{tid}/projects/{pid}/api-keys", s.handleListKeys).Methods(http.MethodGet)
	identity.HandleFunc("/{tid}/projects/{pid}/api-keys", s.handleCreateKey).Methods(http.MethodPost)
	identity.HandleFunc("/{tid}/projects/{pid}/api-keys/{kid}/rotate", s.handleRotateKey).Methods(http.MethodPost)

	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Requests returns how many requests matched the route template, e.g.
// "GET /experiments/{id}".
func (s *Server) Requests(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[route]
}

func (s *Server) checkStore(context.Context) health.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return health.Healthy("in-memory store").WithDetails(map[string]any{
		"experiments": len(s.experiments),
		"audiences":   len(s.audiences),
		"tenants":     len(s.tenants),
	})
}

func (s *Server) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func (s *Server) now() int64 { return s.clock.Now().Unix() }

func newID() string { return uuid.NewString() }

func newSecret() string {
	return "sk_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

type ctxKey struct{}

// projectOf returns the project authenticated by the request's API key.
func projectOf(r *http.Request) *keyRecord {
	k, _ := r.Context().Value(ctxKey{}).(*keyRecord)
	return k
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get("X-API-Key")
		if secret == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing API key", nil)
			return
		}
		s.mu.Lock()
		var match *keyRecord
		for _, k := range s.keys {
			if k.secret == secret {
				match = k
				break
			}
		}
		s.mu.Unlock()
		if match == nil {
			writeError(w, http.StatusUnauthorized, "INVALID_API_KEY", "invalid API key", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, match)))
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "" {
			writeError(w, http.StatusBadRequest, "UNEXPECTED_API_KEY", "tenant management does not accept API keys", nil)
			return
		}
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routeOf(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return r.Method + " " + tpl
		}
	}
	return r.Method + " " + r.URL.Path
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeOf(r)
		s.mu.Lock()
		s.requests[route]++
		s.mu.Unlock()

		start := s.clock.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug(r.Context(), "mock request",
			observe.F("http.route", route),
			observe.F("http.status_code", rec.status),
			observe.F("duration_ms", s.clock.Since(start).Milliseconds()),
		)
	})
}

type envelope struct {
	Data any `json:"data"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Cause   any    `json:"cause,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string, cause any) {
	writeJSON(w, status, errorBody{Error: errorDetail{Message: message, Code: code, Cause: cause}})
}

// writeValidation reports a resource validation failure as 422 with the
// field messages as the cause.
func writeValidation(w http.ResponseWriter, err error) {
	var e *apierr.Error
	if errors.As(err, &e) && len(e.Fields) > 0 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid input", e.Fields)
		return
	}
	writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("invalid JSON body: %v", err), nil)
		return false
	}
	return true
}
