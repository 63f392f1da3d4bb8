package mockapi

import (
	"net/http"
	"strings"
)

type fault struct {
	route     string
	status    int
	remaining int
}

// FailNext makes the next n requests to route fail with status before
// they reach authentication or a handler. route is a method and path
// template, e.g. "GET /experiments/{id}".
func (s *Server) FailNext(route string, status, n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, &fault{route: route, status: status, remaining: n})
}

func (s *Server) takeFault(route string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.faults {
		if f.route != route {
			continue
		}
		f.remaining--
		if f.remaining == 0 {
			s.faults = append(s.faults[:i], s.faults[i+1:]...)
		}
		return f.status, true
	}
	return 0, false
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, ok := s.takeFault(routeOf(r))
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		code := strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
		writeError(w, status, code, "injected failure", nil)
	})
}
