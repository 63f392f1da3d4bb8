package transport

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jonwraymond/abclient/config"
	"github.com/jonwraymond/abclient/observe"
)

// Service selects the backend a request is sent to.
type Service int

const (
	// ServiceProject is the project-scoped experiments API, authenticated
	// with the selected project's API key.
	ServiceProject Service = iota
	// ServiceIdentity is the tenant-management API, authenticated with a
	// bearer token. It never receives the API key.
	ServiceIdentity
)

func (s Service) String() string {
	if s == ServiceIdentity {
		return "identity"
	}
	return "project"
}

// ConfigKey returns the configuration key holding the service's base URL.
func (s Service) ConfigKey() string {
	if s == ServiceIdentity {
		return config.KeyIdentityBaseURL
	}
	return config.KeyAPIBaseURL
}

// Request describes one API call.
type Request struct {
	Method  string
	Path    string // relative to the service base URL, e.g. "/experiments/42"
	Query   url.Values
	Body    any // JSON-encoded when non-nil
	Header  http.Header
	Service Service

	// Name and Route label the call in logs, spans and metrics, e.g.
	// "experiments.get" and "/experiments/{id}". Both default to values
	// derived from Method and Path.
	Name  string
	Route string
}

func (r Request) operation() observe.Operation {
	route := r.Route
	if route == "" {
		route = r.Path
	}
	name := r.Name
	if name == "" {
		name = strings.ToLower(r.Method) + " " + route
	}
	return observe.Operation{
		Name:    name,
		Service: r.Service.String(),
		Method:  r.Method,
		Route:   route,
	}
}

// Response is a successful (2xx) HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}
