package observe

import "strings"

// Operation describes one unit of client work for telemetry purposes: an
// HTTP call made by the transport, or a fetch run by the query cache.
type Operation struct {
	Name    string // Logical name, e.g. "experiments.list" (required)
	Service string // Backend service ("project", "identity") or "query"
	Method  string // HTTP method, empty for cache fetches
	Route   string // Route template, e.g. "/experiments/{id}"
}

// SpanName returns the deterministic span name for this operation.
// Format: "<METHOD> <route>" for HTTP calls, "query.<name>" otherwise.
func (o Operation) SpanName() string {
	if o.Method != "" && o.Route != "" {
		return strings.ToUpper(o.Method) + " " + o.Route
	}
	return "query." + o.Name
}

// ID returns the qualified operation identifier.
func (o Operation) ID() string {
	if o.Service != "" {
		return o.Service + "." + o.Name
	}
	return o.Name
}

// Validate reports whether the operation carries the required fields.
func (o Operation) Validate() error {
	if o.Name == "" {
		return ErrMissingOperationName
	}
	return nil
}
