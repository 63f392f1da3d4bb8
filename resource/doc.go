// Package resource converts between the REST wire schema and the console's
// domain objects.
//
// Each resource has a wire type mirroring the JSON the server sends
// (snake_case, nested wrappers, Unix-second timestamps) and a domain type
// the rest of the client works with. XxxFromWire is total on the wire
// schema: optional fields the server omits stay nil rather than being
// given a default. XxxToWire builds request bodies and never writes
// read-only fields such as ids, timestamps, or a plaintext API key.
//
// Domain types also carry Validate methods that check form input before a
// request is built. They return *apierr.Error values of kind
// KindValidation with one message per offending wire field.
package resource
