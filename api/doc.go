// Package api binds the console's REST endpoints to the transport and
// query layers.
//
// Client exposes one typed call per endpoint. Each call validates its
// input, builds a transport.Request for the right service, and converts
// the response with the resource package. Invalid input is rejected with
// an apierr validation error before anything is sent.
//
// The Observe* and Mutate* methods wrap the same calls for a query.Client:
// reads are cached under the keys produced by the key factories
// (ExperimentKeys, AudienceKeys, ...), and every write invalidates the
// prefixes listed for it in Invalidations.
package api
