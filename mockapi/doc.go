// Package mockapi is an in-memory implementation of the console's REST
// API, for tests and local development.
//
// It serves the project-scoped routes (/experiments, /audiences), which
// require an X-API-Key issued for a project, and the tenant-management
// routes (/tenants/...), which require a bearer token when one is
// configured. Bodies use the {"data": ...} and {"error": {...}} envelopes.
// Data lives in memory and is lost when the server stops.
//
//	srv := mockapi.New()
//	fixture := srv.Seed()
//	ts := httptest.NewServer(srv)
//
// FailNext injects error responses so clients can be tested against
// server failures.
package mockapi
