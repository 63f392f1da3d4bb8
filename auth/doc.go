// Package auth holds the client's persisted session: the API key of the
// selected project and the bearer token used against the tenant-management
// service.
//
// A Store is read on every outbound request and never cached by callers.
// Writers are the login/logout and project-selection flows, plus the
// transport layer, which clears the session when the server answers 401.
// Every write bumps the session Version; ClearIf only clears the version a
// request actually used, so concurrent 401 responses clear the session at
// most once.
package auth
