// Package config resolves client configuration values from an ordered chain
// of sources.
//
// The console client needs a base URL per backend service. The value is
// resolved on every request from, in priority order:
//
//   - a runtime source (values injected while the process runs, or a YAML
//     file that is re-read whenever it changes on disk)
//   - the build-time source (values linked in with -ldflags)
//   - hardcoded development fallbacks
//
// Resolution has no memory: a Chain never caches a value between calls, so
// a changed runtime file or environment is picked up by the next request.
// Values may reference environment variables as $VAR or ${VAR}; a missing
// variable is an error rather than an empty string (see ExpandEnvStrict).
package config
