// Package api provides an HTTP client for the Melocuore recognition backend.
//
// # Overview
//
// The backend owns every piece of business logic: fingerprinting, matching,
// persistence and the admin catalog. This package only builds requests,
// attaches credentials and decodes the JSON payloads into typed structs.
//
// # Files
//
//   - client.go: request execution, bearer attachment, throttling, logging
//   - errors.go: the error taxonomy surfaced to callers
//   - types.go: payload types mirroring the backend serializers
//   - auth.go: token obtain/refresh and account registration
//   - library.go: uploads, recognition status, analysis history, own files
//   - admin.go: admin dashboard, users, files and catalog CRUD
//
// # Credentials
//
// Authenticated calls read the access token from a TokenSource at request
// time, so a credential refreshed by one call is seen by the next. When the
// backend answers 401 and a Refresher is attached, the client refreshes once
// and replays the request once. Multipart bodies are rebuilt for the replay.
//
// # Errors
//
//   - *TransportError: no response (connection refused, timeout, cancel)
//   - *APIError: a 4xx/5xx response; Message holds the backend's "error",
//     "detail" or "message" text, or the flattened field errors
//   - "decode response: ...": a 2xx response that was not the expected JSON
//
// errors.Is(err, ErrUnauthorized) matches 401 responses. Message(err, fallback)
// turns any of these into a line suitable for display.
//
// # Logging
//
// Every request is logged through log/slog with its method, path, generated
// X-Request-ID, status and elapsed time.
package api
