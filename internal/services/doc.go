// Package services implements the HTTP side of the client: request augmentation, the raw [APIService]
// transport and the typed [TodoAPI].
//
// # Augmentation
//
// [AuthTransport] wraps another [net/http.RoundTripper] and runs every request through an [Augmentor], which
// reads the bearer token from a [TokenSource] at dispatch time. A token that changes between two requests is
// picked up without rebuilding the client. Augmentation never retries and never inspects responses.
//
// # Transport
//
// [APIService.Send] adds an X-Request-ID header to every call and paces calls with a token bucket when a rate
// limit is configured. Failures are returned as [apierr.ErrorEvent] values:
//   - no response (dial failure, timeout, cancelled context): kind NetworkError, cause attached
//   - non-2xx response: classified from status, request path and body; the raw response is returned too
//
// # Endpoints
//
// [TodoAPI] maps the backend endpoints:
//   - POST /auth/register, POST /auth/login, GET /auth/validate
//   - GET, POST /api/todos
//   - PUT, PATCH, DELETE /api/todos/{id}
package services
