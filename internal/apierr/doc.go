// Package apierr classifies failed API calls and carries out the resulting action.
//
// # Classification
//
// [Classify] is the only place that maps a completed call's status, body and request path to an [ErrorEvent].
// Rules are evaluated in precedence order and the first match wins:
//
//  1. no response at all : [KindNetwork], [NotifyOnly]
//  2. 401 on the login endpoint : [KindInvalidCredentials], [NotifyOnly]
//  3. 401 elsewhere : [KindSessionExpired], [NotifyAndLogout]
//  4. 400 with per-field details : [KindValidationFailed], [ApplyFieldErrors]
//  5. 400 with a size-constraint message : [KindValidationFailed], [NotifyOnly]
//  6. 403 : [KindForbidden]
//  7. 404 : [KindNotFound], message depends on identity vs resource path
//  8. 409 : [KindConflict]
//  9. 5xx : [KindServerError]
//  10. anything else : [KindUnknown] with the server message or the caller's fallback
//
// Bodies are decoded as a tagged variant: the structured validation shape is tried first and the
// unstructured {message, error} shape only when that fails.
//
// # Dispatch
//
// [Dispatcher] executes an event's action. Each dispatch produces exactly one notification or one set
// of field errors, never both. [NotifyAndLogout] additionally degrades the session through [Expirer].
package apierr
