package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// Kind is the category of a failed call.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindInvalidCredentials
	KindSessionExpired
	KindValidationFailed
	KindForbidden
	KindNotFound
	KindConflict
	KindServerError
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "NetworkError"
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindSessionExpired:
		return "SessionExpired"
	case KindValidationFailed:
		return "ValidationFailed"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindServerError:
		return "ServerError"
	default:
		return "Unknown"
	}
}

// Action is what the caller must do with an [ErrorEvent].
type Action int

const (
	NotifyOnly Action = iota
	NotifyAndLogout
	ApplyFieldErrors
)

func (a Action) String() string {
	switch a {
	case NotifyAndLogout:
		return "NotifyAndLogout"
	case ApplyFieldErrors:
		return "ApplyFieldErrors"
	default:
		return "NotifyOnly"
	}
}

const (
	MsgNetwork            = "Could not reach server. Check your connection and try again."
	MsgInvalidCredentials = "Invalid username or password."
	MsgSessionExpired     = "Session expired. Please log in again."
	MsgFieldErrors        = "Please correct the highlighted fields."
	MsgForbidden          = "Forbidden: you don't have permission."
	MsgUserNotFound       = "User resource not found."
	MsgResourceNotFound   = "The requested resource was not found."
	MsgConflict           = "A conflicting entry already exists. Please choose a different name."
	MsgServerError        = "Server error. Please try again later."
)

const (
	loginPath    = "/auth/login"
	identityPath = "/auth/"
	defaultField = "title"
)

var sizeConstraint = regexp.MustCompile(`(?i)(?:([a-z_][a-z0-9_.]*)\s*:\s*)?size must be between (\d+) and (\d+)`)

// Response is the part of a completed call the classifier looks at.
type Response struct {
	Status int
	Body   []byte
}

// ErrorEvent is the classified outcome of one failed call. It is built fresh per failure and never mutated.
type ErrorEvent struct {
	Kind        Kind
	Action      Action
	Message     string
	FieldErrors map[string]string
	Status      int    // 0 when no response was received
	Path        string // request path the event was classified against
	Cause       error  // transport error, when there was no response
}

func (e ErrorEvent) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

func (e ErrorEvent) Unwrap() error {
	return e.Cause
}

// AsEvent extracts an [ErrorEvent] from err's chain.
func AsEvent(err error) (ErrorEvent, bool) {
	var ev ErrorEvent
	if errors.As(err, &ev) {
		return ev, true
	}
	return ErrorEvent{}, false
}

// IsKind reports whether err carries an [ErrorEvent] of the given kind.
func IsKind(err error, kind Kind) bool {
	ev, ok := AsEvent(err)
	return ok && ev.Kind == kind
}

// validationBody is the structured 400 shape: {"error": "Validation failed", "details": {"field": "msg"}}.
type validationBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

// messageBody is the unstructured error shape: {"message": "...", "error": "..."}.
type messageBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Classify maps a failed call to an [ErrorEvent]. resp is nil when no response was received.
func Classify(resp *Response, requestPath, fallback string) ErrorEvent {
	path := normalizePath(requestPath)
	ev := ErrorEvent{Path: path, Action: NotifyOnly}

	if resp == nil {
		ev.Kind, ev.Message = KindNetwork, MsgNetwork
		return ev
	}
	ev.Status = resp.Status

	switch {
	case resp.Status == http.StatusUnauthorized && isLoginPath(path):
		ev.Kind, ev.Message = KindInvalidCredentials, MsgInvalidCredentials
		return ev
	case resp.Status == http.StatusUnauthorized:
		ev.Kind, ev.Message, ev.Action = KindSessionExpired, MsgSessionExpired, NotifyAndLogout
		return ev
	}

	fields, msg := decodeBody(resp.Body)

	if resp.Status == http.StatusBadRequest {
		if len(fields) > 0 {
			ev.Kind, ev.Message, ev.Action = KindValidationFailed, MsgFieldErrors, ApplyFieldErrors
			ev.FieldErrors = fields
			return ev
		}
		if rewritten, ok := rewriteSizeConstraint(msg); ok {
			ev.Kind, ev.Message = KindValidationFailed, rewritten
			return ev
		}
	}

	switch {
	case resp.Status == http.StatusForbidden:
		ev.Kind, ev.Message = KindForbidden, MsgForbidden
	case resp.Status == http.StatusNotFound && isIdentityPath(path):
		ev.Kind, ev.Message = KindNotFound, MsgUserNotFound
	case resp.Status == http.StatusNotFound:
		ev.Kind, ev.Message = KindNotFound, MsgResourceNotFound
	case resp.Status == http.StatusConflict:
		ev.Kind, ev.Message = KindConflict, MsgConflict
	case resp.Status >= http.StatusInternalServerError:
		ev.Kind, ev.Message = KindServerError, MsgServerError
	default:
		ev.Kind = KindUnknown
		ev.Message = msg
		if ev.Message == "" {
			ev.Message = fallback
		}
	}

	return ev
}

// decodeBody tries the structured validation shape first, then the message shape.
func decodeBody(body []byte) (map[string]string, string) {
	if len(body) == 0 {
		return nil, ""
	}

	var structured validationBody
	if err := json.Unmarshal(body, &structured); err == nil && len(structured.Details) > 0 {
		return structured.Details, structured.Error
	}

	var plain messageBody
	if err := json.Unmarshal(body, &plain); err != nil {
		return nil, ""
	}
	if plain.Message != "" {
		return nil, plain.Message
	}
	return nil, plain.Error
}

// rewriteSizeConstraint names the offending field in a bean-validation size message.
func rewriteSizeConstraint(msg string) (string, bool) {
	m := sizeConstraint.FindStringSubmatch(msg)
	if m == nil {
		return "", false
	}

	field := m[1]
	if field == "" {
		field = defaultField
	}
	if i := strings.LastIndex(field, "."); i >= 0 {
		field = field[i+1:]
	}

	return fmt.Sprintf("%s size must be between %s and %s", strings.ToUpper(field[:1])+field[1:], m[2], m[3]), true
}

func normalizePath(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return u.Path
	}
	return raw
}

func isLoginPath(path string) bool {
	return strings.HasSuffix(strings.TrimRight(path, "/"), loginPath)
}

func isIdentityPath(path string) bool {
	return strings.Contains(path, identityPath)
}
