// package models defines the data model for the todo client
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are accepted for createdAt/updatedAt. The API serializes local date-times without a zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Todo is a todo item as returned by the API.
type Todo struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UnmarshalJSON accepts both zoned and zone-less timestamps.
func (t *Todo) UnmarshalJSON(data []byte) error {
	type alias Todo
	aux := struct {
		*alias
		CreatedAt string `json:"createdAt"`
		UpdatedAt string `json:"updatedAt"`
	}{alias: (*alias)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if t.CreatedAt, err = parseTimestamp(aux.CreatedAt); err != nil {
		return fmt.Errorf("createdAt: %w", err)
	}
	if t.UpdatedAt, err = parseTimestamp(aux.UpdatedAt); err != nil {
		return fmt.Errorf("updatedAt: %w", err)
	}
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Merge overwrites the locally editable and server-maintained fields of t with the confirmed copy.
//
// ID and CreatedAt are kept from t unless t has none yet.
func (t *Todo) Merge(confirmed Todo) {
	if t.ID == 0 {
		t.ID = confirmed.ID
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = confirmed.CreatedAt
	}
	if confirmed.Username != "" {
		t.Username = confirmed.Username
	}
	t.Title = confirmed.Title
	t.Description = confirmed.Description
	t.Completed = confirmed.Completed
	t.UpdatedAt = confirmed.UpdatedAt
}

// Status returns a short human-readable completion state.
func (t Todo) Status() string {
	if t.Completed {
		return "done"
	}
	return "pending"
}

// TodoDraft carries the fields a user may edit before the server confirms them.
type TodoDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Validate mirrors the API's non-blank title constraint so obviously bad input never leaves the client.
func (d TodoDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// DraftFrom returns a draft pre-filled from an existing todo.
func DraftFrom(t Todo) TodoDraft {
	return TodoDraft{Title: t.Title, Description: t.Description, Completed: t.Completed}
}

// Credentials are submitted to the register and login endpoints.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the register endpoint's response body.
type Registration struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// Identity is the authenticated subject derived from a bearer token.
type Identity struct {
	SubjectID string
	Claims    map[string]any
}

// IsZero reports whether no subject is present.
func (i Identity) IsZero() bool {
	return i.SubjectID == ""
}
