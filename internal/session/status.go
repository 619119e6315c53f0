package session

import "github.com/desertthunder/todox/internal/models"

// Status is a state of the session state machine.
type Status int

const (
	Unauthenticated Status = iota
	Authenticating
	Authenticated
	Validating
	SoftExpired
)

func (s Status) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Validating:
		return "validating"
	case SoftExpired:
		return "soft-expired"
	default:
		return "unknown"
	}
}

// HasIdentity reports whether an identity must be present in this status.
func (s Status) HasIdentity() bool {
	return s == Authenticated || s == Validating
}

// Snapshot is an immutable view of the session taken right after a transition.
type Snapshot struct {
	Status     Status
	Identity   models.Identity
	HasToken   bool
	Generation uint64
}
