package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/todox/internal/models"
)

// ErrDecode is returned for any token that cannot be turned into an [models.Identity].
var ErrDecode = errors.New("cannot decode token")

// subjectClaims are consulted in order; the first non-empty string wins.
var subjectClaims = []string{"sub", "username"}

// Decoder turns an opaque bearer token into an identity.
type Decoder func(token string) (models.Identity, error)

// Decode reads the subject out of a three-segment bearer token.
//
// Only the payload segment is inspected. The signature is not verified and expiry is not enforced;
// the server remains the authority on whether the token is honored.
func Decode(token string) (models.Identity, error) {
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return models.Identity{}, fmt.Errorf("%w: expected 3 segments, got %d", ErrDecode, len(segments))
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(segments[1], "="))
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: payload is not base64url: %v", ErrDecode, err)
	}

	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return models.Identity{}, fmt.Errorf("%w: payload is not a JSON object: %v", ErrDecode, err)
	}

	for _, name := range subjectClaims {
		if subject, ok := claims[name].(string); ok && subject != "" {
			return models.Identity{SubjectID: subject, Claims: claims}, nil
		}
	}

	return models.Identity{}, fmt.Errorf("%w: no subject claim", ErrDecode)
}
