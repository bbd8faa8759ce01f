// Package session keeps the identity of the logged-in account on the client.
//
// A Store owns the current Session. It is loaded once at start from an
// ordered Chain of storage backends (durable first, session-scoped second)
// and changed only through Login and Logout. Consumers read immutable State
// snapshots.
package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/civicreport/internal/roles"
)

// ErrMalformed is returned by Decode when a stored payload cannot be read as
// a Session.
var ErrMalformed = errors.New("malformed session payload")

// Session is the identity handed out by the authentication flow. Token is
// an opaque credential and is never validated on the client.
type Session struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Role         roles.Role `json:"role"`
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
}

// Encode serializes s as the JSON object kept in storage.
func Encode(s Session) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return b, nil
}

// Decode parses a stored payload. A JSON null is reported as absent
// (nil, nil); anything that is not a JSON object yields ErrMalformed.
func Decode(b []byte) (*Session, error) {
	var s *Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return s, nil
}

// State is a read-only snapshot of the Store.
type State struct {
	Session *Session
	Loading bool
}

// IsAuthenticated reports whether a session is present.
func (s State) IsAuthenticated() bool {
	return s.Session != nil
}

// Role returns the session role, or roles.None when unauthenticated.
func (s State) Role() roles.Role {
	if s.Session == nil {
		return roles.None
	}
	return s.Session.Role
}
