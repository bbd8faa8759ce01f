// Package roles defines the closed set of account roles shared by the
// CivicReport client and server.
package roles

import "strings"

// Role is an account role. The zero value None is never granted access to a
// gated area.
type Role uint8

const (
	None Role = iota
	User
	Staff
	Admin
)

// All lists every assignable role in display order.
var All = []Role{User, Staff, Admin}

// Parse maps a role name to a Role. Unknown or empty names map to None and
// ok is false.
func Parse(s string) (r Role, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return User, true
	case "staff":
		return Staff, true
	case "admin":
		return Admin, true
	default:
		return None, false
	}
}

// String returns the wire name of the role.
func (r Role) String() string {
	switch r {
	case User:
		return "user"
	case Staff:
		return "staff"
	case Admin:
		return "admin"
	default:
		return ""
	}
}

// Valid reports whether r is one of the assignable roles.
func (r Role) Valid() bool {
	switch r {
	case User, Staff, Admin:
		return true
	default:
		return false
	}
}

// In reports whether r is a member of allowed. None is never a member, even
// when listed.
func (r Role) In(allowed ...Role) bool {
	if !r.Valid() {
		return false
	}
	for _, a := range allowed {
		if a == r {
			return true
		}
	}
	return false
}

// MarshalText encodes the role by name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a role name. Unknown names decode to None without an
// error so that a stored payload with a foreign role still loads and is
// denied by role checks.
func (r *Role) UnmarshalText(b []byte) error {
	*r, _ = Parse(string(b))
	return nil
}
