// Package gate decides whether a page may be shown for the current session.
//
// Private answers "is anybody logged in", Role answers "is this role
// allowed here". Neither returns errors; every input maps to exactly one
// Decision.
package gate

import (
	"github.com/dmitrijs2005/civicreport/internal/client/session"
	"github.com/dmitrijs2005/civicreport/internal/roles"
)

const (
	// LoginPath is where unauthenticated visitors of private pages go.
	LoginPath = "/auth"
	// LandingPath is where authenticated visitors with the wrong role go.
	LandingPath = "/"
)

type Outcome uint8

const (
	// Placeholder means the session is still loading: show a neutral
	// placeholder and do not navigate.
	Placeholder Outcome = iota + 1
	Render
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Placeholder:
		return "placeholder"
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the result of a gate. To is set only for Redirect.
type Decision struct {
	Outcome Outcome
	To      string
}

// Private gates a page on authentication.
func Private(st session.State) Decision {
	switch {
	case st.Loading:
		return Decision{Outcome: Placeholder}
	case st.IsAuthenticated():
		return Decision{Outcome: Render}
	default:
		return Decision{Outcome: Redirect, To: LoginPath}
	}
}

// Role gates a page on the session role. A role outside allowed, including
// roles.None, is sent to the landing page rather than the login page.
func Role(r roles.Role, allowed []roles.Role) Decision {
	if r.In(allowed...) {
		return Decision{Outcome: Render}
	}
	return Decision{Outcome: Redirect, To: LandingPath}
}
