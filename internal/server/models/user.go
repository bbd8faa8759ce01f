package models

import (
	"time"

	"github.com/dmitrijs2005/civicreport/internal/roles"
)

type User struct {
	ID         string
	UserName   string
	Name       string
	Role       roles.Role
	Department string
	Salt       []byte
	Verifier   []byte
	CreatedAt  time.Time
}

// StaffMember is a staff account with the number of its unresolved
// assignments.
type StaffMember struct {
	User
	OpenTickets int
}
