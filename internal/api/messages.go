package api

import (
	"time"

	"github.com/dmitrijs2005/civicreport/internal/roles"
)

// Empty is used by methods without parameters or results.
type Empty struct{}

// Profile is the identity of the logged-in account.
type Profile struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Name       string     `json:"name"`
	Role       roles.Role `json:"role"`
	Department string     `json:"department,omitempty"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

type RegisterResponse struct {
	ID string `json:"id"`
}

type GetSaltRequest struct {
	Username string `json:"username"`
}

type GetSaltResponse struct {
	Salt []byte `json:"salt"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Verifier []byte `json:"verifier"`
}

type LoginResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	Profile      Profile `json:"profile"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type PingResponse struct {
	Status string `json:"status"`
}

// Issue is a citizen report as seen over the wire.
type Issue struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Department   string    `json:"department"`
	Status       string    `json:"status"`
	Severity     string    `json:"severity"`
	ReporterID   string    `json:"reporter_id"`
	ReporterName string    `json:"reporter_name"`
	AssigneeID   string    `json:"assignee_id,omitempty"`
	AssigneeName string    `json:"assignee_name,omitempty"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	Digipin      string    `json:"digipin"`
	HasPhoto     bool      `json:"has_photo"`
	Upvotes      int       `json:"upvotes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateIssueRequest struct {
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	Severity         string  `json:"severity"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	PhotoContentType string  `json:"photo_content_type,omitempty"`
}

// CreateIssueResponse carries the stored issue and, when a photo was
// announced, a presigned URL the client must PUT the photo to.
type CreateIssueResponse struct {
	Issue     Issue  `json:"issue"`
	UploadURL string `json:"upload_url,omitempty"`
}

type IssueRequest struct {
	ID string `json:"id"`
}

type IssueResponse struct {
	Issue Issue `json:"issue"`
}

// Issue list scopes.
const (
	ScopeMine     = "mine"
	ScopeAssigned = "assigned"
	ScopeAll      = "all"
	ScopeRecent   = "recent"
	ScopeNearby   = "nearby"
)

type ListIssuesRequest struct {
	Scope    string  `json:"scope"`
	Status   string  `json:"status,omitempty"`
	Category string  `json:"category,omitempty"`
	Severity string  `json:"severity,omitempty"`
	Lat      float64 `json:"lat,omitempty"`
	Lng      float64 `json:"lng,omitempty"`
	RadiusKm float64 `json:"radius_km,omitempty"`
	Limit    int     `json:"limit,omitempty"`
}

type ListIssuesResponse struct {
	Issues []Issue `json:"issues"`
}

type UpdateStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type AssignIssueRequest struct {
	ID      string `json:"id"`
	StaffID string `json:"staff_id"`
}

type StaffMember struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Department  string `json:"department"`
	OpenTickets int    `json:"open_tickets"`
}

type ListStaffResponse struct {
	Staff []StaffMember `json:"staff"`
}

type CreateStaffRequest struct {
	Username   string `json:"username"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Salt       []byte `json:"salt"`
	Verifier   []byte `json:"verifier"`
}

type CreateStaffResponse struct {
	Staff StaffMember `json:"staff"`
}

type AnalyticsResponse struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	ByCategory     map[string]int `json:"by_category"`
	BySeverity     map[string]int `json:"by_severity"`
	ResolutionRate float64        `json:"resolution_rate"`
}

type PhotoURLResponse struct {
	URL string `json:"url"`
}
