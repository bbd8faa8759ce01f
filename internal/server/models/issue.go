package models

import (
	"time"

	"github.com/dmitrijs2005/civicreport/internal/civic"
)

type Issue struct {
	ID           string
	Title        string
	Description  string
	Category     string
	Department   string
	Status       civic.Status
	Severity     civic.Severity
	ReporterID   string
	ReporterName string
	AssigneeID   string
	AssigneeName string
	Lat          float64
	Lng          float64
	Digipin      string
	PhotoKey     string
	Upvotes      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ResolvedAt   *time.Time
}

// IssueFilter narrows a listing. Zero fields match everything.
type IssueFilter struct {
	ReporterID string
	AssigneeID string
	Status     civic.Status
	Category   string
	Severity   civic.Severity
	Limit      int
}

// IssueCounts is the aggregate behind the analytics view.
type IssueCounts struct {
	Total      int
	ByStatus   map[string]int
	ByCategory map[string]int
	BySeverity map[string]int
}

// Box is a latitude/longitude bounding box.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}
