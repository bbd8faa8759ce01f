// Package civic holds the issue vocabulary shared by client and server:
// categories, severities, the status workflow and location helpers.
package civic

import (
	"fmt"
	"math"
	"strings"
)

// Categories offered when raising a problem.
var Categories = []string{
	"Road & Infrastructure",
	"Street Lighting",
	"Waste Management",
	"Water Supply",
	"Electricity",
	"Public Safety",
	"Noise Pollution",
	"Other",
}

// Departments that staff members belong to. Issue routing maps categories
// onto them.
var Departments = []string{"Road", "Electricity", "Water", "Sanitation", "Public Safety", "General"}

var categoryDepartment = map[string]string{
	"Road & Infrastructure": "Road",
	"Street Lighting":       "Electricity",
	"Electricity":           "Electricity",
	"Water Supply":          "Water",
	"Waste Management":      "Sanitation",
	"Public Safety":         "Public Safety",
	"Noise Pollution":       "Public Safety",
	"Other":                 "General",
}

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	_, ok := categoryDepartment[c]
	return ok
}

// DepartmentFor returns the department responsible for category.
func DepartmentFor(category string) string {
	if d, ok := categoryDepartment[category]; ok {
		return d
	}
	return "General"
}

// ValidDepartment reports whether d is one of Departments.
func ValidDepartment(d string) bool {
	for _, v := range Departments {
		if v == d {
			return true
		}
	}
	return false
}

// Severity is the criticality a citizen assigns to a report.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Severities lists the known severities, lowest first.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh}

// ParseSeverity is case-insensitive.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityLow:
		return SeverityLow, true
	case SeverityMedium:
		return SeverityMedium, true
	case SeverityHigh:
		return SeverityHigh, true
	default:
		return "", false
	}
}

// Status is the position of an issue in the triage workflow.
type Status string

const (
	StatusPending      Status = "pending"
	StatusAcknowledged Status = "acknowledged"
	StatusAssigned     Status = "assigned"
	StatusInProgress   Status = "in-progress"
	StatusResolved     Status = "resolved"
)

// Statuses lists the workflow in order.
var Statuses = []Status{StatusPending, StatusAcknowledged, StatusAssigned, StatusInProgress, StatusResolved}

func (s Status) rank() int {
	for i, v := range Statuses {
		if v == s {
			return i
		}
	}
	return -1
}

// ParseStatus accepts the wire names, also "in progress" with a space.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-"))
	if st.rank() < 0 {
		return "", false
	}
	return st, true
}

// CanTransition reports whether an issue may move from one status to
// another. Issues only move forward and a resolved issue is final.
func CanTransition(from, to Status) bool {
	f, t := from.rank(), to.rank()
	return f >= 0 && t > f
}

// Digipin returns the short location code shown to citizens, derived from
// coordinates truncated to three decimals.
func Digipin(lat, lng float64) string {
	return fmt.Sprintf("DIG-%d-%d", int64(math.Floor(lat*1000)), int64(math.Floor(lng*1000)))
}

// ValidCoordinates reports whether lat/lng are on the globe.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

const earthRadiusKm = 6371.0

// DistanceKm is the great-circle distance between two points.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
