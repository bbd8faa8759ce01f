package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/civicreport/internal/civic"
	"github.com/dmitrijs2005/civicreport/internal/common"
	"github.com/dmitrijs2005/civicreport/internal/logging"
	"github.com/dmitrijs2005/civicreport/internal/roles"
	"github.com/dmitrijs2005/civicreport/internal/server/auth"
	"github.com/dmitrijs2005/civicreport/internal/server/metrics"
	"github.com/dmitrijs2005/civicreport/internal/server/models"
	"github.com/dmitrijs2005/civicreport/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// List scopes.
const (
	ScopeMine     = "mine"
	ScopeAssigned = "assigned"
	ScopeAll      = "all"
	ScopeRecent   = "recent"
	ScopeNearby   = "nearby"
)

const (
	minDescriptionLen = 11
	maxTitleLen       = 120
	defaultListLimit  = 20
	maxListLimit      = 200
	defaultRadiusKm   = 2.0
	maxRadiusKm       = 50.0
)

var photoContentTypes = map[string]bool{"image/jpeg": true, "image/png": true}

// NewIssue is a citizen's report before it is stored.
type NewIssue struct {
	Title            string
	Description      string
	Category         string
	Severity         string
	Lat              float64
	Lng              float64
	PhotoContentType string
}

// ListQuery selects issues for a caller. Empty filters match everything.
type ListQuery struct {
	Scope    string
	Status   string
	Category string
	Severity string
	Lat      float64
	Lng      float64
	RadiusKm float64
	Limit    int
}

// Analytics is the admin overview.
type Analytics struct {
	models.IssueCounts
	ResolutionRate float64
}

// TicketID formats the public id of an issue raised at t.
func TicketID(t time.Time, u uuid.UUID) string {
	return fmt.Sprintf("CIT-%d-%s", t.Year(), strings.ToUpper(strings.ReplaceAll(u.String(), "-", "")[:8]))
}

// IssueService implements the issue workflow: raising reports, listing
// them per role, triage by staff and admins, and community upvotes.
type IssueService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	photos      PhotoStore
	logger      logging.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	newUUID     func() uuid.UUID
}

func NewIssueService(db *sql.DB, m repomanager.RepositoryManager, photos PhotoStore, logger logging.Logger, mt *metrics.Metrics) *IssueService {
	return &IssueService{
		db:          db,
		repomanager: m,
		photos:      photos,
		logger:      logger.With("module", "issues"),
		metrics:     mt,
		now:         time.Now,
		newUUID:     uuid.New,
	}
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrValidation, fmt.Sprintf(format, args...))
}

// Create stores a report by p. When a photo content type is announced the
// returned URL accepts the upload.
func (s *IssueService) Create(ctx context.Context, p auth.Principal, in NewIssue) (*models.Issue, string, error) {
	desc := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(desc) < minDescriptionLen {
		return nil, "", validationErr("description must be longer than %d characters", minDescriptionLen-1)
	}
	if !civic.ValidCategory(in.Category) {
		return nil, "", validationErr("unknown category %q", in.Category)
	}
	severity := civic.SeverityMedium
	if in.Severity != "" {
		sv, ok := civic.ParseSeverity(in.Severity)
		if !ok {
			return nil, "", validationErr("unknown severity %q", in.Severity)
		}
		severity = sv
	}
	if !civic.ValidCoordinates(in.Lat, in.Lng) {
		return nil, "", validationErr("coordinates out of range")
	}
	if in.PhotoContentType != "" && !photoContentTypes[in.PhotoContentType] {
		return nil, "", validationErr("photo must be JPEG or PNG")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = in.Category
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		title = string([]rune(title)[:maxTitleLen])
	}

	now := s.now().UTC()
	issue := &models.Issue{
		ID:          TicketID(now, s.newUUID()),
		Title:       title,
		Description: desc,
		Category:    in.Category,
		Department:  civic.DepartmentFor(in.Category),
		Status:      civic.StatusPending,
		Severity:    severity,
		ReporterID:  p.UserID,
		Lat:         in.Lat,
		Lng:         in.Lng,
		Digipin:     civic.Digipin(in.Lat, in.Lng),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var uploadURL string
	if in.PhotoContentType != "" {
		issue.PhotoKey = PhotoKey(issue.ID, now)
		url, err := s.photos.PresignPut(ctx, issue.PhotoKey, in.PhotoContentType)
		if err != nil {
			return nil, "", fmt.Errorf("error presigning photo upload: %w", err)
		}
		uploadURL = url
	}

	if err := s.repomanager.Issues(s.db).Create(ctx, issue); err != nil {
		return nil, "", fmt.Errorf("error creating issue: %w", err)
	}

	stored, err := s.repomanager.Issues(s.db).Get(ctx, issue.ID)
	if err != nil {
		return nil, "", fmt.Errorf("error reading issue: %w", err)
	}

	s.metrics.IssueCreated(issue.Category)
	s.logger.Info(ctx, "issue created", "ticket", issue.ID, "category", issue.Category, "department", issue.Department)
	return stored, uploadURL, nil
}

// Get returns one issue. Reports are public to every signed-in role.
func (s *IssueService) Get(ctx context.Context, id string) (*models.Issue, error) {
	return s.repomanager.Issues(s.db).Get(ctx, strings.ToUpper(strings.TrimSpace(id)))
}

// List returns the issues visible to p under q.Scope.
func (s *IssueService) List(ctx context.Context, p auth.Principal, q ListQuery) ([]models.Issue, error) {
	f := models.IssueFilter{Category: q.Category}

	if q.Status != "" {
		st, ok := civic.ParseStatus(q.Status)
		if !ok {
			return nil, validationErr("unknown status %q", q.Status)
		}
		f.Status = st
	}
	if q.Severity != "" {
		sv, ok := civic.ParseSeverity(q.Severity)
		if !ok {
			return nil, validationErr("unknown severity %q", q.Severity)
		}
		f.Severity = sv
	}
	if q.Category != "" && !civic.ValidCategory(q.Category) {
		return nil, validationErr("unknown category %q", q.Category)
	}
	if q.Limit < 0 || q.Limit > maxListLimit {
		return nil, validationErr("limit must be between 0 and %d", maxListLimit)
	}
	f.Limit = q.Limit

	repo := s.repomanager.Issues(s.db)

	switch q.Scope {
	case ScopeMine:
		f.ReporterID = p.UserID
	case ScopeAssigned:
		if !p.Role.In(roles.Staff, roles.Admin) {
			return nil, common.ErrorForbidden
		}
		f.AssigneeID = p.UserID
	case ScopeAll:
		if !p.Role.In(roles.Staff, roles.Admin) {
			return nil, common.ErrorForbidden
		}
	case ScopeRecent, "":
		if f.Limit == 0 {
			f.Limit = defaultListLimit
		}
	case ScopeNearby:
		return s.nearby(ctx, f, q)
	default:
		return nil, validationErr("unknown scope %q", q.Scope)
	}

	return repo.List(ctx, f, nil)
}

func (s *IssueService) nearby(ctx context.Context, f models.IssueFilter, q ListQuery) ([]models.Issue, error) {
	if !civic.ValidCoordinates(q.Lat, q.Lng) {
		return nil, validationErr("coordinates out of range")
	}
	radius := q.RadiusKm
	if radius == 0 {
		radius = defaultRadiusKm
	}
	if radius < 0 || radius > maxRadiusKm {
		return nil, validationErr("radius must be between 0 and %g km", maxRadiusKm)
	}

	limit := f.Limit
	f.Limit = 0
	found, err := s.repomanager.Issues(s.db).List(ctx, f, boundingBox(q.Lat, q.Lng, radius))
	if err != nil {
		return nil, err
	}

	type hit struct {
		issue models.Issue
		km    float64
	}
	hits := make([]hit, 0, len(found))
	for _, is := range found {
		if d := civic.DistanceKm(q.Lat, q.Lng, is.Lat, is.Lng); d <= radius {
			hits = append(hits, hit{is, d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].km < hits[j].km })

	out := make([]models.Issue, 0, len(hits))
	for _, h := range hits {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, h.issue)
	}
	return out, nil
}

// boundingBox returns a box enclosing the circle of radiusKm around a point.
// It over-covers; callers refine with DistanceKm.
func boundingBox(lat, lng, radiusKm float64) *models.Box {
	const kmPerDegree = 111.0
	dLat := radiusKm / kmPerDegree
	cos := math.Cos(lat * math.Pi / 180)
	dLng := 180.0
	if cos > 0.01 {
		dLng = math.Min(180, radiusKm/(kmPerDegree*cos))
	}
	return &models.Box{
		MinLat: math.Max(-90, lat-dLat),
		MaxLat: math.Min(90, lat+dLat),
		MinLng: math.Max(-180, lng-dLng),
		MaxLng: math.Min(180, lng+dLng),
	}
}

// UpdateStatus moves an issue forward in the workflow. Staff may only
// update issues assigned to them.
func (s *IssueService) UpdateStatus(ctx context.Context, p auth.Principal, id, status string) (*models.Issue, error) {
	to, ok := civic.ParseStatus(status)
	if !ok {
		return nil, validationErr("unknown status %q", status)
	}

	repo := s.repomanager.Issues(s.db)
	issue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role != roles.Admin && issue.AssigneeID != p.UserID {
		return nil, common.ErrorForbidden
	}
	if !civic.CanTransition(issue.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", common.ErrInvalidTransition, issue.Status, to)
	}

	changed, err := repo.SetStatus(ctx, issue.ID, issue.Status, to, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("error updating status: %w", err)
	}
	if !changed {
		return nil, fmt.Errorf("%w: %s changed concurrently", common.ErrInvalidTransition, issue.ID)
	}

	s.metrics.StatusChanged(string(to))
	s.logger.Info(ctx, "issue status changed", "ticket", issue.ID, "from", string(issue.Status), "to", string(to), "by", p.UserID)
	return repo.Get(ctx, issue.ID)
}

// Assign routes an issue to a staff member. Issues not yet past
// "assigned" move to it.
func (s *IssueService) Assign(ctx context.Context, id, staffID string) (*models.Issue, error) {
	repo := s.repomanager.Issues(s.db)
	issue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue.Status == civic.StatusResolved {
		return nil, fmt.Errorf("%w: %s is resolved", common.ErrInvalidTransition, issue.ID)
	}

	staff, err := s.repomanager.Users(s.db).GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, validationErr("unknown staff member %q", staffID)
		}
		return nil, err
	}
	if staff.Role != roles.Staff {
		return nil, validationErr("%s is not a staff member", staff.UserName)
	}

	status := issue.Status
	if civic.CanTransition(status, civic.StatusAssigned) {
		status = civic.StatusAssigned
	}
	if err := repo.Assign(ctx, issue.ID, staff.ID, status, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("error assigning issue: %w", err)
	}
	if status != issue.Status {
		s.metrics.StatusChanged(string(status))
	}

	s.logger.Info(ctx, "issue assigned", "ticket", issue.ID, "staff", staff.ID)
	return repo.Get(ctx, issue.ID)
}

// Upvote records p's vote. A repeated vote leaves the count unchanged.
func (s *IssueService) Upvote(ctx context.Context, p auth.Principal, id string) (*models.Issue, error) {
	repo := s.repomanager.Issues(s.db)
	issue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := repo.Upvote(ctx, issue.ID, p.UserID); err != nil {
		return nil, fmt.Errorf("error recording upvote: %w", err)
	}
	return repo.Get(ctx, issue.ID)
}

// PhotoURL returns a temporary link to the issue photo.
func (s *IssueService) PhotoURL(ctx context.Context, id string) (string, error) {
	issue, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if issue.PhotoKey == "" {
		return "", fmt.Errorf("%w: %s has no photo", common.ErrorNotFound, issue.ID)
	}
	return s.photos.PresignGet(ctx, issue.PhotoKey)
}

// Analytics aggregates all issues.
func (s *IssueService) Analytics(ctx context.Context) (*Analytics, error) {
	c, err := s.repomanager.Issues(s.db).Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting issues: %w", err)
	}
	a := &Analytics{IssueCounts: *c}
	if c.Total > 0 {
		a.ResolutionRate = float64(c.ByStatus[string(civic.StatusResolved)]) / float64(c.Total)
	}
	return a, nil
}
