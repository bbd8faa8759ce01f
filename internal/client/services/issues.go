package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/civicreport/internal/api"
	"github.com/dmitrijs2005/civicreport/internal/client/client"
	"github.com/dmitrijs2005/civicreport/internal/cryptox"
	"github.com/dmitrijs2005/civicreport/internal/logging"
	"github.com/dmitrijs2005/civicreport/internal/netx"
)

// Photo is an image attached to a new report.
type Photo struct {
	Data        []byte
	ContentType string
}

// NewIssue is what a citizen submits.
type NewIssue struct {
	Title       string
	Description string
	Category    string
	Severity    string
	Lat, Lng    float64
	Photo       *Photo
}

// IssueService covers the issue, staff and analytics calls of all three
// areas. Role checks are enforced by the server.
type IssueService interface {
	Create(ctx context.Context, in NewIssue) (*api.Issue, error)
	Get(ctx context.Context, id string) (*api.Issue, error)
	List(ctx context.Context, req api.ListIssuesRequest) ([]api.Issue, error)
	UpdateStatus(ctx context.Context, id, status string) (*api.Issue, error)
	Assign(ctx context.Context, id, staffID string) (*api.Issue, error)
	Upvote(ctx context.Context, id string) (*api.Issue, error)
	PhotoURL(ctx context.Context, id string) (string, error)

	Staff(ctx context.Context) ([]api.StaffMember, error)
	CreateStaff(ctx context.Context, username, name, department string, password []byte) (*api.StaffMember, error)
	Analytics(ctx context.Context) (*api.AnalyticsResponse, error)
	Me(ctx context.Context) (*api.Profile, error)
}

type issueService struct {
	client client.Client
	http   *http.Client
	logger logging.Logger
}

func NewIssueService(c client.Client, hc *http.Client, logger logging.Logger) IssueService {
	return &issueService{client: c, http: hc, logger: logger.With("module", "issues")}
}

// Create stores the issue and, when a photo is attached, uploads it to the
// presigned URL returned by the server.
func (s *issueService) Create(ctx context.Context, in NewIssue) (*api.Issue, error) {
	req := &api.CreateIssueRequest{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Severity:    in.Severity,
		Lat:         in.Lat,
		Lng:         in.Lng,
	}
	if in.Photo != nil {
		req.PhotoContentType = in.Photo.ContentType
	}

	resp, err := s.client.CreateIssue(ctx, req)
	if err != nil {
		return nil, err
	}

	if in.Photo != nil && resp.UploadURL != "" {
		if err := netx.UploadPresigned(ctx, s.http, resp.UploadURL, in.Photo.ContentType, in.Photo.Data); err != nil {
			s.logger.Warn(ctx, "photo upload failed", "issue", resp.Issue.ID, "error", err)
			return &resp.Issue, fmt.Errorf("issue %s created, photo upload failed: %w", resp.Issue.ID, err)
		}
	}

	s.logger.Debug(ctx, "issue created", "issue", resp.Issue.ID)
	return &resp.Issue, nil
}

func (s *issueService) Get(ctx context.Context, id string) (*api.Issue, error) {
	return s.client.GetIssue(ctx, id)
}

func (s *issueService) List(ctx context.Context, req api.ListIssuesRequest) ([]api.Issue, error) {
	return s.client.ListIssues(ctx, &req)
}

func (s *issueService) UpdateStatus(ctx context.Context, id, status string) (*api.Issue, error) {
	return s.client.UpdateStatus(ctx, id, status)
}

func (s *issueService) Assign(ctx context.Context, id, staffID string) (*api.Issue, error) {
	return s.client.AssignIssue(ctx, id, staffID)
}

func (s *issueService) Upvote(ctx context.Context, id string) (*api.Issue, error) {
	return s.client.Upvote(ctx, id)
}

func (s *issueService) PhotoURL(ctx context.Context, id string) (string, error) {
	return s.client.PhotoURL(ctx, id)
}

func (s *issueService) Staff(ctx context.Context) ([]api.StaffMember, error) {
	return s.client.ListStaff(ctx)
}

// CreateStaff registers a staff account. The admin picks the initial
// password; only its salt and verifier are sent.
func (s *issueService) CreateStaff(ctx context.Context, username, name, department string, password []byte) (*api.StaffMember, error) {
	salt, verifier := cryptox.NewCredentials(password)
	return s.client.CreateStaff(ctx, &api.CreateStaffRequest{
		Username:   username,
		Name:       name,
		Department: department,
		Salt:       salt,
		Verifier:   verifier,
	})
}

func (s *issueService) Analytics(ctx context.Context) (*api.AnalyticsResponse, error) {
	return s.client.Analytics(ctx)
}

func (s *issueService) Me(ctx context.Context) (*api.Profile, error) {
	return s.client.Me(ctx)
}
