package grpc

import (
	"context"

	"github.com/dmitrijs2005/civicreport/internal/api"
	"github.com/dmitrijs2005/civicreport/internal/server/models"
	"github.com/dmitrijs2005/civicreport/internal/server/services"
)

func (s *GRPCServer) Register(ctx context.Context, req *api.RegisterRequest) (*api.RegisterResponse, error) {
	s.logger.Info(ctx, "Registration request")

	result, err := s.users.Register(ctx, req.Username, req.Name, req.Salt, req.Verifier)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "user", result.ID)
	return &api.RegisterResponse{ID: result.ID}, nil
}

func (s *GRPCServer) GetSalt(ctx context.Context, req *api.GetSaltRequest) (*api.GetSaltResponse, error) {
	result, err := s.users.GetSalt(ctx, req.Username)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.GetSaltResponse{Salt: result}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {
	tokens, user, err := s.users.Login(ctx, req.Username, req.Verifier)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.LoginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		Profile:      toProfile(user),
	}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *api.RefreshTokenRequest) (*api.RefreshTokenResponse, error) {
	tokens, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.RefreshTokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *api.Empty) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) Me(ctx context.Context, _ *api.Empty) (*api.Profile, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Me(ctx, p.UserID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	profile := toProfile(user)
	return &profile, nil
}

func (s *GRPCServer) CreateIssue(ctx context.Context, req *api.CreateIssueRequest) (*api.CreateIssueResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	issue, uploadURL, err := s.issues.Create(ctx, p, services.NewIssue{
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Severity:         req.Severity,
		Lat:              req.Lat,
		Lng:              req.Lng,
		PhotoContentType: req.PhotoContentType,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.CreateIssueResponse{Issue: toIssue(issue), UploadURL: uploadURL}, nil
}

func (s *GRPCServer) GetIssue(ctx context.Context, req *api.IssueRequest) (*api.IssueResponse, error) {
	issue, err := s.issues.Get(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.IssueResponse{Issue: toIssue(issue)}, nil
}

func (s *GRPCServer) ListIssues(ctx context.Context, req *api.ListIssuesRequest) (*api.ListIssuesResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.issues.List(ctx, p, services.ListQuery{
		Scope:    req.Scope,
		Status:   req.Status,
		Category: req.Category,
		Severity: req.Severity,
		Lat:      req.Lat,
		Lng:      req.Lng,
		RadiusKm: req.RadiusKm,
		Limit:    req.Limit,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	resp := &api.ListIssuesResponse{Issues: make([]api.Issue, 0, len(list))}
	for i := range list {
		resp.Issues = append(resp.Issues, toIssue(&list[i]))
	}
	return resp, nil
}

func (s *GRPCServer) UpdateStatus(ctx context.Context, req *api.UpdateStatusRequest) (*api.IssueResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	issue, err := s.issues.UpdateStatus(ctx, p, req.ID, req.Status)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.IssueResponse{Issue: toIssue(issue)}, nil
}

func (s *GRPCServer) AssignIssue(ctx context.Context, req *api.AssignIssueRequest) (*api.IssueResponse, error) {
	issue, err := s.issues.Assign(ctx, req.ID, req.StaffID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.IssueResponse{Issue: toIssue(issue)}, nil
}

func (s *GRPCServer) Upvote(ctx context.Context, req *api.IssueRequest) (*api.IssueResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	issue, err := s.issues.Upvote(ctx, p, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.IssueResponse{Issue: toIssue(issue)}, nil
}

func (s *GRPCServer) PhotoURL(ctx context.Context, req *api.IssueRequest) (*api.PhotoURLResponse, error) {
	url, err := s.issues.PhotoURL(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.PhotoURLResponse{URL: url}, nil
}

func (s *GRPCServer) ListStaff(ctx context.Context, _ *api.Empty) (*api.ListStaffResponse, error) {
	staff, err := s.users.ListStaff(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	resp := &api.ListStaffResponse{Staff: make([]api.StaffMember, 0, len(staff))}
	for i := range staff {
		resp.Staff = append(resp.Staff, toStaff(&staff[i]))
	}
	return resp, nil
}

func (s *GRPCServer) CreateStaff(ctx context.Context, req *api.CreateStaffRequest) (*api.CreateStaffResponse, error) {
	sm, err := s.users.CreateStaff(ctx, req.Username, req.Name, req.Department, req.Salt, req.Verifier)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.CreateStaffResponse{Staff: toStaff(sm)}, nil
}

func (s *GRPCServer) Analytics(ctx context.Context, _ *api.Empty) (*api.AnalyticsResponse, error) {
	a, err := s.issues.Analytics(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.AnalyticsResponse{
		Total:          a.Total,
		ByStatus:       a.ByStatus,
		ByCategory:     a.ByCategory,
		BySeverity:     a.BySeverity,
		ResolutionRate: a.ResolutionRate,
	}, nil
}

// --- conversions ---

func toProfile(u *models.User) api.Profile {
	return api.Profile{
		ID:         u.ID,
		Username:   u.UserName,
		Name:       u.Name,
		Role:       u.Role,
		Department: u.Department,
	}
}

func toStaff(sm *models.StaffMember) api.StaffMember {
	return api.StaffMember{
		ID:          sm.ID,
		Username:    sm.UserName,
		Name:        sm.Name,
		Department:  sm.Department,
		OpenTickets: sm.OpenTickets,
	}
}

func toIssue(is *models.Issue) api.Issue {
	return api.Issue{
		ID:           is.ID,
		Title:        is.Title,
		Description:  is.Description,
		Category:     is.Category,
		Department:   is.Department,
		Status:       string(is.Status),
		Severity:     string(is.Severity),
		ReporterID:   is.ReporterID,
		ReporterName: is.ReporterName,
		AssigneeID:   is.AssigneeID,
		AssigneeName: is.AssigneeName,
		Lat:          is.Lat,
		Lng:          is.Lng,
		Digipin:      is.Digipin,
		HasPhoto:     is.PhotoKey != "",
		Upvotes:      is.Upvotes,
		CreatedAt:    is.CreatedAt,
		UpdatedAt:    is.UpdatedAt,
	}
}
