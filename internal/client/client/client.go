package client

import (
	"context"

	"github.com/dmitrijs2005/civicreport/internal/api"
)

// Client is the backend API as seen by the terminal client.
type Client interface {
	Close() error
	SetTokens(access, refresh string)
	OnTokensRefreshed(fn func(access, refresh string))

	Register(ctx context.Context, username, name string, salt, verifier []byte) error
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifier []byte) (*api.LoginResponse, error)
	Ping(ctx context.Context) error
	Me(ctx context.Context) (*api.Profile, error)

	CreateIssue(ctx context.Context, req *api.CreateIssueRequest) (*api.CreateIssueResponse, error)
	GetIssue(ctx context.Context, id string) (*api.Issue, error)
	ListIssues(ctx context.Context, req *api.ListIssuesRequest) ([]api.Issue, error)
	UpdateStatus(ctx context.Context, id, status string) (*api.Issue, error)
	AssignIssue(ctx context.Context, id, staffID string) (*api.Issue, error)
	Upvote(ctx context.Context, id string) (*api.Issue, error)
	PhotoURL(ctx context.Context, id string) (string, error)

	ListStaff(ctx context.Context) ([]api.StaffMember, error)
	CreateStaff(ctx context.Context, req *api.CreateStaffRequest) (*api.StaffMember, error)
	Analytics(ctx context.Context) (*api.AnalyticsResponse, error)
}
