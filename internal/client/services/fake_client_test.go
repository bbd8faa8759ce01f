package services

import (
	"context"

	"github.com/dmitrijs2005/civicreport/internal/api"
)

// fakeClient implements client.Client for unit tests.
type fakeClient struct {
	SaltRet  []byte
	SaltErr  error
	LoginRet *api.LoginResponse
	LoginErr error

	RegisterErr error
	PingErr     error

	CreateRet   *api.CreateIssueResponse
	CreateErr   error
	IssueRet    *api.Issue
	IssueErr    error
	ListRet     []api.Issue
	StaffRet    *api.StaffMember
	AnalyticsRt *api.AnalyticsResponse

	LastLoginUser     string
	LastLoginVerifier []byte
	LastRegister      []any
	LastCreate        *api.CreateIssueRequest
	LastList          *api.ListIssuesRequest
	LastStaff         *api.CreateStaffRequest
	LastStatus        [2]string
	Access, Refresh   string
	OnRefresh         func(access, refresh string)
	Closed            bool
}

func (f *fakeClient) Close() error { f.Closed = true; return nil }

func (f *fakeClient) SetTokens(access, refresh string) { f.Access, f.Refresh = access, refresh }

func (f *fakeClient) OnTokensRefreshed(fn func(access, refresh string)) { f.OnRefresh = fn }

func (f *fakeClient) Register(ctx context.Context, username, name string, salt, verifier []byte) error {
	f.LastRegister = []any{username, name, salt, verifier}
	return f.RegisterErr
}

func (f *fakeClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	return f.SaltRet, f.SaltErr
}

func (f *fakeClient) Login(ctx context.Context, username string, verifier []byte) (*api.LoginResponse, error) {
	f.LastLoginUser, f.LastLoginVerifier = username, verifier
	if f.LoginErr != nil {
		return nil, f.LoginErr
	}
	f.Access, f.Refresh = f.LoginRet.AccessToken, f.LoginRet.RefreshToken
	return f.LoginRet, nil
}

func (f *fakeClient) Ping(ctx context.Context) error { return f.PingErr }

func (f *fakeClient) Me(ctx context.Context) (*api.Profile, error) {
	return &api.Profile{ID: "u-1"}, nil
}

func (f *fakeClient) CreateIssue(ctx context.Context, req *api.CreateIssueRequest) (*api.CreateIssueResponse, error) {
	f.LastCreate = req
	return f.CreateRet, f.CreateErr
}

func (f *fakeClient) GetIssue(ctx context.Context, id string) (*api.Issue, error) {
	return f.IssueRet, f.IssueErr
}

func (f *fakeClient) ListIssues(ctx context.Context, req *api.ListIssuesRequest) ([]api.Issue, error) {
	f.LastList = req
	return f.ListRet, nil
}

func (f *fakeClient) UpdateStatus(ctx context.Context, id, status string) (*api.Issue, error) {
	f.LastStatus = [2]string{id, status}
	return f.IssueRet, f.IssueErr
}

func (f *fakeClient) AssignIssue(ctx context.Context, id, staffID string) (*api.Issue, error) {
	return f.IssueRet, f.IssueErr
}

func (f *fakeClient) Upvote(ctx context.Context, id string) (*api.Issue, error) {
	return f.IssueRet, f.IssueErr
}

func (f *fakeClient) PhotoURL(ctx context.Context, id string) (string, error) {
	return "https://s3/photo/" + id, nil
}

func (f *fakeClient) ListStaff(ctx context.Context) ([]api.StaffMember, error) {
	return nil, nil
}

func (f *fakeClient) CreateStaff(ctx context.Context, req *api.CreateStaffRequest) (*api.StaffMember, error) {
	f.LastStaff = req
	return f.StaffRet, nil
}

func (f *fakeClient) Analytics(ctx context.Context) (*api.AnalyticsResponse, error) {
	return f.AnalyticsRt, nil
}
