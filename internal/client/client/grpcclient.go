package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/civicreport/internal/api"
	"github.com/dmitrijs2005/civicreport/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const saltTimeout = 12 * time.Second

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	dialOpts    []grpc.DialOption

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	onRefresh    func(access, refresh string)

	// refresh is replaced in tests.
	refresh func(ctx context.Context, token string) (*api.RefreshTokenResponse, error)
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) tokens() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.refreshToken
}

func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := c.tokens()

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil || method == api.FullMethod(api.MethodRefreshToken) {
		return err
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refresh == "" {
		return err
	}

	access, rerr := c.rotate(ctx, refresh)
	if rerr != nil {
		return err
	}

	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

// rotate exchanges refresh for a new token pair, keeps it and runs the
// rotation callback.
func (c *GRPCClient) rotate(ctx context.Context, refresh string) (string, error) {
	resp, err := c.refresh(ctx, refresh)
	if err != nil {
		return "", err
	}

	c.SetTokens(resp.AccessToken, resp.RefreshToken)

	c.mu.RLock()
	cb := c.onRefresh
	c.mu.RUnlock()
	if cb != nil {
		cb(resp.AccessToken, resp.RefreshToken)
	}
	return resp.AccessToken, nil
}

// NewGRPCClient connects lazily to endpointURL. Extra dial options are
// appended to the defaults (insecure transport, JSON codec, token
// interceptor).
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, dialOpts: opts}
	c.refresh = c.refreshTokens
	if err := c.init(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *GRPCClient) init() error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(api.Codec{})),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, c.dialOpts...)

	conn, err := grpc.NewClient(c.endpointURL, opts...)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// SetTokens replaces the credentials attached to outgoing calls.
func (c *GRPCClient) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

// AccessToken returns the token attached to outgoing calls.
func (c *GRPCClient) AccessToken() string {
	access, _ := c.tokens()
	return access
}

// Refresh rotates the token pair now. Without a refresh token it returns
// ErrUnauthorized.
func (c *GRPCClient) Refresh(ctx context.Context) error {
	_, refresh := c.tokens()
	if refresh == "" {
		return ErrUnauthorized
	}
	_, err := c.rotate(ctx, refresh)
	return err
}

// OnTokensRefreshed registers a callback run after a successful rotation.
func (c *GRPCClient) OnTokensRefreshed(fn func(access, refresh string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRefresh = fn
}

func (c *GRPCClient) invoke(ctx context.Context, method string, req, resp any) error {
	if err := c.conn.Invoke(ctx, api.FullMethod(method), req, resp); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *GRPCClient) refreshTokens(ctx context.Context, token string) (*api.RefreshTokenResponse, error) {
	resp := &api.RefreshTokenResponse{}
	if err := c.invoke(ctx, api.MethodRefreshToken, &api.RefreshTokenRequest{RefreshToken: token}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *GRPCClient) Register(ctx context.Context, username, name string, salt, verifier []byte) error {
	req := &api.RegisterRequest{Username: username, Name: name, Salt: salt, Verifier: verifier}
	return c.invoke(ctx, api.MethodRegister, req, &api.RegisterResponse{})
}

func (c *GRPCClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, saltTimeout)
	defer cancel()

	resp := &api.GetSaltResponse{}
	if err := c.invoke(ctx, api.MethodGetSalt, &api.GetSaltRequest{Username: username}, resp); err != nil {
		return nil, err
	}
	return resp.Salt, nil
}

// Login authenticates and keeps the returned tokens for later calls.
func (c *GRPCClient) Login(ctx context.Context, username string, verifier []byte) (*api.LoginResponse, error) {
	resp := &api.LoginResponse{}
	if err := c.invoke(ctx, api.MethodLogin, &api.LoginRequest{Username: username, Verifier: verifier}, resp); err != nil {
		return nil, err
	}
	c.SetTokens(resp.AccessToken, resp.RefreshToken)
	return resp, nil
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	resp := &api.PingResponse{}
	if err := c.invoke(ctx, api.MethodPing, &api.Empty{}, resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (c *GRPCClient) Me(ctx context.Context) (*api.Profile, error) {
	resp := &api.Profile{}
	if err := c.invoke(ctx, api.MethodMe, &api.Empty{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *GRPCClient) CreateIssue(ctx context.Context, req *api.CreateIssueRequest) (*api.CreateIssueResponse, error) {
	resp := &api.CreateIssueResponse{}
	if err := c.invoke(ctx, api.MethodCreateIssue, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *GRPCClient) issueCall(ctx context.Context, method string, req any) (*api.Issue, error) {
	resp := &api.IssueResponse{}
	if err := c.invoke(ctx, method, req, resp); err != nil {
		return nil, err
	}
	return &resp.Issue, nil
}

func (c *GRPCClient) GetIssue(ctx context.Context, id string) (*api.Issue, error) {
	return c.issueCall(ctx, api.MethodGetIssue, &api.IssueRequest{ID: id})
}

func (c *GRPCClient) ListIssues(ctx context.Context, req *api.ListIssuesRequest) ([]api.Issue, error) {
	resp := &api.ListIssuesResponse{}
	if err := c.invoke(ctx, api.MethodListIssues, req, resp); err != nil {
		return nil, err
	}
	return resp.Issues, nil
}

func (c *GRPCClient) UpdateStatus(ctx context.Context, id, status string) (*api.Issue, error) {
	return c.issueCall(ctx, api.MethodUpdateStatus, &api.UpdateStatusRequest{ID: id, Status: status})
}

func (c *GRPCClient) AssignIssue(ctx context.Context, id, staffID string) (*api.Issue, error) {
	return c.issueCall(ctx, api.MethodAssignIssue, &api.AssignIssueRequest{ID: id, StaffID: staffID})
}

func (c *GRPCClient) Upvote(ctx context.Context, id string) (*api.Issue, error) {
	return c.issueCall(ctx, api.MethodUpvote, &api.IssueRequest{ID: id})
}

func (c *GRPCClient) PhotoURL(ctx context.Context, id string) (string, error) {
	resp := &api.PhotoURLResponse{}
	if err := c.invoke(ctx, api.MethodPhotoURL, &api.IssueRequest{ID: id}, resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (c *GRPCClient) ListStaff(ctx context.Context) ([]api.StaffMember, error) {
	resp := &api.ListStaffResponse{}
	if err := c.invoke(ctx, api.MethodListStaff, &api.Empty{}, resp); err != nil {
		return nil, err
	}
	return resp.Staff, nil
}

func (c *GRPCClient) CreateStaff(ctx context.Context, req *api.CreateStaffRequest) (*api.StaffMember, error) {
	resp := &api.CreateStaffResponse{}
	if err := c.invoke(ctx, api.MethodCreateStaff, req, resp); err != nil {
		return nil, err
	}
	return &resp.Staff, nil
}

func (c *GRPCClient) Analytics(ctx context.Context) (*api.AnalyticsResponse, error) {
	resp := &api.AnalyticsResponse{}
	if err := c.invoke(ctx, api.MethodAnalytics, &api.Empty{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return ErrUnauthorized
	case codes.PermissionDenied:
		return ErrForbidden
	case codes.NotFound:
		return ErrNotFound
	case codes.AlreadyExists:
		return ErrAlreadyExists
	case codes.InvalidArgument, codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", ErrInvalid, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
