// Package grpc exposes the CivicReport service over gRPC. Messages are the
// JSON types from internal/api; the service descriptor is declared by hand
// in desc.go instead of being generated.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/civicreport/internal/api"
	"github.com/dmitrijs2005/civicreport/internal/logging"
	"github.com/dmitrijs2005/civicreport/internal/server/auth"
	"github.com/dmitrijs2005/civicreport/internal/server/metrics"
	"github.com/dmitrijs2005/civicreport/internal/server/models"
	"github.com/dmitrijs2005/civicreport/internal/server/services"
	"google.golang.org/grpc"
)

// UserService is the account side consumed by the handlers.
type UserService interface {
	Register(ctx context.Context, username, name string, salt, verifier []byte) (*models.User, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifier []byte) (*services.TokenPair, *models.User, error)
	RefreshToken(ctx context.Context, token string) (*services.TokenPair, error)
	Me(ctx context.Context, userID string) (*models.User, error)
	ListStaff(ctx context.Context) ([]models.StaffMember, error)
	CreateStaff(ctx context.Context, username, name, department string, salt, verifier []byte) (*models.StaffMember, error)
}

// IssueService is the issue workflow consumed by the handlers.
type IssueService interface {
	Create(ctx context.Context, p auth.Principal, in services.NewIssue) (*models.Issue, string, error)
	Get(ctx context.Context, id string) (*models.Issue, error)
	List(ctx context.Context, p auth.Principal, q services.ListQuery) ([]models.Issue, error)
	UpdateStatus(ctx context.Context, p auth.Principal, id, status string) (*models.Issue, error)
	Assign(ctx context.Context, id, staffID string) (*models.Issue, error)
	Upvote(ctx context.Context, p auth.Principal, id string) (*models.Issue, error)
	PhotoURL(ctx context.Context, id string) (string, error)
	Analytics(ctx context.Context) (*services.Analytics, error)
}

type GRPCServer struct {
	address   string
	users     UserService
	issues    IssueService
	logger    logging.Logger
	metrics   *metrics.Metrics
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, us UserService, is IssueService, secretKey string, mt *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		issues:    is,
		metrics:   mt,
		jwtSecret: []byte(secretKey),
	}
}

// NewServer builds a grpc.Server with the JSON codec, the interceptor chain
// and the service registered.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ForceServerCodec(api.Codec{}),
		grpc.ChainUnaryInterceptor(s.metricsInterceptor, s.accessTokenInterceptor),
	)
	srv.RegisterService(&serviceDesc, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := s.NewServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		cancel()
		<-stopped
		return err
	}
	<-stopped
	return nil
}
