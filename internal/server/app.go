// Package server wires the CivicReport server together: Postgres and its
// migrations, the services, the gRPC and HTTP listeners and the cleanup
// job, all stopped together when the context ends.
package server

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/civicreport/internal/logging"
	"github.com/dmitrijs2005/civicreport/internal/server/config"
	"github.com/dmitrijs2005/civicreport/internal/server/httpapi"
	"github.com/dmitrijs2005/civicreport/internal/server/jobs"
	"github.com/dmitrijs2005/civicreport/internal/server/metrics"
	"github.com/dmitrijs2005/civicreport/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/civicreport/internal/server/services"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/civicreport/internal/server/grpc"
)

var (
	openDB         = repomanager.OpenDB
	newRepoManager = repomanager.NewPostgresRepositoryManager
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	metrics *metrics.Metrics
	users   *services.UserService
	issues  *services.IssueService
	chatbot *services.Chatbot
	cleanup *jobs.Cleanup
}

// NewApp opens the database, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	mt := metrics.New()
	us := services.NewUserService(db, rm, c, logger, mt)
	is := services.NewIssueService(db, rm, services.NewS3PhotoStore(c), logger, mt)

	cleanup, err := jobs.NewCleanup(c.CleanupSchedule, us, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		metrics: mt,
		users:   us,
		issues:  is,
		chatbot: services.NewChatbot(is, logger, mt),
		cleanup: cleanup,
	}, nil
}

// Run bootstraps the admin account and serves until ctx is done or one of
// the components fails.
func (app *App) Run(ctx context.Context) error {
	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")

	created, err := app.users.EnsureAdmin(ctx, app.config.AdminUsername, app.config.AdminName, app.config.AdminPassword)
	if err != nil {
		return fmt.Errorf("admin bootstrap: %w", err)
	}
	if created {
		app.logger.Info(ctx, "admin account created", "username", app.config.AdminUsername)
	}

	grpcServer := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.users, app.issues, app.config.SecretKey, app.metrics)
	httpServer := httpapi.NewServer(app.config.EndpointAddrHTTP, app.chatbot, app.config.SecretKey, app.metrics, app.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return grpcServer.Run(ctx) })
	g.Go(func() error { return httpServer.Run(ctx) })
	g.Go(func() error { return app.cleanup.Run(ctx) })

	err = g.Wait()
	app.logger.Info(ctx, "App stopped")
	return err
}
