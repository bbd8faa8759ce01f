// Package jobs runs the server's scheduled maintenance.
package jobs

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/civicreport/internal/logging"
	"github.com/robfig/cron/v3"
)

// Purger removes expired refresh tokens.
type Purger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// Cleanup purges expired refresh tokens on a cron schedule.
type Cleanup struct {
	spec   string
	purger Purger
	logger logging.Logger
}

// NewCleanup validates spec, a standard five-field cron line or a
// descriptor such as "@hourly".
func NewCleanup(spec string, p Purger, logger logging.Logger) (*Cleanup, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}
	return &Cleanup{spec: spec, purger: p, logger: logger.With("module", "cleanup")}, nil
}

// RunOnce performs a single purge.
func (c *Cleanup) RunOnce(ctx context.Context) {
	n, err := c.purger.PurgeExpiredTokens(ctx)
	if err != nil {
		c.logger.Error(ctx, "refresh token purge failed", "error", err)
		return
	}
	c.logger.Debug(ctx, "refresh token purge done", "removed", n)
}

// Run schedules the purge and blocks until ctx is done. Running jobs are
// waited for before it returns.
func (c *Cleanup) Run(ctx context.Context) error {
	log := cronLogger{ctx: ctx, l: c.logger}
	cr := cron.New(cron.WithLogger(log), cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)))
	if _, err := cr.AddFunc(c.spec, func() { c.RunOnce(ctx) }); err != nil {
		return err
	}

	c.logger.Info(ctx, "cleanup scheduled", "schedule", c.spec)
	cr.Start()
	<-ctx.Done()
	<-cr.Stop().Done()
	return nil
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	ctx context.Context
	l   logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(c.ctx, msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(c.ctx, msg, append(keysAndValues, "error", err)...)
}
