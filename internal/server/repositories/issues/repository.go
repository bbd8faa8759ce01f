// Package issues persists citizen reports.
package issues

import (
	"context"
	"time"

	"github.com/dmitrijs2005/civicreport/internal/civic"
	"github.com/dmitrijs2005/civicreport/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, issue *models.Issue) error
	// Get returns common.ErrorNotFound for unknown ids.
	Get(ctx context.Context, id string) (*models.Issue, error)
	// List returns matching issues, newest first.
	List(ctx context.Context, f models.IssueFilter, box *models.Box) ([]models.Issue, error)
	// SetStatus moves id from one status to another. It reports false when
	// the issue is no longer in status from.
	SetStatus(ctx context.Context, id string, from, to civic.Status, at time.Time) (bool, error)
	// Assign sets the assignee and status of id.
	Assign(ctx context.Context, id, staffID string, status civic.Status, at time.Time) error
	// Upvote records one vote per user. It reports false for a repeated vote.
	Upvote(ctx context.Context, id, userID string) (bool, error)
	Counts(ctx context.Context) (*models.IssueCounts, error)
}
