// Package refreshtokens stores the rotating refresh tokens issued at login.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/civicreport/internal/server/models"
)

type Repository interface {
	// Create stores token for userID, valid for validity from now.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find returns common.ErrorNotFound for unknown tokens.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete is idempotent.
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes tokens that expired before now and reports how
	// many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
