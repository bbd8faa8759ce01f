package users

import (
	"context"

	"github.com/dmitrijs2005/civicreport/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills its ID. A taken username yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// ListStaff returns staff accounts with their unresolved assignment count.
	ListStaff(ctx context.Context) ([]models.StaffMember, error)
}
