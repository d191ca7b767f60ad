package alerts

import (
	"context"

	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/storage"
)

// Repository persists staff calls.
type Repository interface {
	Get(ctx context.Context, filter storage.Filter) ([]models.StaffCall, error)
	Find(ctx context.Context, id string) (*models.StaffCall, error)
	Put(ctx context.Context, call *models.StaffCall) (*models.StaffCall, error)
	UpdateWhere(ctx context.Context, id string, guard storage.Filter, patch storage.Patch) (*models.StaffCall, error)
}
