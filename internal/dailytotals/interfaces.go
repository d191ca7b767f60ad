package dailytotals

import (
	"context"

	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/storage"
)

// Repository is the daily_totals collection.
type Repository interface {
	Find(ctx context.Context, date string) (*models.DailyTotal, error)
	Put(ctx context.Context, row *models.DailyTotal) (*models.DailyTotal, error)
	Update(ctx context.Context, date string, patch storage.Patch) (*models.DailyTotal, error)
}
