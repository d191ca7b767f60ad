package orders

import (
	"context"
	"time"

	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/storage"
)

// Repository is one order collection (digital or manual).
type Repository interface {
	Get(ctx context.Context, filter storage.Filter) ([]models.Order, error)
	Find(ctx context.Context, id string) (*models.Order, error)
	Put(ctx context.Context, order *models.Order) (*models.Order, error)
	UpdateWhere(ctx context.Context, id string, guard storage.Filter, patch storage.Patch) (*models.Order, error)
}

// CompletionMarks records which orders were already counted.
type CompletionMarks interface {
	Find(ctx context.Context, orderID string) (*models.CompletionMark, error)
	Put(ctx context.Context, mark *models.CompletionMark) (*models.CompletionMark, error)
	UpdateWhere(ctx context.Context, orderID string, guard storage.Filter, patch storage.Patch) (*models.CompletionMark, error)
}

// Aggregator receives each completed order once.
type Aggregator interface {
	RecordCompletedOrder(ctx context.Context, order models.Order) (*models.DailyTotal, error)
	BusinessDate(t time.Time) string
}
