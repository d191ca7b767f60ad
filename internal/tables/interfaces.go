package tables

import (
	"context"

	"github.com/greenheaven/floorsync/internal/orders"
	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/storage"
)

type OrderLister interface {
	ListOrders(ctx context.Context, filter orders.ListFilter) ([]models.Order, error)
}

type AlertLister interface {
	ListAlerts(ctx context.Context, unresolvedOnly bool) ([]models.StaffCall, error)
}

// MarkerRepository persists seated/cleaned markers, the only state the registry owns.
type MarkerRepository interface {
	Get(ctx context.Context, filter storage.Filter) ([]models.TableMarker, error)
	Put(ctx context.Context, marker *models.TableMarker) (*models.TableMarker, error)
	Update(ctx context.Context, id string, patch storage.Patch) (*models.TableMarker, error)
}
