// Package floor assembles the order ledger, table registry, alert queue and
// daily aggregator over one storage adapter.
package floor

import (
	"context"
	"fmt"
	"time"

	"github.com/greenheaven/floorsync/internal/alerts"
	"github.com/greenheaven/floorsync/internal/broadcast"
	"github.com/greenheaven/floorsync/internal/dailytotals"
	"github.com/greenheaven/floorsync/internal/orders"
	"github.com/greenheaven/floorsync/internal/tables"
	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/logger"
	"github.com/greenheaven/floorsync/pkg/storage"
)

// DefaultLayout is the dining room used when none is configured.
var DefaultLayout = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12", "VIP1", "VIP2"}

type Options struct {
	Storage *storage.Adapter
	// Publisher receives every state change; nil runs with live updates disabled.
	Publisher broadcast.Publisher
	Layout    []string
	Location  *time.Location
	Logger    *logger.Logger
	Now       func() time.Time
	NewID     func() string
}

// Engine is the explicitly constructed context the HTTP layer and tests call into.
type Engine struct {
	store     *storage.Adapter
	publisher broadcast.Publisher

	Orders orders.Service
	Tables tables.Service
	Alerts alerts.Service
	Totals dailytotals.Service
}

func New(opts Options) (*Engine, error) {
	if opts.Storage == nil {
		return nil, fmt.Errorf("storage adapter required")
	}
	if opts.Publisher == nil {
		opts.Publisher = broadcast.Discard{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.Layout) == 0 {
		opts.Layout = DefaultLayout
	}

	store := opts.Storage
	totals, err := dailytotals.NewService(
		storage.NewCollection[models.DailyTotal](store, storage.CollectionDailyTotals, "date"),
		opts.Location,
		opts.Now,
	)
	if err != nil {
		return nil, err
	}

	orderSvc, err := orders.NewService(orders.Params{
		Digital:     storage.NewCollection[models.Order](store, storage.CollectionOrders, "id"),
		Manual:      storage.NewCollection[models.Order](store, storage.CollectionManualOrders, "id"),
		Completions: storage.NewCollection[models.CompletionMark](store, storage.CollectionCompletionMarks, "order_id"),
		Aggregator:  totals,
		Publisher:   opts.Publisher,
		Logger:      opts.Logger,
		Now:         opts.Now,
		NewID:       opts.NewID,
	})
	if err != nil {
		return nil, err
	}

	alertSvc, err := alerts.NewService(alerts.Params{
		Repo:      storage.NewCollection[models.StaffCall](store, storage.CollectionStaffCalls, "id"),
		Publisher: opts.Publisher,
		Logger:    opts.Logger,
		Now:       opts.Now,
		NewID:     opts.NewID,
	})
	if err != nil {
		return nil, err
	}

	tableSvc, err := tables.NewService(tables.Params{
		Layout:    opts.Layout,
		Orders:    orderSvc,
		Alerts:    alertSvc,
		Markers:   storage.NewCollection[models.TableMarker](store, storage.CollectionTableMarkers, "table_id"),
		Publisher: opts.Publisher,
		Logger:    opts.Logger,
		Now:       opts.Now,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		store:     store,
		publisher: opts.Publisher,
		Orders:    orderSvc,
		Tables:    tableSvc,
		Alerts:    alertSvc,
		Totals:    totals,
	}, nil
}

// LiveUpdates reports whether state changes reach a broadcast router.
func (e *Engine) LiveUpdates() bool {
	_, off := e.publisher.(broadcast.Discard)
	return !off
}

// StorageStatus reports the active backend and whether it answers.
func (e *Engine) StorageStatus(ctx context.Context) storage.Status {
	return e.store.Status(ctx)
}

// Ready fails when the active backend does not answer a ping.
func (e *Engine) Ready(ctx context.Context) error {
	return e.store.Ping(ctx)
}
