package maintenance

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/greenheaven/floorsync/internal/dailytotals"
	"github.com/greenheaven/floorsync/pkg/config"
	"github.com/greenheaven/floorsync/pkg/db"
	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/enums"
	"github.com/greenheaven/floorsync/pkg/logger"
	"github.com/greenheaven/floorsync/pkg/storage"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 10, 14, 19, 0, 0, 0, time.UTC)

func storageConfig(dir string) config.StorageConfig {
	return config.StorageConfig{DataDir: dir, AutoMigrate: true, OpTimeout: 5 * time.Second}
}

// openRemote returns an adapter in remote mode backed by a sqlite file.
func openRemote(t *testing.T) *storage.Adapter {
	t.Helper()
	path := filepath.Join(t.TempDir(), "remote.db")
	adapter, err := storage.Open(context.Background(), storage.Params{
		Config: storageConfig(t.TempDir()),
		Remote: func(ctx context.Context) (*db.Client, error) {
			return db.OpenSQLite(ctx, path, nil)
		},
	})
	require.NoError(t, err)
	require.Equal(t, storage.ModeRemote, adapter.Mode())
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter
}

// seedFallback writes records as a degraded session would and returns its data dir.
func seedFallback(t *testing.T, seed func(ctx context.Context, a *storage.Adapter)) string {
	t.Helper()
	dir := t.TempDir()
	adapter, err := storage.Open(context.Background(), storage.Params{
		Config: storageConfig(dir),
		Remote: func(context.Context) (*db.Client, error) { return nil, errors.New("connection refused") },
	})
	require.NoError(t, err)
	require.True(t, adapter.Degraded())
	seed(context.Background(), adapter)
	require.NoError(t, adapter.Close())
	return dir
}

func localOpener(dir string) LocalOpener {
	return func(ctx context.Context) (*storage.Adapter, error) {
		return storage.OpenLocal(ctx, storage.Params{Config: storageConfig(dir)})
	}
}

func order(id, table string, origin enums.OrderOrigin, status enums.OrderStatus, cents int64) *models.Order {
	o := &models.Order{
		ID:           id,
		CustomerName: "Ivy",
		TableID:      table,
		TotalCents:   cents,
		Status:       status,
		Origin:       origin,
		CreatedAt:    day,
		UpdatedAt:    day,
	}
	if status == enums.OrderStatusCompleted {
		o.CompletedAt = &day
	}
	return o
}

func newResync(t *testing.T, remote *storage.Adapter, dir string) (*resyncJob, dailytotals.Service) {
	t.Helper()
	totals, err := dailytotals.NewService(
		storage.NewCollection[models.DailyTotal](remote, storage.CollectionDailyTotals, "date"),
		time.UTC,
		func() time.Time { return day },
	)
	require.NoError(t, err)
	job, err := NewResyncJob(ResyncParams{Logger: logger.Nop(), Remote: remote, Local: localOpener(dir), Totals: totals})
	require.NoError(t, err)
	return job.(*resyncJob), totals
}

func TestResyncCopiesFallbackHistoryOnce(t *testing.T) {
	ctx := context.Background()
	dir := seedFallback(t, func(ctx context.Context, a *storage.Adapter) {
		digital := storage.NewCollection[models.Order](a, storage.CollectionOrders, "id")
		manual := storage.NewCollection[models.Order](a, storage.CollectionManualOrders, "id")
		calls := storage.NewCollection[models.StaffCall](a, storage.CollectionStaffCalls, "id")
		marks := storage.NewCollection[models.CompletionMark](a, storage.CollectionCompletionMarks, "order_id")

		_, err := digital.Put(ctx, order("d-1", "4", enums.OrderOriginDigital, enums.OrderStatusCompleted, 2400))
		require.NoError(t, err)
		_, err = digital.Put(ctx, order("d-2", "5", enums.OrderOriginDigital, enums.OrderStatusPending, 900))
		require.NoError(t, err)
		_, err = manual.Put(ctx, order("m-1", "VIP1", enums.OrderOriginManual, enums.OrderStatusCompleted, 1500))
		require.NoError(t, err)
		_, err = calls.Put(ctx, &models.StaffCall{ID: "a-1", TableID: "4", CustomerName: "Ivy", Message: "water", Status: enums.AlertStatusPending, CreatedAt: day, UpdatedAt: day})
		require.NoError(t, err)
		_, err = marks.Put(ctx, &models.CompletionMark{OrderID: "d-1", Origin: enums.OrderOriginDigital, AmountCents: 2400, BusinessDate: "2026-10-14", CreatedAt: day})
		require.NoError(t, err)
		_, err = marks.Put(ctx, &models.CompletionMark{OrderID: "m-1", Origin: enums.OrderOriginManual, AmountCents: 1500, BusinessDate: "2026-10-14", CreatedAt: day})
		require.NoError(t, err)
	})

	remote := openRemote(t)
	// d-1 already reached the remote store before the outage
	remoteOrders := storage.NewCollection[models.Order](remote, storage.CollectionOrders, "id")
	_, err := remoteOrders.Put(ctx, order("d-1", "4", enums.OrderOriginDigital, enums.OrderStatusCompleted, 2400))
	require.NoError(t, err)
	_, err = storage.NewCollection[models.CompletionMark](remote, storage.CollectionCompletionMarks, "order_id").
		Put(ctx, &models.CompletionMark{OrderID: "d-1", Origin: enums.OrderOriginDigital, AmountCents: 2400, BusinessDate: "2026-10-14", Applied: true, CreatedAt: day})
	require.NoError(t, err)

	job, totals := newResync(t, remote, dir)
	result, err := job.resync(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Copied[storage.CollectionOrders])
	require.Equal(t, 1, result.Skipped[storage.CollectionOrders])
	require.Equal(t, 1, result.Copied[storage.CollectionManualOrders])
	require.Equal(t, 1, result.Copied[storage.CollectionStaffCalls])
	require.Equal(t, 1, result.Copied[storage.CollectionCompletionMarks])
	require.Equal(t, 1, result.Skipped[storage.CollectionCompletionMarks])

	row, err := totals.GetTotals(ctx, "2026-10-14")
	require.NoError(t, err)
	require.Equal(t, int64(1), row.ManualOrders)
	require.Equal(t, int64(1500), row.ManualRevenueCents)
	require.Zero(t, row.DigitalOrders, "a completion already on the remote store is not counted again")

	again, err := job.resync(ctx)
	require.NoError(t, err)
	require.Zero(t, again.Copied[storage.CollectionCompletionMarks])
	row, err = totals.GetTotals(ctx, "2026-10-14")
	require.NoError(t, err)
	require.Equal(t, int64(1), row.TotalOrders)

	all, err := remoteOrders.Get(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestResyncIsNoopWithoutFallbackFile(t *testing.T) {
	remote := openRemote(t)
	job, _ := newResync(t, remote, t.TempDir())
	result, err := job.resync(context.Background())
	require.NoError(t, err)
	require.Empty(t, result.Copied)
}

func TestResyncSkipsWhileDegraded(t *testing.T) {
	dir := seedFallback(t, func(context.Context, *storage.Adapter) {})
	degraded, err := storage.Open(context.Background(), storage.Params{Config: storageConfig(dir)})
	require.NoError(t, err)
	defer degraded.Close()

	opened := false
	totals, err := dailytotals.NewService(
		storage.NewCollection[models.DailyTotal](degraded, storage.CollectionDailyTotals, "date"), time.UTC, nil)
	require.NoError(t, err)
	job, err := NewResyncJob(ResyncParams{
		Logger: logger.Nop(),
		Remote: degraded,
		Local: func(ctx context.Context) (*storage.Adapter, error) {
			opened = true
			return nil, errors.New("unexpected")
		},
		Totals: totals,
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))
	require.False(t, opened)
}
