package tables

import (
	"context"
	"testing"
	"time"

	"github.com/greenheaven/floorsync/internal/alerts"
	"github.com/greenheaven/floorsync/internal/broadcast/broadcasttest"
	"github.com/greenheaven/floorsync/internal/dailytotals"
	"github.com/greenheaven/floorsync/internal/orders"
	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/enums"
	pkgerrors "github.com/greenheaven/floorsync/pkg/errors"
	"github.com/greenheaven/floorsync/pkg/money"
	"github.com/greenheaven/floorsync/pkg/storage"
	"github.com/greenheaven/floorsync/pkg/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	tables   Service
	orders   orders.Service
	alerts   alerts.Service
	recorder *broadcasttest.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	adapter := storagetest.Open(t)
	clock := storagetest.NewClock(time.Date(2026, 10, 15, 19, 0, 0, 0, time.UTC))
	recorder := &broadcasttest.Recorder{}

	totals, err := dailytotals.NewService(storage.NewCollection[models.DailyTotal](adapter, storage.CollectionDailyTotals, "date"), time.UTC, clock.Now)
	require.NoError(t, err)
	orderSvc, err := orders.NewService(orders.Params{
		Digital:     storage.NewCollection[models.Order](adapter, storage.CollectionOrders, "id"),
		Manual:      storage.NewCollection[models.Order](adapter, storage.CollectionManualOrders, "id"),
		Completions: storage.NewCollection[models.CompletionMark](adapter, storage.CollectionCompletionMarks, "order_id"),
		Aggregator:  totals,
		Now:         clock.Now,
	})
	require.NoError(t, err)
	alertSvc, err := alerts.NewService(alerts.Params{
		Repo: storage.NewCollection[models.StaffCall](adapter, storage.CollectionStaffCalls, "id"),
		Now:  clock.Now,
	})
	require.NoError(t, err)
	tableSvc, err := NewService(Params{
		Layout:    []string{"1", "2", "3"},
		Orders:    orderSvc,
		Alerts:    alertSvc,
		Markers:   storage.NewCollection[models.TableMarker](adapter, storage.CollectionTableMarkers, "table_id"),
		Publisher: recorder,
		Now:       clock.Now,
	})
	require.NoError(t, err)
	return &fixture{tables: tableSvc, orders: orderSvc, alerts: alertSvc, recorder: recorder}
}

func (f *fixture) place(t *testing.T, table string) *models.Order {
	t.Helper()
	o, err := f.orders.PlaceOrder(context.Background(), orders.PlaceOrderInput{
		CustomerName: "Ana",
		TableID:      table,
		Items:        []orders.LineItemInput{{MenuItemID: "m", Name: "Soup", UnitPrice: money.FromCents(800), Quantity: 1}},
	})
	require.NoError(t, err)
	return o
}

func TestNewServiceRejectsBadLayout(t *testing.T) {
	f := newFixture(t)
	_, err := NewService(Params{Layout: []string{"ok", "not/ok"}, Orders: f.orders, Alerts: f.alerts, Markers: &storage.Collection[models.TableMarker]{}})
	require.Error(t, err)
}

func TestCleanTableBlockedByOpenOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.place(t, "3")

	_, err := f.tables.CleanTable(ctx, "3")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeTableNotEmpty))
	assert.Zero(t, f.recorder.Count(enums.EventTableUpdate))

	for _, next := range []enums.OrderStatus{enums.OrderStatusPreparing, enums.OrderStatusReady, enums.OrderStatusCompleted} {
		_, err := f.orders.UpdateStatus(ctx, o.ID, next)
		require.NoError(t, err)
	}

	view, err := f.tables.CleanTable(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, enums.TableStatusEmpty, view.Status)

	events := f.recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventTableUpdate, events[0].Name)
	assert.Equal(t, "3", events[0].TableID)
}

func TestSeatThenClean(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.tables.SeatTable(ctx, "2", "Dee")
	require.NoError(t, err)
	assert.Equal(t, enums.TableStatusOccupied, view.Status)
	assert.Equal(t, "Dee", view.CustomerName)
	require.NotNil(t, view.SeatedAt)

	_, err = f.tables.SeatTable(ctx, "2", "Eve")
	require.NoError(t, err)
	view, err = f.tables.GetTable(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Eve", view.CustomerName)

	view, err = f.tables.CleanTable(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, enums.TableStatusEmpty, view.Status)
	assert.Empty(t, view.CustomerName)
	assert.Nil(t, view.SeatedAt)
	assert.Equal(t, 3, f.recorder.Count(enums.EventTableUpdate))

	_, err = f.tables.SeatTable(ctx, "2", " ")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestGetTablesReflectsAlerts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.place(t, "1")
	call, err := f.alerts.RaiseAlert(ctx, alerts.RaiseAlertInput{CustomerName: "Ana", TableID: "1"})
	require.NoError(t, err)

	all, err := f.tables.GetTables(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, enums.TableStatusNeedsAttention, all[0].Status)
	assert.Equal(t, enums.TableStatusEmpty, all[1].Status)

	_, err = f.alerts.ResolveAlert(ctx, call.ID)
	require.NoError(t, err)
	one, err := f.tables.GetTable(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, enums.TableStatusOccupied, one.Status)
	assert.Equal(t, int64(800), one.OpenTotal.Cents())
}

func TestGetTableUnknownReadsEmpty(t *testing.T) {
	f := newFixture(t)
	view, err := f.tables.GetTable(context.Background(), "Patio 9")
	require.NoError(t, err)
	assert.Equal(t, "Patio 9", view.TableID)
	assert.Equal(t, enums.TableStatusEmpty, view.Status)

	_, err = f.tables.GetTable(context.Background(), "")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
