package tables

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/greenheaven/floorsync/internal/broadcast"
	"github.com/greenheaven/floorsync/internal/orders"
	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/enums"
	pkgerrors "github.com/greenheaven/floorsync/pkg/errors"
	"github.com/greenheaven/floorsync/pkg/logger"
	"github.com/greenheaven/floorsync/pkg/storage"
	"github.com/greenheaven/floorsync/pkg/types"
)

// Service is the table registry. Table state is recomputed from orders,
// alerts and markers on every read.
type Service interface {
	GetTables(ctx context.Context) ([]TableView, error)
	GetTable(ctx context.Context, tableID string) (*TableView, error)
	SeatTable(ctx context.Context, tableID, customerName string) (*TableView, error)
	CleanTable(ctx context.Context, tableID string) (*TableView, error)
}

type Params struct {
	Layout    []string
	Orders    OrderLister
	Alerts    AlertLister
	Markers   MarkerRepository
	Publisher broadcast.Publisher
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	layout    []string
	orders    OrderLister
	alerts    AlertLister
	markers   MarkerRepository
	publisher broadcast.Publisher
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(p Params) (Service, error) {
	if p.Orders == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	if p.Alerts == nil {
		return nil, fmt.Errorf("alert queue required")
	}
	if p.Markers == nil {
		return nil, fmt.Errorf("table markers repository required")
	}

	layout := make([]string, 0, len(p.Layout))
	for _, raw := range p.Layout {
		id, err := types.NormalizeTableID(raw)
		if err != nil {
			return nil, fmt.Errorf("table layout: %w", err)
		}
		layout = append(layout, id)
	}

	s := &service{
		layout:    layout,
		orders:    p.Orders,
		alerts:    p.Alerts,
		markers:   p.Markers,
		publisher: p.Publisher,
		logg:      p.Logger,
		now:       p.Now,
	}
	if s.publisher == nil {
		s.publisher = broadcast.Discard{}
	}
	if s.logg == nil {
		s.logg = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func (s *service) GetTables(ctx context.Context) ([]TableView, error) {
	orderList, err := s.orders.ListOrders(ctx, orders.ListFilter{})
	if err != nil {
		return nil, err
	}
	alertList, err := s.alerts.ListAlerts(ctx, true)
	if err != nil {
		return nil, err
	}
	markers, err := s.markers.Get(ctx, nil)
	if err != nil {
		return nil, err
	}
	return Derive(s.layout, orderList, alertList, markers), nil
}

// GetTable returns one table's view; any valid id not yet in use reads as empty.
func (s *service) GetTable(ctx context.Context, tableID string) (*TableView, error) {
	id, err := normalize(tableID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, id)
}

// SeatTable marks the table occupied before any order exists.
func (s *service) SeatTable(ctx context.Context, tableID, customerName string) (*TableView, error) {
	id, err := normalize(tableID)
	if err != nil {
		return nil, err
	}
	customer := strings.TrimSpace(customerName)
	if customer == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}

	now := s.now().UTC()
	err = s.upsertMarker(ctx, &models.TableMarker{TableID: id, CustomerName: customer, SeatedAt: &now, UpdatedAt: now}, storage.Patch{
		"customer_name": customer,
		"seated_at":     now,
		"updated_at":    now,
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithTableID(ctx, id)
	s.logg.Info(ctx, "table seated")
	return s.changed(ctx, id)
}

// CleanTable resets a table once every order on it is completed or cancelled.
func (s *service) CleanTable(ctx context.Context, tableID string) (*TableView, error) {
	id, err := normalize(tableID)
	if err != nil {
		return nil, err
	}

	list, err := s.orders.ListOrders(ctx, orders.ListFilter{TableID: id})
	if err != nil {
		return nil, err
	}
	open := 0
	for _, o := range list {
		if o.IsOpen() {
			open++
		}
	}
	if open > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeTableNotEmpty, fmt.Sprintf("table %s has open orders", id)).
			WithDetails(map[string]int{"open_orders": open})
	}

	now := s.now().UTC()
	err = s.upsertMarker(ctx, &models.TableMarker{TableID: id, CleanedAt: &now, UpdatedAt: now}, storage.Patch{
		"customer_name": "",
		"seated_at":     nil,
		"cleaned_at":    now,
		"updated_at":    now,
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithTableID(ctx, id)
	s.logg.Info(ctx, "table cleaned")
	return s.changed(ctx, id)
}

func (s *service) upsertMarker(ctx context.Context, marker *models.TableMarker, patch storage.Patch) error {
	_, err := s.markers.Put(ctx, marker)
	if errors.Is(err, storage.ErrDuplicate) {
		_, err = s.markers.Update(ctx, marker.TableID, patch)
	}
	return err
}

func (s *service) changed(ctx context.Context, id string) (*TableView, error) {
	view, err := s.view(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, broadcast.Event{
		Name:     enums.EventTableUpdate,
		TableID:  id,
		EntityID: id,
		Payload:  view,
	})
	return view, nil
}

func (s *service) view(ctx context.Context, id string) (*TableView, error) {
	all, err := s.GetTables(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].TableID == id {
			return &all[i], nil
		}
	}
	empty := Derive([]string{id}, nil, nil, nil)[0]
	return &empty, nil
}

func normalize(tableID string) (string, error) {
	id, err := types.NormalizeTableID(tableID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid table id")
	}
	return id, nil
}
