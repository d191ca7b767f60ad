package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/greenheaven/floorsync/internal/broadcast"
	"github.com/greenheaven/floorsync/internal/dailytotals"
	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/enums"
	pkgerrors "github.com/greenheaven/floorsync/pkg/errors"
	"github.com/greenheaven/floorsync/pkg/logger"
	"github.com/greenheaven/floorsync/pkg/money"
	"github.com/greenheaven/floorsync/pkg/storage"
	"github.com/greenheaven/floorsync/pkg/types"
)

// Service is the order ledger: digital and manual orders and their status graph.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	RecordManualOrder(ctx context.Context, input ManualOrderInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID string, next enums.OrderStatus) (*models.Order, error)
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]models.Order, error)
	StatsSummary(ctx context.Context) (Stats, error)
}

// Params wires the ledger. Publisher, Logger, Now and NewID are optional.
type Params struct {
	Digital     Repository
	Manual      Repository
	Completions CompletionMarks
	Aggregator  Aggregator
	Publisher   broadcast.Publisher
	Logger      *logger.Logger
	Now         func() time.Time
	NewID       func() string
}

type service struct {
	digital     Repository
	manual      Repository
	completions CompletionMarks
	aggregator  Aggregator
	publisher   broadcast.Publisher
	logg        *logger.Logger
	now         func() time.Time
	newID       func() string
}

func NewService(p Params) (Service, error) {
	if p.Digital == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Manual == nil {
		return nil, fmt.Errorf("manual orders repository required")
	}
	if p.Completions == nil {
		return nil, fmt.Errorf("completion marks repository required")
	}
	if p.Aggregator == nil {
		return nil, fmt.Errorf("daily aggregator required")
	}
	s := &service{
		digital:     p.Digital,
		manual:      p.Manual,
		completions: p.Completions,
		aggregator:  p.Aggregator,
		publisher:   p.Publisher,
		logg:        p.Logger,
		now:         p.Now,
		newID:       p.NewID,
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
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s, nil
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	tableID, err := types.NormalizeTableID(input.TableID)
	if err != nil {
		return nil, invalidOrder(err.Error())
	}
	customer := strings.TrimSpace(input.CustomerName)
	if customer == "" {
		return nil, invalidOrder("customer name is required")
	}
	if len(input.Items) == 0 {
		return nil, invalidOrder("order must contain at least one item")
	}

	items := make([]models.LineItem, 0, len(input.Items))
	problems := map[string]string{}
	for i, in := range input.Items {
		field := fmt.Sprintf("items[%d]", i)
		name := strings.TrimSpace(in.Name)
		switch {
		case strings.TrimSpace(in.MenuItemID) == "":
			problems[field+".menu_item_id"] = "required"
		case name == "":
			problems[field+".name"] = "required"
		case in.Quantity < 1:
			problems[field+".quantity"] = "must be at least 1"
		case in.Quantity > MaxQuantity:
			problems[field+".quantity"] = fmt.Sprintf("must be at most %d", MaxQuantity)
		case in.UnitPrice.NonNegative() != nil:
			problems[field+".unit_price"] = "must not be negative"
		}
		items = append(items, models.LineItem{
			MenuItemID:     strings.TrimSpace(in.MenuItemID),
			Name:           name,
			UnitPriceCents: in.UnitPrice.Cents(),
			Quantity:       in.Quantity,
		})
	}
	if len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOrder, "order contains invalid items").WithDetails(problems)
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:           s.newID(),
		CustomerName: customer,
		TableID:      tableID,
		Items:        items,
		Status:       enums.OrderStatusPending,
		Origin:       enums.OrderOriginDigital,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if order.TotalCents, err = order.ItemsTotalCents(); err != nil {
		return nil, invalidOrder("order total is too large")
	}

	if input.ExpectedTotal != nil {
		computed := money.FromCents(order.TotalCents)
		if !computed.Within(*input.ExpectedTotal, totalTolerance) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidOrder, "order total does not match items").WithDetails(map[string]string{
				"expected": input.ExpectedTotal.String(),
				"computed": computed.String(),
			})
		}
	}

	stored, err := s.digital.Put(ctx, order)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(s.logg.WithTableID(ctx, stored.TableID), stored.ID)
	s.logg.Info(ctx, "order placed")
	s.publish(ctx, enums.EventNewOrder, stored)
	return stored, nil
}

func (s *service) RecordManualOrder(ctx context.Context, input ManualOrderInput) (*models.Order, error) {
	customer := strings.TrimSpace(input.CustomerName)
	if customer == "" {
		customer = DefaultManualCustomer
	}
	rawTable := input.TableID
	if strings.TrimSpace(rawTable) == "" {
		rawTable = DefaultManualTable
	}
	tableID, err := types.NormalizeTableID(rawTable)
	if err != nil {
		return nil, invalidOrder(err.Error())
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, invalidOrder("items description is required")
	}
	if input.Total <= 0 {
		return nil, invalidOrder("total must be greater than zero")
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:               s.newID(),
		CustomerName:     customer,
		TableID:          tableID,
		Items:            []models.LineItem{},
		ItemsDescription: &description,
		TotalCents:       input.Total.Cents(),
		Status:           enums.OrderStatusPending,
		Origin:           enums.OrderOriginManual,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if notes := strings.TrimSpace(input.Notes); notes != "" {
		order.Notes = &notes
	}

	stored, err := s.manual.Put(ctx, order)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(s.logg.WithTableID(ctx, stored.TableID), stored.ID)
	s.logg.Info(ctx, "manual order recorded")
	s.publish(ctx, enums.EventNewOrder, stored)
	return stored, nil
}

// UpdateStatus moves an order along pending -> preparing -> ready -> completed,
// or to cancelled from any open status. The write only lands while the stored
// status is still the one the transition was checked against. Completing an
// order that is already completed finishes a daily totals update an earlier
// call left undone, and is an invalid transition otherwise.
func (s *service) UpdateStatus(ctx context.Context, orderID string, next enums.OrderStatus) (*models.Order, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", next))
	}
	current, repo, err := s.locate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current.Status == enums.OrderStatusCompleted && next == enums.OrderStatusCompleted {
		return s.resumeCompletion(ctx, current)
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, invalidTransition(current.Status, next)
	}

	now := s.now().UTC()
	patch := storage.Patch{"status": next, "updated_at": now}
	switch next {
	case enums.OrderStatusCompleted:
		patch["completed_at"] = now
	case enums.OrderStatusCancelled:
		patch["cancelled_at"] = now
	}

	updated, err := repo.UpdateWhere(ctx, current.ID, storage.Filter{"status": current.Status}, patch)
	switch {
	case errors.Is(err, storage.ErrConflict):
		return nil, invalidTransition(current.Status, next).WithDetails(map[string]string{
			"from":   current.Status.String(),
			"to":     next.String(),
			"reason": "order changed concurrently",
		})
	case errors.Is(err, storage.ErrNotFound):
		return nil, notFound(orderID)
	case err != nil:
		return nil, err
	}

	ctx = s.logg.WithOrderID(s.logg.WithTableID(ctx, updated.TableID), updated.ID)
	s.logg.Info(ctx, fmt.Sprintf("order status %s -> %s", current.Status, next))
	s.publish(ctx, enums.EventOrderStatusUpdated, updated)

	if next == enums.OrderStatusCompleted {
		applied, err := s.recordCompletion(ctx, *updated)
		if err != nil {
			return nil, err
		}
		if !applied {
			s.logg.Warn(ctx, "order already counted toward daily totals")
		}
	}
	return updated, nil
}

// resumeCompletion retries the daily totals step for an order whose status
// already reads completed.
func (s *service) resumeCompletion(ctx context.Context, order *models.Order) (*models.Order, error) {
	ctx = s.logg.WithOrderID(s.logg.WithTableID(ctx, order.TableID), order.ID)
	applied, err := s.recordCompletion(ctx, *order)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, invalidTransition(order.Status, enums.OrderStatusCompleted)
	}
	s.logg.Info(ctx, "finished daily totals for completed order")
	return order, nil
}

// recordCompletion counts the order toward daily totals once. The mark is
// written pending and then applied, and each step can be repeated after a
// failure. It reports whether this call did the counting.
func (s *service) recordCompletion(ctx context.Context, order models.Order) (bool, error) {
	mark, err := s.completionMark(ctx, order)
	if err != nil {
		return false, err
	}
	if mark.Applied {
		return false, nil
	}
	applied, err := dailytotals.ApplyMark(ctx, s.completions, mark.OrderID, func(ctx context.Context) error {
		_, err := s.aggregator.RecordCompletedOrder(ctx, order)
		return err
	})
	if err != nil {
		s.logg.Error(ctx, "failed to record completed order", err)
		return false, err
	}
	return applied, nil
}

// completionMark writes the pending mark for order, or loads the one already stored.
func (s *service) completionMark(ctx context.Context, order models.Order) (*models.CompletionMark, error) {
	completedAt := s.now().UTC()
	if order.CompletedAt != nil {
		completedAt = *order.CompletedAt
	}
	mark, err := s.completions.Put(ctx, &models.CompletionMark{
		OrderID:      order.ID,
		Origin:       order.Origin,
		AmountCents:  order.TotalCents,
		BusinessDate: s.aggregator.BusinessDate(completedAt),
		CreatedAt:    s.now().UTC(),
	})
	if err == nil {
		return mark, nil
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		return nil, err
	}
	return s.completions.Find(ctx, order.ID)
}

func (s *service) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, _, err := s.locate(ctx, orderID)
	return order, err
}

// locate finds an order in either collection and returns the one holding it.
func (s *service) locate(ctx context.Context, orderID string) (*models.Order, Repository, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	for _, repo := range []Repository{s.digital, s.manual} {
		order, err := repo.Find(ctx, id)
		if err == nil {
			return order, repo, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, nil, err
		}
	}
	return nil, nil, notFound(id)
}

// ListOrders merges both collections, newest first with id as tiebreak.
func (s *service) ListOrders(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", filter.Status))
	}
	if filter.Origin != "" && !filter.Origin.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order origin %q", filter.Origin))
	}

	where := storage.Filter{}
	if filter.Status != "" {
		where["status"] = filter.Status
	}
	if filter.TableID != "" {
		tableID, err := types.NormalizeTableID(filter.TableID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid table id")
		}
		where["table_id"] = tableID
	}

	var merged []models.Order
	if filter.Origin == "" || filter.Origin == enums.OrderOriginDigital {
		list, err := s.digital.Get(ctx, where)
		if err != nil {
			return nil, err
		}
		merged = append(merged, list...)
	}
	if filter.Origin == "" || filter.Origin == enums.OrderOriginManual {
		list, err := s.manual.Get(ctx, where)
		if err != nil {
			return nil, err
		}
		merged = append(merged, list...)
	}

	if filter.Date != "" {
		kept := merged[:0]
		for _, o := range merged {
			if s.aggregator.BusinessDate(o.CreatedAt) == filter.Date {
				kept = append(kept, o)
			}
		}
		merged = kept
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.After(merged[j].CreatedAt)
		}
		return merged[i].ID < merged[j].ID
	})
	if merged == nil {
		merged = []models.Order{}
	}
	return merged, nil
}

func (s *service) StatsSummary(ctx context.Context) (Stats, error) {
	list, err := s.ListOrders(ctx, ListFilter{})
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	for _, o := range list {
		stats.Total++
		switch o.Status {
		case enums.OrderStatusPending:
			stats.Pending++
		case enums.OrderStatusPreparing:
			stats.Preparing++
		case enums.OrderStatusReady:
			stats.Ready++
		case enums.OrderStatusCompleted:
			stats.Completed++
		case enums.OrderStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

func (s *service) publish(ctx context.Context, name enums.EventName, order *models.Order) {
	s.publisher.Publish(ctx, broadcast.Event{
		Name:     name,
		TableID:  order.TableID,
		EntityID: order.ID,
		Payload:  NewOrderView(*order),
	})
}

func invalidOrder(msg string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInvalidOrder, msg)
}

func invalidTransition(from, to enums.OrderStatus) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot move order from %s to %s", from, to))
}

func notFound(id string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %s not found", id))
}
