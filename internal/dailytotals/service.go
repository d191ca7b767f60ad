package dailytotals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/enums"
	pkgerrors "github.com/greenheaven/floorsync/pkg/errors"
	"github.com/greenheaven/floorsync/pkg/storage"
)

const DateLayout = "2006-01-02"

// Service keeps per-day order counts and revenue. It is the only writer of daily_totals.
type Service interface {
	RecordCompletedOrder(ctx context.Context, order models.Order) (*models.DailyTotal, error)
	RecordCompletionMark(ctx context.Context, mark models.CompletionMark) (*models.DailyTotal, error)
	GetTotals(ctx context.Context, date string) (*models.DailyTotal, error)
	BusinessDate(t time.Time) string
}

type service struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

// NewService builds the aggregator. loc decides which calendar day an order counts toward.
func NewService(repo Repository, loc *time.Location, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("daily totals repository required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, loc: loc, now: now}, nil
}

func (s *service) BusinessDate(t time.Time) string {
	return t.In(s.loc).Format(DateLayout)
}

// RecordCompletedOrder adds the order to its completion day. Callers guarantee it
// runs once per order.
func (s *service) RecordCompletedOrder(ctx context.Context, order models.Order) (*models.DailyTotal, error) {
	if !order.Origin.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOrder, fmt.Sprintf("unknown order origin %q", order.Origin))
	}
	completedAt := s.now()
	if order.CompletedAt != nil {
		completedAt = *order.CompletedAt
	}
	return s.add(ctx, s.BusinessDate(completedAt), order.Origin, order.TotalCents)
}

// RecordCompletionMark adds a completion recorded elsewhere to the mark's own
// business date. Callers guarantee it runs once per mark.
func (s *service) RecordCompletionMark(ctx context.Context, mark models.CompletionMark) (*models.DailyTotal, error) {
	if !mark.Origin.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOrder, fmt.Sprintf("unknown order origin %q", mark.Origin))
	}
	if _, err := time.Parse(DateLayout, mark.BusinessDate); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("business date %q must be YYYY-MM-DD", mark.BusinessDate))
	}
	return s.add(ctx, mark.BusinessDate, mark.Origin, mark.AmountCents)
}

func (s *service) add(ctx context.Context, date string, origin enums.OrderOrigin, cents int64) (*models.DailyTotal, error) {
	now := s.now().UTC()

	if _, err := s.repo.Put(ctx, &models.DailyTotal{Date: date, UpdatedAt: now}); err != nil && !errors.Is(err, storage.ErrDuplicate) {
		return nil, err
	}

	countCol, revenueCol := "digital_orders", "digital_revenue_cents"
	if origin == enums.OrderOriginManual {
		countCol, revenueCol = "manual_orders", "manual_revenue_cents"
	}

	// one statement so totals never disagree with their parts
	row, err := s.repo.Update(ctx, date, storage.Patch{
		countCol:              storage.Increment(countCol, 1),
		revenueCol:            storage.Increment(revenueCol, cents),
		"total_orders":        storage.Increment("total_orders", 1),
		"total_revenue_cents": storage.Increment("total_revenue_cents", cents),
		"updated_at":          now,
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// GetTotals returns the row for date (today when empty), zeros when nothing was recorded.
func (s *service) GetTotals(ctx context.Context, date string) (*models.DailyTotal, error) {
	if date == "" {
		date = s.BusinessDate(s.now())
	} else if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("date %q must be YYYY-MM-DD", date))
	}

	row, err := s.repo.Find(ctx, date)
	if errors.Is(err, storage.ErrNotFound) {
		return &models.DailyTotal{Date: date}, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}
