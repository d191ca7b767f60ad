package dailytotals

import (
	"time"

	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/money"
)

// TotalsView is the wire shape of one business day's counters.
type TotalsView struct {
	Date           string       `json:"date"`
	DigitalOrders  int64        `json:"digital_orders"`
	DigitalRevenue money.Amount `json:"digital_revenue"`
	ManualOrders   int64        `json:"manual_orders"`
	ManualRevenue  money.Amount `json:"manual_revenue"`
	TotalOrders    int64        `json:"total_orders"`
	TotalRevenue   money.Amount `json:"total_revenue"`
	UpdatedAt      *time.Time   `json:"updated_at,omitempty"`
}

func NewTotalsView(row models.DailyTotal) TotalsView {
	view := TotalsView{
		Date:           row.Date,
		DigitalOrders:  row.DigitalOrders,
		DigitalRevenue: money.FromCents(row.DigitalRevenueCents),
		ManualOrders:   row.ManualOrders,
		ManualRevenue:  money.FromCents(row.ManualRevenueCents),
		TotalOrders:    row.TotalOrders,
		TotalRevenue:   money.FromCents(row.TotalRevenueCents),
	}
	if !row.UpdatedAt.IsZero() {
		updated := row.UpdatedAt
		view.UpdatedAt = &updated
	}
	return view
}
