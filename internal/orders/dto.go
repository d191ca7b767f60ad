package orders

import (
	"time"

	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/enums"
	"github.com/greenheaven/floorsync/pkg/money"
)

const (
	DefaultManualCustomer = "Walk-in Customer"
	DefaultManualTable    = "Takeout"
)

// MaxQuantity caps a single line item.
const MaxQuantity = 1000

// totalTolerance is how far a client-computed total may drift from the line items.
const totalTolerance = money.Amount(1)

// LineItemInput is one requested menu item.
type LineItemInput struct {
	MenuItemID string
	Name       string
	UnitPrice  money.Amount
	Quantity   int
}

// PlaceOrderInput carries a table-side order. ExpectedTotal is the client's own
// sum, checked when present.
type PlaceOrderInput struct {
	CustomerName  string
	TableID       string
	Items         []LineItemInput
	ExpectedTotal *money.Amount
}

// ManualOrderInput carries a staff-entered order without structured items.
type ManualOrderInput struct {
	CustomerName string
	TableID      string
	Description  string
	Total        money.Amount
	Notes        string
}

// ListFilter narrows ListOrders; zero fields match everything. Date is a
// business date (YYYY-MM-DD) of creation.
type ListFilter struct {
	Status  enums.OrderStatus
	TableID string
	Origin  enums.OrderOrigin
	Date    string
}

// Stats counts orders by status.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Preparing int `json:"preparing"`
	Ready     int `json:"ready"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

type LineItemView struct {
	MenuItemID string       `json:"menu_item_id"`
	Name       string       `json:"name"`
	UnitPrice  money.Amount `json:"unit_price"`
	Quantity   int          `json:"quantity"`
	Subtotal   money.Amount `json:"subtotal"`
}

// OrderView is the wire shape of an order for API responses and events.
type OrderView struct {
	ID               string            `json:"id"`
	CustomerName     string            `json:"customer_name"`
	TableID          string            `json:"table_id"`
	Items            []LineItemView    `json:"items"`
	ItemsDescription *string           `json:"items_description,omitempty"`
	Notes            *string           `json:"notes,omitempty"`
	Total            money.Amount      `json:"total"`
	Status           enums.OrderStatus `json:"status"`
	Origin           enums.OrderOrigin `json:"origin"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	CancelledAt      *time.Time        `json:"cancelled_at,omitempty"`
}

func NewOrderView(o models.Order) OrderView {
	items := make([]LineItemView, 0, len(o.Items))
	for _, item := range o.Items {
		// stored items passed the same overflow check when the order was placed
		subtotal, _ := item.SubtotalCents()
		items = append(items, LineItemView{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			UnitPrice:  money.FromCents(item.UnitPriceCents),
			Quantity:   item.Quantity,
			Subtotal:   money.FromCents(subtotal),
		})
	}
	return OrderView{
		ID:               o.ID,
		CustomerName:     o.CustomerName,
		TableID:          o.TableID,
		Items:            items,
		ItemsDescription: o.ItemsDescription,
		Notes:            o.Notes,
		Total:            money.FromCents(o.TotalCents),
		Status:           o.Status,
		Origin:           o.Origin,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		CompletedAt:      o.CompletedAt,
		CancelledAt:      o.CancelledAt,
	}
}

func NewOrderViews(list []models.Order) []OrderView {
	out := make([]OrderView, 0, len(list))
	for _, o := range list {
		out = append(out, NewOrderView(o))
	}
	return out
}
