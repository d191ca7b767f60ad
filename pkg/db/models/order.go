package models

import (
	"time"

	"github.com/greenheaven/floorsync/pkg/enums"
	"github.com/greenheaven/floorsync/pkg/money"
)

// LineItem is a snapshot of a menu item at the time it was ordered.
type LineItem struct {
	MenuItemID     string `json:"menu_item_id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

// SubtotalCents returns unit price times quantity, or money.ErrOutOfRange.
func (l LineItem) SubtotalCents() (int64, error) {
	sub, err := money.FromCents(l.UnitPriceCents).Times(l.Quantity)
	return sub.Cents(), err
}

// Order is stored in the orders collection (digital) or the manual_orders collection (staff-entered).
type Order struct {
	ID               string            `gorm:"column:id;primaryKey"`
	CustomerName     string            `gorm:"column:customer_name;not null"`
	TableID          string            `gorm:"column:table_id;not null"`
	Items            []LineItem        `gorm:"column:items;serializer:json"`
	ItemsDescription *string           `gorm:"column:items_description"`
	Notes            *string           `gorm:"column:notes"`
	TotalCents       int64             `gorm:"column:total_cents;not null"`
	Status           enums.OrderStatus `gorm:"column:status;not null"`
	Origin           enums.OrderOrigin `gorm:"column:origin;not null"`
	CreatedAt        time.Time         `gorm:"column:created_at"`
	UpdatedAt        time.Time         `gorm:"column:updated_at"`
	CompletedAt      *time.Time        `gorm:"column:completed_at"`
	CancelledAt      *time.Time        `gorm:"column:cancelled_at"`
}

// ItemsTotalCents sums the line items, or returns money.ErrOutOfRange.
func (o Order) ItemsTotalCents() (int64, error) {
	var total money.Amount
	for _, item := range o.Items {
		sub, err := item.SubtotalCents()
		if err != nil {
			return 0, err
		}
		if total, err = total.Plus(money.FromCents(sub)); err != nil {
			return 0, err
		}
	}
	return total.Cents(), nil
}

// IsOpen reports whether the order still occupies its table.
func (o Order) IsOpen() bool {
	return !o.Status.IsTerminal()
}
