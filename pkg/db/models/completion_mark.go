package models

import (
	"time"

	"github.com/greenheaven/floorsync/pkg/enums"
)

// CompletionMark is written once per order when it first reaches completed.
// Applied flips to true once the amount has been added to daily totals.
type CompletionMark struct {
	OrderID      string            `gorm:"column:order_id;primaryKey"`
	Origin       enums.OrderOrigin `gorm:"column:origin;not null"`
	AmountCents  int64             `gorm:"column:amount_cents;not null"`
	BusinessDate string            `gorm:"column:business_date;not null"`
	Applied      bool              `gorm:"column:applied;not null"`
	CreatedAt    time.Time         `gorm:"column:created_at"`
}
