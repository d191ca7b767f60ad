package models

import "time"

// DailyTotal holds running order counts and revenue for one business date.
type DailyTotal struct {
	Date                string    `gorm:"column:date;primaryKey"`
	DigitalOrders       int64     `gorm:"column:digital_orders;not null"`
	DigitalRevenueCents int64     `gorm:"column:digital_revenue_cents;not null"`
	ManualOrders        int64     `gorm:"column:manual_orders;not null"`
	ManualRevenueCents  int64     `gorm:"column:manual_revenue_cents;not null"`
	TotalOrders         int64     `gorm:"column:total_orders;not null"`
	TotalRevenueCents   int64     `gorm:"column:total_revenue_cents;not null"`
	UpdatedAt           time.Time `gorm:"column:updated_at"`
}
