package models

import "time"

// TableMarker records explicit seating and cleaning of a table.
type TableMarker struct {
	TableID      string     `gorm:"column:table_id;primaryKey"`
	CustomerName string     `gorm:"column:customer_name;not null"`
	SeatedAt     *time.Time `gorm:"column:seated_at"`
	CleanedAt    *time.Time `gorm:"column:cleaned_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

// Seated reports whether the table was seated and not cleaned since.
func (m TableMarker) Seated() bool {
	return m.SeatedAt != nil
}
