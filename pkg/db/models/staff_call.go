package models

import (
	"time"

	"github.com/greenheaven/floorsync/pkg/enums"
)

// StaffCall is an assistance request raised from a table.
type StaffCall struct {
	ID           string            `gorm:"column:id;primaryKey"`
	TableID      string            `gorm:"column:table_id;not null"`
	CustomerName string            `gorm:"column:customer_name;not null"`
	Message      string            `gorm:"column:message;not null"`
	Response     *string           `gorm:"column:response"`
	Status       enums.AlertStatus `gorm:"column:status;not null"`
	CreatedAt    time.Time         `gorm:"column:created_at"`
	UpdatedAt    time.Time         `gorm:"column:updated_at"`
	RespondedAt  *time.Time        `gorm:"column:responded_at"`
	ResolvedAt   *time.Time        `gorm:"column:resolved_at"`
}
