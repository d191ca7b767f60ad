package alerts

import (
	"time"

	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/enums"
)

const DefaultMessage = "Staff assistance requested"

type RaiseAlertInput struct {
	CustomerName string
	TableID      string
	Message      string
}

// BulkResult reports a bulk resolve. FailedIDs lists the alerts still open
// because their resolve failed; Err combines those failures.
type BulkResult struct {
	Resolved  int
	Failed    int
	FailedIDs []string
	Err       error
}

type AlertView struct {
	ID           string            `json:"id"`
	TableID      string            `json:"table_id"`
	CustomerName string            `json:"customer_name"`
	Message      string            `json:"message"`
	Response     *string           `json:"response,omitempty"`
	Status       enums.AlertStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	RespondedAt  *time.Time        `json:"responded_at,omitempty"`
	ResolvedAt   *time.Time        `json:"resolved_at,omitempty"`
}

func NewAlertView(c models.StaffCall) AlertView {
	return AlertView{
		ID:           c.ID,
		TableID:      c.TableID,
		CustomerName: c.CustomerName,
		Message:      c.Message,
		Response:     c.Response,
		Status:       c.Status,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		RespondedAt:  c.RespondedAt,
		ResolvedAt:   c.ResolvedAt,
	}
}

func NewAlertViews(list []models.StaffCall) []AlertView {
	out := make([]AlertView, 0, len(list))
	for _, c := range list {
		out = append(out, NewAlertView(c))
	}
	return out
}
