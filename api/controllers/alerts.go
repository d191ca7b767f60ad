package controllers

import (
	"context"
	"net/http"

	"github.com/greenheaven/floorsync/api/responses"
	"github.com/greenheaven/floorsync/api/validators"
	"github.com/greenheaven/floorsync/internal/alerts"
	"github.com/greenheaven/floorsync/pkg/db/models"
	pkgerrors "github.com/greenheaven/floorsync/pkg/errors"
	"github.com/greenheaven/floorsync/pkg/logger"
)

type raiseAlertRequest struct {
	CustomerName string `json:"customer_name" validate:"max=120"`
	TableID      string `json:"table_id" validate:"omitempty,table_id"`
	Message      string `json:"message" validate:"max=500"`
}

type respondAlertRequest struct {
	Response string `json:"response" validate:"required,max=500"`
}

type bulkClearResponse struct {
	Resolved  int      `json:"resolved"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failed_ids"`
}

func RaiseAlert(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req raiseAlertRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		call, err := svc.RaiseAlert(r.Context(), alerts.RaiseAlertInput{
			CustomerName: validators.SanitizeText(req.CustomerName, validators.MaxNameLen),
			TableID:      req.TableID,
			Message:      validators.SanitizeText(req.Message, validators.MaxMessageLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, alerts.NewAlertView(*call))
	}
}

func AcknowledgeAlert(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return alertAction(logg, svc.AcknowledgeAlert)
}

func ResolveAlert(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return alertAction(logg, svc.ResolveAlert)
}

func RespondToAlert(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alertID, err := pathParam(r, "alertId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithAlertID(ctx, alertID)
		}

		var req respondAlertRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		call, err := svc.RespondToAlert(ctx, alertID, validators.SanitizeText(req.Response, validators.MaxMessageLen))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, alerts.NewAlertView(*call))
	}
}

// ListAlerts returns every alert, or only open ones with ?unresolved=true.
func ListAlerts(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unresolved, err := validators.ParseQueryBool(r, "unresolved", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListAlerts(r.Context(), unresolved)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, alerts.NewAlertViews(list))
	}
}

// ClearTableAlerts resolves every open alert of one table.
func ClearTableAlerts(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, err := pathParam(r, "tableId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithTableID(ctx, tableID)
		}
		writeBulkResult(ctx, logg, w, svc.ClearAllForTable(ctx, tableID))
	}
}

func ClearAllAlerts(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeBulkResult(r.Context(), logg, w, svc.ClearAll(r.Context()))
	}
}

func alertAction(logg *logger.Logger, action func(context.Context, string) (*models.StaffCall, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alertID, err := pathParam(r, "alertId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithAlertID(ctx, alertID)
		}
		call, err := action(ctx, alertID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, alerts.NewAlertView(*call))
	}
}

// writeBulkResult reports partial failures with the ids left open. Nothing
// resolved and something failed is surfaced as the underlying error.
func writeBulkResult(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, res alerts.BulkResult) {
	if res.Err != nil {
		if res.Resolved == 0 {
			if typed := pkgerrors.As(res.Err); typed != nil {
				responses.WriteError(ctx, logg, w, res.Err)
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnavailable, res.Err, "clear alerts"))
			return
		}
		if logg != nil {
			logg.Warn(logg.WithFields(ctx, map[string]any{
				"resolved":   res.Resolved,
				"failed":     res.Failed,
				"failed_ids": res.FailedIDs,
				"error":      res.Err.Error(),
			}), "alerts.clear.partial")
		}
	}
	failedIDs := res.FailedIDs
	if failedIDs == nil {
		failedIDs = []string{}
	}
	responses.WriteSuccess(w, bulkClearResponse{Resolved: res.Resolved, Failed: res.Failed, FailedIDs: failedIDs})
}
