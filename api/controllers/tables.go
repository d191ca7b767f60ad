package controllers

import (
	"net/http"

	"github.com/greenheaven/floorsync/api/responses"
	"github.com/greenheaven/floorsync/api/validators"
	"github.com/greenheaven/floorsync/internal/tables"
	"github.com/greenheaven/floorsync/pkg/logger"
)

type seatTableRequest struct {
	CustomerName string `json:"customer_name" validate:"max=120"`
}

func ListTables(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := svc.GetTables(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

func GetTable(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return tableAction(logg, func(r *http.Request, tableID string) (*tables.TableView, error) {
		return svc.GetTable(r.Context(), tableID)
	})
}

func SeatTable(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
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
		var req seatTableRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		view, err := svc.SeatTable(ctx, tableID, validators.SanitizeText(req.CustomerName, validators.MaxNameLen))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CleanTable releases a table; it fails with TABLE_NOT_EMPTY while orders are open.
func CleanTable(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return tableAction(logg, func(r *http.Request, tableID string) (*tables.TableView, error) {
		return svc.CleanTable(r.Context(), tableID)
	})
}

func tableAction(logg *logger.Logger, action func(*http.Request, string) (*tables.TableView, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, err := pathParam(r, "tableId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			r = r.WithContext(logg.WithTableID(r.Context(), tableID))
		}
		view, err := action(r, tableID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
