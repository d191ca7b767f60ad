package controllers

import (
	"net/http"

	"github.com/greenheaven/floorsync/api/responses"
	"github.com/greenheaven/floorsync/api/validators"
	"github.com/greenheaven/floorsync/internal/dailytotals"
	"github.com/greenheaven/floorsync/pkg/logger"
)

// DailyTotals returns the counters for ?date=YYYY-MM-DD, today when omitted.
func DailyTotals(svc dailytotals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.GetTotals(r.Context(), date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dailytotals.NewTotalsView(*row))
	}
}
