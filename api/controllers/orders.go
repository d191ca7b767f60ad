package controllers

import (
	"net/http"
	"strings"

	"github.com/greenheaven/floorsync/api/responses"
	"github.com/greenheaven/floorsync/api/validators"
	"github.com/greenheaven/floorsync/internal/orders"
	"github.com/greenheaven/floorsync/pkg/enums"
	pkgerrors "github.com/greenheaven/floorsync/pkg/errors"
	"github.com/greenheaven/floorsync/pkg/logger"
	"github.com/greenheaven/floorsync/pkg/money"
)

type lineItemRequest struct {
	MenuItemID string       `json:"menu_item_id" validate:"max=64"`
	Name       string       `json:"name" validate:"max=120"`
	UnitPrice  money.Amount `json:"unit_price"`
	Quantity   int          `json:"quantity" validate:"lte=1000"`
}

type placeOrderRequest struct {
	CustomerName string            `json:"customer_name" validate:"max=120"`
	TableID      string            `json:"table_id" validate:"omitempty,table_id"`
	Items        []lineItemRequest `json:"items" validate:"dive"`
	Total        *money.Amount     `json:"total,omitempty"`
}

type manualOrderRequest struct {
	CustomerName string       `json:"customer_name" validate:"max=120"`
	TableID      string       `json:"table_id" validate:"omitempty,table_id"`
	Description  string       `json:"items_description" validate:"max=1000"`
	Total        money.Amount `json:"total"`
	Notes        string       `json:"notes" validate:"max=1000"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PlaceOrder accepts a table-side order and returns it in pending status.
func PlaceOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req placeOrderRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.PlaceOrderInput{
			CustomerName:  validators.SanitizeText(req.CustomerName, validators.MaxNameLen),
			TableID:       req.TableID,
			ExpectedTotal: req.Total,
		}
		for _, item := range req.Items {
			input.Items = append(input.Items, orders.LineItemInput{
				MenuItemID: strings.TrimSpace(item.MenuItemID),
				Name:       validators.SanitizeText(item.Name, validators.MaxNameLen),
				UnitPrice:  item.UnitPrice,
				Quantity:   item.Quantity,
			})
		}

		order, err := svc.PlaceOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orders.NewOrderView(*order))
	}
}

// RecordManualOrder stores a staff-entered order.
func RecordManualOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req manualOrderRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RecordManualOrder(r.Context(), orders.ManualOrderInput{
			CustomerName: validators.SanitizeText(req.CustomerName, validators.MaxNameLen),
			TableID:      req.TableID,
			Description:  validators.SanitizeText(req.Description, validators.MaxNotesLen),
			Total:        req.Total,
			Notes:        validators.SanitizeText(req.Notes, validators.MaxNotesLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orders.NewOrderView(*order))
	}
}

func UpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID)
		}

		var req updateStatusRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		next := enums.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
		order, err := svc.UpdateStatus(ctx, orderID, next)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewOrderView(*order))
	}
}

func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewOrderView(*order))
	}
}

// ListOrders supports status, table_id, origin and date query filters.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := validators.ParseQueryOrderStatus(r, "status")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		origin, err := validators.ParseQueryOrderOrigin(r, "origin")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListOrders(r.Context(), orders.ListFilter{
			Status:  status,
			TableID: strings.TrimSpace(r.URL.Query().Get("table_id")),
			Origin:  origin,
			Date:    date,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewOrderViews(list))
	}
}

func OrderStats(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order ledger unavailable"))
			return
		}
		stats, err := svc.StatsSummary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
