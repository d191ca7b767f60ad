package tables

import (
	"sort"
	"time"

	"github.com/greenheaven/floorsync/internal/alerts"
	"github.com/greenheaven/floorsync/internal/orders"
	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/enums"
	"github.com/greenheaven/floorsync/pkg/money"
)

// TableView is the derived state of one table.
type TableView struct {
	TableID      string             `json:"table_id"`
	Status       enums.TableStatus  `json:"status"`
	CustomerName string             `json:"customer_name,omitempty"`
	SeatedAt     *time.Time         `json:"seated_at,omitempty"`
	OpenTotal    money.Amount       `json:"open_total"`
	Orders       []orders.OrderView `json:"orders"`
	Alerts       []alerts.AlertView `json:"alerts"`
}

type tableState struct {
	orders []models.Order
	alerts []models.StaffCall
	marker *models.TableMarker
}

// Derive projects tables from live records. Layout tables always appear, in
// layout order, followed by any other table a live record points at, sorted by id.
// Only open orders, unresolved alerts and seated markers count as live.
func Derive(layout []string, orderList []models.Order, alertList []models.StaffCall, markers []models.TableMarker) []TableView {
	states := map[string]*tableState{}
	stateFor := func(id string) *tableState {
		st, ok := states[id]
		if !ok {
			st = &tableState{}
			states[id] = st
		}
		return st
	}

	for _, o := range orderList {
		if o.IsOpen() {
			st := stateFor(o.TableID)
			st.orders = append(st.orders, o)
		}
	}
	for _, a := range alertList {
		if a.Status.IsOpen() {
			st := stateFor(a.TableID)
			st.alerts = append(st.alerts, a)
		}
	}
	for i := range markers {
		if markers[i].Seated() {
			stateFor(markers[i].TableID).marker = &markers[i]
		}
	}

	ids := make([]string, 0, len(layout)+len(states))
	seen := map[string]bool{}
	for _, id := range layout {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	var extra []string
	for id := range states {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	ids = append(ids, extra...)

	out := make([]TableView, 0, len(ids))
	for _, id := range ids {
		st := states[id]
		if st == nil {
			st = &tableState{}
		}
		out = append(out, st.view(id))
	}
	return out
}

func (st *tableState) view(id string) TableView {
	sort.SliceStable(st.orders, func(i, j int) bool {
		return earlier(st.orders[i].CreatedAt, st.orders[j].CreatedAt, st.orders[i].ID, st.orders[j].ID)
	})
	sort.SliceStable(st.alerts, func(i, j int) bool {
		return earlier(st.alerts[i].CreatedAt, st.alerts[j].CreatedAt, st.alerts[i].ID, st.alerts[j].ID)
	})

	view := TableView{
		TableID: id,
		Status:  enums.TableStatusEmpty,
		Orders:  orders.NewOrderViews(st.orders),
		Alerts:  alerts.NewAlertViews(st.alerts),
	}
	var total int64
	for _, o := range st.orders {
		total += o.TotalCents
	}
	view.OpenTotal = money.FromCents(total)

	switch {
	case len(st.alerts) > 0:
		view.Status = enums.TableStatusNeedsAttention
	case len(st.orders) > 0 || st.marker != nil:
		view.Status = enums.TableStatusOccupied
	}

	switch {
	case len(st.orders) > 0:
		view.CustomerName = st.orders[len(st.orders)-1].CustomerName
	case st.marker != nil:
		view.CustomerName = st.marker.CustomerName
	case len(st.alerts) > 0:
		view.CustomerName = st.alerts[len(st.alerts)-1].CustomerName
	}

	switch {
	case st.marker != nil:
		seated := *st.marker.SeatedAt
		view.SeatedAt = &seated
	case len(st.orders) > 0:
		seated := st.orders[0].CreatedAt
		view.SeatedAt = &seated
	}
	return view
}

func earlier(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return idA < idB
}
