package enums

// EventName identifies a broadcast state-change event.
type EventName string

const (
	EventNewOrder           EventName = "new_order"
	EventOrderStatusUpdated EventName = "order_status_updated"
	EventNewAlert           EventName = "new_alert"
	EventAlertUpdated       EventName = "alert_updated"
	EventAlertResolved      EventName = "alert_resolved"
	EventTableUpdate        EventName = "table_update"
)

var validEventNames = []EventName{
	EventNewOrder,
	EventOrderStatusUpdated,
	EventNewAlert,
	EventAlertUpdated,
	EventAlertResolved,
	EventTableUpdate,
}

// String implements fmt.Stringer.
func (e EventName) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EventName.
func (e EventName) IsValid() bool {
	for _, candidate := range validEventNames {
		if candidate == e {
			return true
		}
	}
	return false
}

// ReachesTable reports whether the event is also delivered to the owning table's room.
func (e EventName) ReachesTable() bool {
	switch e {
	case EventNewOrder, EventOrderStatusUpdated, EventAlertUpdated, EventAlertResolved:
		return true
	default:
		return false
	}
}
