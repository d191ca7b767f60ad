package broadcast

import (
	"context"
	"time"

	"github.com/greenheaven/floorsync/pkg/enums"
)

// StaffRoom receives every event.
const StaffRoom = "staff"

const tableRoomPrefix = "table:"

// TableRoom names the room a table's own devices join.
func TableRoom(tableID string) string {
	return tableRoomPrefix + tableID
}

// Event is one state change pushed to live viewers.
type Event struct {
	Name     enums.EventName `json:"event"`
	TableID  string          `json:"table_id,omitempty"`
	EntityID string          `json:"entity_id"`
	Payload  any             `json:"payload,omitempty"`
	Origin   string          `json:"origin,omitempty"`
	At       time.Time       `json:"at"`
}

// Rooms returns the audience of evt: staff always, the owning table for
// order and alert progress.
func Rooms(evt Event) []string {
	rooms := []string{StaffRoom}
	if evt.TableID != "" && evt.Name.ReachesTable() {
		rooms = append(rooms, TableRoom(evt.TableID))
	}
	return rooms
}

// Publisher accepts events; delivery problems never surface to the caller.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// Discard drops every event. The engine stays correct without a live layer.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
