package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/greenheaven/floorsync/pkg/enums"
	"github.com/greenheaven/floorsync/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func drain(sub *Subscription) []Event {
	var out []Event
	for {
		select {
		case evt, ok := <-sub.Events():
			if !ok {
				return out
			}
			out = append(out, evt)
		default:
			return out
		}
	}
}

func TestRoomsByEvent(t *testing.T) {
	cases := map[enums.EventName][]string{
		enums.EventOrderStatusUpdated: {StaffRoom, "table:T-3"},
		enums.EventNewOrder:           {StaffRoom, "table:T-3"},
		enums.EventAlertUpdated:       {StaffRoom, "table:T-3"},
		enums.EventAlertResolved:      {StaffRoom, "table:T-3"},
		enums.EventNewAlert:           {StaffRoom},
		enums.EventTableUpdate:        {StaffRoom},
	}
	for name, want := range cases {
		require.Equal(t, want, Rooms(Event{Name: name, TableID: "T-3"}), name)
	}
	require.Equal(t, []string{StaffRoom}, Rooms(Event{Name: enums.EventNewOrder}))
}

func TestPublishReachesTableAndStaffOnly(t *testing.T) {
	hub := NewHub(Options{})
	staff := hub.Subscribe(StaffRoom)
	table3 := hub.Subscribe(TableRoom("T-3"))
	table4 := hub.Subscribe(TableRoom("4"))
	defer staff.Close()
	defer table3.Close()
	defer table4.Close()

	hub.Publish(context.Background(), Event{Name: enums.EventOrderStatusUpdated, TableID: "T-3", EntityID: "o1"})
	hub.Publish(context.Background(), Event{Name: enums.EventNewAlert, TableID: "T-3", EntityID: "a1"})

	require.Len(t, drain(staff), 2)
	got := drain(table3)
	require.Len(t, got, 1)
	require.Equal(t, "o1", got[0].EntityID)
	require.Equal(t, hub.InstanceID(), got[0].Origin)
	require.False(t, got[0].At.IsZero())
	require.Empty(t, drain(table4))
}

func TestSubscriberInBothRoomsGetsOneCopy(t *testing.T) {
	hub := NewHub(Options{})
	sub := hub.Subscribe(StaffRoom, TableRoom("2"))
	defer sub.Close()

	hub.Publish(context.Background(), Event{Name: enums.EventNewOrder, TableID: "2", EntityID: "o1"})
	require.Len(t, drain(sub), 1)
}

func TestFullSubscriberDropsSilently(t *testing.T) {
	reg := prometheus.NewRegistry()
	hub := NewHub(Options{BufferSize: 1, Metrics: metrics.NewBroadcastMetrics(reg)})
	slow := hub.Subscribe(StaffRoom)
	defer slow.Close()

	for i := 0; i < 3; i++ {
		hub.Publish(context.Background(), Event{Name: enums.EventTableUpdate, TableID: "1"})
	}
	require.Len(t, drain(slow), 1)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var dropped float64
	for _, mf := range mfs {
		if mf.GetName() == "broadcast_dropped" {
			dropped = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	require.Equal(t, float64(2), dropped)
}

func TestCloseUnsubscribesAndClosesChannel(t *testing.T) {
	hub := NewHub(Options{PollInterval: 20 * time.Second})
	sub := hub.Subscribe(StaffRoom)
	require.Equal(t, 20*time.Second, sub.PollInterval())
	require.NotEmpty(t, sub.ID())
	require.Equal(t, 1, hub.Subscribers(StaffRoom))

	sub.Close()
	sub.Close()
	require.Equal(t, 0, hub.Subscribers(StaffRoom))
	_, ok := <-sub.Events()
	require.False(t, ok)

	// publishing after close must not panic
	hub.Publish(context.Background(), Event{Name: enums.EventTableUpdate})
}

func TestReconnectDoesNotReplay(t *testing.T) {
	hub := NewHub(Options{})
	first := hub.Subscribe(TableRoom("5"))
	first.Close()

	hub.Publish(context.Background(), Event{Name: enums.EventOrderStatusUpdated, TableID: "5"})

	second := hub.Subscribe(TableRoom("5"))
	defer second.Close()
	require.Empty(t, drain(second))
}

func TestConcurrentPublishAndClose(t *testing.T) {
	hub := NewHub(Options{BufferSize: 4})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		sub := hub.Subscribe(StaffRoom)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.Publish(context.Background(), Event{Name: enums.EventNewAlert, TableID: "1"})
			}
		}()
		go func() {
			defer wg.Done()
			sub.Close()
		}()
	}
	wg.Wait()
	require.Equal(t, 0, hub.Subscribers(StaffRoom))
}

func TestDiscardPublisher(t *testing.T) {
	var p Publisher = Discard{}
	p.Publish(context.Background(), Event{Name: enums.EventNewOrder})
}

func TestRunWithoutBridgeReturns(t *testing.T) {
	require.NoError(t, NewHub(Options{}).Run(context.Background()))
}
