package controllers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenheaven/floorsync/internal/broadcast"
	"github.com/greenheaven/floorsync/pkg/enums"
)

type sseFrame struct {
	id    string
	event string
	data  string
}

// readFrame returns the next frame that carries an event, skipping retry hints and comments.
func readFrame(t *testing.T, sc *bufio.Scanner) sseFrame {
	t.Helper()
	var frame sseFrame
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if frame.event != "" {
				return frame
			}
		case strings.HasPrefix(line, "id: "):
			frame.id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			frame.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			frame.data = strings.TrimPrefix(line, "data: ")
		}
	}
	t.Fatalf("stream ended early: %v", sc.Err())
	return frame
}

func openStream(t *testing.T, srv *httptest.Server, path string) (*bufio.Scanner, *http.Response) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return bufio.NewScanner(resp.Body), resp
}

func TestStreamsDeliverByRoom(t *testing.T) {
	hub := broadcast.NewHub(broadcast.Options{PollInterval: 12 * time.Second})
	r := chi.NewRouter()
	r.Get("/stream/staff", StaffStream(hub, time.Minute, nil))
	r.Get("/stream/tables/{tableId}", TableStream(hub, time.Minute, nil))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	staff, resp := openStream(t, srv, "/stream/staff")
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	hello := readFrame(t, staff)
	require.Equal(t, "hello", hello.event)
	var greeting streamHello
	require.NoError(t, json.Unmarshal([]byte(hello.data), &greeting))
	assert.Equal(t, 12, greeting.PollIntervalSeconds)
	assert.Equal(t, []string{broadcast.StaffRoom}, greeting.Rooms)

	table, _ := openStream(t, srv, "/stream/tables/T-3")
	require.Equal(t, "hello", readFrame(t, table).event)

	ctx := context.Background()
	hub.Publish(ctx, broadcast.Event{Name: enums.EventTableUpdate, TableID: "T-3", EntityID: "T-3"})
	hub.Publish(ctx, broadcast.Event{Name: enums.EventNewOrder, TableID: "T-3", EntityID: "order-1"})

	first := readFrame(t, staff)
	assert.Equal(t, "table_update", first.event)
	second := readFrame(t, staff)
	assert.Equal(t, "new_order", second.event)
	assert.Equal(t, "order-1", second.id)

	// table rooms skip table_update
	got := readFrame(t, table)
	assert.Equal(t, "new_order", got.event)
	var evt broadcast.Event
	require.NoError(t, json.Unmarshal([]byte(got.data), &evt))
	assert.Equal(t, "T-3", evt.TableID)
	assert.False(t, evt.At.IsZero())
}

func TestTableStreamRejectsBadTable(t *testing.T) {
	hub := broadcast.NewHub(broadcast.Options{})
	r := chi.NewRouter()
	r.Get("/stream/tables/{tableId}", TableStream(hub, time.Minute, nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/tables/"+strings.Repeat("9", 40), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, hub.Subscribers(broadcast.TableRoom(strings.Repeat("9", 40))))
}

func TestStreamUnsubscribesOnDisconnect(t *testing.T) {
	hub := broadcast.NewHub(broadcast.Options{})
	srv := httptest.NewServer(StaffStream(hub, time.Minute, nil))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	sc := bufio.NewScanner(resp.Body)
	require.Equal(t, "hello", readFrame(t, sc).event)
	require.Equal(t, 1, hub.Subscribers(broadcast.StaffRoom))

	cancel()
	_ = resp.Body.Close()
	require.Eventually(t, func() bool {
		return hub.Subscribers(broadcast.StaffRoom) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
