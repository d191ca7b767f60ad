package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/greenheaven/floorsync/api/responses"
	"github.com/greenheaven/floorsync/internal/broadcast"
	pkgerrors "github.com/greenheaven/floorsync/pkg/errors"
	"github.com/greenheaven/floorsync/pkg/logger"
	"github.com/greenheaven/floorsync/pkg/types"
)

const defaultKeepAlive = 20 * time.Second

// Subscriber hands out live subscriptions.
type Subscriber interface {
	Subscribe(rooms ...string) *broadcast.Subscription
}

type streamHello struct {
	SubscriptionID      string   `json:"subscription_id"`
	Rooms               []string `json:"rooms"`
	PollIntervalSeconds int      `json:"poll_interval_seconds"`
}

// StaffStream pushes every event to a staff dashboard as server-sent events.
func StaffStream(hub Subscriber, keepAlive time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveStream(w, r, hub, keepAlive, logg, broadcast.StaffRoom)
	}
}

// TableStream pushes the events of one table to its tablet.
func TableStream(hub Subscriber, keepAlive time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := pathParam(r, "tableId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tableID, err := types.NormalizeTableID(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()))
			return
		}
		if logg != nil {
			r = r.WithContext(logg.WithTableID(r.Context(), tableID))
		}
		serveStream(w, r, hub, keepAlive, logg, broadcast.TableRoom(tableID))
	}
}

// serveStream writes one subscription until the client goes away. Nothing is
// replayed on reconnect; clients reconcile with a snapshot every poll interval.
func serveStream(w http.ResponseWriter, r *http.Request, hub Subscriber, keepAlive time.Duration, logg *logger.Logger, rooms ...string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
		return
	}
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}

	sub := hub.Subscribe(rooms...)
	defer sub.Close()

	ctx := r.Context()
	if logg != nil {
		ctx = logg.WithField(ctx, "subscription_id", sub.ID())
		logg.Info(ctx, "stream.open")
		defer logg.Info(ctx, "stream.closed")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	poll := sub.PollInterval()
	fmt.Fprintf(w, "retry: %d\n\n", poll.Milliseconds())
	if err := writeEvent(w, "", "hello", streamHello{
		SubscriptionID:      sub.ID(),
		Rooms:               sub.Rooms(),
		PollIntervalSeconds: int(poll.Seconds()),
	}); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case evt, open := <-sub.Events():
			if !open {
				return
			}
			if err := writeEvent(w, evt.EntityID, string(evt.Name), evt); err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "stream.write_failed")
				}
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, id, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if id != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", id); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
