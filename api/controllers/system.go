package controllers

import (
	"context"
	"net/http"

	"github.com/greenheaven/floorsync/api/responses"
	"github.com/greenheaven/floorsync/pkg/config"
	"github.com/greenheaven/floorsync/pkg/storage"
)

// StatusSource reports the engine's runtime wiring.
type StatusSource interface {
	StorageStatus(ctx context.Context) storage.Status
	LiveUpdates() bool
}

type systemStatusResponse struct {
	Env                 string         `json:"env"`
	InstanceID          string         `json:"instance_id,omitempty"`
	Storage             storage.Status `json:"storage"`
	LiveUpdates         bool           `json:"live_updates"`
	Bridge              string         `json:"bridge"`
	PollIntervalSeconds int            `json:"poll_interval_seconds"`
	TimeZone            string         `json:"time_zone"`
	Tables              []string       `json:"tables"`
}

// SystemStatus tells dashboards whether they are running against the local
// fallback store and whether live updates are on.
func SystemStatus(cfg *config.Config, src StatusSource, instanceID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, systemStatusResponse{
			Env:                 cfg.App.Env,
			InstanceID:          instanceID,
			Storage:             src.StorageStatus(r.Context()),
			LiveUpdates:         src.LiveUpdates(),
			Bridge:              cfg.Broadcast.BridgeKind(),
			PollIntervalSeconds: int(cfg.Broadcast.PollInterval.Seconds()),
			TimeZone:            cfg.App.TimeZone,
			Tables:              cfg.Floor.Tables,
		})
	}
}
