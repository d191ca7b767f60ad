package instance

import (
	"os"

	"github.com/google/uuid"

	"github.com/greenheaven/floorsync/pkg/env"
)

// GetID returns the process instance identifier used to tag bridged events.
// It prefers an explicit FLOOR_INSTANCE_ID, then the platform dyno name, then the hostname.
func GetID() string {
	if id := env.First("", "FLOOR_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host + "-" + uuid.NewString()[:8]
	}
	return "node-" + uuid.NewString()[:8]
}
