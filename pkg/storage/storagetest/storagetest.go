// Package storagetest opens throwaway adapters backed by a migrated sqlite file.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/greenheaven/floorsync/pkg/config"
	"github.com/greenheaven/floorsync/pkg/storage"
)

// Open returns a degraded-mode adapter on a fresh local store, closed with the test.
func Open(t testing.TB) *storage.Adapter {
	t.Helper()
	adapter, err := storage.Open(context.Background(), storage.Params{
		Config: config.StorageConfig{
			DataDir:     t.TempDir(),
			AutoMigrate: true,
			OpTimeout:   5 * time.Second,
		},
	})
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter
}

// Clock is a settable time source for tests.
type Clock struct {
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
