package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/greenheaven/floorsync/pkg/db"
	"github.com/greenheaven/floorsync/pkg/logger"
	"gorm.io/gorm"
)

// ErrNoLocalStore is returned by OpenLocal when no fallback file was ever written.
var ErrNoLocalStore = errors.New("storage: no local fallback store")

// OpenLocal binds an adapter to the existing fallback file without choosing a
// mode or touching the recorded one. Maintenance jobs use it next to the
// adapter the process runs on.
func OpenLocal(ctx context.Context, p Params) (*Adapter, error) {
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	path := p.Config.LocalPath()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoLocalStore
		}
		return nil, fmt.Errorf("stat local store: %w", err)
	}

	local := p.Local
	if local == nil {
		local = func(ctx context.Context) (*db.Client, error) {
			return db.OpenSQLite(ctx, path, logg)
		}
	}
	client, err := connect(ctx, local, p.Config.AutoMigrate)
	if err != nil {
		return nil, err
	}
	timeout := p.Config.OpTimeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &Adapter{
		client:    client,
		mode:      ModeLocal,
		opTimeout: timeout,
		logg:      logg,
		metrics:   p.Metrics,
	}, nil
}

// Snapshot writes a consistent copy of a local adapter's file to path.
func (a *Adapter) Snapshot(ctx context.Context, path string) error {
	if a.client.Dialect() != db.DialectSQLite {
		return fmt.Errorf("snapshot needs the local store, adapter runs on %s", a.client.Dialect())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	return a.run(ctx, "*", "snapshot", func(conn *gorm.DB) error {
		return conn.Exec("VACUUM INTO ?", path).Error
	})
}
