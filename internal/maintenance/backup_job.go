package maintenance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/greenheaven/floorsync/pkg/logger"
	"github.com/greenheaven/floorsync/pkg/storage"
	"go.uber.org/multierr"
)

const (
	backupPrefix     = "floor-"
	backupSuffix     = ".db"
	backupTimeLayout = "20060102T150405Z"
	defaultKeep      = 5
)

type BackupParams struct {
	Logger *logger.Logger
	Local  LocalOpener
	Dir    string
	Keep   int
	Now    func() time.Time
}

// NewBackupJob snapshots the local fallback file into Dir and keeps the newest Keep snapshots.
func NewBackupJob(p BackupParams) (Job, error) {
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.Local == nil {
		return nil, fmt.Errorf("local opener required")
	}
	if strings.TrimSpace(p.Dir) == "" {
		return nil, fmt.Errorf("backup dir required")
	}
	if p.Keep <= 0 {
		p.Keep = defaultKeep
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &backupJob{logg: p.Logger, local: p.Local, dir: p.Dir, keep: p.Keep, now: p.Now}, nil
}

type backupJob struct {
	logg  *logger.Logger
	local LocalOpener
	dir   string
	keep  int
	now   func() time.Time
}

func (j *backupJob) Name() string { return "fallback-backup" }

func (j *backupJob) Run(ctx context.Context) error {
	local, err := j.local(ctx)
	if errors.Is(err, storage.ErrNoLocalStore) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer func() { _ = local.Close() }()

	path := filepath.Join(j.dir, backupPrefix+j.now().UTC().Format(backupTimeLayout)+backupSuffix)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := local.Snapshot(ctx, path); err != nil {
		return fmt.Errorf("snapshot local store: %w", err)
	}

	removed, err := j.prune()
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"snapshot": path,
		"removed":  removed,
	}), "local store snapshot written")
	return err
}

// prune deletes the oldest snapshots beyond keep. Names sort by time.
func (j *backupJob) prune() ([]string, error) {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
			continue
		}
		names = append(names, name)
	}
	if len(names) <= j.keep {
		return nil, nil
	}
	sort.Strings(names)

	var removed []string
	var errs []error
	for _, name := range names[:len(names)-j.keep] {
		if err := os.Remove(filepath.Join(j.dir, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, name)
	}
	return removed, multierr.Combine(errs...)
}
