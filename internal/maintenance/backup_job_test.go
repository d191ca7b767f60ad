package maintenance

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/enums"
	"github.com/greenheaven/floorsync/pkg/logger"
	"github.com/greenheaven/floorsync/pkg/storage"
	"github.com/stretchr/testify/require"
)

func TestBackupSnapshotsAndKeepsNewest(t *testing.T) {
	dir := seedFallback(t, func(ctx context.Context, a *storage.Adapter) {
		_, err := storage.NewCollection[models.Order](a, storage.CollectionManualOrders, "id").
			Put(ctx, order("m-9", "2", enums.OrderOriginManual, enums.OrderStatusPending, 700))
		require.NoError(t, err)
	})
	backups := filepath.Join(t.TempDir(), "backups")
	require.NoError(t, os.MkdirAll(backups, 0o755))
	for _, stale := range []string{"floor-20260101T000000Z.db", "floor-20260102T000000Z.db"} {
		require.NoError(t, os.WriteFile(filepath.Join(backups, stale), []byte("old"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(backups, "notes.txt"), []byte("keep me"), 0o644))

	now := time.Date(2026, 10, 15, 3, 0, 0, 0, time.UTC)
	job, err := NewBackupJob(BackupParams{
		Logger: logger.Nop(),
		Local:  localOpener(dir),
		Dir:    backups,
		Keep:   2,
		Now:    func() time.Time { return now },
	})
	require.NoError(t, err)
	require.Equal(t, "fallback-backup", job.Name())
	require.NoError(t, job.Run(context.Background()))

	snapshot := filepath.Join(backups, "floor-20261015T030000Z.db")
	require.FileExists(t, snapshot)
	require.NoFileExists(t, filepath.Join(backups, "floor-20260101T000000Z.db"))
	require.FileExists(t, filepath.Join(backups, "floor-20260102T000000Z.db"))
	require.FileExists(t, filepath.Join(backups, "notes.txt"))

	// running again in the same second does not overwrite the snapshot
	require.NoError(t, job.Run(context.Background()))
}

func TestBackupWithoutFallbackFileDoesNothing(t *testing.T) {
	backups := filepath.Join(t.TempDir(), "backups")
	job, err := NewBackupJob(BackupParams{Logger: logger.Nop(), Local: localOpener(t.TempDir()), Dir: backups})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))
	require.NoDirExists(t, backups)
}

func TestNewBackupJobValidates(t *testing.T) {
	_, err := NewBackupJob(BackupParams{Logger: logger.Nop(), Local: localOpener(t.TempDir())})
	require.Error(t, err)
	_, err = NewBackupJob(BackupParams{Logger: logger.Nop(), Dir: "x"})
	require.Error(t, err)
}
