package migrate

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/greenheaven/floorsync/pkg/db"
	"github.com/stretchr/testify/require"
)

func newMemoryClient(t *testing.T) *db.Client {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	client, err := db.OpenSQLite(context.Background(), fmt.Sprintf("file:%s?mode=memory&cache=shared", name), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestUpCreatesCollections(t *testing.T) {
	client := newMemoryClient(t)
	ctx := context.Background()

	require.NoError(t, Up(ctx, client))
	for _, table := range []string{"orders", "manual_orders", "staff_calls", "daily_totals", "table_markers", "completion_marks"} {
		require.True(t, client.DB().Migrator().HasTable(table), "missing table %s", table)
	}

	version, err := CurrentVersion(ctx, client)
	require.NoError(t, err)
	require.Equal(t, int64(20261010090000), version)
	require.True(t, client.DB().Migrator().HasColumn("completion_marks", "applied"))

	// second run is a no-op
	require.NoError(t, Up(ctx, client))
}

func TestMigrateToVersionDownAndUp(t *testing.T) {
	client := newMemoryClient(t)
	ctx := context.Background()

	require.NoError(t, MigrateToVersion(ctx, client, "", "20260901120000"))
	require.True(t, client.DB().Migrator().HasTable("orders"))
	require.False(t, client.DB().Migrator().HasTable("staff_calls"))

	require.NoError(t, Up(ctx, client))
	require.NoError(t, MigrateToVersion(ctx, client, "", "20260901121500"))
	require.False(t, client.DB().Migrator().HasTable("daily_totals"))

	require.Error(t, MigrateToVersion(ctx, client, "", "not-a-version"))
}

func TestStaffCallResolvedAtMatchesStatus(t *testing.T) {
	client := newMemoryClient(t)
	ctx := context.Background()
	require.NoError(t, Up(ctx, client))

	err := client.DB().Exec(`INSERT INTO staff_calls (id, table_id, customer_name, message, status, created_at, updated_at)
		VALUES ('a1', '3', 'Ann', 'water', 'resolved', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`).Error
	require.Error(t, err, "resolved without resolved_at must be rejected")
}

func TestEmbeddedMigrationsAreWellFormed(t *testing.T) {
	entries, err := fs.ReadDir(Source(""), ".")
	require.NoError(t, err)

	var count int
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		count++
		require.Regexp(t, sqlFileRe, e.Name())
		body, err := fs.ReadFile(Source(""), e.Name())
		require.NoError(t, err)
		require.Contains(t, string(body), "-- +goose Up")
		require.Contains(t, string(body), "-- +goose Down")
	}
	require.Equal(t, 3, count)
}

func TestDialect(t *testing.T) {
	_, err := Dialect("mysql")
	require.Error(t, err)
	d, err := Dialect(db.DialectSQLite)
	require.NoError(t, err)
	require.NotEmpty(t, d)
}

func TestCreateAndValidateDir(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Table Notes")
	require.NoError(t, err)
	require.Contains(t, path, "_add_table_notes.sql")
	require.NoError(t, ValidateDir(dir))
	require.NoError(t, ValidateDir(""), "embedded migrations must stay portable")
}

func TestCreateBumpsPastNewestVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20300101000000_future.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	path, err := createAt(dir, "next", time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "20300101000001_next.sql", filepath.Base(path))

	_, err = createAt(dir, "!!!", time.Now())
	require.Error(t, err)
}

func TestValidateRejectsBackendSpecificSQL(t *testing.T) {
	fsys := fstest.MapFS{
		"20260101000000_bad.sql": {Data: []byte("-- +goose Up\nCREATE TABLE x (id SERIAL PRIMARY KEY, meta JSONB);\n-- +goose Down\nDROP TABLE x;\n")},
	}
	err := Validate(fsys)
	require.ErrorContains(t, err, "line 2")

	commented := fstest.MapFS{
		"20260101000000_ok.sql": {Data: []byte("-- +goose Up\n-- no JSONB here\nCREATE TABLE y (id TEXT PRIMARY KEY);\n-- +goose Down\nDROP TABLE y;\n")},
	}
	require.NoError(t, Validate(commented))

	dup := fstest.MapFS{
		"20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	require.ErrorContains(t, Validate(dup), "duplicate migration version")

	require.ErrorContains(t, Validate(fstest.MapFS{"1_bad.sql": {Data: []byte("")}}), "invalid migration filename")
}
