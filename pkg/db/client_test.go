package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/greenheaven/floorsync/pkg/config"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type testModel struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "floor.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(&testModel{}))
	return client
}

func TestPingAndDialect(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.Ping(context.Background()))
	require.Equal(t, DialectSQLite, client.Dialect())
}

func TestOpenSQLiteInMemoryDSN(t *testing.T) {
	client, err := OpenSQLite(context.Background(), "file:dbtest_mem?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()))
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	_, err := OpenPostgres(context.Background(), config.StorageConfig{}, nil)
	require.Error(t, err)
}

func TestIsConstraintViolation(t *testing.T) {
	require.True(t, IsConstraintViolation(&pgconn.PgError{Code: "23514", ConstraintName: "orders_total_cents_check"}))
	require.True(t, IsConstraintViolation(&pgconn.PgError{Code: "23502"}))
	require.False(t, IsConstraintViolation(&pgconn.PgError{Code: "23505"}), "unique clashes have their own sentinel")
	require.False(t, IsConstraintViolation(&pgconn.PgError{Code: "57014"}))
	require.False(t, IsConstraintViolation(errors.New("connection reset")))
	require.False(t, IsConstraintViolation(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	client := newTestClient(t)
	db := client.DB()
	require.NoError(t, db.Create(&testModel{Name: "dup"}).Error)
	err := db.Create(&testModel{Name: "dup"}).Error
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err, ""))
	require.False(t, IsUniqueViolation(err, "other_constraint"))

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "orders_pkey", Message: "duplicate key value violates unique constraint \"orders_pkey\""}
	require.True(t, IsUniqueViolation(pgErr, "orders_pkey"))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	require.False(t, IsUniqueViolation(nil, ""))
	require.False(t, IsUniqueViolation(errors.New("connection reset"), ""))
}
