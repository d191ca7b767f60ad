package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Filter matches records whose columns equal the given values.
type Filter map[string]any

// Patch sets columns to values; values may be Increment expressions.
type Patch map[string]any

// Increment adds delta to column within the same update statement.
func Increment(column string, delta int64) clause.Expr {
	return gorm.Expr(column+" + ?", delta)
}

// Collection is a typed handle over one table of the active backend.
type Collection[T any] struct {
	adapter *Adapter
	name    string
	key     string
}

// NewCollection binds a collection name and its primary key column to T.
func NewCollection[T any](adapter *Adapter, name, key string) *Collection[T] {
	return &Collection[T]{adapter: adapter, name: name, key: key}
}

// Name returns the collection (table) name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Get returns every record matching filter, ordered by key.
func (c *Collection[T]) Get(ctx context.Context, filter Filter) ([]T, error) {
	out := make([]T, 0)
	err := c.adapter.run(ctx, c.name, "get", func(conn *gorm.DB) error {
		q := conn.Table(c.name)
		if len(filter) > 0 {
			q = q.Where(map[string]any(filter))
		}
		return q.Order(c.key).Find(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Find loads one record by key; ErrNotFound when absent.
func (c *Collection[T]) Find(ctx context.Context, id string) (*T, error) {
	var out T
	err := c.adapter.run(ctx, c.name, "find", func(conn *gorm.DB) error {
		return conn.Table(c.name).Where(c.key+" = ?", id).Take(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Put inserts record; ErrDuplicate when the key already exists.
func (c *Collection[T]) Put(ctx context.Context, record *T) (*T, error) {
	err := c.adapter.run(ctx, c.name, "put", func(conn *gorm.DB) error {
		return conn.Table(c.name).Create(record).Error
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Update applies patch to the record with the given key and returns the stored result.
func (c *Collection[T]) Update(ctx context.Context, id string, patch Patch) (*T, error) {
	return c.UpdateWhere(ctx, id, nil, patch)
}

// UpdateWhere applies patch only while every guard column still holds its value.
// ErrConflict is returned when the record exists but the guard no longer matches.
func (c *Collection[T]) UpdateWhere(ctx context.Context, id string, guard Filter, patch Patch) (*T, error) {
	err := c.adapter.run(ctx, c.name, "update", func(conn *gorm.DB) error {
		q := conn.Table(c.name).Where(c.key+" = ?", id)
		if len(guard) > 0 {
			q = q.Where(map[string]any(guard))
		}
		res := q.Updates(map[string]any(patch))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}

		var count int64
		if err := conn.Table(c.name).Where(c.key+" = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrConflict
	})
	if err != nil {
		return nil, err
	}
	return c.Find(ctx, id)
}
