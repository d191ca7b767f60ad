package dailytotals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/enums"
	"github.com/greenheaven/floorsync/pkg/storage"
	"github.com/greenheaven/floorsync/pkg/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestApplyMarkCountsOnceAndReleasesOnFailure(t *testing.T) {
	ctx := context.Background()
	marks := storage.NewCollection[models.CompletionMark](storagetest.Open(t), storage.CollectionCompletionMarks, "order_id")
	_, err := marks.Put(ctx, &models.CompletionMark{
		OrderID:      "o-1",
		Origin:       enums.OrderOriginDigital,
		AmountCents:  900,
		BusinessDate: "2026-10-15",
		CreatedAt:    time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	boom := errors.New("totals unreachable")
	applied, err := ApplyMark(ctx, marks, "o-1", func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	require.False(t, applied)
	stored, err := marks.Find(ctx, "o-1")
	require.NoError(t, err)
	require.False(t, stored.Applied)

	calls := 0
	add := func(context.Context) error {
		calls++
		return nil
	}
	applied, err = ApplyMark(ctx, marks, "o-1", add)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = ApplyMark(ctx, marks, "o-1", add)
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, 1, calls)

	_, err = ApplyMark(ctx, marks, "missing", add)
	require.ErrorIs(t, err, storage.ErrNotFound)
}
