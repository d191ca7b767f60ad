package dailytotals

import (
	"context"
	"errors"
	"fmt"

	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/storage"
	"go.uber.org/multierr"
)

// MarkUpdater flips the applied flag on a completion mark.
type MarkUpdater interface {
	UpdateWhere(ctx context.Context, orderID string, guard storage.Filter, patch storage.Patch) (*models.CompletionMark, error)
}

// ApplyMark runs add for a pending mark and leaves the mark applied. The flag is
// claimed before add runs and handed back when add fails, so a mark counts at
// most once and stays pending for the next attempt. It reports false when the
// mark was already claimed elsewhere.
func ApplyMark(ctx context.Context, marks MarkUpdater, orderID string, add func(ctx context.Context) error) (bool, error) {
	_, err := marks.UpdateWhere(ctx, orderID, storage.Filter{"applied": false}, storage.Patch{"applied": true})
	if errors.Is(err, storage.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := add(ctx); err != nil {
		_, releaseErr := marks.UpdateWhere(context.WithoutCancel(ctx), orderID, storage.Filter{"applied": true}, storage.Patch{"applied": false})
		if releaseErr != nil {
			return false, multierr.Append(err, fmt.Errorf("release completion mark %s: %w", orderID, releaseErr))
		}
		return false, err
	}
	return true, nil
}
