package maintenance

import (
	"context"
	"fmt"

	"github.com/greenheaven/floorsync/internal/dailytotals"
	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/logger"
	"github.com/greenheaven/floorsync/pkg/storage"
	"go.uber.org/multierr"
)

type CompletionSweepParams struct {
	Logger *logger.Logger
	Store  *storage.Adapter
	Totals Completions
}

// NewCompletionSweepJob adds pending completion marks to daily totals. A mark
// stays pending when the request that completed its order failed before the
// totals were updated and was never retried.
func NewCompletionSweepJob(p CompletionSweepParams) (Job, error) {
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.Store == nil {
		return nil, fmt.Errorf("storage adapter required")
	}
	if p.Totals == nil {
		return nil, fmt.Errorf("daily totals required")
	}
	return &completionSweepJob{
		logg:   p.Logger,
		marks:  storage.NewCollection[models.CompletionMark](p.Store, storage.CollectionCompletionMarks, "order_id"),
		totals: p.Totals,
	}, nil
}

type completionSweepJob struct {
	logg   *logger.Logger
	marks  *storage.Collection[models.CompletionMark]
	totals Completions
}

func (j *completionSweepJob) Name() string { return "completion-sweep" }

func (j *completionSweepJob) Run(ctx context.Context) error {
	_, err := j.sweep(ctx)
	return err
}

// sweep returns how many marks this run applied.
func (j *completionSweepJob) sweep(ctx context.Context) (int, error) {
	return applyPendingMarks(ctx, j.logg, j.marks, j.totals)
}

func applyPendingMarks(ctx context.Context, logg *logger.Logger, marks *storage.Collection[models.CompletionMark], totals Completions) (int, error) {
	pending, err := marks.Get(ctx, storage.Filter{"applied": false})
	if err != nil {
		return 0, fmt.Errorf("read pending %s: %w", marks.Name(), err)
	}

	applied := 0
	var errs error
	for i := range pending {
		mark := pending[i]
		ok, err := dailytotals.ApplyMark(ctx, marks, mark.OrderID, func(ctx context.Context) error {
			_, err := totals.RecordCompletionMark(ctx, mark)
			return err
		})
		if err != nil {
			logg.Error(logg.WithOrderID(ctx, mark.OrderID), "completion mark left pending", err)
			errs = multierr.Append(errs, fmt.Errorf("apply completion %s: %w", mark.OrderID, err))
			continue
		}
		if ok {
			applied++
		}
	}
	if applied > 0 {
		logg.Info(logg.WithFields(ctx, map[string]any{"applied": applied}), "pending completions added to daily totals")
	}
	return applied, errs
}
