package maintenance

import (
	"context"
	"errors"
	"fmt"

	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/logger"
	"github.com/greenheaven/floorsync/pkg/metrics"
	"github.com/greenheaven/floorsync/pkg/storage"
	"go.uber.org/multierr"
)

// Completions adds a completion mark to the remote daily totals.
type Completions interface {
	RecordCompletionMark(ctx context.Context, mark models.CompletionMark) (*models.DailyTotal, error)
}

// LocalOpener opens the fallback file; storage.ErrNoLocalStore when there is none.
type LocalOpener func(ctx context.Context) (*storage.Adapter, error)

type ResyncParams struct {
	Logger  *logger.Logger
	Metrics *metrics.JobMetrics
	Remote  *storage.Adapter
	Local   LocalOpener
	Totals  Completions
}

// NewResyncJob copies history written on the local fallback into the remote
// store. Records already present remotely are left alone, so repeated runs are
// safe. Table markers stay behind: seating from an old session is not current.
func NewResyncJob(p ResyncParams) (Job, error) {
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.Remote == nil {
		return nil, fmt.Errorf("remote adapter required")
	}
	if p.Local == nil {
		return nil, fmt.Errorf("local opener required")
	}
	if p.Totals == nil {
		return nil, fmt.Errorf("daily totals required")
	}
	return &resyncJob{
		logg:    p.Logger,
		metrics: p.Metrics,
		remote:  p.Remote,
		local:   p.Local,
		totals:  p.Totals,
	}, nil
}

type resyncJob struct {
	logg    *logger.Logger
	metrics *metrics.JobMetrics
	remote  *storage.Adapter
	local   LocalOpener
	totals  Completions
}

func (j *resyncJob) Name() string { return "fallback-resync" }

// ResyncResult counts what one run copied and skipped, per collection.
type ResyncResult struct {
	Copied  map[string]int
	Skipped map[string]int
}

func (j *resyncJob) Run(ctx context.Context) error {
	_, err := j.resync(ctx)
	return err
}

func (j *resyncJob) resync(ctx context.Context) (ResyncResult, error) {
	result := ResyncResult{Copied: map[string]int{}, Skipped: map[string]int{}}
	if j.remote.Degraded() {
		j.logg.Info(ctx, "active store is the local fallback, nothing to resync")
		return result, nil
	}

	local, err := j.local(ctx)
	if errors.Is(err, storage.ErrNoLocalStore) {
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("open local store: %w", err)
	}
	defer func() { _ = local.Close() }()

	var errs []error
	for _, name := range []string{storage.CollectionOrders, storage.CollectionManualOrders} {
		copied, skipped, err := copyMissing(ctx,
			storage.NewCollection[models.Order](local, name, "id"),
			storage.NewCollection[models.Order](j.remote, name, "id"))
		j.record(&result, name, copied, skipped)
		if err != nil {
			errs = append(errs, err)
		}
	}

	copied, skipped, err := copyMissing(ctx,
		storage.NewCollection[models.StaffCall](local, storage.CollectionStaffCalls, "id"),
		storage.NewCollection[models.StaffCall](j.remote, storage.CollectionStaffCalls, "id"))
	j.record(&result, storage.CollectionStaffCalls, copied, skipped)
	if err != nil {
		errs = append(errs, err)
	}

	copied, skipped, err = j.copyCompletions(ctx, local)
	j.record(&result, storage.CollectionCompletionMarks, copied, skipped)
	if err != nil {
		errs = append(errs, err)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"copied":  result.Copied,
		"skipped": result.Skipped,
	}), "fallback resync finished")
	return result, multierr.Combine(errs...)
}

// copyCompletions moves each new mark over as pending and then adds the
// pending marks to the remote totals, so a mark is never counted twice.
func (j *resyncJob) copyCompletions(ctx context.Context, local *storage.Adapter) (int, int, error) {
	src := storage.NewCollection[models.CompletionMark](local, storage.CollectionCompletionMarks, "order_id")
	dst := storage.NewCollection[models.CompletionMark](j.remote, storage.CollectionCompletionMarks, "order_id")

	marks, err := src.Get(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("read local %s: %w", src.Name(), err)
	}
	copied, skipped := 0, 0
	for i := range marks {
		mark := marks[i]
		// counted in the local totals, not yet in the remote ones
		mark.Applied = false
		if _, err := dst.Put(ctx, &mark); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				skipped++
				continue
			}
			return copied, skipped, fmt.Errorf("copy completion %s: %w", mark.OrderID, err)
		}
		copied++
	}
	if _, err := applyPendingMarks(ctx, j.logg, dst, j.totals); err != nil {
		return copied, skipped, err
	}
	return copied, skipped, nil
}

func (j *resyncJob) record(result *ResyncResult, collection string, copied, skipped int) {
	result.Copied[collection] = copied
	result.Skipped[collection] = skipped
	j.metrics.AddResynced(collection, copied)
}

func copyMissing[T any](ctx context.Context, src, dst *storage.Collection[T]) (int, int, error) {
	rows, err := src.Get(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("read local %s: %w", src.Name(), err)
	}
	copied, skipped := 0, 0
	for i := range rows {
		if _, err := dst.Put(ctx, &rows[i]); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				skipped++
				continue
			}
			return copied, skipped, fmt.Errorf("copy into %s: %w", dst.Name(), err)
		}
		copied++
	}
	return copied, skipped, nil
}
