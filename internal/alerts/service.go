package alerts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/greenheaven/floorsync/internal/broadcast"
	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/enums"
	pkgerrors "github.com/greenheaven/floorsync/pkg/errors"
	"github.com/greenheaven/floorsync/pkg/logger"
	"github.com/greenheaven/floorsync/pkg/storage"
	"github.com/greenheaven/floorsync/pkg/types"
	"go.uber.org/multierr"
)

// maxAttempts bounds re-reads when a concurrent writer moves the alert first.
const maxAttempts = 3

// Service is the alert queue for staff calls raised from tables.
type Service interface {
	RaiseAlert(ctx context.Context, input RaiseAlertInput) (*models.StaffCall, error)
	AcknowledgeAlert(ctx context.Context, alertID string) (*models.StaffCall, error)
	RespondToAlert(ctx context.Context, alertID, response string) (*models.StaffCall, error)
	ResolveAlert(ctx context.Context, alertID string) (*models.StaffCall, error)
	ClearAllForTable(ctx context.Context, tableID string) BulkResult
	ClearAll(ctx context.Context) BulkResult
	ListAlerts(ctx context.Context, unresolvedOnly bool) ([]models.StaffCall, error)
}

type Params struct {
	Repo      Repository
	Publisher broadcast.Publisher
	Logger    *logger.Logger
	Now       func() time.Time
	NewID     func() string
}

type service struct {
	repo      Repository
	publisher broadcast.Publisher
	logg      *logger.Logger
	now       func() time.Time
	newID     func() string
}

func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("staff calls repository required")
	}
	s := &service{repo: p.Repo, publisher: p.Publisher, logg: p.Logger, now: p.Now, newID: p.NewID}
	if s.publisher == nil {
		s.publisher = broadcast.Discard{}
	}
	if s.logg == nil {
		s.logg = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s, nil
}

func (s *service) RaiseAlert(ctx context.Context, input RaiseAlertInput) (*models.StaffCall, error) {
	tableID, err := types.NormalizeTableID(input.TableID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid table id")
	}
	customer := strings.TrimSpace(input.CustomerName)
	if customer == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		message = DefaultMessage
	}

	now := s.now().UTC()
	stored, err := s.repo.Put(ctx, &models.StaffCall{
		ID:           s.newID(),
		TableID:      tableID,
		CustomerName: customer,
		Message:      message,
		Status:       enums.AlertStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithAlertID(s.logg.WithTableID(ctx, stored.TableID), stored.ID)
	s.logg.Info(ctx, "staff call raised")
	s.publish(ctx, enums.EventNewAlert, stored)
	return stored, nil
}

func (s *service) AcknowledgeAlert(ctx context.Context, alertID string) (*models.StaffCall, error) {
	return s.transition(ctx, alertID, enums.EventAlertUpdated, func(call *models.StaffCall, now time.Time) (storage.Patch, error) {
		switch call.Status {
		case enums.AlertStatusPending:
			return storage.Patch{"status": enums.AlertStatusAcknowledged, "updated_at": now}, nil
		case enums.AlertStatusAcknowledged:
			return nil, nil
		default:
			return nil, invalidTransition(call.Status, enums.AlertStatusAcknowledged)
		}
	})
}

// RespondToAlert records a staff reply. Responding again replaces the reply;
// a resolved alert cannot be answered.
func (s *service) RespondToAlert(ctx context.Context, alertID, response string) (*models.StaffCall, error) {
	text := strings.TrimSpace(response)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "response text is required")
	}
	return s.transition(ctx, alertID, enums.EventAlertUpdated, func(call *models.StaffCall, now time.Time) (storage.Patch, error) {
		if call.Status == enums.AlertStatusResolved {
			return nil, invalidTransition(call.Status, enums.AlertStatusResponded)
		}
		return storage.Patch{
			"status":       enums.AlertStatusResponded,
			"response":     text,
			"responded_at": now,
			"updated_at":   now,
		}, nil
	})
}

// ResolveAlert closes the alert. Resolving a resolved alert succeeds without an event.
func (s *service) ResolveAlert(ctx context.Context, alertID string) (*models.StaffCall, error) {
	return s.transition(ctx, alertID, enums.EventAlertResolved, resolvePatch)
}

func resolvePatch(call *models.StaffCall, now time.Time) (storage.Patch, error) {
	if call.Status == enums.AlertStatusResolved {
		return nil, nil
	}
	return storage.Patch{"status": enums.AlertStatusResolved, "resolved_at": now, "updated_at": now}, nil
}

type decideFunc func(call *models.StaffCall, now time.Time) (storage.Patch, error)

// transition applies decide's patch guarded on the status it was decided from.
// A nil patch means nothing to do; the current record is returned with no event.
func (s *service) transition(ctx context.Context, alertID string, event enums.EventName, decide decideFunc) (*models.StaffCall, error) {
	_, call, err := s.apply(ctx, alertID, event, decide)
	return call, err
}

func (s *service) apply(ctx context.Context, alertID string, event enums.EventName, decide decideFunc) (bool, *models.StaffCall, error) {
	id := strings.TrimSpace(alertID)
	if id == "" {
		return false, nil, pkgerrors.New(pkgerrors.CodeValidation, "alert id required")
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		current, err := s.repo.Find(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil, notFound(id)
		}
		if err != nil {
			return false, nil, err
		}

		patch, err := decide(current, s.now().UTC())
		if err != nil {
			return false, nil, err
		}
		if patch == nil {
			return false, current, nil
		}

		updated, err := s.repo.UpdateWhere(ctx, id, storage.Filter{"status": current.Status}, patch)
		if errors.Is(err, storage.ErrConflict) {
			continue
		}
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil, notFound(id)
		}
		if err != nil {
			return false, nil, err
		}

		ctx = s.logg.WithAlertID(s.logg.WithTableID(ctx, updated.TableID), updated.ID)
		s.logg.Info(ctx, fmt.Sprintf("staff call %s -> %s", current.Status, updated.Status))
		s.publish(ctx, event, updated)
		return true, updated, nil
	}
	return false, nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("alert %s kept changing, try again", id))
}

func (s *service) ClearAllForTable(ctx context.Context, tableID string) BulkResult {
	id, err := types.NormalizeTableID(tableID)
	if err != nil {
		return BulkResult{Err: pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid table id")}
	}
	return s.clear(ctx, storage.Filter{"table_id": id})
}

func (s *service) ClearAll(ctx context.Context) BulkResult {
	return s.clear(ctx, nil)
}

// clear resolves every open alert matching filter, carrying on past individual failures.
func (s *service) clear(ctx context.Context, filter storage.Filter) BulkResult {
	list, err := s.repo.Get(ctx, filter)
	if err != nil {
		return BulkResult{Err: err}
	}

	var result BulkResult
	for _, call := range list {
		if !call.Status.IsOpen() {
			continue
		}
		changed, _, err := s.apply(ctx, call.ID, enums.EventAlertResolved, resolvePatch)
		if err != nil {
			result.Failed++
			result.FailedIDs = append(result.FailedIDs, call.ID)
			result.Err = multierr.Append(result.Err, fmt.Errorf("resolve alert %s: %w", call.ID, err))
			continue
		}
		if changed {
			result.Resolved++
		}
	}
	if result.Failed > 0 {
		s.logg.Error(ctx, fmt.Sprintf("bulk resolve left %d alerts open", result.Failed), result.Err)
	}
	return result
}

// ListAlerts returns alerts oldest first.
func (s *service) ListAlerts(ctx context.Context, unresolvedOnly bool) ([]models.StaffCall, error) {
	list, err := s.repo.Get(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]models.StaffCall, 0, len(list))
	for _, call := range list {
		if unresolvedOnly && !call.Status.IsOpen() {
			continue
		}
		out = append(out, call)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *service) publish(ctx context.Context, name enums.EventName, call *models.StaffCall) {
	s.publisher.Publish(ctx, broadcast.Event{
		Name:     name,
		TableID:  call.TableID,
		EntityID: call.ID,
		Payload:  NewAlertView(*call),
	})
}

func invalidTransition(from, to enums.AlertStatus) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot move alert from %s to %s", from, to))
}

func notFound(id string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("alert %s not found", id))
}
