package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/greenheaven/floorsync/pkg/config"
	"github.com/greenheaven/floorsync/pkg/db"
	pkgerrors "github.com/greenheaven/floorsync/pkg/errors"
	"github.com/greenheaven/floorsync/pkg/logger"
	"github.com/greenheaven/floorsync/pkg/metrics"
	"github.com/greenheaven/floorsync/pkg/migrate"
	"gorm.io/gorm"
)

// Collections used by the floor engine.
const (
	CollectionOrders          = "orders"
	CollectionManualOrders    = "manual_orders"
	CollectionDailyTotals     = "daily_totals"
	CollectionStaffCalls      = "staff_calls"
	CollectionTableMarkers    = "table_markers"
	CollectionCompletionMarks = "completion_marks"
)

var (
	ErrNotFound   = errors.New("storage: record not found")
	ErrConflict   = errors.New("storage: record changed since it was read")
	ErrDuplicate  = errors.New("storage: record already exists")
	// ErrConstraint marks a write the schema rejected; retrying it cannot succeed.
	ErrConstraint = errors.New("storage: record violates a constraint")
)

const defaultOpTimeout = 5 * time.Second

// Dialer opens a backend connection.
type Dialer func(ctx context.Context) (*db.Client, error)

// Params wires the adapter. Remote and Local default to the Postgres DSN and the
// sqlite file under DataDir.
type Params struct {
	Config  config.StorageConfig
	Logger  *logger.Logger
	Metrics *metrics.StorageMetrics
	Remote  Dialer
	Local   Dialer

	// SkipModeRecord leaves the recorded mode to the serving process.
	SkipModeRecord bool
}

// Adapter is the single read/write path to whichever backend was chosen at startup.
type Adapter struct {
	client    *db.Client
	mode      Mode
	previous  Mode
	reason    string
	opTimeout time.Duration
	logg      *logger.Logger
	metrics   *metrics.StorageMetrics
}

// Open picks the backend once: the remote store when it answers, the local file otherwise.
func Open(ctx context.Context, p Params) (*Adapter, error) {
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	cfg := p.Config
	timeout := cfg.OpTimeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}

	a := &Adapter{
		opTimeout: timeout,
		logg:      logg,
		metrics:   p.Metrics,
	}

	remote := p.Remote
	if remote == nil && strings.TrimSpace(cfg.RemoteDSN) != "" {
		remote = func(ctx context.Context) (*db.Client, error) {
			return db.OpenPostgres(ctx, cfg, logg)
		}
	}

	var remoteErr error
	if remote == nil {
		remoteErr = errors.New("remote store not configured")
	} else {
		a.client, remoteErr = connect(ctx, remote, cfg.AutoMigrate)
	}

	if remoteErr == nil {
		a.mode = ModeRemote
	} else {
		local := p.Local
		if local == nil {
			local = func(ctx context.Context) (*db.Client, error) {
				return db.OpenSQLite(ctx, cfg.LocalPath(), logg)
			}
		}
		client, err := connect(ctx, local, cfg.AutoMigrate)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnavailable, errors.Join(remoteErr, err), "no storage backend available")
		}
		a.client = client
		a.mode = ModeLocal
		a.reason = remoteErr.Error()
	}

	a.previous = readMode(cfg.DataDir)
	if !p.SkipModeRecord {
		if err := writeMode(cfg.DataDir, a.mode); err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "could not persist storage mode")
		}
	}
	a.logTransition(ctx)
	a.metrics.SetDegraded(a.Degraded())

	return a, nil
}

func connect(ctx context.Context, dial Dialer, autoMigrate bool) (*db.Client, error) {
	client, err := dial(ctx)
	if err != nil {
		return nil, err
	}
	if autoMigrate {
		if err := migrate.Up(ctx, client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("migrating %s store: %w", client.Dialect(), err)
		}
	}
	return client, nil
}

func (a *Adapter) logTransition(ctx context.Context) {
	ctx = a.logg.WithFields(ctx, map[string]any{
		"storage_mode":  string(a.mode),
		"previous_mode": string(a.previous),
	})
	switch {
	case a.mode == ModeLocal:
		a.logg.Warn(a.logg.WithField(ctx, "reason", a.reason), "remote store unavailable, running on local fallback")
	case a.previous == ModeLocal:
		a.logg.Info(ctx, "remote store reachable again, local fallback data is not carried over")
	default:
		a.logg.Info(ctx, "storage ready")
	}
}

// Mode returns the backend selected at startup.
func (a *Adapter) Mode() Mode {
	return a.mode
}

// PreviousMode is the mode recorded by the last process, empty on first start.
func (a *Adapter) PreviousMode() Mode {
	return a.previous
}

// Degraded reports whether the adapter runs on the local fallback.
func (a *Adapter) Degraded() bool {
	return a.mode == ModeLocal
}

// Ping checks the active backend under the operation timeout.
func (a *Adapter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.opTimeout)
	defer cancel()
	if err := a.client.Ping(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "storage ping")
	}
	return nil
}

// Status summarizes the adapter for health and system status endpoints.
type Status struct {
	Mode      Mode   `json:"mode"`
	Degraded  bool   `json:"degraded"`
	Healthy   bool   `json:"healthy"`
	Reason    string `json:"reason,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

func (a *Adapter) Status(ctx context.Context) Status {
	st := Status{
		Mode:     a.mode,
		Degraded: a.Degraded(),
		Healthy:  true,
		Reason:   a.reason,
	}
	if err := a.Ping(ctx); err != nil {
		st.Healthy = false
		st.LastError = err.Error()
	}
	return st
}

// Close releases the backend connection.
func (a *Adapter) Close() error {
	if a == nil || a.client == nil {
		return nil
	}
	return a.client.Close()
}

// run executes fn against the active backend under the operation timeout and
// normalizes its error.
func (a *Adapter) run(ctx context.Context, collection, op string, fn func(conn *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, a.opTimeout)
	defer cancel()

	start := time.Now()
	err := fn(a.client.DB().WithContext(ctx))
	a.metrics.ObserveDuration(collection, op, time.Since(start))
	if err == nil {
		return nil
	}

	kind, err := classify(err, collection, op)
	a.metrics.IncFailure(collection, op, kind)
	if kind == kindUnavailable {
		a.logg.Error(a.logg.WithFields(ctx, map[string]any{
			"collection": collection,
			"op":         op,
		}), "storage operation failed", err)
	}
	return err
}

const (
	kindNotFound    = "not_found"
	kindConflict    = "conflict"
	kindDuplicate   = "duplicate"
	kindConstraint  = "constraint"
	kindUnavailable = "unavailable"
)

func classify(err error, collection, op string) (string, error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return kindNotFound, ErrNotFound
	case errors.Is(err, ErrConflict):
		return kindConflict, ErrConflict
	case errors.Is(err, gorm.ErrDuplicatedKey), db.IsUniqueViolation(err, ""):
		return kindDuplicate, ErrDuplicate
	case db.IsConstraintViolation(err):
		return kindConstraint, pkgerrors.Wrap(pkgerrors.CodeValidation, fmt.Errorf("%w: %w", ErrConstraint, err), fmt.Sprintf("%s %s", op, collection))
	default:
		return kindUnavailable, pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, fmt.Sprintf("%s %s", op, collection))
	}
}
