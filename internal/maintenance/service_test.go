package maintenance

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/greenheaven/floorsync/pkg/logger"
	"github.com/greenheaven/floorsync/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type fakeLock struct {
	held     bool
	acquires int
	releases int
	err      error
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.held {
		return false, nil
	}
	f.held = true
	f.acquires++
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (j *testJob) Name() string { return j.name }

func (j *testJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func TestRunOnceRunsEveryJobAndJoinsFailures(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "maintenance-test", Output: buf})
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "failing", err: errors.New("boom")}
	after := &testJob{name: "after"}

	registry := NewRegistry()
	for _, job := range []Job{ok, failing, after} {
		require.NoError(t, registry.Register(job))
	}
	lock := &fakeLock{}
	reg := prometheus.NewRegistry()
	svc, err := NewService(ServiceParams{Logger: logg, Registry: registry, Lock: lock, Metrics: metrics.NewJobMetrics(reg)})
	require.NoError(t, err)

	err = svc.RunOnce(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failing: boom")
	require.Equal(t, 1, ok.runs)
	require.Equal(t, 1, failing.runs)
	require.Equal(t, 1, after.runs)
	require.Equal(t, 1, lock.releases)
	require.False(t, lock.held)
	require.Contains(t, buf.String(), `"job":"failing"`)
}

func TestRunOnceSkipsWhenLockIsHeld(t *testing.T) {
	job := &testJob{name: "only"}
	registry := NewRegistry()
	require.NoError(t, registry.Register(job))
	lock := &fakeLock{held: true}
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: registry, Lock: lock})
	require.NoError(t, err)

	require.NoError(t, svc.RunOnce(context.Background()))
	require.Zero(t, job.runs)
	require.Zero(t, lock.releases)

	lock.held = false
	lock.err = errors.New("redis down")
	require.ErrorContains(t, svc.RunOnce(context.Background()), "lock acquire")
	require.Zero(t, job.runs)
}

func TestRunStopsWithContext(t *testing.T) {
	job := &testJob{name: "once"}
	registry := NewRegistry()
	require.NoError(t, registry.Register(job))
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: registry, Lock: SingleInstanceLock{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, svc.Run(ctx), context.Canceled)
}

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: SingleInstanceLock{}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logger.Nop()})
	require.Error(t, err)
}

func TestRegistryRejectsDuplicatesAndCopies(t *testing.T) {
	registry := NewRegistry()
	a, b := &testJob{name: "a"}, &testJob{name: "b"}
	require.NoError(t, registry.Register(a))
	require.NoError(t, registry.Register(b))
	require.Error(t, registry.Register(&testJob{name: "a"}))
	require.Error(t, registry.Register(nil))

	jobs := registry.Jobs()
	require.Equal(t, []Job{a, b}, jobs)
	jobs[0] = nil
	require.NotNil(t, registry.Jobs()[0])
}
