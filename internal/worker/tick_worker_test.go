package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spec-kit/ops-orchestrator/internal/service"
)

type fakeRunner struct {
	ticks   atomic.Int64
	summary service.TickSummary
	err     error
	lastCtx context.Context
}

func (r *fakeRunner) RunTick(ctx context.Context) (service.TickSummary, error) {
	r.lastCtx = ctx
	r.ticks.Add(1)
	return r.summary, r.err
}

type fakeLease struct {
	held     bool
	acquires atomic.Int64
	releases atomic.Int64
	err      error
}

func (l *fakeLease) Acquire(context.Context) (bool, error) {
	l.acquires.Add(1)
	if l.err != nil {
		return false, l.err
	}
	return !l.held, nil
}

func (l *fakeLease) Release(context.Context) error {
	l.releases.Add(1)
	return nil
}

func TestRunOnceExecutesTickAndReleasesLease(t *testing.T) {
	runner := &fakeRunner{summary: service.TickSummary{Reassigned: 3}}
	lease := &fakeLease{}
	w := NewTickWorker(runner, lease, time.Minute, 0, nil, nil)

	summary, ran, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !ran {
		t.Fatal("expected the tick to run")
	}
	if summary.Reassigned != 3 {
		t.Errorf("summary not propagated: %+v", summary)
	}
	if lease.acquires.Load() != 1 || lease.releases.Load() != 1 {
		t.Errorf("lease acquire/release = %d/%d, want 1/1", lease.acquires.Load(), lease.releases.Load())
	}
}

func TestRunOnceSkipsWhenLeaseHeld(t *testing.T) {
	runner := &fakeRunner{}
	lease := &fakeLease{held: true}
	w := NewTickWorker(runner, lease, time.Minute, 0, nil, nil)

	_, ran, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if ran {
		t.Fatal("tick must be skipped while the lease is held")
	}
	if runner.ticks.Load() != 0 {
		t.Errorf("runner invoked %d times, want 0", runner.ticks.Load())
	}
	if lease.releases.Load() != 0 {
		t.Error("a skipped tick must not release a lease it never acquired")
	}
}

func TestRunOnceSurfacesLeaseError(t *testing.T) {
	runner := &fakeRunner{}
	lease := &fakeLease{err: errors.New("redis unavailable")}
	w := NewTickWorker(runner, lease, time.Minute, 0, nil, nil)

	_, ran, err := w.RunOnce(context.Background())
	if err == nil || ran {
		t.Fatalf("expected lease error without a tick, got ran=%v err=%v", ran, err)
	}
}

func TestRunOnceReleasesLeaseOnTickError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("database down")}
	lease := &fakeLease{}
	w := NewTickWorker(runner, lease, time.Minute, 0, nil, nil)

	_, ran, err := w.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected tick error")
	}
	if !ran {
		t.Error("a failed tick still counts as run")
	}
	if lease.releases.Load() != 1 {
		t.Error("lease must be released after a failed tick")
	}
}

func TestRunOnceAppliesTickTimeout(t *testing.T) {
	runner := &fakeRunner{}
	w := NewTickWorker(runner, &fakeLease{}, time.Minute, 30*time.Second, nil, nil)

	if _, _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if _, ok := runner.lastCtx.Deadline(); !ok {
		t.Error("tick context must carry the configured deadline")
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	runner := &fakeRunner{}
	w := NewTickWorker(runner, &fakeLease{}, 5*time.Millisecond, 0, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
	if runner.ticks.Load() == 0 {
		t.Error("expected at least one tick before cancellation")
	}
}
