package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ops-orchestrator/internal/observability"
	"github.com/spec-kit/ops-orchestrator/internal/service"
)

// TickRunner executes one orchestration tick.
type TickRunner interface {
	RunTick(ctx context.Context) (service.TickSummary, error)
}

// Lease guards against overlapping tick invocations.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// TickWorker invokes the orchestrator on a fixed cadence until its context
// is cancelled. The interval should stay below the shortest escalation
// window (5 minutes for crisis tickets) so deadlines are not missed.
type TickWorker struct {
	runner   TickRunner
	lease    Lease
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewTickWorker creates the worker.
func NewTickWorker(runner TickRunner, lease Lease, interval, timeout time.Duration, logger *zap.Logger, metrics *observability.Metrics) *TickWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TickWorker{
		runner:   runner,
		lease:    lease,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics,
	}
}

// Start runs ticks on the configured interval until ctx is cancelled.
func (w *TickWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("tick worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("tick worker stopped")
			return
		case <-ticker.C:
			_, _, _ = w.RunOnce(ctx)
		}
	}
}

// RunOnce runs a single tick under the lease. The bool result reports
// whether a tick actually ran; false means another invocation holds the
// lease and this one was skipped.
func (w *TickWorker) RunOnce(ctx context.Context) (service.TickSummary, bool, error) {
	acquired, err := w.lease.Acquire(ctx)
	if err != nil {
		w.logger.Warn("tick lease acquisition failed", zap.Error(err))
		return service.TickSummary{}, false, err
	}
	if !acquired {
		w.metrics.Add(observability.MetricTicksSkipped, 1)
		w.logger.Debug("tick skipped: lease held by another invocation")
		return service.TickSummary{}, false, nil
	}
	defer func() {
		// Release on a fresh context so a cancelled tick still frees the lease.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.lease.Release(releaseCtx); err != nil {
			w.logger.Warn("tick lease release failed", zap.Error(err))
		}
	}()

	tickCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		tickCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	summary, err := w.runner.RunTick(tickCtx)
	if err != nil {
		w.logger.Warn("tick aborted", zap.Error(err), zap.Duration("duration", summary.Duration))
		return summary, true, err
	}
	return summary, true, nil
}
