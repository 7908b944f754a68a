package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-orchestrator/internal/worker"
	apperrors "github.com/spec-kit/ops-orchestrator/pkg/util"
)

// TickHandler lets operators force an orchestration tick outside the
// regular cadence.
type TickHandler struct {
	worker *worker.TickWorker
	logger *zap.Logger
}

// NewTickHandler returns a new handler instance.
func NewTickHandler(w *worker.TickWorker, logger *zap.Logger) *TickHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TickHandler{worker: w, logger: logger}
}

// Trigger runs one tick under the same lease as the scheduled worker, so a
// manual trigger can never overlap a running tick.
func (h *TickHandler) Trigger(c *fiber.Ctx) error {
	summary, ran, err := h.worker.RunOnce(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	if !ran {
		return apperrors.NewConflict("a tick is already running", nil)
	}

	h.logger.Info("manual tick triggered")
	return c.JSON(fiber.Map{
		"started_at":      summary.StartedAt,
		"duration_ms":     summary.Duration.Milliseconds(),
		"staff_expired":   summary.StaffExpired,
		"reassigned":      summary.Reassigned,
		"escalated":       summary.Escalated,
		"crisis_assigned": summary.CrisisAssigned,
		"crisis_unfilled": summary.CrisisUnfilled,
		"stale_skips":     summary.StaleSkips,
		"errors":          summary.Errors,
		"failed_phases":   summary.FailedPhases,
	})
}
