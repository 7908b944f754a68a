package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-orchestrator/internal/domain"
	"github.com/spec-kit/ops-orchestrator/internal/events"
	"github.com/spec-kit/ops-orchestrator/internal/observability"
	"github.com/spec-kit/ops-orchestrator/internal/repository"
	apperrors "github.com/spec-kit/ops-orchestrator/pkg/util"
)

// Clock abstracts time so ticks are testable deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// acknowledgeWindow is how long a new assignee gets to confirm receipt
// before the ticket is remediated again.
const acknowledgeWindow = 10 * time.Minute

// crisisEscalationWindow is the deadline granted after a crisis assignment.
const crisisEscalationWindow = 5 * time.Minute

const (
	reasonNoAcknowledgment = "previous assignee did not acknowledge"
	reasonNoFrontlineStaff = "no level-1 staff available for reassignment"
	reasonCrisisAssignment = "crisis ticket auto-assignment"
)

// Orchestrator keeps tickets moving toward resolution. Each RunTick executes
// four phases in a fixed order: expire inactive staff, reassign or escalate
// unacknowledged tickets, escalate SLA breaches, assign crisis tickets.
type Orchestrator struct {
	tickets     repository.TicketRepository
	staff       repository.StaffRepository
	historyRepo repository.AssignmentHistoryRepository
	escalations repository.EscalationLogRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
	clock       Clock
}

// OrchestratorDependencies bundles collaborators.
type OrchestratorDependencies struct {
	TicketRepo     repository.TicketRepository
	StaffRepo      repository.StaffRepository
	HistoryRepo    repository.AssignmentHistoryRepository
	EscalationRepo repository.EscalationLogRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Clock          Clock
}

// NewOrchestrator creates the service.
func NewOrchestrator(deps OrchestratorDependencies) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return &Orchestrator{
		tickets:     deps.TicketRepo,
		staff:       deps.StaffRepo,
		historyRepo: deps.HistoryRepo,
		escalations: deps.EscalationRepo,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		metrics:     deps.Metrics,
		clock:       clock,
	}
}

// TickSummary reports what one tick did.
type TickSummary struct {
	StartedAt      time.Time
	Duration       time.Duration
	StaffExpired   int
	Reassigned     int
	Escalated      int
	CrisisAssigned int
	CrisisUnfilled int
	StaleSkips     int
	Errors         int
	FailedPhases   []string
}

// RunTick executes the four orchestration phases in order. Each phase has
// its own failure boundary: a phase-level error is recorded and the
// remaining phases still run. Only context cancellation aborts the tick.
func (o *Orchestrator) RunTick(ctx context.Context) (TickSummary, error) {
	now := o.clock.Now()
	summary := TickSummary{StartedAt: now}

	phases := []struct {
		name string
		run  func(context.Context, time.Time, *TickSummary) error
	}{
		{"expire_inactive_staff", o.expireInactiveStaff},
		{"reassign_unacknowledged", o.reassignUnacknowledged},
		{"escalate_sla_breaches", o.escalateSLABreaches},
		{"assign_crisis_tickets", o.assignCrisisTickets},
	}

	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			summary.Duration = o.clock.Now().Sub(now)
			return summary, err
		}
		if err := phase.run(ctx, now, &summary); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				summary.Duration = o.clock.Now().Sub(now)
				return summary, err
			}
			summary.FailedPhases = append(summary.FailedPhases, phase.name)
			o.metrics.Add(observability.MetricPhaseFailures, 1)
			o.logger.Error("orchestration phase failed",
				zap.String("phase", phase.name),
				zap.Error(err))
		}
	}

	summary.Duration = o.clock.Now().Sub(now)
	o.metrics.Add(observability.MetricTicksRun, 1)
	o.logger.Info("tick complete",
		zap.Duration("duration", summary.Duration),
		zap.Int("staff_expired", summary.StaffExpired),
		zap.Int("reassigned", summary.Reassigned),
		zap.Int("escalated", summary.Escalated),
		zap.Int("crisis_assigned", summary.CrisisAssigned),
		zap.Int("crisis_unassigned", summary.CrisisUnfilled),
		zap.Int("stale_skips", summary.StaleSkips),
		zap.Int("errors", summary.Errors),
		zap.Strings("failed_phases", summary.FailedPhases))
	return summary, nil
}

// expireInactiveStaff forces offline every staff member whose auto-offline
// deadline has passed. Idempotent: the conditional update clears the
// deadline, so a second pass matches nothing.
func (o *Orchestrator) expireInactiveStaff(ctx context.Context, now time.Time, summary *TickSummary) error {
	due, err := o.staff.ListAutoOfflineDue(ctx, now)
	if err != nil {
		return fmt.Errorf("list auto-offline staff: %w", err)
	}
	for i := range due {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch err := o.staff.ExpireAvailability(ctx, due[i].ID, now); {
		case err == nil:
			summary.StaffExpired++
			o.metrics.Add(observability.MetricStaffExpired, 1)
		case apperrors.IsStale(err):
			summary.StaleSkips++
			o.metrics.Add(observability.MetricStaleSkips, 1)
		default:
			summary.Errors++
			o.metrics.Add(observability.MetricTicketErrors, 1)
			o.logger.Warn("failed to expire staff availability",
				zap.String("staff_id", due[i].ID), zap.Error(err))
		}
	}
	return nil
}

// reassignUnacknowledged hands each overdue unacknowledged ticket to a fresh
// level-1 staff member, or escalates it to level 2 when the group has nobody
// available. Exactly one of the two happens per ticket.
func (o *Orchestrator) reassignUnacknowledged(ctx context.Context, now time.Time, summary *TickSummary) error {
	due, err := o.tickets.ListUnacknowledgedDue(ctx, now)
	if err != nil {
		return fmt.Errorf("list unacknowledged tickets: %w", err)
	}
	for i := range due {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.remediateUnacknowledged(ctx, now, &due[i], summary)
	}
	return nil
}

func (o *Orchestrator) remediateUnacknowledged(ctx context.Context, now time.Time, ticket *domain.Ticket, summary *TickSummary) {
	if ticket.AssignedTo == nil {
		return
	}
	candidate, err := o.staff.ClaimCandidate(ctx, ticket.AssignedGroup, domain.StaffLevelFrontline, ticket.AssignedTo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			o.escalate(ctx, now, ticket, domain.EscalationLevel2,
				domain.EscalationTypeNoAcknowledgment, reasonNoFrontlineStaff, nil, summary)
			return
		}
		summary.Errors++
		o.metrics.Add(observability.MetricTicketErrors, 1)
		o.logger.Warn("candidate lookup failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("group", ticket.AssignedGroup),
			zap.Error(err))
		return
	}

	deadline := now.Add(acknowledgeWindow)
	err = o.tickets.Reassign(ctx, repository.ReassignUpdate{
		TicketID:         ticket.ID,
		ExpectedAssignee: *ticket.AssignedTo,
		ExpectedDeadline: ticket.NextEscalationAt,
		NewAssigneeID:    candidate.ID,
		NextEscalationAt: deadline,
	})
	switch {
	case err == nil:
	case apperrors.IsStale(err):
		summary.StaleSkips++
		o.metrics.Add(observability.MetricStaleSkips, 1)
		return
	default:
		summary.Errors++
		o.metrics.Add(observability.MetricTicketErrors, 1)
		o.logger.Warn("reassignment failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}

	summary.Reassigned++
	o.metrics.Add(observability.MetricReassigned, 1)
	o.appendAssignmentHistory(ctx, ticket.ID, candidate.ID, domain.AssignmentTypeReassignment, reasonNoAcknowledgment)
	o.publish(ctx, events.Event{
		Type:     events.EventTicketReassigned,
		TicketID: ticket.ID,
		Group:    ticket.AssignedGroup,
		Payload: events.TicketReassignedPayload{
			NewAssigneeID:      candidate.ID,
			PreviousAssigneeID: *ticket.AssignedTo,
			AcknowledgeBy:      deadline,
		},
	})
}

// escalateSLABreaches raises by one level every acknowledged ticket whose
// SLA deadline has passed. Tickets already at the maximum level are left
// untouched; the repository query excludes them.
func (o *Orchestrator) escalateSLABreaches(ctx context.Context, now time.Time, summary *TickSummary) error {
	breached, err := o.tickets.ListSLABreached(ctx, now)
	if err != nil {
		return fmt.Errorf("list SLA-breached tickets: %w", err)
	}
	for i := range breached {
		if err := ctx.Err(); err != nil {
			return err
		}
		ticket := &breached[i]
		target := ticket.EscalationLevel + 1
		reason := fmt.Sprintf("SLA breach - escalating to L%d", target)
		o.escalate(ctx, now, ticket, target, domain.EscalationTypeSLABreach, reason, ticket.SLABreachAt, summary)
	}
	return nil
}

// assignCrisisTickets scans staff levels from the top of the assignable
// pool downward and gives each unassigned crisis ticket to the first
// candidate found. Assigned crisis tickets always enter at the maximum
// escalation level with a short acknowledgment deadline. Tickets with no
// candidate anywhere stay unassigned and are retried next tick.
func (o *Orchestrator) assignCrisisTickets(ctx context.Context, now time.Time, summary *TickSummary) error {
	crisis, err := o.tickets.ListUnassignedCrisis(ctx)
	if err != nil {
		return fmt.Errorf("list crisis tickets: %w", err)
	}
	for i := range crisis {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.assignCrisisTicket(ctx, now, &crisis[i], summary)
	}
	return nil
}

func (o *Orchestrator) assignCrisisTicket(ctx context.Context, now time.Time, ticket *domain.Ticket, summary *TickSummary) {
	var candidate *domain.StaffMember
	var claimedLevel domain.StaffLevel
	for level := domain.MaxAssignableStaffLevel; level >= domain.StaffLevelFrontline; level-- {
		found, err := o.staff.ClaimCandidate(ctx, ticket.AssignedGroup, level, nil)
		if err == nil {
			candidate = found
			claimedLevel = level
			break
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			summary.Errors++
			o.metrics.Add(observability.MetricTicketErrors, 1)
			o.logger.Warn("crisis candidate lookup failed",
				zap.String("ticket_id", ticket.ID),
				zap.Int("staff_level", int(level)),
				zap.Error(err))
			return
		}
	}
	if candidate == nil {
		summary.CrisisUnfilled++
		o.metrics.Add(observability.MetricCrisisUnfilled, 1)
		o.logger.Warn("no staff available for crisis ticket",
			zap.String("ticket_id", ticket.ID),
			zap.String("group", ticket.AssignedGroup))
		return
	}

	deadline := now.Add(crisisEscalationWindow)
	err := o.tickets.AssignCrisis(ctx, repository.CrisisAssignment{
		TicketID:         ticket.ID,
		AssigneeID:       candidate.ID,
		NextEscalationAt: deadline,
	})
	switch {
	case err == nil:
	case apperrors.IsStale(err):
		summary.StaleSkips++
		o.metrics.Add(observability.MetricStaleSkips, 1)
		return
	default:
		summary.Errors++
		o.metrics.Add(observability.MetricTicketErrors, 1)
		o.logger.Warn("crisis assignment failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}

	summary.CrisisAssigned++
	o.metrics.Add(observability.MetricCrisisAssigned, 1)
	o.appendAssignmentHistory(ctx, ticket.ID, candidate.ID, domain.AssignmentTypeAuto, reasonCrisisAssignment)
	o.publish(ctx, events.Event{
		Type:     events.EventCrisisAssigned,
		TicketID: ticket.ID,
		Group:    ticket.AssignedGroup,
		Payload: events.CrisisAssignedPayload{
			AssigneeID:    candidate.ID,
			StaffLevel:    claimedLevel,
			AcknowledgeBy: deadline,
		},
	})
}

// escalate is the shared escalation primitive used by phases 2 and 3.
// The target level never goes below the ticket's current level and never
// above the maximum; the escalation window comes from the level table.
func (o *Orchestrator) escalate(ctx context.Context, now time.Time, ticket *domain.Ticket, target domain.EscalationLevel, escType domain.EscalationType, reason string, breachedAt *time.Time, summary *TickSummary) {
	if target < ticket.EscalationLevel {
		target = ticket.EscalationLevel
	}
	if target > domain.MaxEscalationLevel {
		target = domain.MaxEscalationLevel
	}

	deadline := now.Add(domain.EscalationWindow(target))
	err := o.tickets.Escalate(ctx, repository.EscalateUpdate{
		TicketID:         ticket.ID,
		ExpectedLevel:    ticket.EscalationLevel,
		NewLevel:         target,
		NextEscalationAt: deadline,
	})
	switch {
	case err == nil:
	case apperrors.IsStale(err):
		summary.StaleSkips++
		o.metrics.Add(observability.MetricStaleSkips, 1)
		return
	default:
		summary.Errors++
		o.metrics.Add(observability.MetricTicketErrors, 1)
		o.logger.Warn("escalation failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}

	summary.Escalated++
	o.metrics.Add(observability.MetricEscalated, 1)

	metadata := map[string]any{
		"previous_level": int(ticket.EscalationLevel),
		"new_level":      int(target),
	}
	if breachedAt != nil {
		metadata["breached_at"] = breachedAt.UTC()
	} else {
		metadata["triggered_at"] = now.UTC()
	}
	if err := o.escalations.Create(ctx, &domain.EscalationLogEntry{
		TicketID:       ticket.ID,
		EscalationType: escType,
		Reason:         reason,
		Metadata:       metadata,
	}); err != nil {
		o.metrics.Add(observability.MetricHistoryFailures, 1)
		o.logger.Warn("failed to append escalation log", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}

	o.publish(ctx, events.Event{
		Type:     events.EventTicketEscalated,
		TicketID: ticket.ID,
		Group:    ticket.AssignedGroup,
		Payload: events.TicketEscalatedPayload{
			PreviousLevel: ticket.EscalationLevel,
			NewLevel:      target,
			Reason:        reason,
			BreachedAt:    breachedAt,
		},
	})
}

// appendAssignmentHistory writes the audit entry for an assignment.
// Failures are logged, never propagated: the assignment itself is durable.
func (o *Orchestrator) appendAssignmentHistory(ctx context.Context, ticketID, assigneeID string, assignmentType domain.AssignmentType, reason string) {
	if err := o.historyRepo.Create(ctx, &domain.AssignmentHistoryEntry{
		TicketID:   ticketID,
		AssigneeID: assigneeID,
		Type:       assignmentType,
		Reason:     reason,
	}); err != nil {
		o.metrics.Add(observability.MetricHistoryFailures, 1)
		o.logger.Warn("failed to append assignment history",
			zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if o.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = o.clock.Now()
	_ = o.dispatcher.Publish(ctx, event)
}
