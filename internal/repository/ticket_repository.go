package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-orchestrator/internal/domain"
)

// ReassignUpdate reassigns an unacknowledged ticket to a new staff member.
// Expected* fields are the values read at tick start; the update is a no-op
// when another writer changed them in the meantime.
type ReassignUpdate struct {
	TicketID         string
	ExpectedAssignee string
	ExpectedDeadline *time.Time
	NewAssigneeID    string
	NextEscalationAt time.Time
}

// EscalateUpdate raises a ticket's escalation level.
type EscalateUpdate struct {
	TicketID         string
	ExpectedLevel    domain.EscalationLevel
	NewLevel         domain.EscalationLevel
	NextEscalationAt time.Time
}

// CrisisAssignment assigns an unassigned crisis ticket at maximum urgency.
type CrisisAssignment struct {
	TicketID         string
	AssigneeID       string
	NextEscalationAt time.Time
}

// TicketRepository encapsulates the orchestrator's slice of ticket persistence.
// All mutations are conditional on the state read at selection time and
// surface pgx.ErrNoRows when that state is gone, so concurrent ticks never
// double-remediate a ticket.
type TicketRepository interface {
	ListUnacknowledgedDue(ctx context.Context, now time.Time) ([]domain.Ticket, error)
	ListSLABreached(ctx context.Context, now time.Time) ([]domain.Ticket, error)
	ListUnassignedCrisis(ctx context.Context) ([]domain.Ticket, error)
	Reassign(ctx context.Context, upd ReassignUpdate) error
	Escalate(ctx context.Context, upd EscalateUpdate) error
	AssignCrisis(ctx context.Context, a CrisisAssignment) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, priority, status, assigned_group, assigned_to,
               escalation_level, assignment_acknowledged_at, next_escalation_at,
               sla_breach_at, is_crisis, auto_assignment_attempts, created_at, updated_at`

func (r *ticketRepository) ListUnacknowledgedDue(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM tickets
        WHERE assigned_to IS NOT NULL
          AND assignment_acknowledged_at IS NULL
          AND next_escalation_at IS NOT NULL AND next_escalation_at <= $1
          AND status IN ('PENDING','IN_PROGRESS')`
	return r.list(ctx, query, now)
}

func (r *ticketRepository) ListSLABreached(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM tickets
        WHERE sla_breach_at IS NOT NULL AND sla_breach_at <= $1
          AND assignment_acknowledged_at IS NOT NULL
          AND escalation_level < $2
          AND status IN ('PENDING','IN_PROGRESS')`
	return r.list(ctx, query, now, int(domain.MaxEscalationLevel))
}

func (r *ticketRepository) ListUnassignedCrisis(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM tickets
        WHERE is_crisis AND assigned_to IS NULL AND status = 'PENDING'`
	return r.list(ctx, query)
}

func (r *ticketRepository) Reassign(ctx context.Context, upd ReassignUpdate) error {
	const query = `
        UPDATE tickets
        SET assigned_to=$1, assignment_acknowledged_at=NULL, next_escalation_at=$2,
            auto_assignment_attempts=auto_assignment_attempts+1, updated_at=NOW()
        WHERE id=$3 AND assigned_to=$4
          AND assignment_acknowledged_at IS NULL
          AND next_escalation_at IS NOT DISTINCT FROM $5
          AND status IN ('PENDING','IN_PROGRESS')`
	cmd, err := r.pool.Exec(ctx, query,
		upd.NewAssigneeID,
		upd.NextEscalationAt,
		upd.TicketID,
		upd.ExpectedAssignee,
		upd.ExpectedDeadline,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) Escalate(ctx context.Context, upd EscalateUpdate) error {
	// escalation_level <= new level keeps the monotonic invariant even if
	// the expected-level check is ever relaxed.
	const query = `
        UPDATE tickets
        SET escalation_level=$1, next_escalation_at=$2, updated_at=NOW()
        WHERE id=$3 AND escalation_level=$4 AND escalation_level <= $1
          AND status IN ('PENDING','IN_PROGRESS')`
	cmd, err := r.pool.Exec(ctx, query,
		int(upd.NewLevel),
		upd.NextEscalationAt,
		upd.TicketID,
		int(upd.ExpectedLevel),
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) AssignCrisis(ctx context.Context, a CrisisAssignment) error {
	const query = `
        UPDATE tickets
        SET assigned_to=$1, assignment_acknowledged_at=NULL, escalation_level=$2,
            next_escalation_at=$3, auto_assignment_attempts=auto_assignment_attempts+1,
            updated_at=NOW()
        WHERE id=$4 AND is_crisis AND assigned_to IS NULL AND status='PENDING'`
	cmd, err := r.pool.Exec(ctx, query,
		a.AssigneeID,
		int(domain.MaxEscalationLevel),
		a.NextEscalationAt,
		a.TicketID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) list(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		var level int
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Priority,
			&ticket.Status,
			&ticket.AssignedGroup,
			&ticket.AssignedTo,
			&level,
			&ticket.AssignmentAcknowledgedAt,
			&ticket.NextEscalationAt,
			&ticket.SLABreachAt,
			&ticket.IsCrisis,
			&ticket.AutoAssignmentAttempts,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		ticket.EscalationLevel = domain.EscalationLevel(level)
		result = append(result, ticket)
	}
	return result, rows.Err()
}
