package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-orchestrator/internal/domain"
)

// EscalationLogRepository stores append-only escalation audit entries.
type EscalationLogRepository interface {
	Create(ctx context.Context, entry *domain.EscalationLogEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.EscalationLogEntry, error)
}

type escalationLogRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationLogRepository builds repository.
func NewEscalationLogRepository(pool *pgxpool.Pool) EscalationLogRepository {
	return &escalationLogRepository{pool: pool}
}

func (r *escalationLogRepository) Create(ctx context.Context, entry *domain.EscalationLogEntry) error {
	const query = `
        INSERT INTO escalation_log (ticket_id, escalation_type, reason, metadata)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.EscalationType,
		entry.Reason,
		entry.Metadata,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *escalationLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.EscalationLogEntry, error) {
	const query = `
        SELECT id, ticket_id, escalation_type, reason, metadata, created_at
        FROM escalation_log WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EscalationLogEntry
	for rows.Next() {
		var entry domain.EscalationLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.EscalationType,
			&entry.Reason,
			&entry.Metadata,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
