package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-orchestrator/internal/domain"
)

// AssignmentHistoryRepository stores append-only assignment audit entries.
type AssignmentHistoryRepository interface {
	Create(ctx context.Context, entry *domain.AssignmentHistoryEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignmentHistoryEntry, error)
}

type assignmentHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentHistoryRepository builds repository.
func NewAssignmentHistoryRepository(pool *pgxpool.Pool) AssignmentHistoryRepository {
	return &assignmentHistoryRepository{pool: pool}
}

func (r *assignmentHistoryRepository) Create(ctx context.Context, entry *domain.AssignmentHistoryEntry) error {
	const query = `
        INSERT INTO assignment_history (ticket_id, assignee_id, assignment_type, reason)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.AssigneeID,
		entry.Type,
		entry.Reason,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *assignmentHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignmentHistoryEntry, error) {
	const query = `
        SELECT id, ticket_id, assignee_id, assignment_type, reason, created_at
        FROM assignment_history WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AssignmentHistoryEntry
	for rows.Next() {
		var entry domain.AssignmentHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.AssigneeID,
			&entry.Type,
			&entry.Reason,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
