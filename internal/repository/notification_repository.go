package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-orchestrator/internal/domain"
)

// NotificationRepository appends outbound notification records. The
// notification sink reads and delivers them out of band.
type NotificationRepository interface {
	Create(ctx context.Context, record *domain.NotificationRecord) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, record *domain.NotificationRecord) error {
	const query = `
        INSERT INTO notifications (id, recipient_id, title, message, notification_type, action_url, metadata)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		record.ID,
		record.RecipientID,
		record.Title,
		record.Message,
		record.Type,
		record.ActionURL,
		record.Metadata,
	).Scan(&record.CreatedAt)
}
