package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-orchestrator/internal/domain"
)

// StaffRepository handles the orchestrator's staff directory access.
type StaffRepository interface {
	// ClaimCandidate atomically selects and marks one available staff member
	// at the given level in the group, preferring whoever was assigned least
	// recently. Returns pgx.ErrNoRows when nobody qualifies.
	ClaimCandidate(ctx context.Context, group string, level domain.StaffLevel, excludeID *string) (*domain.StaffMember, error)
	ListAutoOfflineDue(ctx context.Context, now time.Time) ([]domain.StaffMember, error)
	// ExpireAvailability forces a staff member offline if their auto-offline
	// deadline is still in the past. Stale calls surface pgx.ErrNoRows.
	ExpireAvailability(ctx context.Context, staffID string, now time.Time) error
	ListGroupAudience(ctx context.Context, group string, role domain.StaffRole) ([]domain.StaffMember, error)
}

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

const staffColumns = `id, name, availability_status, is_available, auto_offline_at,
               last_assigned_at, created_at, updated_at`

func (r *staffRepository) ClaimCandidate(ctx context.Context, group string, level domain.StaffLevel, excludeID *string) (*domain.StaffMember, error) {
	// Selection and claim happen in one statement; SKIP LOCKED keeps two
	// concurrently processed tickets from picking the same row.
	const query = `
        WITH candidate AS (
            SELECT s.id
            FROM staff_members s
            JOIN staff_group_memberships m ON m.staff_id = s.id
            WHERE m.group_name = $1 AND m.staff_level = $2
              AND s.availability_status = 'AVAILABLE' AND s.is_available
              AND ($3::text IS NULL OR s.id::text <> $3)
            ORDER BY s.last_assigned_at ASC NULLS FIRST, s.id
            FOR UPDATE OF s SKIP LOCKED
            LIMIT 1
        )
        UPDATE staff_members st
        SET last_assigned_at = $4, updated_at = NOW()
        FROM candidate
        WHERE st.id = candidate.id
        RETURNING st.id, st.name, st.availability_status, st.is_available,
                  st.auto_offline_at, st.last_assigned_at, st.created_at, st.updated_at`

	var staff domain.StaffMember
	if err := r.pool.QueryRow(ctx, query, group, int(level), excludeID, time.Now()).Scan(
		&staff.ID,
		&staff.Name,
		&staff.Availability,
		&staff.IsAvailable,
		&staff.AutoOfflineAt,
		&staff.LastAssignedAt,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, err
	}
	staff.Memberships = []domain.GroupMembership{{Group: group, Level: level}}
	return &staff, nil
}

func (r *staffRepository) ListAutoOfflineDue(ctx context.Context, now time.Time) ([]domain.StaffMember, error) {
	const query = `
        SELECT ` + staffColumns + `
        FROM staff_members
        WHERE auto_offline_at IS NOT NULL AND auto_offline_at <= $1`
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStaff(rows)
}

func (r *staffRepository) ExpireAvailability(ctx context.Context, staffID string, now time.Time) error {
	const query = `
        UPDATE staff_members
        SET availability_status='OFFLINE', is_available=FALSE, auto_offline_at=NULL, updated_at=NOW()
        WHERE id=$1 AND auto_offline_at IS NOT NULL AND auto_offline_at <= $2`
	cmd, err := r.pool.Exec(ctx, query, staffID, now)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *staffRepository) ListGroupAudience(ctx context.Context, group string, role domain.StaffRole) ([]domain.StaffMember, error) {
	const query = `
        SELECT DISTINCT s.id, s.name, s.availability_status, s.is_available,
               s.auto_offline_at, s.last_assigned_at, s.created_at, s.updated_at
        FROM staff_members s
        JOIN staff_group_memberships m ON m.staff_id = s.id
        WHERE m.group_name = $1 AND m.staff_level = ANY($2)
        ORDER BY s.id`

	levels := role.StaffLevels()
	levelArgs := make([]int32, len(levels))
	for i, l := range levels {
		levelArgs[i] = int32(l)
	}

	rows, err := r.pool.Query(ctx, query, group, levelArgs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStaff(rows)
}

func scanStaff(rows pgx.Rows) ([]domain.StaffMember, error) {
	var result []domain.StaffMember
	for rows.Next() {
		var staff domain.StaffMember
		if err := rows.Scan(
			&staff.ID,
			&staff.Name,
			&staff.Availability,
			&staff.IsAvailable,
			&staff.AutoOfflineAt,
			&staff.LastAssignedAt,
			&staff.CreatedAt,
			&staff.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, staff)
	}
	return result, rows.Err()
}
