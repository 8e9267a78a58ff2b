package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ActivityRepository stores the append-only audit trail.
type ActivityRepository interface {
	Append(ctx context.Context, activity *domain.Activity) error
	// ListByTicket returns entries newest first.
	ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Activity, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Activity, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository builds repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Append(ctx context.Context, activity *domain.Activity) error {
	const query = `
        INSERT INTO activities (ticket_id, actor_id, kind, detail, is_internal, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		activity.TicketID,
		activity.ActorID,
		activity.Kind,
		activity.Detail,
		activity.Internal,
		activity.CreatedAt,
	).Scan(&activity.ID)
	return translate(err)
}

func (r *activityRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Activity, error) {
	const query = `
        SELECT id, ticket_id, actor_id, kind, detail, is_internal, created_at
        FROM activities WHERE ticket_id=$1 AND ($2 OR NOT is_internal)
        ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, ticketID, includeInternal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivities(rows)
}

func (r *activityRepository) ListRecent(ctx context.Context, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, ticket_id, actor_id, kind, detail, is_internal, created_at
        FROM activities ORDER BY created_at DESC, id DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivities(rows)
}

func scanActivities(rows pgx.Rows) ([]domain.Activity, error) {
	result := make([]domain.Activity, 0)
	for rows.Next() {
		var activity domain.Activity
		if err := rows.Scan(
			&activity.ID,
			&activity.TicketID,
			&activity.ActorID,
			&activity.Kind,
			&activity.Detail,
			&activity.Internal,
			&activity.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}
