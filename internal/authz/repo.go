package authz

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AssignmentRepository loads persisted role grants for a user identifier.
// A user may hold several assignment rows.
type AssignmentRepository interface {
	ListAssignments(ctx context.Context, userID string) ([]string, error)
}

// PGRepository implements AssignmentRepository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListAssignments returns the raw assignment values for userID.
func (r *PGRepository) ListAssignments(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT role FROM role_assignments WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return values, nil
}
