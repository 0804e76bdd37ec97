package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sekolahku/portal/internal/domain"
)

// LoginAttemptRepository persists the login audit trail.
type LoginAttemptRepository interface {
	Create(ctx context.Context, attempt *domain.LoginAttempt) error
	// ResolveFailures marks the username's unresolved failures as resolved.
	ResolveFailures(ctx context.Context, username string) (int64, error)
}

type loginAttemptRepository struct {
	pool *pgxpool.Pool
}

// NewLoginAttemptRepository constructs repository.
func NewLoginAttemptRepository(pool *pgxpool.Pool) LoginAttemptRepository {
	return &loginAttemptRepository{pool: pool}
}

func (r *loginAttemptRepository) Create(ctx context.Context, attempt *domain.LoginAttempt) error {
	const query = `
        INSERT INTO login_attempts (ip, username, user_agent, success, failure_reason)
        VALUES ($1,$2,$3,$4,NULLIF($5,''))
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		attempt.IP,
		attempt.Username,
		attempt.UserAgent,
		attempt.Success,
		attempt.FailureReason,
	).Scan(&attempt.ID, &attempt.CreatedAt)
}

func (r *loginAttemptRepository) ResolveFailures(ctx context.Context, username string) (int64, error) {
	const query = `
        UPDATE login_attempts SET resolved=TRUE
        WHERE username=$1 AND success=FALSE AND resolved=FALSE`
	cmd, err := r.pool.Exec(ctx, query, username)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
