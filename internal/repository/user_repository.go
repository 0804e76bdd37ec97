package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sekolahku/portal/internal/domain"
)

// UserRepository defines persistence access for portal accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByUsernameAndRole returns the account with exactly this role.
	GetByUsernameAndRole(ctx context.Context, username string, role domain.Role) (*domain.User, error)
	// GetOsisCandidate returns an account that may sign in as OSIS: role OSIS,
	// or role SISWA whose student record carries the OSIS access flag.
	GetOsisCandidate(ctx context.Context, username string) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `u.id, u.username, u.password_hash, u.role, COALESCE(s.name, k.name, ''), u.created_at, u.updated_at`

const userFrom = `
        FROM users u
        LEFT JOIN students s ON s.user_id = u.id
        LEFT JOIN kesiswaan_staff k ON k.user_id = u.id`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, password_hash, role)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Username,
		user.PasswordHash,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + userFrom + ` WHERE u.id=$1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByUsernameAndRole(ctx context.Context, username string, role domain.Role) (*domain.User, error) {
	query := `SELECT ` + userColumns + userFrom + ` WHERE u.username=$1 AND u.role=$2`
	return scanUser(r.pool.QueryRow(ctx, query, username, role))
}

func (r *userRepository) GetOsisCandidate(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + userFrom + `
        WHERE u.username=$1
          AND (u.role=$2 OR (u.role=$3 AND s.osis_access))
        ORDER BY CASE WHEN u.role=$2 THEN 0 ELSE 1 END
        LIMIT 1`
	return scanUser(r.pool.QueryRow(ctx, query, username, domain.RoleOsis, domain.RoleSiswa))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.Name,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
