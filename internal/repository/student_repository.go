package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sekolahku/portal/internal/domain"
)

// StudentRepository handles persistence for student profiles.
type StudentRepository interface {
	Create(ctx context.Context, student *domain.Student) error
	GetByUserID(ctx context.Context, userID string) (*domain.Student, error)
	// GetOsisAccess returns the OSIS flag of the student linked to userID.
	// A missing student record reports false without error.
	GetOsisAccess(ctx context.Context, userID string) (bool, error)
	SetOsisAccess(ctx context.Context, userID string, granted bool) error
}

// querier is the part of pgxpool.Pool the student repository uses.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type studentRepository struct {
	pool querier
}

// NewStudentRepository instantiates the repository.
func NewStudentRepository(pool *pgxpool.Pool) StudentRepository {
	return &studentRepository{pool: pool}
}

func (r *studentRepository) Create(ctx context.Context, student *domain.Student) error {
	const query = `
        INSERT INTO students (user_id, name, nisn, osis_access)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		student.UserID,
		student.Name,
		student.NISN,
		student.OsisAccess,
	).Scan(&student.ID, &student.CreatedAt, &student.UpdatedAt)
}

func (r *studentRepository) GetByUserID(ctx context.Context, userID string) (*domain.Student, error) {
	const query = `
        SELECT id, user_id, name, nisn, osis_access, created_at, updated_at
        FROM students WHERE user_id=$1`

	var student domain.Student
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&student.ID,
		&student.UserID,
		&student.Name,
		&student.NISN,
		&student.OsisAccess,
		&student.CreatedAt,
		&student.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepository) GetOsisAccess(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT osis_access FROM students WHERE user_id=$1`

	var granted bool
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&granted); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return granted, nil
}

func (r *studentRepository) SetOsisAccess(ctx context.Context, userID string, granted bool) error {
	const query = `UPDATE students SET osis_access=$1, updated_at=NOW() WHERE user_id=$2`

	cmd, err := r.pool.Exec(ctx, query, granted, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
