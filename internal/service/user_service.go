package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/sekolahku/portal/internal/auth"
	"github.com/sekolahku/portal/internal/domain"
	"github.com/sekolahku/portal/internal/repository"
	apperrors "github.com/sekolahku/portal/pkg/util"
)

// CreateUserInput describes a new portal account.
type CreateUserInput struct {
	Username string `validate:"required,max=100"`
	Password string `validate:"required,min=8,max=128"`
	Role     string `validate:"required"`
	Name     string `validate:"max=200"`
	NISN     string `validate:"max=20"`
}

// UserService manages accounts on behalf of administrators.
type UserService struct {
	users      repository.UserRepository
	students   repository.StudentRepository
	bcryptCost int
	logger     *zap.Logger
	validate   *validator.Validate
}

// NewUserService builds the service.
func NewUserService(users repository.UserRepository, students repository.StudentRepository, bcryptCost int, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:      users,
		students:   students,
		bcryptCost: bcryptCost,
		logger:     logger,
		validate:   validator.New(),
	}
}

// CreateUser registers an account. SISWA accounts also get a student profile,
// which starts without OSIS access.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	if err := s.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return nil, apperrors.NewValidationError("invalid "+strings.ToLower(fieldErrs[0].Field()),
				map[string]any{"field": fieldErrs[0].Field(), "rule": fieldErrs[0].Tag()})
		}
		return nil, apperrors.NewValidationError("invalid user payload", nil)
	}

	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid role", map[string]any{"field": "Role"})
	}
	if role == domain.RoleSiswa && strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.NewValidationError("students need a name", map[string]any{"field": "Name"})
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hash,
		Role:         role,
		Name:         strings.TrimSpace(in.Name),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewDomainError("USER_EXISTS", "username already registered for this role", http.StatusConflict, nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	if role == domain.RoleSiswa {
		student := &domain.Student{UserID: user.ID, Name: user.Name, NISN: in.NISN}
		if err := s.students.Create(ctx, student); err != nil {
			s.logger.Error("create student profile", zap.String("user_id", user.ID), zap.Error(err))
			return nil, apperrors.NewInternalError(err)
		}
	}

	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", role.String()))
	return user, nil
}

// GetUser loads an account by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

// SetOsisAccess grants or revokes the OSIS flag on a student profile and
// returns the updated profile.
func (s *UserService) SetOsisAccess(ctx context.Context, userID string, granted bool) (*domain.Student, error) {
	if err := s.students.SetOsisAccess(ctx, userID, granted); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("student", map[string]any{"user_id": userID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	student, err := s.students.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("osis access updated", zap.String("user_id", userID), zap.Bool("granted", granted))
	return student, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
