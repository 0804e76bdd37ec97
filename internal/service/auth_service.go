package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/sekolahku/portal/internal/auth"
	"github.com/sekolahku/portal/internal/config"
	"github.com/sekolahku/portal/internal/domain"
	"github.com/sekolahku/portal/internal/events"
	"github.com/sekolahku/portal/internal/observability"
	"github.com/sekolahku/portal/internal/repository"
	apperrors "github.com/sekolahku/portal/pkg/util"
)

const maxUserAgentLength = 500

var (
	ErrInvalidCredentials = apperrors.NewDomainError("INVALID_CREDENTIALS", "Invalid credentials", http.StatusUnauthorized, nil)
	ErrSecurityCheck      = apperrors.NewDomainError("SECURITY_CHECK_FAILED", "Security check failed", http.StatusBadRequest, nil)
	ErrTooManyAttempts    = apperrors.NewDomainError("RATE_LIMITED", "Too many login attempts. Please try again later.", http.StatusTooManyRequests, nil)
)

// LoginLimiter throttles login attempts per client.
type LoginLimiter interface {
	Allow(ctx context.Context, id string) (bool, error)
	Reset(ctx context.Context, id string) error
}

// LoginInput is the raw login form plus request metadata.
type LoginInput struct {
	Username  string `validate:"required,max=100"`
	Password  string `validate:"required,min=8,max=128"`
	Role      string `validate:"required,oneof=admin kesiswaan siswa osis ppdb-officer"`
	Honeypot  string `validate:"max=0"`
	ClientIP  string `validate:"-"`
	UserAgent string `validate:"-"`
}

// LoginResult carries the issued session.
type LoginResult struct {
	User       *domain.User
	Role       domain.Role
	Token      string
	Session    *domain.Session
	RedirectTo string
}

// AuthService coordinates login and logout flows.
type AuthService struct {
	users      repository.UserRepository
	attempts   repository.LoginAttemptRepository
	limiter    LoginLimiter
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	validate   *validator.Validate
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo         repository.UserRepository
	LoginAttemptRepo repository.LoginAttemptRepository
	Limiter          LoginLimiter
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Logger           *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}
	return &AuthService{
		users:      deps.UserRepo,
		attempts:   deps.LoginAttemptRepo,
		limiter:    deps.Limiter,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL()),
		dispatcher: dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		validate:   validator.New(),
	}
}

// Login authenticates the form and issues a session token bound to the client IP.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	actor := events.Actor{Username: in.Username, IP: in.ClientIP}

	if err := s.validateInput(in); err != nil {
		if errors.Is(err, ErrSecurityCheck) {
			s.metrics.RecordLogin("bot_detected")
			s.publish(ctx, events.New(events.EventBotDetected, actor,
				events.BotDetectedPayload{Reason: "honeypot filled", UserAgent: truncate(in.UserAgent, maxUserAgentLength)}))
		}
		return nil, err
	}

	allowed, err := s.limiter.Allow(ctx, in.ClientIP)
	if err != nil {
		s.logger.Error("login limiter unavailable", zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	if !allowed {
		s.metrics.RecordLogin("rate_limited")
		s.publish(ctx, events.New(events.EventRateLimited, actor, events.RateLimitedPayload{Scope: "login_ip"}))
		return nil, ErrTooManyAttempts
	}

	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid role", nil)
	}
	actor.Role = role

	var user *domain.User
	if role == domain.RoleOsis {
		user, err = s.users.GetOsisCandidate(ctx, in.Username)
	} else {
		user, err = s.users.GetByUsernameAndRole(ctx, in.Username, role)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			auth.CompareDummy(in.Password)
			s.fail(ctx, in, actor, "User not found")
			return nil, ErrInvalidCredentials
		}
		return nil, apperrors.NewInternalError(err)
	}

	if err := auth.ComparePassword(user.PasswordHash, in.Password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("stored password hash unusable", zap.String("user_id", user.ID), zap.Error(err))
		}
		actor.UserID = user.ID
		s.fail(ctx, in, actor, "Invalid password")
		return nil, ErrInvalidCredentials
	}

	if _, err := s.attempts.ResolveFailures(ctx, in.Username); err != nil {
		s.logger.Warn("resolve login failures", zap.String("username", in.Username), zap.Error(err))
	}
	s.record(ctx, in, true, "")
	if err := s.limiter.Reset(ctx, in.ClientIP); err != nil {
		s.logger.Warn("reset login limiter", zap.Error(err))
	}

	// The session carries the role the user signed in as, which for OSIS
	// may differ from the stored SISWA role.
	sessionUser := *user
	sessionUser.Role = role
	token, session, err := s.tokenMgr.GenerateToken(&sessionUser, in.ClientIP)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	actor.UserID = user.ID
	s.metrics.RecordLogin("success")
	s.publish(ctx, events.New(events.EventLoginSucceeded, actor, nil))

	return &LoginResult{
		User:       user,
		Role:       role,
		Token:      token,
		Session:    session,
		RedirectTo: role.DashboardPath(),
	}, nil
}

// Logout records the end of a session. Tokens are stateless, so clearing
// the cookie is the caller's job.
func (s *AuthService) Logout(ctx context.Context, principal *auth.Principal, clientIP string) {
	actor := events.Actor{IP: clientIP}
	if principal != nil {
		actor.UserID = principal.UserID
		actor.Username = principal.Username
		actor.Role = principal.Role
	}
	s.publish(ctx, events.New(events.EventLogout, actor, nil))
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) validateInput(in LoginInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.NewValidationError("invalid login form", nil)
	}
	for _, fe := range fieldErrs {
		if fe.Field() == "Honeypot" {
			return ErrSecurityCheck
		}
	}
	fe := fieldErrs[0]
	return apperrors.NewValidationError(loginFieldMessage(fe), map[string]any{"field": fe.Field()})
}

func loginFieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Username":
		if fe.Tag() == "required" {
			return "Username is required"
		}
		return "Username is too long"
	case "Password":
		switch fe.Tag() {
		case "required":
			return "Password is required"
		case "min":
			return "Password must be at least 8 characters"
		}
		return "Password is too long"
	case "Role":
		return "Invalid role"
	}
	return "invalid login form"
}

func (s *AuthService) fail(ctx context.Context, in LoginInput, actor events.Actor, reason string) {
	s.record(ctx, in, false, reason)
	s.metrics.RecordLogin("failed")
	s.publish(ctx, events.New(events.EventLoginFailed, actor,
		events.LoginFailedPayload{Reason: reason, UserAgent: truncate(in.UserAgent, maxUserAgentLength)}))
}

func (s *AuthService) record(ctx context.Context, in LoginInput, success bool, reason string) {
	attempt := &domain.LoginAttempt{
		IP:            in.ClientIP,
		Username:      in.Username,
		UserAgent:     truncate(in.UserAgent, maxUserAgentLength),
		Success:       success,
		FailureReason: reason,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		s.logger.Warn("record login attempt", zap.String("username", in.Username), zap.Error(err))
	}
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("security event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
