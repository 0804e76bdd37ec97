package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/sekolahku/portal/internal/domain"
	"github.com/sekolahku/portal/internal/events"
	"github.com/sekolahku/portal/internal/repository"
)

// AccessService resolves compound access rules that a role alone cannot answer.
type AccessService struct {
	students   repository.StudentRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAccessService builds the service.
func NewAccessService(students repository.StudentRepository, dispatcher events.Dispatcher, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{students: students, dispatcher: dispatcher, logger: logger}
}

// HasOsisAccess reports whether the user may use OSIS features: admins and
// OSIS accounts always may, students only when their record carries the OSIS
// flag. Storage failures deny access.
func (s *AccessService) HasOsisAccess(ctx context.Context, userID, role string) bool {
	switch {
	case domain.IsAdminRole(role), domain.IsOsisRole(role):
		return true
	case domain.IsSiswaRole(role):
	default:
		return false
	}

	if userID == "" || s.students == nil {
		return false
	}
	granted, err := s.students.GetOsisAccess(ctx, userID)
	if err != nil {
		s.logger.Error("osis access lookup failed", zap.String("user_id", userID), zap.Error(err))
		if s.dispatcher != nil {
			_ = s.dispatcher.Publish(ctx, events.New(events.EventOsisAccessFail,
				events.Actor{UserID: userID, Role: domain.RoleSiswa}, nil))
		}
		return false
	}
	return granted
}
