package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/sekolahku/portal/internal/auth"
	"github.com/sekolahku/portal/internal/events"
	"github.com/sekolahku/portal/internal/observability"
)

// SecurityAuditService writes the security log and turns route guard
// decisions into events and metrics.
type SecurityAuditService struct {
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewSecurityAuditService creates the service.
func NewSecurityAuditService(dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *SecurityAuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecurityAuditService{
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger.Named("security"),
	}
}

// RegisterHandlers subscribes to events.
func (s *SecurityAuditService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventLoginSucceeded,
		events.EventLoginFailed,
		events.EventBotDetected,
		events.EventRateLimited,
		events.EventLogout,
		events.EventAccessDenied,
		events.EventSessionInvalid,
		events.EventOsisAccessFail,
	} {
		s.dispatcher.Subscribe(eventType, s.handle)
	}
}

func (s *SecurityAuditService) handle(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event", string(event.Type)),
		zap.Time("timestamp", event.Timestamp),
		zap.String("ip", event.Actor.IP),
	}
	if event.Actor.UserID != "" {
		fields = append(fields, zap.String("user_id", event.Actor.UserID))
	}
	if event.Actor.Username != "" {
		fields = append(fields, zap.String("username", event.Actor.Username))
	}
	if event.Actor.Role != "" {
		fields = append(fields, zap.String("role", event.Actor.Role.String()))
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("details", event.Payload))
	}

	switch event.Type {
	case events.EventLoginSucceeded, events.EventLogout:
		s.logger.Info("security event", fields...)
	default:
		s.logger.Warn("security event", fields...)
	}
	return nil
}

// ObserveDecision implements auth.DecisionObserver.
func (s *SecurityAuditService) ObserveDecision(ctx context.Context, d auth.Decision) {
	s.metrics.RecordGuardDecision(d.Prefix, string(d.Outcome))

	var eventType events.EventType
	switch d.Outcome {
	case auth.OutcomeAuthorized, auth.OutcomeNoToken:
		return
	case auth.OutcomeRoleMismatch:
		eventType = events.EventAccessDenied
	default:
		eventType = events.EventSessionInvalid
	}
	if s.dispatcher == nil {
		return
	}
	actor := events.Actor{UserID: d.UserID, Role: d.Role, IP: d.ClientIP}
	payload := events.GuardPayload{Path: d.Path, Prefix: d.Prefix, Outcome: string(d.Outcome), TokenIP: d.TokenIP}
	if err := s.dispatcher.Publish(ctx, events.New(eventType, actor, payload)); err != nil {
		s.logger.Warn("publish guard decision", zap.Error(err))
	}
}
