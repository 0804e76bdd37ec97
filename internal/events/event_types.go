package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/sekolahku/portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
	EventBotDetected    EventType = "bot_detected"
	EventRateLimited    EventType = "rate_limited"
	EventLogout         EventType = "logout"
	EventAccessDenied   EventType = "access_denied"
	EventSessionInvalid EventType = "session_invalid"
	EventOsisAccessFail EventType = "osis_access_lookup_failed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID   string      `json:"user_id,omitempty"`
	Username string      `json:"username,omitempty"`
	Role     domain.Role `json:"role,omitempty"`
	IP       string      `json:"ip"`
}

// Event represents a security event emitted by services and the guard.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	Reason    string `json:"reason"`
	UserAgent string `json:"user_agent,omitempty"`
}

// BotDetectedPayload payload.
type BotDetectedPayload struct {
	Reason    string `json:"reason"`
	UserAgent string `json:"user_agent,omitempty"`
}

// RateLimitedPayload payload.
type RateLimitedPayload struct {
	Scope string `json:"scope"`
}

// GuardPayload payload for guard rejections.
type GuardPayload struct {
	Path    string `json:"path"`
	Prefix  string `json:"prefix,omitempty"`
	Outcome string `json:"outcome"`
	TokenIP string `json:"token_ip,omitempty"`
}
