package auth

import "errors"

// Guard rejection causes. Each maps onto the machine-readable reason placed in
// the login redirect's error parameter.
var (
	ErrMissingToken       = errors.New("missing session token")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrSessionIPMismatch  = errors.New("session bound to a different client ip")
	ErrSessionExpiredAge  = errors.New("session older than maximum age")
	ErrRoleUnauthorized   = errors.New("role not permitted for route")
	ErrInvalidRouteConfig = errors.New("invalid route protection table")
)

const (
	ReasonAuthenticationRequired = "authentication_required"
	ReasonInvalidToken           = "invalid_token"
	ReasonSessionInvalid         = "session_invalid"
	ReasonSessionExpired         = "session_expired"
	ReasonUnauthorized           = "unauthorized"
)

// Reason returns the redirect reason for a guard error.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return ReasonAuthenticationRequired
	case errors.Is(err, ErrSessionIPMismatch):
		return ReasonSessionInvalid
	case errors.Is(err, ErrSessionExpiredAge):
		return ReasonSessionExpired
	case errors.Is(err, ErrRoleUnauthorized):
		return ReasonUnauthorized
	default:
		return ReasonInvalidToken
	}
}
