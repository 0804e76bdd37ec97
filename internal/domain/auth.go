package domain

import "time"

// Session describes an issued session token.
type Session struct {
	ID          string
	UserID      string
	Username    string
	Role        Role
	Permissions []string
	ClientIP    string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}
