package domain

import "time"

// LoginAttempt records a single credential check for auditing.
type LoginAttempt struct {
	ID            string
	IP            string
	Username      string
	UserAgent     string
	Success       bool
	FailureReason string
	Resolved      bool
	CreatedAt     time.Time
}
