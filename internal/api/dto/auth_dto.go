package dto

import "time"

// LoginRequest is the login form payload.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Role     string `json:"role" form:"role"`
	Honeypot string `json:"honeypot" form:"honeypot"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// SessionResponse describes the issued session without the token itself,
// which only travels in the HTTP-only cookie.
type SessionResponse struct {
	ExpiresAt  time.Time `json:"expires_at"`
	RedirectTo string    `json:"redirect_to"`
}

// OsisAccessResponse reports the OSIS access decision for the caller.
type OsisAccessResponse struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	Allowed bool   `json:"allowed"`
}

// CreateUserRequest is the admin payload for registering an account.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	NISN     string `json:"nisn"`
}

// OsisAccessUpdateRequest toggles a student's OSIS flag.
type OsisAccessUpdateRequest struct {
	Granted *bool `json:"granted"`
}

// StudentResponse is the admin view of a student profile.
type StudentResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	NISN       string    `json:"nisn"`
	OsisAccess bool      `json:"osis_access"`
	UpdatedAt  time.Time `json:"updated_at"`
}
