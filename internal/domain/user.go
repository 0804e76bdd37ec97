package domain

import "time"

// User is a portal account. Students additionally have a Student record.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Student holds the siswa profile linked to a user account.
type Student struct {
	ID         string
	UserID     string
	Name       string
	NISN       string
	OsisAccess bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName prefers the profile name over the username.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
