package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sekolahku/portal/internal/domain"
)

// TokenManager handles issuing and validating session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock swaps the time source; used by tests.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

// Claims describes the session token payload.
type Claims struct {
	UserID      string   `json:"userId"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	ClientIP    string   `json:"ip"`
	jwt.RegisteredClaims
}

// GenerateToken builds and signs a session token bound to clientIP.
func (tm *TokenManager) GenerateToken(user *domain.User, clientIP string) (string, *domain.Session, error) {
	issuedAt := tm.now()
	session := &domain.Session{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		Permissions: user.Role.Permissions(),
		ClientIP:    clientIP,
		IssuedAt:    issuedAt,
		ExpiresAt:   issuedAt.Add(tm.ttl),
	}

	tokenString, err := tm.Sign(&Claims{
		UserID:      session.UserID,
		Username:    session.Username,
		Role:        string(session.Role),
		Permissions: session.Permissions,
		ClientIP:    session.ClientIP,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	})
	if err != nil {
		return "", nil, err
	}
	return tokenString, session, nil
}

// Sign serializes arbitrary claims with the manager's key.
func (tm *TokenManager) Sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// ParseToken validates the signature and registered claims and returns the payload.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now), jwt.WithIssuedAt())
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Session converts verified claims into a session, mapping the role once.
func (c *Claims) Session() (*domain.Session, error) {
	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return nil, err
	}
	if c.UserID == "" {
		return nil, errors.New("token missing user id")
	}
	session := &domain.Session{
		ID:          c.ID,
		UserID:      c.UserID,
		Username:    c.Username,
		Role:        role,
		Permissions: c.Permissions,
		ClientIP:    c.ClientIP,
	}
	if c.IssuedAt != nil {
		session.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		session.ExpiresAt = c.ExpiresAt.Time
	}
	return session, nil
}
