package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sekolahku/portal/internal/domain"
	apperrors "github.com/sekolahku/portal/pkg/util"
)

const principalKey = "auth_principal"

// Headers forwarded to downstream handlers for an authorized request.
const (
	HeaderUserID          = "X-User-Id"
	HeaderUserRole        = "X-User-Role"
	HeaderUserPermissions = "X-User-Permissions"
)

// Principal represents the authenticated caller.
type Principal struct {
	UserID      string
	Username    string
	Role        domain.Role
	Permissions []string
	ClientIP    string
	IssuedAt    time.Time
}

// Outcome names the terminal state of a guard evaluation.
type Outcome string

const (
	OutcomeNoToken      Outcome = "no_token"
	OutcomeInvalid      Outcome = "token_invalid"
	OutcomeIPMismatch   Outcome = "ip_mismatch"
	OutcomeExpiredAge   Outcome = "expired_age"
	OutcomeRoleMismatch Outcome = "role_mismatch"
	OutcomeAuthorized   Outcome = "authorized"
)

// Decision is reported to the observer for every guarded request.
type Decision struct {
	Outcome  Outcome
	Path     string
	Prefix   string
	ClientIP string
	TokenIP  string
	UserID   string
	Role     domain.Role
	Err      error
}

// DecisionObserver receives guard decisions for auditing and metrics.
type DecisionObserver interface {
	ObserveDecision(ctx context.Context, decision Decision)
}

// GuardConfig bundles guard dependencies.
type GuardConfig struct {
	Tokens                *TokenManager
	Routes                *RouteTable
	Cookie                CookieOptions
	MaxAge                time.Duration
	AllowLoopbackMismatch bool
	LoginPath             string
	UnauthorizedPath      string
	Observer              DecisionObserver
	Logger                *zap.Logger
	Now                   func() time.Time
}

// Guard authenticates session cookies and authorizes protected prefixes.
type Guard struct {
	tokens           *TokenManager
	routes           *RouteTable
	cookie           CookieOptions
	maxAge           time.Duration
	allowLoopback    bool
	loginPath        string
	unauthorizedPath string
	observer         DecisionObserver
	logger           *zap.Logger
	now              func() time.Time
}

// NewGuard constructs the guard, filling defaults.
func NewGuard(cfg GuardConfig) *Guard {
	g := &Guard{
		tokens:           cfg.Tokens,
		routes:           cfg.Routes,
		cookie:           cfg.Cookie,
		maxAge:           cfg.MaxAge,
		allowLoopback:    cfg.AllowLoopbackMismatch,
		loginPath:        cfg.LoginPath,
		unauthorizedPath: cfg.UnauthorizedPath,
		observer:         cfg.Observer,
		logger:           cfg.Logger,
		now:              cfg.Now,
	}
	if g.maxAge <= 0 {
		g.maxAge = 24 * time.Hour
	}
	if g.loginPath == "" {
		g.loginPath = "/login"
	}
	if g.unauthorizedPath == "" {
		g.unauthorizedPath = "/unauthorized"
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Handle protects the prefixes in the route table and bounces signed-in
// users away from the login page. Unprotected paths pass through.
func (g *Guard) Handle(c *fiber.Ctx) error {
	stripPrincipalHeaders(c)

	path := c.Path()
	if rule, ok := g.routes.Match(path); ok {
		return g.protect(c, rule)
	}
	if strings.EqualFold(path, g.loginPath) {
		return g.redirectSignedIn(c)
	}
	return c.Next()
}

// RequireSession authenticates API calls without route-table authorization.
// Failures are reported as 401 errors instead of redirects.
func (g *Guard) RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		stripPrincipalHeaders(c)

		principal, tokenIP, err := g.Authenticate(c)
		decision := Decision{Path: c.Path(), ClientIP: ClientIP(c), TokenIP: tokenIP, Err: err}
		if err != nil {
			decision.Outcome = outcomeFor(err)
			g.observe(c, decision)
			if !errors.Is(err, ErrMissingToken) {
				ClearSessionCookie(c, g.cookie)
			}
			return apperrors.NewUnauthorized(Reason(err))
		}
		decision.Outcome = OutcomeAuthorized
		decision.UserID = principal.UserID
		decision.Role = principal.Role
		g.observe(c, decision)

		g.attach(c, principal)
		return c.Next()
	}
}

// OptionalSession attaches the principal when a usable session is present
// and continues either way.
func (g *Guard) OptionalSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		stripPrincipalHeaders(c)
		if principal, _, err := g.Authenticate(c); err == nil {
			g.attach(c, principal)
		}
		return c.Next()
	}
}

// Authenticate runs the token checks: presence, signature, client binding
// and age. It returns the token's bound address for auditing.
func (g *Guard) Authenticate(c *fiber.Ctx) (*Principal, string, error) {
	raw := c.Cookies(SessionCookieName)
	if raw == "" {
		return nil, "", ErrMissingToken
	}

	claims, err := g.tokens.ParseToken(raw)
	if err != nil {
		return nil, "", errors.Join(ErrInvalidToken, err)
	}
	session, err := claims.Session()
	if err != nil {
		return nil, claims.ClientIP, errors.Join(ErrInvalidToken, err)
	}

	requestIP := ClientIP(c)
	if !SameClient(session.ClientIP, requestIP) {
		if !(g.allowLoopback && IsLoopback(session.ClientIP) && IsLoopback(requestIP)) {
			return nil, session.ClientIP, ErrSessionIPMismatch
		}
	}

	if session.IssuedAt.IsZero() || g.now().Sub(session.IssuedAt) > g.maxAge {
		return nil, session.ClientIP, ErrSessionExpiredAge
	}

	return &Principal{
		UserID:      session.UserID,
		Username:    session.Username,
		Role:        session.Role,
		Permissions: session.Permissions,
		ClientIP:    requestIP,
		IssuedAt:    session.IssuedAt,
	}, session.ClientIP, nil
}

func (g *Guard) protect(c *fiber.Ctx, rule RouteRule) error {
	decision := Decision{Path: c.Path(), Prefix: rule.Prefix, ClientIP: ClientIP(c)}

	principal, tokenIP, err := g.Authenticate(c)
	decision.TokenIP = tokenIP
	if err != nil {
		decision.Outcome = outcomeFor(err)
		decision.Err = err
		g.observe(c, decision)
		if !errors.Is(err, ErrMissingToken) {
			ClearSessionCookie(c, g.cookie)
		}
		return c.Redirect(g.loginURL(c, Reason(err)), fiber.StatusFound)
	}

	decision.UserID = principal.UserID
	decision.Role = principal.Role
	if !rule.Allows(principal.Role) {
		decision.Outcome = OutcomeRoleMismatch
		decision.Err = ErrRoleUnauthorized
		g.observe(c, decision)
		return c.Redirect(g.unauthorizedPath, fiber.StatusFound)
	}

	decision.Outcome = OutcomeAuthorized
	g.observe(c, decision)
	g.attach(c, principal)
	return c.Next()
}

func (g *Guard) redirectSignedIn(c *fiber.Ctx) error {
	if c.Cookies(SessionCookieName) == "" {
		return c.Next()
	}
	principal, _, err := g.Authenticate(c)
	if err != nil {
		g.logger.Debug("ignoring unusable session on login page", zap.Error(err))
		return c.Next()
	}
	return c.Redirect(principal.Role.DashboardPath(), fiber.StatusFound)
}

func (g *Guard) loginURL(c *fiber.Ctx, reason string) string {
	q := url.Values{}
	q.Set("redirect", c.OriginalURL())
	q.Set("error", reason)
	return g.loginPath + "?" + q.Encode()
}

func (g *Guard) attach(c *fiber.Ctx, principal *Principal) {
	perms := principal.Permissions
	if perms == nil {
		perms = []string{}
	}
	encoded, err := c.App().Config().JSONEncoder(perms)
	if err != nil {
		encoded = []byte("[]")
	}
	c.Request().Header.Set(HeaderUserID, principal.UserID)
	c.Request().Header.Set(HeaderUserRole, principal.Role.String())
	c.Request().Header.SetBytesV(HeaderUserPermissions, encoded)
	c.Locals(principalKey, principal)
}

func (g *Guard) observe(c *fiber.Ctx, decision Decision) {
	switch decision.Outcome {
	case OutcomeAuthorized:
		g.logger.Debug("guard allowed request", zap.String("path", decision.Path), zap.String("user_id", decision.UserID))
	case OutcomeIPMismatch:
		g.logger.Warn("session ip mismatch",
			zap.String("path", decision.Path),
			zap.String("client_ip", decision.ClientIP),
			zap.String("token_ip", decision.TokenIP))
	default:
		g.logger.Info("guard rejected request",
			zap.String("path", decision.Path),
			zap.String("outcome", string(decision.Outcome)),
			zap.Error(decision.Err))
	}
	if g.observer != nil {
		g.observer.ObserveDecision(c.UserContext(), decision)
	}
}

func outcomeFor(err error) Outcome {
	switch {
	case errors.Is(err, ErrMissingToken):
		return OutcomeNoToken
	case errors.Is(err, ErrSessionIPMismatch):
		return OutcomeIPMismatch
	case errors.Is(err, ErrSessionExpiredAge):
		return OutcomeExpiredAge
	case errors.Is(err, ErrRoleUnauthorized):
		return OutcomeRoleMismatch
	default:
		return OutcomeInvalid
	}
}

// stripPrincipalHeaders drops caller-supplied identity headers so only the
// guard can set them.
func stripPrincipalHeaders(c *fiber.Ctx) {
	for _, h := range []string{HeaderUserID, HeaderUserRole, HeaderUserPermissions} {
		c.Request().Header.Del(h)
	}
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// HasPermission reports whether the principal carries perm.
func (p *Principal) HasPermission(perm string) bool {
	for _, have := range p.Permissions {
		if strings.EqualFold(have, perm) {
			return true
		}
	}
	return false
}
