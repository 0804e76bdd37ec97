package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/portal/internal/domain"
	apperrors "github.com/sekolahku/portal/pkg/util"
)

type recordingObserver struct {
	mu        sync.Mutex
	decisions []Decision
}

func (o *recordingObserver) ObserveDecision(_ context.Context, d Decision) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decisions = append(o.decisions, d)
}

func (o *recordingObserver) last(t *testing.T) Decision {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.decisions)
	return o.decisions[len(o.decisions)-1]
}

type guardFixture struct {
	app      *fiber.App
	tokens   *TokenManager
	observer *recordingObserver
}

func newGuardFixture(t *testing.T, allowLoopback bool) *guardFixture {
	t.Helper()

	tokens := NewTokenManager(testSecret, 24*time.Hour)
	observer := &recordingObserver{}
	guard := NewGuard(GuardConfig{
		Tokens:                tokens,
		Routes:                MustRouteTable(DefaultRoutes()),
		Cookie:                NewCookieOptions(false, 24*time.Hour),
		MaxAge:                24 * time.Hour,
		AllowLoopbackMismatch: allowLoopback,
		Observer:              observer,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code, "message": de.Message}})
		},
	})
	app.Use(guard.Handle)

	echo := func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"id":          c.Get(HeaderUserID),
			"role":        c.Get(HeaderUserRole),
			"permissions": c.Get(HeaderUserPermissions),
		})
	}
	app.Get("/dashboard-admin", echo)
	app.Get("/dashboard-admin/*", echo)
	app.Get("/dashboard-ppdb", echo)
	app.Get("/public", echo)
	app.Get("/login", func(c *fiber.Ctx) error { return c.SendString("login page") })
	app.Get("/api/me", guard.RequireSession(), echo)
	app.Post("/api/logout", guard.OptionalSession(), func(c *fiber.Ctx) error {
		_, ok := PrincipalFromContext(c)
		return c.JSON(fiber.Map{"authenticated": ok})
	})

	return &guardFixture{app: app, tokens: tokens, observer: observer}
}

func (f *guardFixture) issue(t *testing.T, role domain.Role, ip string) string {
	t.Helper()
	token, _, err := f.tokens.GenerateToken(&domain.User{ID: "u-42", Username: "rina", Role: role}, ip)
	require.NoError(t, err)
	return token
}

func (f *guardFixture) do(t *testing.T, method, path, token, ip string, extra map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if ip != "" {
		req.Header.Set(fiber.HeaderXForwardedFor, ip)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func loginRedirect(t *testing.T, resp *http.Response) url.Values {
	t.Helper()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	require.NoError(t, err)
	require.Equal(t, "/login", loc.Path)
	return loc.Query()
}

func sessionCookie(resp *http.Response) (*http.Cookie, bool) {
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			return c, true
		}
	}
	return nil, false
}

func TestGuardRedirectsWithoutToken(t *testing.T) {
	f := newGuardFixture(t, false)

	resp := f.do(t, http.MethodGet, "/dashboard-admin/users?tab=1", "", "10.0.0.1", nil)
	q := loginRedirect(t, resp)
	assert.Equal(t, "/dashboard-admin/users?tab=1", q.Get("redirect"))
	assert.Equal(t, ReasonAuthenticationRequired, q.Get("error"))

	_, cleared := sessionCookie(resp)
	assert.False(t, cleared)
	assert.Equal(t, OutcomeNoToken, f.observer.last(t).Outcome)
}

func TestGuardRejectsGarbageToken(t *testing.T) {
	f := newGuardFixture(t, false)

	resp := f.do(t, http.MethodGet, "/dashboard-admin", "not-a-jwt", "10.0.0.1", nil)
	q := loginRedirect(t, resp)
	assert.Equal(t, ReasonInvalidToken, q.Get("error"))

	cookie, ok := sessionCookie(resp)
	require.True(t, ok)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, OutcomeInvalid, f.observer.last(t).Outcome)
}

func TestGuardRejectsTokenWithUnknownRole(t *testing.T) {
	f := newGuardFixture(t, false)
	now := time.Now()
	token, err := f.tokens.Sign(&Claims{UserID: "u-1", Role: "GURU", ClientIP: "10.0.0.1", RegisteredClaims: jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}})
	require.NoError(t, err)

	q := loginRedirect(t, f.do(t, http.MethodGet, "/dashboard-admin", token, "10.0.0.1", nil))
	assert.Equal(t, ReasonInvalidToken, q.Get("error"))
}

func TestGuardRejectsIPMismatch(t *testing.T) {
	f := newGuardFixture(t, true)
	token := f.issue(t, domain.RoleAdmin, "10.0.0.1")

	resp := f.do(t, http.MethodGet, "/dashboard-admin", token, "10.0.0.2", nil)
	q := loginRedirect(t, resp)
	assert.Equal(t, ReasonSessionInvalid, q.Get("error"))

	cookie, ok := sessionCookie(resp)
	require.True(t, ok)
	assert.Empty(t, cookie.Value)

	d := f.observer.last(t)
	assert.Equal(t, OutcomeIPMismatch, d.Outcome)
	assert.Equal(t, "10.0.0.1", d.TokenIP)
	assert.Equal(t, "10.0.0.2", d.ClientIP)
}

func TestGuardLoopbackMismatch(t *testing.T) {
	allowed := newGuardFixture(t, true)
	token := allowed.issue(t, domain.RoleAdmin, "127.0.0.1")
	resp := allowed.do(t, http.MethodGet, "/dashboard-admin", token, "::1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	strict := newGuardFixture(t, false)
	token = strict.issue(t, domain.RoleAdmin, "127.0.0.1")
	q := loginRedirect(t, strict.do(t, http.MethodGet, "/dashboard-admin", token, "::1", nil))
	assert.Equal(t, ReasonSessionInvalid, q.Get("error"))

	// The carve-out never covers a routable address on either side.
	token = allowed.issue(t, domain.RoleAdmin, "127.0.0.1")
	q = loginRedirect(t, allowed.do(t, http.MethodGet, "/dashboard-admin", token, "10.0.0.9", nil))
	assert.Equal(t, ReasonSessionInvalid, q.Get("error"))
}

func TestGuardRejectsSessionsOlderThanMaxAge(t *testing.T) {
	f := newGuardFixture(t, false)
	now := time.Now()
	token, err := f.tokens.Sign(&Claims{
		UserID:   "u-1",
		Username: "rina",
		Role:     "ADMIN",
		ClientIP: "10.0.0.1",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now.Add(-25 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	require.NoError(t, err)

	resp := f.do(t, http.MethodGet, "/dashboard-admin", token, "10.0.0.1", nil)
	q := loginRedirect(t, resp)
	assert.Equal(t, ReasonSessionExpired, q.Get("error"))
	_, cleared := sessionCookie(resp)
	assert.True(t, cleared)
	assert.Equal(t, OutcomeExpiredAge, f.observer.last(t).Outcome)
}

func TestGuardRejectsTokenWithoutIssuedAt(t *testing.T) {
	f := newGuardFixture(t, false)
	token, err := f.tokens.Sign(&Claims{UserID: "u-1", Role: "ADMIN", ClientIP: "10.0.0.1", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	require.NoError(t, err)

	q := loginRedirect(t, f.do(t, http.MethodGet, "/dashboard-admin", token, "10.0.0.1", nil))
	assert.Equal(t, ReasonSessionExpired, q.Get("error"))
}

func TestGuardRedirectsWrongRoleToUnauthorized(t *testing.T) {
	f := newGuardFixture(t, false)
	token := f.issue(t, domain.RoleSiswa, "10.0.0.1")

	resp := f.do(t, http.MethodGet, "/dashboard-admin", token, "10.0.0.1", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/unauthorized", resp.Header.Get(fiber.HeaderLocation))
	_, cleared := sessionCookie(resp)
	assert.False(t, cleared)

	d := f.observer.last(t)
	assert.Equal(t, OutcomeRoleMismatch, d.Outcome)
	assert.Equal(t, domain.RoleSiswa, d.Role)
	assert.Equal(t, "/dashboard-admin", d.Prefix)
}

func TestGuardForwardsPrincipalHeaders(t *testing.T) {
	f := newGuardFixture(t, false)
	token := f.issue(t, domain.RoleAdmin, "10.0.0.1")

	resp := f.do(t, http.MethodGet, "/dashboard-admin", token, "10.0.0.1", map[string]string{
		HeaderUserRole: "SISWA",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "u-42", body["id"])
	assert.Equal(t, "ADMIN", body["role"])

	var perms []string
	require.NoError(t, json.Unmarshal([]byte(body["permissions"]), &perms))
	assert.Equal(t, domain.RoleAdmin.Permissions(), perms)
	assert.Equal(t, OutcomeAuthorized, f.observer.last(t).Outcome)
}

func TestGuardStripsSpoofedHeadersOnOpenPaths(t *testing.T) {
	f := newGuardFixture(t, false)

	resp := f.do(t, http.MethodGet, "/public", "", "10.0.0.1", map[string]string{
		HeaderUserID:   "forged",
		HeaderUserRole: "ADMIN",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body["id"])
	assert.Empty(t, body["role"])
}

func TestLoginPageRedirectsSignedInUsers(t *testing.T) {
	f := newGuardFixture(t, false)

	cases := map[domain.Role]string{
		domain.RoleAdmin:     "/dashboard-admin",
		domain.RoleKesiswaan: "/dashboard-kesiswaan",
		domain.RoleOsis:      "/dashboard-osis",
		domain.RolePPDBAdmin: "/dashboard-ppdb",
	}
	for role, want := range cases {
		token := f.issue(t, role, "10.0.0.1")
		resp := f.do(t, http.MethodGet, "/login", token, "10.0.0.1", nil)
		require.Equal(t, http.StatusFound, resp.StatusCode, role)
		assert.Equal(t, want, resp.Header.Get(fiber.HeaderLocation), role)
	}
}

func TestLoginPageServedWithoutUsableSession(t *testing.T) {
	f := newGuardFixture(t, false)

	resp := f.do(t, http.MethodGet, "/login", "", "10.0.0.1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/login", "garbage", "10.0.0.1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "login page", string(body))

	token := f.issue(t, domain.RoleAdmin, "10.0.0.1")
	resp = f.do(t, http.MethodGet, "/login", token, "10.0.0.2", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireSessionReturnsUnauthorized(t *testing.T) {
	f := newGuardFixture(t, false)

	resp := f.do(t, http.MethodGet, "/api/me", "", "10.0.0.1", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := f.issue(t, domain.RoleSiswa, "10.0.0.1")
	resp = f.do(t, http.MethodGet, "/api/me", token, "10.0.0.3", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_, cleared := sessionCookie(resp)
	assert.True(t, cleared)

	resp = f.do(t, http.MethodGet, "/api/me", token, "10.0.0.1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "SISWA", body["role"])
}

func TestOptionalSessionNeverBlocks(t *testing.T) {
	f := newGuardFixture(t, false)

	var body map[string]bool
	resp := f.do(t, http.MethodPost, "/api/logout", "garbage", "10.0.0.1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body["authenticated"])

	token := f.issue(t, domain.RoleOsis, "10.0.0.1")
	resp = f.do(t, http.MethodPost, "/api/logout", token, "10.0.0.1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body["authenticated"])
}
