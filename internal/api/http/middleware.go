package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"

	"github.com/sekolahku/portal/internal/auth"
	"github.com/sekolahku/portal/internal/config"
	"github.com/sekolahku/portal/internal/observability"
	"github.com/sekolahku/portal/internal/service"
	apperrors "github.com/sekolahku/portal/pkg/util"
)

// MiddlewareConfig bundles global middleware settings.
type MiddlewareConfig struct {
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Timeout    time.Duration
	Production bool
	Security   config.SecurityConfig
}

// RegisterMiddlewares attaches the global middleware chain.
func RegisterMiddlewares(app *fiber.App, cfg MiddlewareConfig) {
	app.Use(SecurityHeaders(cfg.Production, cfg.Security))
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
	// The logger wraps error rendering so it records the final status.
	app.Use(observability.RequestLogger(cfg.Logger, cfg.Metrics))
	app.Use(errorHandlingMiddleware(cfg.Logger, cfg.Metrics))
}

// SecurityHeaders sets the anti-XSS, anti-framing, no-sniff and referrer
// headers, plus the content security policy in production.
func SecurityHeaders(production bool, cfg config.SecurityConfig) fiber.Handler {
	// helmet fills any empty field with its own default, so every header it
	// emits is pinned here.
	helmetCfg := helmet.Config{
		XSSProtection:             "1; mode=block",
		XFrameOptions:             "DENY",
		ContentTypeNosniff:        "nosniff",
		ReferrerPolicy:            cfg.ReferrerPolicy,
		CrossOriginEmbedderPolicy: "unsafe-none",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}
	if production {
		helmetCfg.ContentSecurityPolicy = cfg.ContentSecurityPolicy
		helmetCfg.HSTSMaxAge = 31536000
	}
	return helmet.New(helmetCfg)
}

// APIThrottle limits API calls per client address with a sliding window.
func APIThrottle(maxRequests int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               maxRequests,
		Expiration:        window,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      auth.ClientIP,
		LimitReached: func(c *fiber.Ctx) error {
			return apperrors.NewTooManyRequests("too many requests, try again later")
		},
	})
}

// RequireOsisAccess admits principals that pass the OSIS access rule.
// It must run after a session-establishing handler.
func RequireOsisAccess(access *service.AccessService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := auth.PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized(auth.ReasonAuthenticationRequired)
		}
		if !access.HasOsisAccess(c.UserContext(), principal.UserID, principal.Role.String()) {
			return apperrors.NewForbidden("OSIS access required")
		}
		return c.Next()
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}
