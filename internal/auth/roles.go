package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sekolahku/portal/internal/domain"
	apperrors "github.com/sekolahku/portal/pkg/util"
)

// RequireRole ensures the authenticated principal holds one of the allowed
// roles. Allowed roles may be written in either vocabulary.
func RequireRole(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized(ReasonAuthenticationRequired)
		}
		if len(allowed) == 0 {
			return c.Next()
		}
		if !domain.IsRoleMatch(principal.Role.String(), allowed...) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequirePermission ensures the principal's token carries perm.
func RequirePermission(perm string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized(ReasonAuthenticationRequired)
		}
		if !principal.HasPermission(perm) {
			return apperrors.NewForbidden("missing permission " + perm)
		}
		return c.Next()
	}
}
