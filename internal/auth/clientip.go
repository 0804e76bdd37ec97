package auth

import (
	"net/netip"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// ClientIP resolves the caller address, preferring proxy headers in the
// order cf-connecting-ip, x-forwarded-for (first hop), x-real-ip.
func ClientIP(c *fiber.Ctx) string {
	return utils.CopyString(resolveClientIP(c))
}

func resolveClientIP(c *fiber.Ctx) string {
	if ip := strings.TrimSpace(c.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if forwarded := c.Get(fiber.HeaderXForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(c.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return c.Context().RemoteIP().String()
}

// IsLoopback reports whether addr belongs to the local-development class:
// loopback ranges, IPv4-mapped loopback, "localhost", and the placeholders
// used when no address could be resolved.
func IsLoopback(addr string) bool {
	addr = strings.TrimSpace(strings.ToLower(addr))
	switch addr {
	case "", "unknown", "localhost":
		return true
	}
	parsed, err := netip.ParseAddr(strings.Trim(addr, "[]"))
	if err != nil {
		return false
	}
	return parsed.Unmap().IsLoopback()
}

// SameClient compares a token's bound address with the current one.
// Addresses are compared in canonical form so "::ffff:10.0.0.1" equals "10.0.0.1".
func SameClient(tokenIP, requestIP string) bool {
	return canonicalIP(tokenIP) == canonicalIP(requestIP)
}

func canonicalIP(addr string) string {
	addr = strings.TrimSpace(addr)
	if parsed, err := netip.ParseAddr(strings.Trim(addr, "[]")); err == nil {
		return parsed.Unmap().String()
	}
	return strings.ToLower(addr)
}
