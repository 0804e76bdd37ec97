package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIPHeaderOrder(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(ClientIP(c)) })

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare first", map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2", "X-Real-IP": "3.3.3.3"}, "1.1.1.1"},
		{"first forwarded hop", map[string]string{"X-Forwarded-For": "2.2.2.2, 10.0.0.1", "X-Real-IP": "3.3.3.3"}, "2.2.2.2"},
		{"real ip", map[string]string{"X-Real-IP": "3.3.3.3"}, "3.3.3.3"},
		{"remote address", nil, "0.0.0.0"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for k, v := range tc.headers {
			req.Header.Set(k, v)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(body), tc.name)
	}
}

func TestIsLoopback(t *testing.T) {
	for _, addr := range []string{"", "unknown", "localhost", "127.0.0.1", "127.8.9.10", "::1", "::ffff:127.0.0.1", "[::1]"} {
		assert.True(t, IsLoopback(addr), addr)
	}
	for _, addr := range []string{"10.0.0.1", "192.168.1.2", "::ffff:10.0.0.1", "example.com"} {
		assert.False(t, IsLoopback(addr), addr)
	}
}

func TestSameClient(t *testing.T) {
	assert.True(t, SameClient("10.0.0.1", "10.0.0.1"))
	assert.True(t, SameClient("::ffff:10.0.0.1", "10.0.0.1"))
	assert.True(t, SameClient(" 10.0.0.1", "10.0.0.1 "))
	assert.False(t, SameClient("10.0.0.1", "10.0.0.2"))
	assert.False(t, SameClient("127.0.0.1", "::1"))
}
