package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	wrapped := fmt.Errorf("handler: %w", NewForbidden("nope"))
	assert.Equal(t, "FORBIDDEN", ToDomainError(wrapped).Code)

	fromFiber := ToDomainError(fiber.NewError(http.StatusTooManyRequests, "slow down"))
	assert.Equal(t, "RATE_LIMITED", fromFiber.Code)
	assert.Equal(t, http.StatusTooManyRequests, fromFiber.HTTPStatus)

	assert.Equal(t, "METHOD_NOT_ALLOWED", ToDomainError(fiber.ErrMethodNotAllowed).Code)
	assert.Equal(t, http.StatusNotFound, ToDomainError(pgx.ErrNoRows).HTTPStatus)

	cause := errors.New("boom")
	internal := ToDomainError(cause)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)
	assert.ErrorIs(t, internal, cause)
}
