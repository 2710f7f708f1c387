package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorPassthrough(t *testing.T) {
	original := NewConflict("already exists", map[string]any{"field": "email"})
	got := ToDomainError(original)
	assert.Equal(t, "CONFLICT", got.Code)
	assert.Equal(t, http.StatusConflict, got.HTTPStatus)
	assert.Equal(t, "email", got.Details["field"])

	wrapped := fmt.Errorf("outer: %w", original)
	assert.Equal(t, got, ToDomainError(wrapped))
}

func TestToDomainErrorMapsFiberErrors(t *testing.T) {
	got := ToDomainError(fiber.NewError(http.StatusUnauthorized, "token required"))
	assert.Equal(t, "UNAUTHORIZED", got.Code)
	assert.Equal(t, http.StatusUnauthorized, got.HTTPStatus)
	assert.Equal(t, "token required", got.Message)
}

func TestToDomainErrorMapsMissingRows(t *testing.T) {
	got := ToDomainError(pgx.ErrNoRows)
	assert.Equal(t, "NOT_FOUND", got.Code)
	assert.Equal(t, http.StatusNotFound, got.HTTPStatus)
}

func TestToDomainErrorDefaultsToInternal(t *testing.T) {
	cause := errors.New("disk on fire")
	got := ToDomainError(cause)
	assert.Equal(t, "INTERNAL_ERROR", got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus)
	// The cause stays attached for server-side logging, not client output.
	assert.ErrorIs(t, got, cause)
	assert.Equal(t, "internal server error", got.Message)
}

func TestRateLimitedCarriesRetryHint(t *testing.T) {
	got := ToDomainError(NewRateLimited(3600))
	require.NotNil(t, got)
	assert.Equal(t, http.StatusTooManyRequests, got.HTTPStatus)
	assert.Equal(t, 3600, got.Details["retry_after"])
}
