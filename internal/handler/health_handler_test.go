package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyRequest(t *testing.T, handler *HealthHandler) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/ready", nil)
	require.NoError(t, err)
	c.Request = req
	handler.Ready(c)
	return w
}

func TestHealthHandlerReady(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }

	w := readyRequest(t, NewHealthHandler(ok, ok))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthHandlerReadyWithoutCache(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }

	w := readyRequest(t, NewHealthHandler(ok, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthHandlerReadyPostgresDown(t *testing.T) {
	down := func(ctx context.Context) error { return errors.New("connection refused") }
	ok := func(ctx context.Context) error { return nil }

	w := readyRequest(t, NewHealthHandler(down, ok))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "postgres")
}

func TestHealthHandlerReadyRedisDown(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("connection refused") }

	w := readyRequest(t, NewHealthHandler(ok, down))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis")
}
