package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHealth(t *testing.T, h *MetricsHandler) (int, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/health", nil)

	h.Health(c)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealthReady(t *testing.T) {
	ok := PingFunc(func(ctx context.Context) error { return nil })
	code, body := runHealth(t, NewMetricsHandler(nil, map[string]Pinger{"postgres": ok, "redis": ok}))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, map[string]interface{}{"postgres": "ok", "redis": "ok"}, body["checks"])
}

func TestHealthDatabaseDown(t *testing.T) {
	code, body := runHealth(t, NewMetricsHandler(nil, map[string]Pinger{
		"postgres": PingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
	}))

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", body["status"])
	assert.Equal(t, "connection refused", body["checks"].(map[string]interface{})["postgres"])
}

func TestHealthWithoutDependents(t *testing.T) {
	code, body := runHealth(t, NewMetricsHandler(nil, nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}
