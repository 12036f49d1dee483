package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workshop/backend/internal/interfaces/http/dto"
)

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler("workshop-backend", "1.0.0")
	assert.NotNil(t, h)
	assert.False(t, h.startTime.IsZero())
	assert.Equal(t, DefaultReadinessTimeout, h.timeout)
}

func TestSystemHandler_Health(t *testing.T) {
	h := NewSystemHandler("workshop-backend", "1.0.0")

	w := performRequest(t, http.MethodGet, "/health", "/health", nil, h.Health)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestSystemHandler_Ready(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		h := NewSystemHandler("workshop-backend", "1.0.0")
		h.AddCheck("database", func(ctx context.Context) error { return nil })
		h.AddCheck("redis", func(ctx context.Context) error { return nil })

		w := performRequest(t, http.MethodGet, "/health/ready", "/health/ready", nil, h.Ready)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, map[string]string{"database": "ok", "redis": "ok"}, resp.Checks)
	})

	t.Run("a failing dependency answers 503", func(t *testing.T) {
		h := NewSystemHandler("workshop-backend", "1.0.0")
		h.AddCheck("database", func(ctx context.Context) error { return errors.New("connection refused") })
		h.AddCheck("redis", func(ctx context.Context) error { return nil })

		w := performRequest(t, http.MethodGet, "/health/ready", "/health/ready", nil, h.Ready)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "unavailable", resp.Status)
		assert.Equal(t, "connection refused", resp.Checks["database"])
		assert.Equal(t, "ok", resp.Checks["redis"])
	})

	t.Run("checks share one deadline", func(t *testing.T) {
		h := NewSystemHandler("workshop-backend", "1.0.0")
		h.AddCheck("database", func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return nil
		})

		w := performRequest(t, http.MethodGet, "/health/ready", "/health/ready", nil, h.Ready)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("workshop-backend", "1.2.3")

	w := performRequest(t, http.MethodGet, "/system/info", "/system/info", nil, h.GetSystemInfo)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "workshop-backend", data["name"])
	assert.Equal(t, "1.2.3", data["version"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])
}
