package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaglepoint-labs/elevator-group-control/internal/infra/config"
	"github.com/eaglepoint-labs/elevator-group-control/internal/infra/logging"
	"github.com/eaglepoint-labs/elevator-group-control/internal/manager"
)

func testHandlerConfig() *config.Config {
	return &config.Config{
		Environment:                 "test",
		LogLevel:                    "WARN",
		NumCars:                     2,
		MinFloor:                    -4,
		MaxFloor:                    20,
		Capacity:                    18,
		FloorTime:                   5 * time.Millisecond,
		Dwell:                       5 * time.Millisecond,
		SchedulePeriod:              20 * time.Millisecond,
		MotionPeriod:                20 * time.Millisecond,
		WaitCap:                     30,
		MaxCars:                     10,
		CarNamePrefix:               "car",
		CircuitBreakerMaxFailures:   5,
		CircuitBreakerResetTimeout:  30 * time.Second,
		CircuitBreakerHalfOpenLimit: 3,
	}
}

func setupTestHandlers(t *testing.T) *V1Handlers {
	t.Helper()
	cfg := testHandlerConfig()
	logger := slog.Default()
	mgr := manager.New(cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = mgr.Shutdown(context.Background())
	})

	return NewV1Handlers(mgr, cfg, logger)
}

func createRequestWithContext(method, path string, body string, requestID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	ctx := logging.WithRequestID(req.Context(), requestID)
	return req.WithContext(ctx)
}

func parseAPIResponse(t *testing.T, body []byte) APIResponse {
	t.Helper()
	var response APIResponse
	err := json.Unmarshal(body, &response)
	require.NoError(t, err)
	return response
}

func TestV1Handlers_APIInfoHandler(t *testing.T) {
	handlers := setupTestHandlers(t)

	w := httptest.NewRecorder()
	r := createRequestWithContext("GET", "/v1", "", "test-123")

	handlers.APIInfoHandler(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "test-123", w.Header().Get("X-Request-ID"))

	response := parseAPIResponse(t, w.Body.Bytes())
	assert.True(t, response.Success)

	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "elevator-group-control", data["name"])
	assert.Equal(t, "v1", data["version"])
	assert.Contains(t, data, "endpoints")
}

func TestV1Handlers_HallCallHandler(t *testing.T) {
	handlers := setupTestHandlers(t)

	t.Run("accepts a valid hall call", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := `{"floor": 10, "direction": "up"}`
		r := createRequestWithContext("POST", "/v1/hall-calls", body, "test-456")

		handlers.HallCallHandler(w, r)

		assert.Equal(t, http.StatusAccepted, w.Code)
		response := parseAPIResponse(t, w.Body.Bytes())
		assert.True(t, response.Success)

		data, ok := response.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(10), data["floor"])
		assert.Equal(t, "up", data["direction"])
	})

	t.Run("rejects a duplicate hall call", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := `{"floor": 3, "direction": "down"}`
		r := createRequestWithContext("POST", "/v1/hall-calls", body, "test-dup-1")
		handlers.HallCallHandler(w, r)
		require.Equal(t, http.StatusAccepted, w.Code)

		w2 := httptest.NewRecorder()
		r2 := createRequestWithContext("POST", "/v1/hall-calls", body, "test-dup-2")
		handlers.HallCallHandler(w2, r2)

		assert.Equal(t, http.StatusConflict, w2.Code)
		response := parseAPIResponse(t, w2.Body.Bytes())
		assert.False(t, response.Success)
		assert.Equal(t, "CONFLICT", response.Error.Code)
	})

	t.Run("rejects an out-of-range floor", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := `{"floor": 999, "direction": "up"}`
		r := createRequestWithContext("POST", "/v1/hall-calls", body, "test-789")

		handlers.HallCallHandler(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		response := parseAPIResponse(t, w.Body.Bytes())
		assert.False(t, response.Success)
		assert.Equal(t, "VALIDATION_ERROR", response.Error.Code)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := `{"floor": invalid}`
		r := createRequestWithContext("POST", "/v1/hall-calls", body, "test-badjson")

		handlers.HallCallHandler(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		response := parseAPIResponse(t, w.Body.Bytes())
		assert.False(t, response.Success)
		assert.Equal(t, "INVALID_JSON", response.Error.Code)
	})

	t.Run("rejects wrong HTTP method", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := createRequestWithContext("GET", "/v1/hall-calls", "", "test-method")

		handlers.HallCallHandler(w, r)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		response := parseAPIResponse(t, w.Body.Bytes())
		assert.False(t, response.Success)
		assert.Equal(t, "METHOD_NOT_ALLOWED", response.Error.Code)
	})
}

func TestV1Handlers_CabinPressHandler(t *testing.T) {
	handlers := setupTestHandlers(t)

	t.Run("registers a cabin press for a valid car", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := `{"floor": 8}`
		r := createRequestWithContext("POST", "/v1/cars/0/cabin-press", body, "test-cab-1")

		handlers.CabinPressHandler(w, r, 0)

		assert.Equal(t, http.StatusAccepted, w.Code)
		response := parseAPIResponse(t, w.Body.Bytes())
		assert.True(t, response.Success)

		data, ok := response.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(0), data["car_id"])
		assert.Equal(t, float64(8), data["floor"])
	})

	t.Run("rejects an unknown car", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := `{"floor": 8}`
		r := createRequestWithContext("POST", "/v1/cars/99/cabin-press", body, "test-cab-2")

		handlers.CabinPressHandler(w, r, 99)

		assert.Equal(t, http.StatusNotFound, w.Code)
		response := parseAPIResponse(t, w.Body.Bytes())
		assert.False(t, response.Success)
		assert.Equal(t, "NOT_FOUND", response.Error.Code)
	})
}

func TestV1Handlers_AddCarHandler(t *testing.T) {
	handlers := setupTestHandlers(t)

	t.Run("adds a car to the bank", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := createRequestWithContext("POST", "/v1/cars", "", "test-add-1")

		handlers.AddCarHandler(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		response := parseAPIResponse(t, w.Body.Bytes())
		assert.True(t, response.Success)

		data, ok := response.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(2), data["car_id"])
	})

	t.Run("rejects wrong HTTP method", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := createRequestWithContext("GET", "/v1/cars", "", "test-add-2")

		handlers.AddCarHandler(w, r)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("rejects once at MaxCars", func(t *testing.T) {
		cfg := testHandlerConfig()
		cfg.MaxCars = 2
		logger := slog.Default()
		mgr := manager.New(cfg, logger)
		ctx, cancel := context.WithCancel(context.Background())
		mgr.Start(ctx)
		t.Cleanup(func() {
			cancel()
			_ = mgr.Shutdown(context.Background())
		})
		fullHandlers := NewV1Handlers(mgr, cfg, logger)

		w := httptest.NewRecorder()
		r := createRequestWithContext("POST", "/v1/cars", "", "test-add-3")
		fullHandlers.AddCarHandler(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)
		response := parseAPIResponse(t, w.Body.Bytes())
		assert.False(t, response.Success)
		assert.Equal(t, "CONFLICT", response.Error.Code)
	})
}

func TestV1Handlers_RemoveCarHandler(t *testing.T) {
	handlers := setupTestHandlers(t)

	t.Run("removes a car from the bank", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := createRequestWithContext("DELETE", "/v1/cars/1", "", "test-remove-1")

		handlers.RemoveCarHandler(w, r, 1)

		assert.Equal(t, http.StatusOK, w.Code)
		response := parseAPIResponse(t, w.Body.Bytes())
		assert.True(t, response.Success)
	})

	t.Run("rejects an unknown car", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := createRequestWithContext("DELETE", "/v1/cars/99", "", "test-remove-2")

		handlers.RemoveCarHandler(w, r, 99)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rejects wrong HTTP method", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := createRequestWithContext("GET", "/v1/cars/0", "", "test-remove-3")

		handlers.RemoveCarHandler(w, r, 0)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestV1Handlers_MaintenanceHandler(t *testing.T) {
	handlers := setupTestHandlers(t)

	w := httptest.NewRecorder()
	body := `{"enabled": true, "force": false}`
	r := createRequestWithContext("POST", "/v1/cars/1/maintenance", body, "test-maint-1")

	handlers.MaintenanceHandler(w, r, 1)

	assert.Equal(t, http.StatusOK, w.Code)
	response := parseAPIResponse(t, w.Body.Bytes())
	assert.True(t, response.Success)

	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), data["car_id"])
	assert.Equal(t, true, data["enabled"])
}

func TestV1Handlers_StatusHandler(t *testing.T) {
	handlers := setupTestHandlers(t)

	w := httptest.NewRecorder()
	r := createRequestWithContext("GET", "/v1/status", "", "test-status")

	handlers.StatusHandler(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	response := parseAPIResponse(t, w.Body.Bytes())
	assert.True(t, response.Success)

	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	cars, ok := data["cars"].([]interface{})
	require.True(t, ok)
	assert.Len(t, cars, 2)
}

func TestV1Handlers_HealthHandler(t *testing.T) {
	handlers := setupTestHandlers(t)

	w := httptest.NewRecorder()
	r := createRequestWithContext("GET", "/v1/health", "", "test-health")

	handlers.HealthHandler(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	response := parseAPIResponse(t, w.Body.Bytes())
	assert.True(t, response.Success)

	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "healthy", data["status"])
	assert.Contains(t, data, "checks")
}

func TestV1Handlers_MetricsHandler(t *testing.T) {
	handlers := setupTestHandlers(t)

	w := httptest.NewRecorder()
	r := createRequestWithContext("GET", "/v1/metrics", "", "test-metrics")

	handlers.MetricsHandler(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	response := parseAPIResponse(t, w.Body.Bytes())
	assert.True(t, response.Success)

	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, data, "metrics")
}

func TestParseCarID(t *testing.T) {
	t.Run("parses a valid cabin-press path", func(t *testing.T) {
		id, ok := parseCarID("/v1/cars/3/cabin-press", "/cabin-press")
		assert.True(t, ok)
		assert.Equal(t, 3, id)
	})

	t.Run("parses a valid maintenance path", func(t *testing.T) {
		id, ok := parseCarID("/v1/cars/12/maintenance", "/maintenance")
		assert.True(t, ok)
		assert.Equal(t, 12, id)
	})

	t.Run("rejects a mismatched suffix", func(t *testing.T) {
		_, ok := parseCarID("/v1/cars/3/cabin-press", "/maintenance")
		assert.False(t, ok)
	})

	t.Run("rejects a non-numeric id", func(t *testing.T) {
		_, ok := parseCarID("/v1/cars/abc/cabin-press", "/cabin-press")
		assert.False(t, ok)
	})

	t.Run("parses a bare car id with no suffix", func(t *testing.T) {
		id, ok := parseCarID("/v1/cars/7", "")
		assert.True(t, ok)
		assert.Equal(t, 7, id)
	})
}

func TestRequestContext(t *testing.T) {
	handlers := setupTestHandlers(t)
	requestID := "test-context-123"

	w := httptest.NewRecorder()
	r := createRequestWithContext("GET", "/v1", "", requestID)

	handlers.APIInfoHandler(w, r)

	assert.Equal(t, requestID, w.Header().Get("X-Request-ID"))
}

func TestResponseFormat(t *testing.T) {
	handlers := setupTestHandlers(t)

	w := httptest.NewRecorder()
	r := createRequestWithContext("GET", "/v1", "", "test-format")

	handlers.APIInfoHandler(w, r)

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	response := parseAPIResponse(t, w.Body.Bytes())
	require.NotNil(t, response.Meta)
	assert.Equal(t, "test-format", response.Meta.RequestID)
	assert.Equal(t, "v1", response.Meta.Version)
	assert.NotEmpty(t, response.Meta.Duration)
	assert.False(t, response.Timestamp.IsZero())
}
