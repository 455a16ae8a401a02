package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eaglepoint-labs/elevator-group-control/internal/domain"
	"github.com/eaglepoint-labs/elevator-group-control/internal/infra/config"
	"github.com/eaglepoint-labs/elevator-group-control/internal/infra/logging"
	"github.com/eaglepoint-labs/elevator-group-control/internal/manager"
)

// V1Handlers contains all v1 API handlers.
type V1Handlers struct {
	manager *manager.Manager
	cfg     *config.Config
	logger  *slog.Logger
}

// NewV1Handlers creates a new V1Handlers instance.
func NewV1Handlers(mgr *manager.Manager, cfg *config.Config, logger *slog.Logger) *V1Handlers {
	return &V1Handlers{
		manager: mgr,
		cfg:     cfg,
		logger:  logger,
	}
}

// HallCallRequestBody is the request body for POST /v1/hall-calls.
type HallCallRequestBody struct {
	Floor     int    `json:"floor"`
	Direction string `json:"direction"`
}

// HallCallResponse is the response for a successfully queued hall call.
type HallCallResponse struct {
	Floor     int    `json:"floor"`
	Direction string `json:"direction"`
	Result    string `json:"result"`
	Message   string `json:"message"`
}

// CabinPressRequestBody is the request body for POST /v1/cars/{id}/cabin-press.
type CabinPressRequestBody struct {
	Floor int `json:"floor"`
}

// CabinPressResponse is the response for a successfully registered cabin press.
type CabinPressResponse struct {
	CarID   int    `json:"car_id"`
	Floor   int    `json:"floor"`
	Message string `json:"message"`
}

// MaintenanceRequestBody is the request body for POST /v1/cars/{id}/maintenance.
type MaintenanceRequestBody struct {
	Enabled bool `json:"enabled"`
	Force   bool `json:"force"`
}

// MaintenanceResponse is the response for a maintenance toggle.
type MaintenanceResponse struct {
	CarID   int    `json:"car_id"`
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
}

// AddCarResponse is the response for a successfully added car.
type AddCarResponse struct {
	CarID   int    `json:"car_id"`
	Floor   int    `json:"floor"`
	Message string `json:"message"`
}

// RemoveCarRequestBody is the (optional) request body for DELETE
// /v1/cars/{id}; an empty body defaults force to false.
type RemoveCarRequestBody struct {
	Force bool `json:"force"`
}

// RemoveCarResponse is the response for a successfully removed car.
type RemoveCarResponse struct {
	CarID   int    `json:"car_id"`
	Message string `json:"message"`
}

// StatusResponse wraps the current snapshot of every car.
type StatusResponse struct {
	Cars []domain.CarStatus `json:"cars"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]interface{} `json:"checks"`
}

// MetricsResponse represents the metrics response.
type MetricsResponse struct {
	Timestamp time.Time              `json:"timestamp"`
	Metrics   map[string]interface{} `json:"metrics"`
}

// APIInfoResponse represents API information.
type APIInfoResponse struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Endpoints   map[string]string `json:"endpoints"`
}

// HallCallHandler handles POST /v1/hall-calls.
func (h *V1Handlers) HallCallHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if r.Method != http.MethodPost {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed,
			"Method not allowed", "Only POST method is supported")
		return
	}

	var body HallCallRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to decode hall call request",
			slog.String("error", err.Error()),
			slog.String("request_id", requestID))
		rw.WriteError(http.StatusBadRequest, ErrorCodeInvalidJSON,
			"Invalid JSON", "Request body contains invalid JSON")
		return
	}

	direction := strings.ToLower(body.Direction)

	result, err := h.manager.RequestHallCall(r.Context(), body.Floor, direction)
	if err != nil {
		h.logger.WarnContext(r.Context(), "hall call rejected",
			slog.Int("floor", body.Floor),
			slog.String("direction", direction),
			slog.String("error", err.Error()),
			slog.String("request_id", requestID))
		rw.WriteDomainError(err)
		return
	}

	h.logger.InfoContext(r.Context(), "hall call accepted",
		slog.Int("floor", body.Floor),
		slog.String("direction", direction),
		slog.String("result", result.String()),
		slog.String("request_id", requestID))

	rw.WriteJSON(http.StatusAccepted, HallCallResponse{
		Floor:     body.Floor,
		Direction: direction,
		Result:    result.String(),
		Message:   "hall call queued",
	})
}

// CabinPressHandler handles POST /v1/cars/{id}/cabin-press.
func (h *V1Handlers) CabinPressHandler(w http.ResponseWriter, r *http.Request, carID int) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if r.Method != http.MethodPost {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed,
			"Method not allowed", "Only POST method is supported")
		return
	}

	var body CabinPressRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to decode cabin press request",
			slog.String("error", err.Error()),
			slog.String("request_id", requestID))
		rw.WriteError(http.StatusBadRequest, ErrorCodeInvalidJSON,
			"Invalid JSON", "Request body contains invalid JSON")
		return
	}

	if err := h.manager.CabinPress(r.Context(), carID, body.Floor); err != nil {
		h.logger.WarnContext(r.Context(), "cabin press rejected",
			slog.Int("car_id", carID),
			slog.Int("floor", body.Floor),
			slog.String("error", err.Error()),
			slog.String("request_id", requestID))
		rw.WriteDomainError(err)
		return
	}

	h.logger.InfoContext(r.Context(), "cabin press accepted",
		slog.Int("car_id", carID),
		slog.Int("floor", body.Floor),
		slog.String("request_id", requestID))

	rw.WriteJSON(http.StatusAccepted, CabinPressResponse{
		CarID:   carID,
		Floor:   body.Floor,
		Message: "cabin press registered",
	})
}

// MaintenanceHandler handles POST /v1/cars/{id}/maintenance.
func (h *V1Handlers) MaintenanceHandler(w http.ResponseWriter, r *http.Request, carID int) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if r.Method != http.MethodPost {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed,
			"Method not allowed", "Only POST method is supported")
		return
	}

	var body MaintenanceRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to decode maintenance request",
			slog.String("error", err.Error()),
			slog.String("request_id", requestID))
		rw.WriteError(http.StatusBadRequest, ErrorCodeInvalidJSON,
			"Invalid JSON", "Request body contains invalid JSON")
		return
	}

	if err := h.manager.Maintenance(r.Context(), carID, body.Enabled, body.Force); err != nil {
		h.logger.WarnContext(r.Context(), "maintenance toggle rejected",
			slog.Int("car_id", carID),
			slog.Bool("enabled", body.Enabled),
			slog.String("error", err.Error()),
			slog.String("request_id", requestID))
		rw.WriteDomainError(err)
		return
	}

	h.logger.InfoContext(r.Context(), "maintenance toggled",
		slog.Int("car_id", carID),
		slog.Bool("enabled", body.Enabled),
		slog.String("request_id", requestID))

	rw.WriteJSON(http.StatusOK, MaintenanceResponse{
		CarID:   carID,
		Enabled: body.Enabled,
		Message: "maintenance state updated",
	})
}

// AddCarHandler handles POST /v1/cars.
func (h *V1Handlers) AddCarHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if r.Method != http.MethodPost {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed,
			"Method not allowed", "Only POST method is supported")
		return
	}

	car, err := h.manager.AddCar(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "add car rejected",
			slog.String("error", err.Error()),
			slog.String("request_id", requestID))
		rw.WriteDomainError(err)
		return
	}

	h.logger.InfoContext(r.Context(), "car added",
		slog.Int("car_id", car.ID),
		slog.String("request_id", requestID))

	rw.WriteJSON(http.StatusCreated, AddCarResponse{
		CarID:   car.ID,
		Floor:   car.Floor.Value(),
		Message: "car added",
	})
}

// RemoveCarHandler handles DELETE /v1/cars/{id}.
func (h *V1Handlers) RemoveCarHandler(w http.ResponseWriter, r *http.Request, carID int) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if r.Method != http.MethodDelete {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed,
			"Method not allowed", "Only DELETE method is supported")
		return
	}

	var body RemoveCarRequestBody
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			rw.WriteError(http.StatusBadRequest, ErrorCodeInvalidJSON,
				"Invalid JSON", "Request body contains invalid JSON")
			return
		}
	}

	if err := h.manager.RemoveCar(r.Context(), carID, body.Force); err != nil {
		h.logger.WarnContext(r.Context(), "remove car rejected",
			slog.Int("car_id", carID),
			slog.String("error", err.Error()),
			slog.String("request_id", requestID))
		rw.WriteDomainError(err)
		return
	}

	h.logger.InfoContext(r.Context(), "car removed",
		slog.Int("car_id", carID),
		slog.String("request_id", requestID))

	rw.WriteJSON(http.StatusOK, RemoveCarResponse{
		CarID:   carID,
		Message: "car removed",
	})
}

// StatusHandler handles GET /v1/status.
func (h *V1Handlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if r.Method != http.MethodGet {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed,
			"Method not allowed", "Only GET method is supported")
		return
	}

	rw.WriteJSON(http.StatusOK, StatusResponse{Cars: h.manager.Status()})
}

// HealthHandler handles GET /v1/health.
func (h *V1Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	status := h.manager.GetHealthStatus()

	statusStr := "healthy"
	if healthy, ok := status["system_healthy"].(bool); ok && !healthy {
		statusStr = "unhealthy"
	}

	rw.WriteJSON(http.StatusOK, HealthResponse{
		Status:    statusStr,
		Timestamp: time.Now(),
		Checks:    status,
	})
}

// MetricsHandler handles GET /v1/metrics (the JSON summary, distinct from
// the Prometheus exposition format served at /metrics).
func (h *V1Handlers) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	rw.WriteJSON(http.StatusOK, MetricsResponse{
		Timestamp: time.Now(),
		Metrics:   h.manager.GetMetrics(),
	})
}

// APIInfoHandler handles GET /v1.
func (h *V1Handlers) APIInfoHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	rw.WriteJSON(http.StatusOK, APIInfoResponse{
		Name:        "elevator-group-control",
		Version:     "v1",
		Description: "Multi-car elevator group-control dispatch API",
		Endpoints: map[string]string{
			"hall_calls":  "POST /v1/hall-calls",
			"add_car":     "POST /v1/cars",
			"remove_car":  "DELETE /v1/cars/{id}",
			"cabin_press": "POST /v1/cars/{id}/cabin-press",
			"maintenance": "POST /v1/cars/{id}/maintenance",
			"status":      "GET /v1/status",
			"health":      "GET /v1/health",
			"metrics":     "GET /v1/metrics",
			"ws_status":   "GET /ws/status",
		},
	})
}

// parseCarID extracts the {id} path segment from a /v1/cars/{id}/... route.
func parseCarID(path, suffix string) (int, bool) {
	if !strings.HasSuffix(path, suffix) {
		return 0, false
	}
	trimmed := strings.TrimPrefix(path, "/v1/cars/")
	trimmed = strings.TrimSuffix(trimmed, suffix)
	if trimmed == path {
		return 0, false
	}
	id, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, false
	}
	return id, true
}
