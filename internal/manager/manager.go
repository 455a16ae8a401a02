// Package manager is the application-facing facade over the event loop: it
// owns the bus and the car bank it describes, guards every call into the
// loop with a circuit breaker, and translates bus/engine outcomes into
// metrics and structured logs.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/eaglepoint-labs/elevator-group-control/internal/bus"
	"github.com/eaglepoint-labs/elevator-group-control/internal/constants"
	"github.com/eaglepoint-labs/elevator-group-control/internal/domain"
	"github.com/eaglepoint-labs/elevator-group-control/internal/engine"
	"github.com/eaglepoint-labs/elevator-group-control/internal/infra/config"
	"github.com/eaglepoint-labs/elevator-group-control/internal/infra/observability"
	"github.com/eaglepoint-labs/elevator-group-control/internal/registry"
	"github.com/eaglepoint-labs/elevator-group-control/internal/resilience"
	"github.com/eaglepoint-labs/elevator-group-control/metrics"
)

// Manager wires a bus.Bus to the rest of the application: HTTP handlers
// call into it, it calls into the bus, and the bus is the only thing that
// ever touches engine state.
type Manager struct {
	bus       *bus.Bus
	breaker   *resilience.CircuitBreaker
	cfg       *config.Config
	logger    *slog.Logger
	telemetry *observability.TelemetryProvider

	startTime time.Time
	running   atomic.Bool
	cancel    context.CancelFunc
}

// New builds a manager and the initial car bank described by cfg. The
// event loop is not started until Start is called.
func New(cfg *config.Config, logger *slog.Logger) *Manager {
	params := engine.Params{
		MinFloor:       domain.NewFloor(cfg.MinFloor),
		MaxFloor:       domain.NewFloor(cfg.MaxFloor),
		Capacity:       cfg.Capacity,
		FloorTime:      cfg.FloorTime,
		Dwell:          cfg.Dwell,
		SchedulePeriod: cfg.SchedulePeriod,
		MotionPeriod:   cfg.MotionPeriod,
		WaitCap:        cfg.WaitCap,
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	b := bus.New(params, rng, logger)

	obsCfg, err := observability.LoadObservabilityConfig()
	if err != nil {
		logger.Warn("failed to load observability config, telemetry disabled", slog.String("error", err.Error()))
		obsCfg = &observability.ObservabilityConfig{Enabled: false}
	}
	telemetry, err := observability.NewTelemetryProvider(obsCfg, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry provider", slog.String("error", err.Error()))
		telemetry, _ = observability.NewTelemetryProvider(&observability.ObservabilityConfig{Enabled: false}, logger)
	}
	b.SetTelemetry(telemetry.GetTracer(), telemetry.GetMeter())

	m := &Manager{
		bus: b,
		breaker: resilience.NewCircuitBreaker(
			cfg.CircuitBreakerMaxFailures,
			cfg.CircuitBreakerResetTimeout,
			cfg.CircuitBreakerHalfOpenLimit,
		),
		cfg:       cfg,
		logger:    logger.With(slog.String("component", constants.ComponentManager)),
		telemetry: telemetry,
		startTime: time.Now(),
	}

	startFloor := domain.NewFloor(cfg.MinFloor)
	for i := 0; i < cfg.NumCars; i++ {
		m.bus.AddCar(startFloor)
	}

	return m
}

// Start runs the bus's event loop on its own goroutine. It returns
// immediately; the loop stops when ctx is cancelled or Shutdown is called.
func (m *Manager) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running.Store(true)

	go m.bus.Run(runCtx)

	m.logger.Info("manager started",
		slog.Int("num_cars", m.cfg.NumCars),
		slog.Int("min_floor", m.cfg.MinFloor),
		slog.Int("max_floor", m.cfg.MaxFloor))
}

// Shutdown stops the event loop. Safe to call more than once.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.running.CompareAndSwap(true, false) {
		return nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.bus.Stop()
	if err := m.telemetry.Shutdown(ctx); err != nil {
		m.logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
	}
	m.logger.Info("manager stopped")
	return nil
}

// RequestHallCall posts a hall call for floor/direction. Returns the
// registry outcome alongside a domain error when the call was rejected.
func (m *Manager) RequestHallCall(ctx context.Context, floor int, direction string) (registry.EnqueueResult, error) {
	start := time.Now()

	f, err := domain.NewFloorWithValidation(floor)
	if err != nil {
		metrics.IncError("validation_error", "manager")
		return 0, err
	}

	dir := domain.Direction(direction)
	if !dir.IsValid() || dir == domain.DirectionIdle {
		metrics.IncError("validation_error", "manager")
		return 0, domain.ErrDirectionInvalid
	}

	var result registry.EnqueueResult
	if err := m.breaker.Execute(ctx, func() error {
		result = m.bus.HallCall(f, dir)
		return nil
	}); err != nil {
		metrics.IncError("circuit_open", "manager")
		return 0, domain.NewExternalError("dispatch event loop unavailable", err)
	}

	metrics.RecordDispatchDuration(result.String(), time.Since(start).Seconds())
	metrics.IncHallCallsTotal(result.String())

	switch result {
	case registry.Duplicate:
		return result, domain.ErrHallCallDuplicate
	case registry.Full:
		return result, domain.ErrHallCallRegistryFull
	}
	return result, nil
}

// CabinPress posts a cabin-button press for carID/floor.
func (m *Manager) CabinPress(ctx context.Context, carID int, floor int) error {
	f, err := domain.NewFloorWithValidation(floor)
	if err != nil {
		metrics.IncError("validation_error", "manager")
		return err
	}

	var cabinErr error
	if err := m.breaker.Execute(ctx, func() error {
		cabinErr = m.bus.CabinPress(carID, f)
		return nil
	}); err != nil {
		metrics.IncError("circuit_open", "manager")
		return domain.NewExternalError("dispatch event loop unavailable", err)
	}
	if cabinErr != nil {
		metrics.IncError("cabin_press_rejected", "manager")
		return cabinErr
	}

	metrics.IncCabinPressesTotal(m.carName(carID))
	return nil
}

// AddCar grows the car bank by one, starting it at the building's minimum
// floor. Bounded by cfg.MaxCars (supplemented feature, see SPEC_FULL.md §3:
// the runtime analogue of the teacher's AddElevator).
func (m *Manager) AddCar(ctx context.Context) (*domain.Car, error) {
	if m.bus.NumCars() >= m.cfg.MaxCars {
		metrics.IncError("max_cars_reached", "manager")
		return nil, domain.ErrMaxCarsReached
	}

	var car *domain.Car
	startFloor := domain.NewFloor(m.cfg.MinFloor)
	if err := m.breaker.Execute(ctx, func() error {
		car = m.bus.AddCar(startFloor)
		return nil
	}); err != nil {
		metrics.IncError("circuit_open", "manager")
		return nil, domain.NewExternalError("dispatch event loop unavailable", err)
	}

	m.logger.Info("car added", slog.Int("car_id", car.ID))
	return car, nil
}

// RemoveCar shrinks the car bank by one. A car with pending stops fails
// closed (Conflict) unless force releases them first, matching Maintenance.
func (m *Manager) RemoveCar(ctx context.Context, carID int, force bool) error {
	var removeErr error
	if err := m.breaker.Execute(ctx, func() error {
		removeErr = m.bus.RemoveCar(carID, force)
		return nil
	}); err != nil {
		metrics.IncError("circuit_open", "manager")
		return domain.NewExternalError("dispatch event loop unavailable", err)
	}
	if removeErr != nil {
		metrics.IncError("remove_car_rejected", "manager")
		return removeErr
	}

	m.logger.Info("car removed", slog.Int("car_id", carID))
	return nil
}

// Maintenance toggles a car's maintenance flag.
func (m *Manager) Maintenance(ctx context.Context, carID int, enabled, force bool) error {
	var maintErr error
	if err := m.breaker.Execute(ctx, func() error {
		maintErr = m.bus.Maintenance(carID, enabled, force)
		return nil
	}); err != nil {
		metrics.IncError("circuit_open", "manager")
		return domain.NewExternalError("dispatch event loop unavailable", err)
	}
	return maintErr
}

// Status returns a snapshot of every car, updating the per-car gauges as a
// side effect.
func (m *Manager) Status() []domain.CarStatus {
	statuses := m.bus.Status()

	allStates := []domain.CarState{
		domain.Stop, domain.GoingUp, domain.GoingUpDwell,
		domain.GoingDown, domain.GoingDownDwell, domain.Maintenance,
	}

	for _, s := range statuses {
		name := m.carName(s.ID)
		metrics.SetCarCurrentFloor(name, float64(s.Floor.Value()))
		metrics.SetCarAssignedCalls(name, float64(len(s.AssignedStops)))
		for _, st := range allStates {
			metrics.SetCarState(name, st.String(), s.State == st)
		}
	}

	return statuses
}

// GetHealthStatus reports liveness/readiness details suitable for a health
// endpoint: whether the event loop is running and the circuit breaker
// guarding it is closed.
func (m *Manager) GetHealthStatus() map[string]interface{} {
	state, failures, successes := m.breaker.GetMetrics()
	metrics.SetCircuitBreakerState("bus", float64(state))

	statuses := m.Status()
	healthyCars := 0
	for _, s := range statuses {
		if !s.IsInMaintenance() {
			healthyCars++
		}
	}

	systemHealthy := m.running.Load() && state != resilience.StateOpen

	return map[string]interface{}{
		"system_healthy":            systemHealthy,
		"running":                   m.running.Load(),
		"uptime_seconds":            time.Since(m.startTime).Seconds(),
		"num_cars":                  len(statuses),
		"healthy_cars":              healthyCars,
		"circuit_breaker_state":     circuitBreakerStateName(state),
		"circuit_breaker_failures":  failures,
		"circuit_breaker_successes": successes,
		"hall_calls_outstanding":    len(m.bus.HallCalls()),
	}
}

// GetMetrics returns a JSON-friendly snapshot of derived metrics, refreshing
// the Prometheus gauges as a side effect.
func (m *Manager) GetMetrics() map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.SetMemoryUsage("alloc", float64(mem.Alloc))
	metrics.SetMemoryUsage("sys", float64(mem.Sys))
	metrics.SetMemoryUsage("heap_objects", float64(mem.HeapObjects))

	statuses := m.Status()

	upCalls, downCalls := 0, 0
	for _, call := range m.bus.HallCalls() {
		if call.Direction == domain.DirectionUp {
			upCalls++
		} else {
			downCalls++
		}
	}
	metrics.SetRegistryDepth("up", float64(upCalls))
	metrics.SetRegistryDepth("down", float64(downCalls))

	return map[string]interface{}{
		"num_cars":        len(statuses),
		"hall_calls_up":   upCalls,
		"hall_calls_down": downCalls,
		"uptime_seconds":  time.Since(m.startTime).Seconds(),
		"goroutines":      runtime.NumGoroutine(),
	}
}

func (m *Manager) carName(carID int) string {
	return fmt.Sprintf("%s%d", m.cfg.CarNamePrefix, carID)
}

func circuitBreakerStateName(s resilience.CircuitBreakerState) string {
	switch s {
	case resilience.StateClosed:
		return "closed"
	case resilience.StateOpen:
		return "open"
	case resilience.StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}
