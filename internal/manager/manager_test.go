package manager

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaglepoint-labs/elevator-group-control/internal/domain"
	"github.com/eaglepoint-labs/elevator-group-control/internal/infra/config"
	"github.com/eaglepoint-labs/elevator-group-control/internal/registry"
)

func testConfig() *config.Config {
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

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := New(testConfig(), slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = m.Shutdown(context.Background())
	})
	return m
}

func TestNew_CreatesConfiguredCarBank(t *testing.T) {
	m := newTestManager(t)

	statuses := m.Status()
	require.Len(t, statuses, 2)
	for _, s := range statuses {
		assert.Equal(t, -4, s.Floor.Value())
		assert.Equal(t, domain.Stop, s.State)
	}
}

func TestRequestHallCall_Accepted(t *testing.T) {
	m := newTestManager(t)

	result, err := m.RequestHallCall(context.Background(), 10, "up")
	require.NoError(t, err)
	assert.Equal(t, registry.Accepted, result)
}

func TestRequestHallCall_Duplicate(t *testing.T) {
	m := newTestManager(t)

	_, err := m.RequestHallCall(context.Background(), 10, "up")
	require.NoError(t, err)

	result, err := m.RequestHallCall(context.Background(), 10, "up")
	assert.ErrorIs(t, err, domain.ErrHallCallDuplicate)
	assert.Equal(t, registry.Duplicate, result)
}

func TestRequestHallCall_InvalidFloor(t *testing.T) {
	m := newTestManager(t)

	_, err := m.RequestHallCall(context.Background(), 1000, "up")
	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrTypeValidation, domainErr.Type)
}

func TestRequestHallCall_InvalidDirection(t *testing.T) {
	m := newTestManager(t)

	_, err := m.RequestHallCall(context.Background(), 5, "sideways")
	assert.ErrorIs(t, err, domain.ErrDirectionInvalid)
}

func TestCabinPress_DrivesCarToDestination(t *testing.T) {
	m := newTestManager(t)

	err := m.CabinPress(context.Background(), 0, 10)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		statuses := m.Status()
		return statuses[0].Floor.Value() == 10
	}, 2*time.Second, 5*time.Millisecond)
}

func TestMaintenance_WithdrawsCarFromService(t *testing.T) {
	m := newTestManager(t)

	err := m.Maintenance(context.Background(), 0, true, false)
	require.NoError(t, err)

	statuses := m.Status()
	assert.Equal(t, domain.Maintenance, statuses[0].State)
}

func TestGetHealthStatus_ReportsRunningAndCarCounts(t *testing.T) {
	m := newTestManager(t)

	status := m.GetHealthStatus()
	assert.Equal(t, true, status["running"])
	assert.Equal(t, 2, status["num_cars"])
	assert.Equal(t, 2, status["healthy_cars"])
}

func TestGetMetrics_ReportsHallCallCounts(t *testing.T) {
	m := newTestManager(t)

	_, err := m.RequestHallCall(context.Background(), 10, "up")
	require.NoError(t, err)

	metricsSnapshot := m.GetMetrics()
	assert.Equal(t, 1, metricsSnapshot["hall_calls_up"])
}

func TestAddCar_GrowsTheBank(t *testing.T) {
	m := newTestManager(t)

	car, err := m.AddCar(context.Background())
	require.NoError(t, err)
	assert.Equal(t, -4, car.Floor.Value())
	assert.Len(t, m.Status(), 3)
}

func TestAddCar_RejectsOnceAtMaxCars(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCars = 2
	m := New(cfg, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = m.Shutdown(context.Background())
	})

	_, err := m.AddCar(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMaxCarsReached)
}

func TestRemoveCar_ShrinksTheBank(t *testing.T) {
	m := newTestManager(t)

	err := m.RemoveCar(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Len(t, m.Status(), 1)
}

func TestRemoveCar_RejectsUnknownCar(t *testing.T) {
	m := newTestManager(t)

	err := m.RemoveCar(context.Background(), 99, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCarNotFound)
}

func TestRemoveCar_RejectsCarWithStopsUnlessForced(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.CabinPress(context.Background(), 0, 10))

	err := m.RemoveCar(context.Background(), 0, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCarHasStops)

	require.NoError(t, m.RemoveCar(context.Background(), 0, true))
	assert.Len(t, m.Status(), 1)
}

func TestShutdown_IsIdempotent(t *testing.T) {
	m := New(testConfig(), slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()

	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))
}
