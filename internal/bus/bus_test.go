package bus

import (
	"context"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaglepoint-labs/elevator-group-control/internal/domain"
	"github.com/eaglepoint-labs/elevator-group-control/internal/engine"
	"github.com/eaglepoint-labs/elevator-group-control/internal/registry"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	params := engine.Params{
		MinFloor:       -4,
		MaxFloor:       40,
		Capacity:       18,
		FloorTime:      5 * time.Millisecond,
		Dwell:          5 * time.Millisecond,
		SchedulePeriod: 50 * time.Millisecond,
		MotionPeriod:   50 * time.Millisecond,
		WaitCap:        30,
	}
	b := New(params, rand.New(rand.NewSource(7)), slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)
	t.Cleanup(func() {
		cancel()
		b.Stop()
	})
	return b
}

func TestBus_HallCallDrivesCarToArrival(t *testing.T) {
	b := newTestBus(t)
	car := b.AddCar(5)
	require.NotNil(t, car)

	result := b.HallCall(10, domain.DirectionUp)
	require.Equal(t, registry.Accepted, result)

	require.Eventually(t, func() bool {
		status := b.Status()
		return len(status) == 1 && status[0].Floor == 10
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBus_AddAndRemoveCar(t *testing.T) {
	b := newTestBus(t)
	b.AddCar(5)
	require.Equal(t, 1, b.NumCars())

	second := b.AddCar(-2)
	require.NotNil(t, second)
	require.Equal(t, 2, b.NumCars())

	require.NoError(t, b.RemoveCar(second.ID, false))
	require.Equal(t, 1, b.NumCars())

	require.Error(t, b.RemoveCar(second.ID, false))
}

func TestBus_AddCarAfterRemoveNeverReusesID(t *testing.T) {
	b := newTestBus(t)
	first := b.AddCar(5)
	second := b.AddCar(5)

	require.NoError(t, b.RemoveCar(first.ID, false))
	third := b.AddCar(5)

	assert.NotEqual(t, first.ID, third.ID)
	assert.NotEqual(t, second.ID, third.ID)
}

func TestBus_SetTelemetryIsOptional(t *testing.T) {
	b := newTestBus(t)
	car := b.AddCar(5)
	require.NotNil(t, car)

	b.SetTelemetry(nil, nil)

	result := b.HallCall(10, domain.DirectionUp)
	require.Equal(t, registry.Accepted, result)
}

func TestBus_CabinPressRejectedWhenNotAccepting(t *testing.T) {
	b := newTestBus(t)
	b.AddCar(5)

	err := b.CabinPress(0, 8)
	assert.Error(t, err)
}

func TestBus_DuplicateHallCallRejected(t *testing.T) {
	b := newTestBus(t)
	b.AddCar(5)

	first := b.HallCall(10, domain.DirectionUp)
	require.Equal(t, registry.Accepted, first)

	second := b.HallCall(10, domain.DirectionUp)
	assert.Equal(t, registry.Duplicate, second)
}

func TestBus_MaintenanceReleasesStops(t *testing.T) {
	b := newTestBus(t)
	b.AddCar(3)
	b.AddCar(20)

	// Car 0 parked far from the call; car 1 is closer and will take it.
	result := b.HallCall(25, domain.DirectionUp)
	require.Equal(t, registry.Accepted, result)

	err := b.Maintenance(1, true, true)
	require.NoError(t, err)

	calls := b.HallCalls()
	require.Len(t, calls, 1)
}
