package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaglepoint-labs/elevator-group-control/internal/domain"
)

func newIdleCar(id int, floor int) *domain.Car {
	return domain.NewCar(id, domain.Floor(floor), 18)
}

func TestCandidates_ExcludesMaintenanceAndOverloaded(t *testing.T) {
	idle := newIdleCar(0, 5)
	maint := newIdleCar(1, 6)
	maint.State = domain.Maintenance
	overloaded := newIdleCar(2, 6)
	overloaded.Occupancy = overloaded.Capacity + 1

	out := Candidates([]*domain.Car{idle, maint, overloaded}, 10, domain.DirectionUp)
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].ID)
}

func TestCandidates_MovingCarMustBeOnAllowedSide(t *testing.T) {
	movingUp := newIdleCar(0, 6)
	movingUp.State = domain.GoingUp

	// Moving up, already above the call floor: not a candidate for an Up call.
	out := Candidates([]*domain.Car{movingUp}, 4, domain.DirectionUp)
	assert.Len(t, out, 0)

	// Moving up, at or below the call floor: eligible.
	out = Candidates([]*domain.Car{movingUp}, 8, domain.DirectionUp)
	assert.Len(t, out, 1)
}

func TestChoose_TwoIdleCarsOneCallBetween(t *testing.T) {
	car0 := newIdleCar(0, 3)
	car1 := newIdleCar(1, 12)

	chosen, ok := Choose([]*domain.Car{car0, car1}, 7, domain.DirectionUp)
	require.True(t, ok)
	assert.Equal(t, 0, chosen.ID)
}

func TestChoose_NoCandidates(t *testing.T) {
	_, ok := Choose(nil, 5, domain.DirectionUp)
	assert.False(t, ok)
}

func TestChoose_EqualDistanceTieFavorsBelow(t *testing.T) {
	above := newIdleCar(0, 2) // 3 floors below the call at 5 (not inclusive of 0)
	below := newIdleCar(1, 8) // 3 floors above the call at 5

	chosen, ok := Choose([]*domain.Car{above, below}, 5, domain.DirectionUp)
	require.True(t, ok)
	assert.Equal(t, below.ID, chosen.ID)
}

func TestCommit_IdleCarBelowCallStartsMovingUp(t *testing.T) {
	car := newIdleCar(0, 3)
	delay := Commit(car, 10, domain.DirectionUp)

	assert.Equal(t, domain.GoingUp, car.State)
	assert.False(t, delay.AtFloor)
	assert.Equal(t, domain.DirectionUp, car.AssignedStops[10])
}

func TestCommit_IdleCarAtCallFloorDwellsImmediately(t *testing.T) {
	car := newIdleCar(0, 10)
	delay := Commit(car, 10, domain.DirectionUp)

	assert.Equal(t, domain.GoingUpDwell, car.State)
	assert.True(t, delay.AtFloor)
}

func TestCommit_MovingCarAddsStopWithoutChangingState(t *testing.T) {
	car := newIdleCar(0, 3)
	car.State = domain.GoingUp

	delay := Commit(car, 10, domain.DirectionUp)
	assert.Equal(t, domain.GoingUp, car.State)
	assert.False(t, delay.AtFloor)
}
