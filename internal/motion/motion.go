// Package motion implements the per-car motion driver: advancing a car one
// floor at a time, handling arrival and dwell, and the cabin-button
// direction-consistency rules.
//
// None of these handlers sleep or block. Each either mutates the car and
// returns the next event to schedule, or returns that there is nothing left
// to do — the caller (internal/bus) is responsible for turning a returned
// delay into a future event.
package motion

import (
	"math/rand"

	"github.com/eaglepoint-labs/elevator-group-control/internal/domain"
	"github.com/eaglepoint-labs/elevator-group-control/internal/registry"
)

// Outcome describes what the bus should schedule next after handling a
// motion event for one car.
type Outcome struct {
	// NextAdvance is true if another AdvanceOne should be scheduled.
	NextAdvance bool
	// NextDwell is true if a Dwell should be scheduled (arrival).
	NextDwell bool
	// Arrived is true if the car just reached dest and entered dwell.
	Arrived bool
	// ServedCall, when non-nil, is the hall call that was just satisfied
	// and should be removed from the registry.
	ServedCall *domain.HallCallKey
}

// AdvanceOne processes a single AdvanceOne(car_id) event (spec §4.E).
func AdvanceOne(car *domain.Car, reg *registry.Registry) Outcome {
	if car.State == domain.Maintenance {
		return Outcome{}
	}

	dest, ok := car.DestFloor()
	if !ok {
		car.State = domain.Stop
		car.AcceptsCabinInput = false
		return Outcome{}
	}

	car.Floor = car.Floor.AdvanceOne(car.State.Direction())

	if car.Floor != dest {
		return Outcome{NextAdvance: true}
	}

	// Arrival.
	car.State = car.State.Dwelling()
	assignedDir, hadAssigned := car.RemoveFloor(dest)

	out := Outcome{NextDwell: true, Arrived: true}
	if hadAssigned {
		reg.RemoveServed(dest, assignedDir)
		key := domain.HallCallKey{Floor: dest, Direction: assignedDir}
		out.ServedCall = &key
	}
	return out
}

// Dwell processes a Dwell(car_id) event (spec §4.E): door-open passenger
// exchange, then either another AdvanceOne or settling at Stop.
func Dwell(car *domain.Car, rng *rand.Rand) Outcome {
	if car.State == domain.Maintenance {
		return Outcome{}
	}
	if car.State == domain.Stop {
		return Outcome{}
	}

	car.State = car.State.Moving()

	// Resolved open question: sample passengers first, then decide whether
	// cabin input is accepted — never the other way around.
	car.SamplePassengers(rng)
	if car.Occupancy > 0 {
		car.AcceptsCabinInput = true
	} else {
		car.AcceptsCabinInput = false
		car.CabinStops = make(map[domain.Floor]struct{})
	}

	if car.HasStops() {
		return Outcome{NextAdvance: true}
	}
	car.State = domain.Stop
	car.AcceptsCabinInput = false
	return Outcome{}
}

// CabinPress handles a cabin-button press for floor f (spec §4.E).
// Returns started=true when the press just moved the car out of Stop,
// meaning the caller must schedule the car's first AdvanceOne.
func CabinPress(car *domain.Car, f domain.Floor) (started bool, err error) {
	if !car.AcceptsCabinInput {
		return false, domain.ErrCabinInputRejected
	}

	if _, alreadySet := car.CabinStops[f]; alreadySet {
		if len(car.CabinStops) == 1 && len(car.AssignedStops) == 0 && car.State.IsMoving() {
			return false, domain.ErrCabinPressLastStop
		}
		delete(car.CabinStops, f)
		return false, nil
	}

	switch car.State {
	case domain.GoingUp, domain.GoingUpDwell:
		if f <= car.Floor {
			return false, domain.ErrCabinPressOffDirection
		}
	case domain.GoingDown, domain.GoingDownDwell:
		if f >= car.Floor {
			return false, domain.ErrCabinPressOffDirection
		}
	case domain.Stop:
		if len(car.CabinStops) == 0 && len(car.AssignedStops) == 0 {
			if f > car.Floor {
				car.State = domain.GoingUp
			} else {
				car.State = domain.GoingDown
			}
			started = true
		}
	}

	car.CabinStops[f] = struct{}{}
	return started, nil
}
