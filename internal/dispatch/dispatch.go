// Package dispatch implements the group-control dispatch policy: picking
// exactly one car to answer a hall call.
//
// The ranking is grounded on the original scheduler's approach of walking a
// sorted sequence of shaft events (the call plus every candidate car's
// position) rather than scanning cars independently: only the nearest
// candidate on each side of the call in that order is considered, and the
// closer of the two wins.
package dispatch

import (
	"sort"

	"github.com/eaglepoint-labs/elevator-group-control/internal/domain"
)

// Candidates returns every car eligible to answer a call at (f, d): not in
// maintenance, not overloaded, and either idle or already committed to
// passing through f in direction d.
func Candidates(cars []*domain.Car, f domain.Floor, d domain.Direction) []*domain.Car {
	out := make([]*domain.Car, 0, len(cars))
	for _, c := range cars {
		if c.State == domain.Maintenance || c.IsOverloaded() {
			continue
		}
		switch {
		case c.State == domain.Stop:
			out = append(out, c)
		case c.State == domain.GoingUp || c.State == domain.GoingUpDwell:
			if d == domain.DirectionUp && c.Floor <= f {
				out = append(out, c)
			}
		case c.State == domain.GoingDown || c.State == domain.GoingDownDwell:
			if d == domain.DirectionDown && c.Floor >= f {
				out = append(out, c)
			}
		}
	}
	return out
}

// shaftEvent is one point on the sorted scan used to find the "above" and
// "below" candidates relative to the call.
type shaftEvent struct {
	floor  domain.Floor
	isCall bool
	car    *domain.Car
}

// Choose selects a car for the call (f, d) out of candidates, or reports no
// eligible car. Ties (equal |floor - f|) favor a candidate already moving in
// direction d, then the "below" candidate (see breakTie).
func Choose(candidates []*domain.Car, f domain.Floor, d domain.Direction) (*domain.Car, bool) {
	if len(candidates) == 0 {
		return nil, false
	}

	events := make([]shaftEvent, 0, len(candidates)+1)
	events = append(events, shaftEvent{floor: f, isCall: true})
	for _, c := range candidates {
		events = append(events, shaftEvent{floor: c.Floor, car: c})
	}

	ascending := d == domain.DirectionUp
	sort.SliceStable(events, func(i, j int) bool {
		if ascending {
			return events[i].floor < events[j].floor
		}
		return events[i].floor > events[j].floor
	})

	callIdx := -1
	for i, e := range events {
		if e.isCall {
			callIdx = i
			break
		}
	}

	var above, below *domain.Car
	if callIdx > 0 {
		above = events[callIdx-1].car
	}
	if callIdx < len(events)-1 {
		below = events[callIdx+1].car
	}

	switch {
	case above != nil && below == nil:
		return above, true
	case below != nil && above == nil:
		return below, true
	case above != nil && below != nil:
		distAbove := f.Distance(above.Floor)
		distBelow := f.Distance(below.Floor)
		switch {
		case distBelow < distAbove:
			return below, true
		case distAbove < distBelow:
			return above, true
		default:
			return breakTie(above, below, d), true
		}
	default:
		return nil, false
	}
}

// breakTie prefers a car already moving in direction d over a Stop car;
// if that still doesn't decide it, "below" wins (the resolved convention
// for the equal-distance tie, see DESIGN.md).
func breakTie(above, below *domain.Car, d domain.Direction) *domain.Car {
	aMoving := above.State.Direction() == d
	bMoving := below.State.Direction() == d
	if bMoving && !aMoving {
		return below
	}
	if aMoving && !bMoving {
		return above
	}
	return below
}

// CommitDelay is the result of a successful Commit: how long until the
// motion driver's first AdvanceOne (or Dwell, if already at the floor)
// should fire.
type CommitDelay struct {
	AtFloor bool
}

// Commit performs the atomic commit actions for assigning car to call
// (f, d): inserts the assigned stop, and — if the car was idle — starts it
// moving (or dwelling, if it's already at f).
func Commit(car *domain.Car, f domain.Floor, d domain.Direction) CommitDelay {
	car.AssignStop(f, d)

	if car.State != domain.Stop {
		return CommitDelay{AtFloor: false}
	}

	switch {
	case car.Floor < f:
		car.State = domain.GoingUp
		return CommitDelay{AtFloor: false}
	case car.Floor > f:
		car.State = domain.GoingDown
		return CommitDelay{AtFloor: false}
	default:
		if d == domain.DirectionUp {
			car.State = domain.GoingUpDwell
		} else {
			car.State = domain.GoingDownDwell
		}
		return CommitDelay{AtFloor: true}
	}
}
