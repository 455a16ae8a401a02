package domain

import (
	"math/rand"
	"sort"
)

// Car is the full per-car state: the motion state machine, its current
// floor, occupancy, and the two stop sets that drive it. Car is mutated
// only by the motion driver and dispatcher update functions — it has no
// internal locking because the event loop that owns it is single-threaded.
type Car struct {
	ID        int
	State     CarState
	Floor     Floor
	Occupancy int
	Capacity  int

	// CabinStops are destinations entered from inside the car. Direction is
	// not tracked per-stop: a car's direction was fixed when the first
	// press set it (or when a hall call was accepted).
	CabinStops map[Floor]struct{}

	// AssignedStops are hall calls the dispatcher committed to this car,
	// each carrying the direction the call was made in.
	AssignedStops map[Floor]Direction

	// AcceptsCabinInput is true only while dwelling with at least one
	// passenger aboard.
	AcceptsCabinInput bool
}

// NewCar creates a car at Stop, at the given starting floor, with no stops.
func NewCar(id int, startFloor Floor, capacity int) *Car {
	return &Car{
		ID:            id,
		State:         Stop,
		Floor:         startFloor,
		Occupancy:     0,
		Capacity:      capacity,
		CabinStops:    make(map[Floor]struct{}),
		AssignedStops: make(map[Floor]Direction),
	}
}

// IsOverloaded reports occupancy > capacity (invariant 5).
func (c *Car) IsOverloaded() bool {
	return c.Occupancy > c.Capacity
}

// HasStops reports whether the car has any pending destination.
func (c *Car) HasStops() bool {
	return len(c.CabinStops) > 0 || len(c.AssignedStops) > 0
}

// DestFloor returns the next floor to serve, per invariant 7: while
// GoingUp*, the minimum stop at or above the current floor; while
// GoingDown*, the maximum stop at or below it. Returns (0, false) when
// there is no eligible stop.
func (c *Car) DestFloor() (Floor, bool) {
	dir := c.State.Direction()
	candidates := c.allStops()
	if len(candidates) == 0 {
		return 0, false
	}

	switch dir {
	case DirectionUp:
		best, found := Floor(0), false
		for _, f := range candidates {
			if f >= c.Floor && (!found || f < best) {
				best, found = f, true
			}
		}
		return best, found
	case DirectionDown:
		best, found := Floor(0), false
		for _, f := range candidates {
			if f <= c.Floor && (!found || f > best) {
				best, found = f, true
			}
		}
		return best, found
	default:
		// Stop: no committed direction yet, nearest stop wins.
		sort.Slice(candidates, func(i, j int) bool {
			return c.Floor.Distance(candidates[i]) < c.Floor.Distance(candidates[j])
		})
		return candidates[0], true
	}
}

func (c *Car) allStops() []Floor {
	seen := make(map[Floor]struct{}, len(c.CabinStops)+len(c.AssignedStops))
	stops := make([]Floor, 0, len(c.CabinStops)+len(c.AssignedStops))
	for f := range c.CabinStops {
		if _, ok := seen[f]; !ok {
			seen[f] = struct{}{}
			stops = append(stops, f)
		}
	}
	for f := range c.AssignedStops {
		if _, ok := seen[f]; !ok {
			seen[f] = struct{}{}
			stops = append(stops, f)
		}
	}
	return stops
}

// RemoveFloor removes f from both stop sets and returns the direction of
// the removed assigned stop, if one existed there.
func (c *Car) RemoveFloor(f Floor) (Direction, bool) {
	delete(c.CabinStops, f)
	dir, ok := c.AssignedStops[f]
	if ok {
		delete(c.AssignedStops, f)
	}
	return dir, ok
}

// AssignStop inserts f into AssignedStops under direction d.
func (c *Car) AssignStop(f Floor, d Direction) {
	c.AssignedStops[f] = d
}

// SortedCabinStops returns cabin stops in ascending floor order.
func (c *Car) SortedCabinStops() []Floor {
	out := make([]Floor, 0, len(c.CabinStops))
	for f := range c.CabinStops {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SortedAssignedStops returns assigned stops in ascending floor order.
func (c *Car) SortedAssignedStops() []Floor {
	out := make([]Floor, 0, len(c.AssignedStops))
	for f := range c.AssignedStops {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SamplePassengers models a dwell's passenger exchange: some passengers
// leave, some board, net occupancy clamped to [0, Capacity]. rng is
// injected so tests can seed it deterministically.
func (c *Car) SamplePassengers(rng *rand.Rand) {
	leaving := 0
	if c.Occupancy > 0 {
		leaving = rng.Intn(c.Occupancy + 1)
	}
	boarding := rng.Intn(c.Capacity + 1)

	next := c.Occupancy - leaving + boarding
	if next < 0 {
		next = 0
	}
	if next > c.Capacity {
		next = c.Capacity
	}
	c.Occupancy = next
}
