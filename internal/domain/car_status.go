package domain

import "fmt"

// CarStatus is the outbound observation snapshot for one car (spec §6):
// everything a UI can read after any event, pull-model.
type CarStatus struct {
	ID                int       `json:"id"`
	State             CarState  `json:"state"`
	Floor             Floor     `json:"floor"`
	Occupancy         int       `json:"occupancy"`
	AcceptsCabinInput bool      `json:"accepts_cabin_input"`
	CabinStops        []Floor   `json:"cabin_stops"`
	AssignedStops     []Floor   `json:"assigned_stops"`
	Direction         Direction `json:"direction"`
}

// NewCarStatus builds a status snapshot from a car's current fields.
func NewCarStatus(c *Car) CarStatus {
	return CarStatus{
		ID:                c.ID,
		State:             c.State,
		Floor:             c.Floor,
		Occupancy:         c.Occupancy,
		AcceptsCabinInput: c.AcceptsCabinInput,
		CabinStops:        c.SortedCabinStops(),
		AssignedStops:     c.SortedAssignedStops(),
		Direction:         c.State.Direction(),
	}
}

// IsIdle reports whether the car is at Stop.
func (s CarStatus) IsIdle() bool {
	return s.State == Stop
}

// IsMoving reports whether the car is in transit.
func (s CarStatus) IsMoving() bool {
	return s.State.IsMoving()
}

// IsInMaintenance reports whether the car is withdrawn from service.
func (s CarStatus) IsInMaintenance() bool {
	return s.State == Maintenance
}

// Summary renders a one-line human-readable description of the car,
// mirroring the textual status line the original simulator's UI drew.
func (s CarStatus) Summary() string {
	return fmt.Sprintf("car %d: floor=%s state=%s occupancy=%d/assigned=%d/cabin=%d",
		s.ID, s.Floor, s.State, s.Occupancy, len(s.AssignedStops), len(s.CabinStops))
}
