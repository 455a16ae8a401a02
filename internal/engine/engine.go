// Package engine holds the single mutator of core state: a plain
// struct-of-components with no back-reference to any transport or UI. Every
// exported method here corresponds to one inbound event from spec §6 and
// returns the list of future events the caller (internal/bus) must
// schedule. Engine itself never sleeps, blocks, or spawns goroutines.
package engine

import (
	"context"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/eaglepoint-labs/elevator-group-control/internal/dispatch"
	"github.com/eaglepoint-labs/elevator-group-control/internal/domain"
	"github.com/eaglepoint-labs/elevator-group-control/internal/registry"
)

// Params are the tunable parameters from spec §6.
type Params struct {
	MinFloor       domain.Floor
	MaxFloor       domain.Floor
	Capacity       int
	FloorTime      time.Duration
	Dwell          time.Duration
	SchedulePeriod time.Duration
	MotionPeriod   time.Duration
	WaitCap        int
}

// FutureEvent is a delayed event the bus must schedule via emit_after.
type FutureEvent struct {
	Delay time.Duration
	CarID int
	Kind  EventKind
}

// EventKind distinguishes the two motion events a FutureEvent can carry.
type EventKind int

const (
	KindAdvanceOne EventKind = iota
	KindDwell
)

// Engine owns every car and the hall-call registry. It is not safe for
// concurrent use — the bus is the only caller, from a single goroutine.
type Engine struct {
	Params   Params
	Cars     []*domain.Car
	Registry *registry.Registry
	rng      *rand.Rand
	nextID   int
	tracer   trace.Tracer
}

// New creates an engine with no cars yet. Tracing defaults to a no-op
// tracer; the bus installs a real one via SetTracer when telemetry is
// enabled.
func New(params Params, rng *rand.Rand) *Engine {
	return &Engine{
		Params:   params,
		Cars:     make([]*domain.Car, 0),
		Registry: registry.New(params.WaitCap),
		rng:      rng,
		tracer:   noop.NewTracerProvider().Tracer("engine"),
	}
}

// SetTracer installs the tracer used for dispatch-commit and motion spans.
// A nil tracer is ignored, leaving the no-op default in place.
func (e *Engine) SetTracer(t trace.Tracer) {
	if t != nil {
		e.tracer = t
	}
}

// AddCar registers a new car at startFloor, Stop, empty. IDs are assigned
// from a monotonic counter rather than slice position, so a car added after
// an earlier one was removed never collides with a surviving car's id.
func (e *Engine) AddCar(startFloor domain.Floor) *domain.Car {
	car := domain.NewCar(e.nextID, startFloor, e.Params.Capacity)
	e.nextID++
	e.Cars = append(e.Cars, car)
	return car
}

// RemoveCar drops a car from the bank (supplemented feature, see
// SPEC_FULL.md §3: the runtime analogue of the teacher's RemoveElevator).
// A car with pending stops fails closed (Conflict) unless force is set, in
// which case its assigned stops are released back to the registry as
// unscheduled hall calls and its cabin stops are dropped, matching
// Maintenance's release semantics.
func (e *Engine) RemoveCar(carID int, force bool) error {
	idx := -1
	for i, c := range e.Cars {
		if c.ID == carID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return domain.ErrCarNotFound
	}

	car := e.Cars[idx]
	if car.HasStops() && !force {
		return domain.ErrCarHasStops
	}
	for floor, dir := range car.AssignedStops {
		e.Registry.Unschedule(floor, dir)
	}

	e.Cars = append(e.Cars[:idx], e.Cars[idx+1:]...)
	return nil
}

// Car returns the car with the given id, or nil.
func (e *Engine) Car(id int) *domain.Car {
	for _, c := range e.Cars {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// HallCall handles an inbound HallCall(floor, direction) event (spec §4.D
// trigger 1). Returns the registry outcome and any future event to
// schedule for the car it was immediately committed to, if any.
func (e *Engine) HallCall(floor domain.Floor, direction domain.Direction) (registry.EnqueueResult, []FutureEvent) {
	result := e.Registry.Enqueue(floor, direction)
	if result != registry.Accepted {
		return result, nil
	}

	events := e.trySchedule(floor, direction)
	return result, events
}

// Schedule handles a periodic sweep: attempt to assign every unscheduled
// hall call (spec §4.D trigger 2, §4.F).
func (e *Engine) Schedule() []FutureEvent {
	var events []FutureEvent
	for _, call := range e.Registry.Unscheduled() {
		events = append(events, e.trySchedule(call.Floor, call.Direction)...)
	}
	return events
}

func (e *Engine) trySchedule(floor domain.Floor, direction domain.Direction) []FutureEvent {
	candidates := dispatch.Candidates(e.Cars, floor, direction)
	car, ok := dispatch.Choose(candidates, floor, direction)
	if !ok {
		return nil
	}

	_, span := e.tracer.Start(context.Background(), "dispatch.commit",
		trace.WithAttributes(
			attribute.Int("car.id", car.ID),
			attribute.Int("floor", floor.Value()),
			attribute.String("direction", direction.String()),
		))
	delay := dispatch.Commit(car, floor, direction)
	span.End()

	e.Registry.MarkScheduled(floor, direction)

	if delay.AtFloor {
		return []FutureEvent{{Delay: e.Params.FloorTime + e.Params.Dwell, CarID: car.ID, Kind: KindDwell}}
	}
	return []FutureEvent{{Delay: e.Params.FloorTime, CarID: car.ID, Kind: KindAdvanceOne}}
}

// AdvanceOne handles a per-car AdvanceOne event (spec §4.E).
func (e *Engine) AdvanceOne(carID int) []FutureEvent {
	car := e.Car(carID)
	if car == nil {
		return nil
	}
	return e.applyMotion(car, motionAdvanceOne)
}

// Dwell handles a per-car Dwell event (spec §4.E).
func (e *Engine) Dwell(carID int) []FutureEvent {
	car := e.Car(carID)
	if car == nil {
		return nil
	}
	return e.applyMotion(car, motionDwell)
}

// CabinPress handles a cabin-button press (spec §4.E). Returns an error if
// rejected; otherwise any future event needed to start the car moving.
func (e *Engine) CabinPress(carID int, floor domain.Floor) ([]FutureEvent, error) {
	car := e.Car(carID)
	if car == nil {
		return nil, domain.ErrCarNotFound
	}
	return e.cabinPress(car, floor)
}

// Maintenance toggles a car's maintenance flag (supplemented feature, see
// SPEC_FULL.md §3). If enabled and the car has stops, force must be true;
// assigned stops are released back to the registry, cabin stops are
// dropped.
func (e *Engine) Maintenance(carID int, enabled, force bool) error {
	car := e.Car(carID)
	if car == nil {
		return domain.ErrCarNotFound
	}

	if !enabled {
		if car.State == domain.Maintenance {
			car.State = domain.Stop
		}
		return nil
	}

	if car.HasStops() && !force {
		return domain.ErrCarHasStops
	}

	for floor, dir := range car.AssignedStops {
		e.Registry.Unschedule(floor, dir)
	}
	car.AssignedStops = make(map[domain.Floor]domain.Direction)
	car.CabinStops = make(map[domain.Floor]struct{})
	car.AcceptsCabinInput = false
	car.State = domain.Maintenance
	return nil
}
