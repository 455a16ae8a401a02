package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/eaglepoint-labs/elevator-group-control/internal/domain"
	"github.com/eaglepoint-labs/elevator-group-control/internal/motion"
)

type motionEventKind int

const (
	motionAdvanceOne motionEventKind = iota
	motionDwell
)

func (k motionEventKind) spanName() string {
	if k == motionDwell {
		return "motion.dwell"
	}
	return "motion.advance_one"
}

// applyMotion runs the requested motion handler against car and translates
// its Outcome into the future events the bus must schedule.
func (e *Engine) applyMotion(car *domain.Car, kind motionEventKind) []FutureEvent {
	_, span := e.tracer.Start(context.Background(), kind.spanName(),
		trace.WithAttributes(
			attribute.Int("car.id", car.ID),
			attribute.String("car.state", car.State.String()),
		))
	defer span.End()

	var out motion.Outcome
	switch kind {
	case motionAdvanceOne:
		out = motion.AdvanceOne(car, e.Registry)
	case motionDwell:
		out = motion.Dwell(car, e.rng)
	}

	switch {
	case out.NextDwell:
		return []FutureEvent{{Delay: e.Params.FloorTime + e.Params.Dwell, CarID: car.ID, Kind: KindDwell}}
	case out.NextAdvance:
		return []FutureEvent{{Delay: e.Params.FloorTime, CarID: car.ID, Kind: KindAdvanceOne}}
	default:
		return nil
	}
}

func (e *Engine) cabinPress(car *domain.Car, floor domain.Floor) ([]FutureEvent, error) {
	started, err := motion.CabinPress(car, floor)
	if err != nil {
		return nil, err
	}
	if started {
		return []FutureEvent{{Delay: e.Params.FloorTime, CarID: car.ID, Kind: KindAdvanceOne}}, nil
	}
	return nil, nil
}
