// Package bus is the tick source / event loop (spec §4.F, §5): a single
// goroutine owns the engine and is the only thing that ever calls into it.
// Everything else — HTTP handlers, timers — only ever posts events onto a
// channel and, for inbound requests that need a reply, waits on a response
// channel.
//
// emit_after is implemented with time.AfterFunc: the timer goroutine does
// not touch engine state, it only sends the event back onto the bus's own
// channel, so the loop goroutine remains the sole mutator.
package bus

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/eaglepoint-labs/elevator-group-control/internal/domain"
	"github.com/eaglepoint-labs/elevator-group-control/internal/engine"
	"github.com/eaglepoint-labs/elevator-group-control/internal/registry"
)

// request is an inbound call posted from outside the loop goroutine.
type request struct {
	run  func(*engine.Engine)
	done chan struct{}
}

// carEvent is a motion event for one car, tagged with the sequence number
// it was issued under so stale duplicates can be dropped (spec §5: "a car
// must not have two in-flight AdvanceOne events at once").
type carEvent struct {
	carID int
	kind  engine.EventKind
	seq   uint64
}

// Bus runs the engine's single-threaded event loop.
type Bus struct {
	eng    *engine.Engine
	logger *slog.Logger

	requests chan request
	events   chan carEvent

	seq []uint64 // per-car current sequence; bumped each time a new motion event is scheduled

	mu      sync.Mutex // guards seq only; never guards engine state
	stop    chan struct{}
	stopped atomic.Bool

	scheduleTicker *time.Ticker
	motionTicker   *time.Ticker

	queueDepth metric.Int64UpDownCounter // event-loop queue depth (requests in flight); nil when telemetry is disabled
}

// New creates a bus around params, but does not start its loop.
func New(params engine.Params, rng *rand.Rand, logger *slog.Logger) *Bus {
	return &Bus{
		eng:      engine.New(params, rng),
		logger:   logger,
		requests: make(chan request, 64),
		events:   make(chan carEvent, 256),
		stop:     make(chan struct{}),
	}
}

// SetTelemetry installs the tracer used for dispatch/motion spans in the
// engine and registers the event-loop queue-depth meter. Safe to call with
// a nil meter (telemetry disabled); the queue-depth counter is then left
// unset and do() skips recording it.
func (b *Bus) SetTelemetry(tracer trace.Tracer, meter metric.Meter) {
	b.eng.SetTracer(tracer)
	if meter == nil {
		return
	}
	counter, err := meter.Int64UpDownCounter("bus_queue_depth",
		metric.WithDescription("number of requests currently queued or in flight on the event loop"))
	if err != nil {
		b.logger.Warn("failed to create bus queue depth meter", slog.String("error", err.Error()))
		return
	}
	b.queueDepth = counter
}

// Run starts the event loop. It blocks until ctx is done or Stop is called.
func (b *Bus) Run(ctx context.Context) {
	b.scheduleTicker = time.NewTicker(b.eng.Params.SchedulePeriod)
	b.motionTicker = time.NewTicker(b.eng.Params.MotionPeriod)
	defer b.scheduleTicker.Stop()
	defer b.motionTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stop:
			return
		case req := <-b.requests:
			req.run(b.eng)
			close(req.done)
		case ev := <-b.events:
			b.deliver(ev)
		case <-b.scheduleTicker.C:
			events := b.eng.Schedule()
			b.scheduleFutures(events)
		case <-b.motionTicker.C:
			b.sweepLiveness()
		}
	}
}

// Stop halts the loop goroutine.
func (b *Bus) Stop() {
	if b.stopped.CompareAndSwap(false, true) {
		close(b.stop)
	}
}

func (b *Bus) deliver(ev carEvent) {
	b.mu.Lock()
	current := b.currentSeqLocked(ev.carID)
	b.mu.Unlock()
	if ev.seq != current {
		return // stale: superseded by a later event for this car
	}

	var events []engine.FutureEvent
	switch ev.kind {
	case engine.KindAdvanceOne:
		events = b.eng.AdvanceOne(ev.carID)
	case engine.KindDwell:
		events = b.eng.Dwell(ev.carID)
	}
	b.scheduleFutures(events)
}

func (b *Bus) currentSeqLocked(carID int) uint64 {
	for carID >= len(b.seq) {
		b.seq = append(b.seq, 0)
	}
	return b.seq[carID]
}

// scheduleFutures arms emit_after timers for each returned future event,
// tagging each with a freshly bumped sequence number for its car so any
// previously in-flight event for that car becomes stale.
func (b *Bus) scheduleFutures(events []engine.FutureEvent) {
	for _, fe := range events {
		b.mu.Lock()
		for fe.CarID >= len(b.seq) {
			b.seq = append(b.seq, 0)
		}
		b.seq[fe.CarID]++
		seq := b.seq[fe.CarID]
		b.mu.Unlock()

		ev := carEvent{carID: fe.CarID, kind: fe.Kind, seq: seq}
		time.AfterFunc(fe.Delay, func() {
			select {
			case b.events <- ev:
			case <-b.stop:
			}
		})
	}
}

// sweepLiveness is the motion-sweep safety net (spec §4.F): re-emit
// AdvanceOne for any car with pending stops that isn't already in flight.
// In the steady state this is a no-op, since §4.E's own chained delays keep
// cars advancing; it only matters if a chain was ever dropped.
func (b *Bus) sweepLiveness() {
	for _, car := range b.eng.Cars {
		if car.State == domain.Maintenance || car.State == domain.Stop {
			continue
		}
		if !car.HasStops() {
			continue
		}
		b.scheduleFutures([]engine.FutureEvent{{CarID: car.ID, Kind: engine.KindAdvanceOne, Delay: 0}})
	}
}

// do runs fn on the loop goroutine and blocks until it completes.
func (b *Bus) do(fn func(*engine.Engine)) {
	if b.queueDepth != nil {
		b.queueDepth.Add(context.Background(), 1)
		defer b.queueDepth.Add(context.Background(), -1)
	}
	done := make(chan struct{})
	b.requests <- request{run: fn, done: done}
	<-done
}

// AddCar registers a new car and returns it.
func (b *Bus) AddCar(startFloor domain.Floor) *domain.Car {
	var car *domain.Car
	b.do(func(e *engine.Engine) { car = e.AddCar(startFloor) })
	return car
}

// RemoveCar drops a car from the bank. See engine.RemoveCar for the
// force/conflict semantics.
func (b *Bus) RemoveCar(carID int, force bool) error {
	var err error
	b.do(func(e *engine.Engine) { err = e.RemoveCar(carID, force) })
	return err
}

// NumCars returns the current car count, serialized through the loop.
func (b *Bus) NumCars() int {
	var n int
	b.do(func(e *engine.Engine) { n = len(e.Cars) })
	return n
}

// HallCall posts a hall-call event and waits for the accept/reject result.
func (b *Bus) HallCall(floor domain.Floor, direction domain.Direction) registry.EnqueueResult {
	var result registry.EnqueueResult
	b.do(func(e *engine.Engine) {
		var events []engine.FutureEvent
		result, events = e.HallCall(floor, direction)
		b.scheduleFutures(events)
	})
	return result
}

// CabinPress posts a cabin-button press and waits for accept/reject.
func (b *Bus) CabinPress(carID int, floor domain.Floor) error {
	var err error
	b.do(func(e *engine.Engine) {
		var events []engine.FutureEvent
		events, err = e.CabinPress(carID, floor)
		b.scheduleFutures(events)
	})
	return err
}

// Maintenance toggles a car's maintenance flag.
func (b *Bus) Maintenance(carID int, enabled, force bool) error {
	var err error
	b.do(func(e *engine.Engine) { err = e.Maintenance(carID, enabled, force) })
	return err
}

// Status returns a snapshot of every car (pull-model outbound observation,
// spec §6). Safe to call concurrently: it's serialized through the loop.
func (b *Bus) Status() []domain.CarStatus {
	var out []domain.CarStatus
	b.do(func(e *engine.Engine) {
		out = make([]domain.CarStatus, 0, len(e.Cars))
		for _, c := range e.Cars {
			out = append(out, domain.NewCarStatus(c))
		}
	})
	return out
}

// HallCalls returns the current registry contents in insertion order.
func (b *Bus) HallCalls() []domain.HallCall {
	var out []domain.HallCall
	b.do(func(e *engine.Engine) { out = e.Registry.All() })
	return out
}
