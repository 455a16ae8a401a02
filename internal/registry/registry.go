// Package registry holds the hall-call registry: the ordered, bounded
// collection of outstanding hall calls the dispatcher works from.
//
// The registry has no locking of its own. It is mutated only from inside
// the single-threaded event loop in internal/bus, which is the same
// guarantee the rest of the core relies on to avoid per-component mutexes.
package registry

import (
	"github.com/eaglepoint-labs/elevator-group-control/internal/domain"
)

// EnqueueResult is the outcome of Enqueue.
type EnqueueResult int

const (
	Accepted EnqueueResult = iota
	Duplicate
	Full
)

func (r EnqueueResult) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// Registry is an ordered, bounded set of hall calls, unique by
// (floor, direction). Order is insertion order, preserved across
// mark-scheduled and remove-served so that a sweep always evaluates older
// calls first.
type Registry struct {
	capacity int
	order    []domain.HallCallKey
	calls    map[domain.HallCallKey]domain.HallCall
}

// New creates an empty registry bounded at capacity entries.
func New(capacity int) *Registry {
	return &Registry{
		capacity: capacity,
		order:    make([]domain.HallCallKey, 0, capacity),
		calls:    make(map[domain.HallCallKey]domain.HallCall, capacity),
	}
}

// Enqueue adds a new hall call. Duplicate if (floor, direction) is already
// present, Full if the registry is already at capacity.
func (r *Registry) Enqueue(floor domain.Floor, direction domain.Direction) EnqueueResult {
	key := domain.HallCallKey{Floor: floor, Direction: direction}
	if _, exists := r.calls[key]; exists {
		return Duplicate
	}
	if len(r.order) >= r.capacity {
		return Full
	}
	r.calls[key] = domain.NewHallCall(floor, direction)
	r.order = append(r.order, key)
	return Accepted
}

// MarkScheduled sets the scheduled flag on the matching entry. No-op if the
// entry does not exist.
func (r *Registry) MarkScheduled(floor domain.Floor, direction domain.Direction) {
	key := domain.HallCallKey{Floor: floor, Direction: direction}
	call, ok := r.calls[key]
	if !ok {
		return
	}
	call.Scheduled = true
	r.calls[key] = call
}

// Unschedule clears the scheduled flag on a matching entry, so a later
// sweep will retry it. No-op if the entry does not exist.
func (r *Registry) Unschedule(floor domain.Floor, direction domain.Direction) {
	key := domain.HallCallKey{Floor: floor, Direction: direction}
	call, ok := r.calls[key]
	if !ok {
		return
	}
	call.Scheduled = false
	r.calls[key] = call
}

// RemoveServed removes the entry for (floor, direction) when a car dwells
// there, preserving the relative order of the remaining entries. No-op if
// no matching entry exists.
func (r *Registry) RemoveServed(floor domain.Floor, direction domain.Direction) {
	key := domain.HallCallKey{Floor: floor, Direction: direction}
	if _, ok := r.calls[key]; !ok {
		return
	}
	delete(r.calls, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Unscheduled returns every call that has not yet been scheduled, in
// insertion order.
func (r *Registry) Unscheduled() []domain.HallCall {
	out := make([]domain.HallCall, 0, len(r.order))
	for _, key := range r.order {
		if call := r.calls[key]; !call.Scheduled {
			out = append(out, call)
		}
	}
	return out
}

// All returns every outstanding hall call in insertion order.
func (r *Registry) All() []domain.HallCall {
	out := make([]domain.HallCall, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.calls[key])
	}
	return out
}

// Len reports the number of outstanding calls.
func (r *Registry) Len() int {
	return len(r.order)
}

// Capacity reports WAIT_CAP.
func (r *Registry) Capacity() int {
	return r.capacity
}
