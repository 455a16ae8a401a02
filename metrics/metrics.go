// Package metrics exposes the Prometheus metrics for the dispatch service:
// per-car state and position, hall-call registry depth, dispatch latency,
// sweep counters, and circuit breaker state.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace   = "dispatch"
	carLabel    = "car"
	stateLabel  = "state"
	resultLabel = "result"
	dirLabel    = "direction"
)

var (
	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent ranking candidates and committing a hall call to a car.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{resultLabel},
	)

	hallCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hall_calls_total",
			Help:      "Hall calls accepted, rejected, or served.",
		},
		[]string{resultLabel},
	)

	cabinPressesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cabin_presses_total",
			Help:      "Cabin button presses accepted by car.",
		},
		[]string{carLabel},
	)

	registryDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hall_call_registry_depth",
			Help:      "Outstanding hall calls currently tracked by the registry, by direction.",
		},
		[]string{dirLabel},
	)

	carCurrentFloor = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "car_current_floor",
			Help:      "Current floor reported by each car.",
		},
		[]string{carLabel},
	)

	carState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "car_state",
			Help:      "1 if the car is currently in the named state, 0 otherwise.",
		},
		[]string{carLabel, stateLabel},
	)

	carAssignedCalls = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "car_assigned_calls",
			Help:      "Hall calls currently committed to each car.",
		},
		[]string{carLabel},
	)

	sweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_sweeps_total",
			Help:      "Dispatch sweeps run, by whether they committed a call.",
		},
		[]string{resultLabel},
	)

	motionTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "motion_ticks_total",
			Help:      "AdvanceOne events processed, by car.",
		},
		[]string{carLabel},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_queue_depth",
			Help:      "Pending events waiting on the bus request channel.",
		},
	)

	circuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0=closed, 1=open, 2=half-open.",
		},
		[]string{"breaker"},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors encountered, by type and source component.",
		},
		[]string{"error_type", "component"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests served by the API.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	avgResponseTime = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "avg_response_time_seconds",
			Help:      "Most recently observed response time for a named operation class.",
		},
		[]string{"operation"},
	)

	memoryUsage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_memory_bytes",
			Help:      "Process memory usage reported by runtime.MemStats.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		dispatchDuration,
		hallCallsTotal,
		cabinPressesTotal,
		registryDepth,
		carCurrentFloor,
		carState,
		carAssignedCalls,
		sweepsTotal,
		motionTicksTotal,
		queueDepth,
		circuitBreakerState,
		errorsTotal,
		httpRequestDuration,
		avgResponseTime,
		memoryUsage,
	)
}

// RecordDispatchDuration records the latency of one dispatch commit attempt.
func RecordDispatchDuration(result string, seconds float64) {
	dispatchDuration.With(prometheus.Labels{resultLabel: result}).Observe(seconds)
}

// IncHallCallsTotal increments the hall-call outcome counter.
func IncHallCallsTotal(result string) {
	hallCallsTotal.With(prometheus.Labels{resultLabel: result}).Inc()
}

// IncCabinPressesTotal increments the cabin-press counter for a car.
func IncCabinPressesTotal(carName string) {
	cabinPressesTotal.With(prometheus.Labels{carLabel: carName}).Inc()
}

// SetRegistryDepth sets the outstanding hall-call count for a direction.
func SetRegistryDepth(direction string, depth float64) {
	registryDepth.With(prometheus.Labels{dirLabel: direction}).Set(depth)
}

// SetCarCurrentFloor reports a car's current floor.
func SetCarCurrentFloor(carName string, floor float64) {
	carCurrentFloor.With(prometheus.Labels{carLabel: carName}).Set(floor)
}

// SetCarState flags the named state as active (1) or inactive (0) for a car.
func SetCarState(carName, state string, active bool) {
	value := 0.0
	if active {
		value = 1.0
	}
	carState.With(prometheus.Labels{carLabel: carName, stateLabel: state}).Set(value)
}

// SetCarAssignedCalls reports how many hall calls are committed to a car.
func SetCarAssignedCalls(carName string, count float64) {
	carAssignedCalls.With(prometheus.Labels{carLabel: carName}).Set(count)
}

// IncSweepsTotal increments the dispatch sweep counter.
func IncSweepsTotal(result string) {
	sweepsTotal.With(prometheus.Labels{resultLabel: result}).Inc()
}

// IncMotionTicksTotal increments the AdvanceOne counter for a car.
func IncMotionTicksTotal(carName string) {
	motionTicksTotal.With(prometheus.Labels{carLabel: carName}).Inc()
}

// SetQueueDepth reports the current bus request channel backlog.
func SetQueueDepth(depth float64) {
	queueDepth.Set(depth)
}

// SetCircuitBreakerState reports the numeric state of a named breaker.
func SetCircuitBreakerState(breaker string, state float64) {
	circuitBreakerState.With(prometheus.Labels{"breaker": breaker}).Set(state)
}

// IncError increments the error counter for a type/component pair.
func IncError(errorType, component string) {
	errorsTotal.With(prometheus.Labels{"error_type": errorType, "component": component}).Inc()
}

// RecordHTTPRequest records an HTTP request's outcome and latency.
func RecordHTTPRequest(method, endpoint, status string, seconds float64) {
	httpRequestDuration.With(prometheus.Labels{"method": method, "endpoint": endpoint, "status": status}).Observe(seconds)
}

// SetAvgResponseTime reports the latest response time for a named operation class.
func SetAvgResponseTime(operation string, seconds float64) {
	avgResponseTime.With(prometheus.Labels{"operation": operation}).Set(seconds)
}

// SetMemoryUsage reports a process memory figure by kind (alloc, sys, heap_objects).
func SetMemoryUsage(kind string, bytes float64) {
	memoryUsage.With(prometheus.Labels{"kind": kind}).Set(bytes)
}
