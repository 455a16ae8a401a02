package constants

import "time"

// Application constants centralized in one location to improve type safety
// and eliminate magic strings throughout the codebase

// Default Configuration Values
const (
	DefaultPort     = 6660
	DefaultLogLevel = "INFO"

	// Building and bank defaults
	DefaultNumCars   = 4
	DefaultMinFloor  = -4
	DefaultMaxFloor  = 40
	DefaultCapacity  = 18
	DefaultWaitCap   = 30

	// Timing defaults
	DefaultFloorTime      = 200 * time.Millisecond
	DefaultDwell          = 500 * time.Millisecond
	DefaultSchedulePeriod = 5000 * time.Millisecond
	DefaultMotionPeriod   = 5000 * time.Millisecond

	// WebSocket update interval
	StatusUpdateInterval = 1 * time.Second
)

// HTTP Content Types
const (
	ContentTypeJSON      = "application/json"
	ContentTypeTextPlain = "text/plain"
)

// HTTP Methods
const (
	MethodGET  = "GET"
	MethodPOST = "POST"
)

// Component Names for Logging
const (
	ComponentHTTPServer = "http-server"
	ComponentHTTPHandler = "http_handler"
	ComponentCar        = "car"
	ComponentManager    = "manager"
	ComponentRegistry   = "registry"
	ComponentDispatch   = "dispatch"
	ComponentMotion     = "motion"
	ComponentBus        = "bus"
)

// Floor Validation Limits — absolute bounds the system will ever accept,
// independent of any one deployment's configured MIN_FLOOR/MAX_FLOOR.
const (
	MinAllowedFloor = -100
	MaxAllowedFloor = 200
)

// Metrics
const (
	MetricsNamespace = "elevator"
	CarIDLabel       = "car_id"
)

// Default Car Names
const (
	DefaultCarPrefix = "car"
)
