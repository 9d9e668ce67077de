package recovery

import "time"

// HandlerBuilderOption is a function that modifies the handler configuration
// during construction.
type HandlerBuilderOption func(*handler)

// withClock overrides the handler's time source. Used by tests for
// deterministic report timestamps.
func withClock(clock func() time.Time) HandlerBuilderOption {
	return func(h *handler) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithInitialState sets the device state the handler starts in.
//
// Parameters:
//   - state: the initial device state
//
// Returns:
//   - HandlerBuilderOption: the builder option
func WithInitialState(state DeviceState) HandlerBuilderOption {
	return func(h *handler) {
		h.state = state
	}
}
