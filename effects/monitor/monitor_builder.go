package monitor

import "time"

// MonitorBuilderOption is a functional option for configuring a PerformanceMonitor during construction.
type MonitorBuilderOption func(*performanceMonitor)

// WithTargetFPS sets the frame rate the control loop steers toward.
// Defaults to 60. Values below 1 are ignored.
//
// Parameters:
//   - fps: the target frame rate
//
// Returns:
//   - MonitorBuilderOption: functional option to set the target
func WithTargetFPS(fps float64) MonitorBuilderOption {
	return func(m *performanceMonitor) {
		if fps >= 1 {
			m.targetFPS = fps
		}
	}
}

// WithMinFPS sets the frame rate below which a sample classifies as poor.
// Defaults to 30. Values below 1 are ignored.
//
// Parameters:
//   - fps: the minimum acceptable frame rate
//
// Returns:
//   - MonitorBuilderOption: functional option to set the minimum
func WithMinFPS(fps float64) MonitorBuilderOption {
	return func(m *performanceMonitor) {
		if fps >= 1 {
			m.minFPS = fps
		}
	}
}

// WithMaxFrameTime sets the frame-time budget above which a sample classifies
// as poor. Defaults to 33.3ms. Non-positive values are ignored.
//
// Parameters:
//   - d: the frame-time budget
//
// Returns:
//   - MonitorBuilderOption: functional option to set the budget
func WithMaxFrameTime(d time.Duration) MonitorBuilderOption {
	return func(m *performanceMonitor) {
		if d > 0 {
			m.maxFrameTime = d
		}
	}
}

// WithLowFPSFloor sets the absolute frame rate floor for the warning
// callback. Defaults to 15. Values below 1 are ignored.
//
// Parameters:
//   - fps: the warning floor
//
// Returns:
//   - MonitorBuilderOption: functional option to set the floor
func WithLowFPSFloor(fps float64) MonitorBuilderOption {
	return func(m *performanceMonitor) {
		if fps >= 1 {
			m.lowFPSFloor = fps
		}
	}
}

// WithInitialLevel sets the starting quality level. Defaults to the top
// level. Out-of-range values are clamped.
//
// Parameters:
//   - level: the starting level index
//
// Returns:
//   - MonitorBuilderOption: functional option to set the starting level
func WithInitialLevel(level int) MonitorBuilderOption {
	return func(m *performanceMonitor) {
		if level < 0 {
			level = 0
		}
		if level > m.levelCount-1 {
			level = m.levelCount - 1
		}
		m.level = level
	}
}

// withClock replaces the monitor's time source. Used by tests to drive the
// control loop cadence deterministically.
func withClock(clock func() time.Time) MonitorBuilderOption {
	return func(m *performanceMonitor) {
		m.clock = clock
	}
}
