package effects

import (
	"github.com/Carmen-Shannon/oxy-postfx/effects/capability"
	"github.com/Carmen-Shannon/oxy-postfx/effects/monitor"
	"github.com/Carmen-Shannon/oxy-postfx/effects/recovery"
)

// ManagerBuilderOption is a function that modifies the manager configuration
// during construction.
type ManagerBuilderOption func(*manager)

// WithManagerConfig sets the initial pipeline configuration. Values outside
// their documented ranges are clamped.
//
// Parameters:
//   - cfg: the configuration to start with
//
// Returns:
//   - ManagerBuilderOption: the builder option
func WithManagerConfig(cfg EffectsConfig) ManagerBuilderOption {
	return func(m *manager) {
		m.config = Normalize(cfg)
	}
}

// WithQualityPresets replaces the built-in quality ladder. Presets must be
// ordered lowest quality first; an empty slice keeps the default ladder.
//
// Parameters:
//   - presets: the ordered presets
//
// Returns:
//   - ManagerBuilderOption: the builder option
func WithQualityPresets(presets []QualityPreset) ManagerBuilderOption {
	return func(m *manager) {
		m.presets = presets
	}
}

// WithAdaptiveQuality sets whether the performance monitor drives quality
// preset changes automatically. Defaults to true; when disabled, presets
// change only through SetQualityLevel.
//
// Parameters:
//   - enabled: true to adapt quality to measured performance
//
// Returns:
//   - ManagerBuilderOption: the builder option
func WithAdaptiveQuality(enabled bool) ManagerBuilderOption {
	return func(m *manager) {
		m.adaptive = enabled
	}
}

// WithRecoveryHandler injects a preconfigured error handler instead of the
// default one.
//
// Parameters:
//   - handler: the handler to use
//
// Returns:
//   - ManagerBuilderOption: the builder option
func WithRecoveryHandler(handler recovery.Handler) ManagerBuilderOption {
	return func(m *manager) {
		m.handler = handler
	}
}

// WithCapabilityProbe injects a preconfigured capability probe instead of
// probing the device at construction.
//
// Parameters:
//   - probe: the probe to use
//
// Returns:
//   - ManagerBuilderOption: the builder option
func WithCapabilityProbe(probe capability.Probe) ManagerBuilderOption {
	return func(m *manager) {
		m.probe = probe
	}
}

// WithPerformanceMonitor injects a preconfigured performance monitor. Its
// level count must match the quality preset count.
//
// Parameters:
//   - perf: the monitor to use
//
// Returns:
//   - ManagerBuilderOption: the builder option
func WithPerformanceMonitor(perf monitor.PerformanceMonitor) ManagerBuilderOption {
	return func(m *manager) {
		m.perf = perf
	}
}
