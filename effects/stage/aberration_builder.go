package stage

import "github.com/Carmen-Shannon/oxy-postfx/common"

// AberrationBuilderOption is a functional option for configuring an AberrationStage during construction.
type AberrationBuilderOption func(*aberrationStage)

// WithAberrationEnabled sets the initial enabled state.
//
// Parameters:
//   - enabled: true to include the stage in the active list
//
// Returns:
//   - AberrationBuilderOption: functional option to set the enabled state
func WithAberrationEnabled(enabled bool) AberrationBuilderOption {
	return func(s *aberrationStage) {
		s.enabled = enabled
	}
}

// WithAberrationOffset sets the initial UV sampling offsets, clamped to
// [-0.05, 0.05] per axis. Non-finite values are ignored.
//
// Parameters:
//   - x, y: the UV offset components
//
// Returns:
//   - AberrationBuilderOption: functional option to set the offset
func WithAberrationOffset(x, y float32) AberrationBuilderOption {
	return func(s *aberrationStage) {
		if common.IsFinite(float64(x)) && common.IsFinite(float64(y)) {
			s.offsetX = common.Clamp32(x, -0.05, 0.05)
			s.offsetY = common.Clamp32(y, -0.05, 0.05)
		}
	}
}

// WithAberrationIntensity sets the initial offset magnitude scale, clamped to
// [0, 1]. Non-finite values are ignored.
//
// Parameters:
//   - v: the intensity
//
// Returns:
//   - AberrationBuilderOption: functional option to set the intensity
func WithAberrationIntensity(v float32) AberrationBuilderOption {
	return func(s *aberrationStage) {
		if common.IsFinite(float64(v)) {
			s.intensity = common.Clamp32(v, 0, 1)
		}
	}
}

// WithAberrationRadial sets whether the offset scales with distance from the
// screen center.
//
// Parameters:
//   - radial: true for radial scaling
//
// Returns:
//   - AberrationBuilderOption: functional option to set radial mode
func WithAberrationRadial(radial bool) AberrationBuilderOption {
	return func(s *aberrationStage) {
		s.radial = radial
	}
}

// WithAberrationRecovery wires a shader recovery hook used when the stage's
// program fails to compile.
//
// Parameters:
//   - recoverFunc: the recovery hook
//
// Returns:
//   - AberrationBuilderOption: functional option to set the recovery hook
func WithAberrationRecovery(recoverFunc RecoverShaderFunc) AberrationBuilderOption {
	return func(s *aberrationStage) {
		s.recoverFunc = recoverFunc
	}
}
