package stage

import "github.com/Carmen-Shannon/oxy-postfx/common"

// GrainBuilderOption is a functional option for configuring a GrainStage during construction.
type GrainBuilderOption func(*grainStage)

// WithGrainEnabled sets the initial enabled state.
//
// Parameters:
//   - enabled: true to include the stage in the active list
//
// Returns:
//   - GrainBuilderOption: functional option to set the enabled state
func WithGrainEnabled(enabled bool) GrainBuilderOption {
	return func(s *grainStage) {
		s.enabled = enabled
	}
}

// WithGrainIntensity sets the initial noise amplitude, clamped to [0, 1].
// Non-finite values are ignored.
//
// Parameters:
//   - v: the amplitude
//
// Returns:
//   - GrainBuilderOption: functional option to set the intensity
func WithGrainIntensity(v float32) GrainBuilderOption {
	return func(s *grainStage) {
		if common.IsFinite(float64(v)) {
			s.targetIntensity = common.Clamp32(v, 0, 1)
		}
	}
}

// WithGrainTransitionRate sets the easing rate in seconds per unit of
// intensity change, clamped to [0, 10]. Non-finite values are ignored.
//
// Parameters:
//   - v: the rate in seconds per unit change
//
// Returns:
//   - GrainBuilderOption: functional option to set the transition rate
func WithGrainTransitionRate(v float32) GrainBuilderOption {
	return func(s *grainStage) {
		if common.IsFinite(float64(v)) {
			s.transitionRate = common.Clamp32(v, 0, 10)
		}
	}
}

// WithGrainAnimated sets whether the noise pattern changes over time.
//
// Parameters:
//   - animated: true for animated noise
//
// Returns:
//   - GrainBuilderOption: functional option to set animation
func WithGrainAnimated(animated bool) GrainBuilderOption {
	return func(s *grainStage) {
		s.animated = animated
	}
}

// WithGrainRecovery wires a shader recovery hook used when the stage's
// program fails to compile.
//
// Parameters:
//   - recoverFunc: the recovery hook
//
// Returns:
//   - GrainBuilderOption: functional option to set the recovery hook
func WithGrainRecovery(recoverFunc RecoverShaderFunc) GrainBuilderOption {
	return func(s *grainStage) {
		s.recoverFunc = recoverFunc
	}
}
