package stage

// CRTBuilderOption is a functional option for configuring a CRTStage during construction.
type CRTBuilderOption func(*crtStage)

// WithCRTEnabled sets the initial enabled state.
//
// Parameters:
//   - enabled: true to include the stage in the active list
//
// Returns:
//   - CRTBuilderOption: functional option to set the enabled state
func WithCRTEnabled(enabled bool) CRTBuilderOption {
	return func(s *crtStage) {
		s.enabled = enabled
	}
}

// WithCRTSubEffects sets the initial enabled flags of the five sub-effects.
//
// Parameters:
//   - scanlines, curvature, glow, noise, flicker: sub-effect enabled flags
//
// Returns:
//   - CRTBuilderOption: functional option to set the sub-effect flags
func WithCRTSubEffects(scanlines, curvature, glow, noise, flicker bool) CRTBuilderOption {
	return func(s *crtStage) {
		s.scanlinesEnabled = scanlines
		s.curvatureEnabled = curvature
		s.glowEnabled = glow
		s.noiseEnabled = noise
		s.flickerEnabled = flicker
	}
}

// WithCRTRecovery wires a shader recovery hook used when the stage's program
// fails to compile.
//
// Parameters:
//   - recoverFunc: the recovery hook
//
// Returns:
//   - CRTBuilderOption: functional option to set the recovery hook
func WithCRTRecovery(recoverFunc RecoverShaderFunc) CRTBuilderOption {
	return func(s *crtStage) {
		s.recoverFunc = recoverFunc
	}
}
