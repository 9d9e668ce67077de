package stage

// ResolutionBuilderOption is a functional option for configuring a ResolutionStage during construction.
type ResolutionBuilderOption func(*resolutionStage)

// WithResolutionEnabled sets the initial enabled state.
//
// Parameters:
//   - enabled: true to supply the chain's source image
//
// Returns:
//   - ResolutionBuilderOption: functional option to set the enabled state
func WithResolutionEnabled(enabled bool) ResolutionBuilderOption {
	return func(s *resolutionStage) {
		s.enabled = enabled
	}
}

// WithResolutionSize sets the initial low-resolution surface dimensions.
// Values outside [MinLowResDimension, MaxLowResDimension] are ignored.
//
// Parameters:
//   - width, height: the surface dimensions in pixels
//
// Returns:
//   - ResolutionBuilderOption: functional option to set the dimensions
func WithResolutionSize(width, height int) ResolutionBuilderOption {
	return func(s *resolutionStage) {
		if width >= MinLowResDimension && width <= MaxLowResDimension &&
			height >= MinLowResDimension && height <= MaxLowResDimension {
			s.width = width
			s.height = height
		}
	}
}

// WithUpscaleSize sets the initial upscaled output dimensions. Values outside
// [1, MaxUpscaleDimension] are ignored.
//
// Parameters:
//   - width, height: the output dimensions in pixels
//
// Returns:
//   - ResolutionBuilderOption: functional option to set the upscale dimensions
func WithUpscaleSize(width, height int) ResolutionBuilderOption {
	return func(s *resolutionStage) {
		if width >= 1 && width <= MaxUpscaleDimension &&
			height >= 1 && height <= MaxUpscaleDimension {
			s.upscaleWidth = width
			s.upscaleHeight = height
		}
	}
}

// WithSurfaceRecovery wires a surface recovery hook used when the
// low-resolution surface cannot be created.
//
// Parameters:
//   - recoverFunc: the recovery hook
//
// Returns:
//   - ResolutionBuilderOption: functional option to set the recovery hook
func WithSurfaceRecovery(recoverFunc RecoverSurfaceFunc) ResolutionBuilderOption {
	return func(s *resolutionStage) {
		s.recoverSurface = recoverFunc
	}
}
