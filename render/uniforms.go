package render

// Uniform block layouts for the built-in filter programs. Field order and
// padding must match the WGSL Params structs embedded in the stage package;
// blocks are padded to a 16-byte multiple as required for uniform buffers.
// Backends receive these as packed bytes (common.StructToBytes) and the
// software backend decodes them back (common.BytesToStruct).

// CRT sub-effect bits for CRTUniforms.Flags.
const (
	CRTFlagScanlines uint32 = 1 << iota
	CRTFlagCurvature
	CRTFlagGlow
	CRTFlagNoise
	CRTFlagFlicker
)

// AberrationUniforms is the uniform block for the chromatic aberration filter.
type AberrationUniforms struct {
	// OffsetX, OffsetY are the red/blue channel UV sampling offsets from green.
	OffsetX, OffsetY float32

	// Radial is 1 when the offset scales with distance from the screen center.
	Radial float32

	// Intensity scales the offset magnitude, in [0, 1].
	Intensity float32
}

// GrainUniforms is the uniform block for the film grain filter.
type GrainUniforms struct {
	// Intensity is the noise amplitude in [0, 1].
	Intensity float32

	// Time is the accumulated animation time in seconds.
	Time float32

	// WeightR, WeightG, WeightB are the per-channel noise weights.
	WeightR, WeightG, WeightB float32

	// Animated is 1 when the noise hash varies with Time.
	Animated float32

	_pad [2]float32
}

// CRTUniforms is the uniform block for the CRT emulation filter.
type CRTUniforms struct {
	// Width, Height are the target dimensions in pixels (scanline frequency
	// is keyed to Height).
	Width, Height float32

	// Time is the accumulated animation time in seconds.
	Time float32

	// Flags is the bitmask of enabled sub-effects (CRTFlag* constants).
	Flags uint32

	// ScanlineIntensity is the scanline darkening amount in [0, 1].
	ScanlineIntensity float32

	// ScanlineSpacing is the line spacing in pixels, in [1, 4].
	ScanlineSpacing float32

	// CurvatureAmount is the barrel distortion strength in [0, 0.1].
	CurvatureAmount float32

	// CornerDarkening is the vignette strength at warped corners in [0, 1].
	CornerDarkening float32

	// GlowIntensity is the phosphor glow boost in [0, 1].
	GlowIntensity float32

	// GlowThreshold is the brightness above which glow applies, in [0, 1].
	GlowThreshold float32

	// NoiseIntensity is the space+time hash noise amplitude in [0, 1].
	NoiseIntensity float32

	// FlickerIntensity is the global brightness modulation depth in [0, 0.2].
	FlickerIntensity float32

	// FlickerSpeed is the flicker frequency in Hz, in [1, 60].
	FlickerSpeed float32

	_pad [3]float32
}
