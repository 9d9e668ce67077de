package stage

import (
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/render"
)

const crtProgramKey = "postfx.crt"

// CRTStage emulates a cathode-ray display with five independently toggleable
// sub-effects: scanlines, barrel curvature, phosphor glow, noise, and
// flicker. Sub-effect parameter and flag changes are uniform-only and never
// rebuild the filter program; only the stage's own top-level enabled flip
// changes the active list.
type CRTStage interface {
	Stage

	// ScanlinesEnabled returns whether the scanline sub-effect is on.
	ScanlinesEnabled() bool

	// SetScanlinesEnabled toggles the scanline sub-effect.
	SetScanlinesEnabled(enabled bool)

	// ScanlineIntensity returns the scanline darkening amount.
	ScanlineIntensity() float32

	// SetScanlineIntensity sets the scanline darkening amount, clamped to
	// [0, 1]. Non-finite values are rejected and prior state is kept.
	//
	// Parameters:
	//   - v: the darkening amount
	//
	// Returns:
	//   - error: error if the value is non-finite
	SetScanlineIntensity(v float32) error

	// ScanlineSpacing returns the line spacing in pixels.
	ScanlineSpacing() float32

	// SetScanlineSpacing sets the line spacing in pixels, clamped to [1, 4].
	// Non-finite values are rejected and prior state is kept.
	//
	// Parameters:
	//   - v: the spacing in pixels
	//
	// Returns:
	//   - error: error if the value is non-finite
	SetScanlineSpacing(v float32) error

	// CurvatureEnabled returns whether the barrel curvature sub-effect is on.
	CurvatureEnabled() bool

	// SetCurvatureEnabled toggles the barrel curvature sub-effect.
	SetCurvatureEnabled(enabled bool)

	// CurvatureAmount returns the barrel distortion strength.
	CurvatureAmount() float32

	// SetCurvatureAmount sets the barrel distortion strength, clamped to
	// [0, 0.1]. Non-finite values are rejected and prior state is kept.
	//
	// Parameters:
	//   - v: the distortion strength
	//
	// Returns:
	//   - error: error if the value is non-finite
	SetCurvatureAmount(v float32) error

	// CornerDarkening returns the vignette strength at warped corners.
	CornerDarkening() float32

	// SetCornerDarkening sets the vignette strength, clamped to [0, 1].
	// Non-finite values are rejected and prior state is kept.
	//
	// Parameters:
	//   - v: the vignette strength
	//
	// Returns:
	//   - error: error if the value is non-finite
	SetCornerDarkening(v float32) error

	// GlowEnabled returns whether the phosphor glow sub-effect is on.
	GlowEnabled() bool

	// SetGlowEnabled toggles the phosphor glow sub-effect.
	SetGlowEnabled(enabled bool)

	// GlowIntensity returns the glow boost applied above the threshold.
	GlowIntensity() float32

	// SetGlowIntensity sets the glow boost, clamped to [0, 1]. Non-finite
	// values are rejected and prior state is kept.
	//
	// Parameters:
	//   - v: the glow boost
	//
	// Returns:
	//   - error: error if the value is non-finite
	SetGlowIntensity(v float32) error

	// GlowThreshold returns the brightness above which glow applies.
	GlowThreshold() float32

	// SetGlowThreshold sets the glow threshold, clamped to [0, 1]. Non-finite
	// values are rejected and prior state is kept.
	//
	// Parameters:
	//   - v: the threshold
	//
	// Returns:
	//   - error: error if the value is non-finite
	SetGlowThreshold(v float32) error

	// NoiseEnabled returns whether the noise sub-effect is on.
	NoiseEnabled() bool

	// SetNoiseEnabled toggles the noise sub-effect.
	SetNoiseEnabled(enabled bool)

	// NoiseIntensity returns the space+time hash noise amplitude.
	NoiseIntensity() float32

	// SetNoiseIntensity sets the noise amplitude, clamped to [0, 1].
	// Non-finite values are rejected and prior state is kept.
	//
	// Parameters:
	//   - v: the amplitude
	//
	// Returns:
	//   - error: error if the value is non-finite
	SetNoiseIntensity(v float32) error

	// FlickerEnabled returns whether the flicker sub-effect is on.
	FlickerEnabled() bool

	// SetFlickerEnabled toggles the flicker sub-effect.
	SetFlickerEnabled(enabled bool)

	// FlickerIntensity returns the global brightness modulation depth.
	FlickerIntensity() float32

	// SetFlickerIntensity sets the modulation depth, clamped to [0, 0.2].
	// Non-finite values are rejected and prior state is kept.
	//
	// Parameters:
	//   - v: the modulation depth
	//
	// Returns:
	//   - error: error if the value is non-finite
	SetFlickerIntensity(v float32) error

	// FlickerSpeed returns the flicker frequency in Hz.
	FlickerSpeed() float32

	// SetFlickerSpeed sets the flicker frequency in Hz, clamped to [1, 60].
	// Non-finite values are rejected and prior state is kept.
	//
	// Parameters:
	//   - v: the frequency in Hz
	//
	// Returns:
	//   - error: error if the value is non-finite
	SetFlickerSpeed(v float32) error
}

type crtStage struct {
	mu sync.Mutex

	device      render.Device
	recoverFunc RecoverShaderFunc

	enabled bool
	time    float32

	scanlinesEnabled  bool
	scanlineIntensity float32
	scanlineSpacing   float32

	curvatureEnabled bool
	curvatureAmount  float32
	cornerDarkening  float32

	glowEnabled   bool
	glowIntensity float32
	glowThreshold float32

	noiseEnabled   bool
	noiseIntensity float32

	flickerEnabled   bool
	flickerIntensity float32
	flickerSpeed     float32

	program     render.FilterProgram
	passthrough render.FilterProgram
}

var _ CRTStage = &crtStage{}

// NewCRTStage creates a CRT emulation stage drawing through the given Device.
// All five sub-effects default to on with mild parameter values. Panics if
// the device is nil.
//
// Parameters:
//   - device: the render device (must not be nil)
//   - options: functional options to configure the stage
//
// Returns:
//   - CRTStage: the newly created stage
func NewCRTStage(device render.Device, options ...CRTBuilderOption) CRTStage {
	if device == nil {
		panic("stage: NewCRTStage requires a non-nil Device")
	}
	s := &crtStage{
		device:            device,
		scanlinesEnabled:  true,
		scanlineIntensity: 0.3,
		scanlineSpacing:   2,
		curvatureEnabled:  true,
		curvatureAmount:   0.03,
		cornerDarkening:   0.3,
		glowEnabled:       true,
		glowIntensity:     0.4,
		glowThreshold:     0.7,
		noiseEnabled:      true,
		noiseIntensity:    0.05,
		flickerEnabled:    true,
		flickerIntensity:  0.03,
		flickerSpeed:      12,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *crtStage) Name() string {
	return NameCRT
}

func (s *crtStage) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *crtStage) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

func (s *crtStage) ScanlinesEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanlinesEnabled
}

func (s *crtStage) SetScanlinesEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanlinesEnabled = enabled
}

func (s *crtStage) ScanlineIntensity() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanlineIntensity
}

func (s *crtStage) SetScanlineIntensity(v float32) error {
	if !common.IsFinite(float64(v)) {
		return fmt.Errorf("stage: non-finite scanline intensity %v", v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanlineIntensity = common.Clamp32(v, 0, 1)
	return nil
}

func (s *crtStage) ScanlineSpacing() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanlineSpacing
}

func (s *crtStage) SetScanlineSpacing(v float32) error {
	if !common.IsFinite(float64(v)) {
		return fmt.Errorf("stage: non-finite scanline spacing %v", v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanlineSpacing = common.Clamp32(v, 1, 4)
	return nil
}

func (s *crtStage) CurvatureEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.curvatureEnabled
}

func (s *crtStage) SetCurvatureEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.curvatureEnabled = enabled
}

func (s *crtStage) CurvatureAmount() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.curvatureAmount
}

func (s *crtStage) SetCurvatureAmount(v float32) error {
	if !common.IsFinite(float64(v)) {
		return fmt.Errorf("stage: non-finite curvature amount %v", v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.curvatureAmount = common.Clamp32(v, 0, 0.1)
	return nil
}

func (s *crtStage) CornerDarkening() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cornerDarkening
}

func (s *crtStage) SetCornerDarkening(v float32) error {
	if !common.IsFinite(float64(v)) {
		return fmt.Errorf("stage: non-finite corner darkening %v", v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cornerDarkening = common.Clamp32(v, 0, 1)
	return nil
}

func (s *crtStage) GlowEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.glowEnabled
}

func (s *crtStage) SetGlowEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.glowEnabled = enabled
}

func (s *crtStage) GlowIntensity() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.glowIntensity
}

func (s *crtStage) SetGlowIntensity(v float32) error {
	if !common.IsFinite(float64(v)) {
		return fmt.Errorf("stage: non-finite glow intensity %v", v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.glowIntensity = common.Clamp32(v, 0, 1)
	return nil
}

func (s *crtStage) GlowThreshold() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.glowThreshold
}

func (s *crtStage) SetGlowThreshold(v float32) error {
	if !common.IsFinite(float64(v)) {
		return fmt.Errorf("stage: non-finite glow threshold %v", v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.glowThreshold = common.Clamp32(v, 0, 1)
	return nil
}

func (s *crtStage) NoiseEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.noiseEnabled
}

func (s *crtStage) SetNoiseEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noiseEnabled = enabled
}

func (s *crtStage) NoiseIntensity() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.noiseIntensity
}

func (s *crtStage) SetNoiseIntensity(v float32) error {
	if !common.IsFinite(float64(v)) {
		return fmt.Errorf("stage: non-finite noise intensity %v", v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noiseIntensity = common.Clamp32(v, 0, 1)
	return nil
}

func (s *crtStage) FlickerEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flickerEnabled
}

func (s *crtStage) SetFlickerEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flickerEnabled = enabled
}

func (s *crtStage) FlickerIntensity() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flickerIntensity
}

func (s *crtStage) SetFlickerIntensity(v float32) error {
	if !common.IsFinite(float64(v)) {
		return fmt.Errorf("stage: non-finite flicker intensity %v", v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flickerIntensity = common.Clamp32(v, 0, 0.2)
	return nil
}

func (s *crtStage) FlickerSpeed() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flickerSpeed
}

func (s *crtStage) SetFlickerSpeed(v float32) error {
	if !common.IsFinite(float64(v)) {
		return fmt.Errorf("stage: non-finite flicker speed %v", v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flickerSpeed = common.Clamp32(v, 1, 60)
	return nil
}

func (s *crtStage) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()

	program, err := s.device.CompileFilter(crtProgramKey, crtShaderSrc)
	if err != nil {
		if s.recoverFunc == nil {
			return fmt.Errorf("stage: failed to compile %q: %w", crtProgramKey, err)
		}
		log.Printf("[PostFX] crt program failed to compile, attempting recovery: %v", err)
		program, err = s.recoverFunc(crtProgramKey, crtShaderSrc)
		if err != nil {
			return fmt.Errorf("stage: failed to recover %q: %w", crtProgramKey, err)
		}
	}
	s.program = program

	passthrough, err := s.device.CompileFilter(crtProgramKey+".passthrough", passthroughShaderSrc)
	if err != nil {
		return fmt.Errorf("stage: failed to compile crt passthrough: %w", err)
	}
	s.passthrough = passthrough
	return nil
}

// flagsLocked builds the sub-effect bitmask. Caller must hold s.mu.
func (s *crtStage) flagsLocked() uint32 {
	var flags uint32
	if s.scanlinesEnabled {
		flags |= render.CRTFlagScanlines
	}
	if s.curvatureEnabled {
		flags |= render.CRTFlagCurvature
	}
	if s.glowEnabled {
		flags |= render.CRTFlagGlow
	}
	if s.noiseEnabled {
		flags |= render.CRTFlagNoise
	}
	if s.flickerEnabled {
		flags |= render.CRTFlagFlicker
	}
	return flags
}

func (s *crtStage) Apply(input render.Texture, out render.Surface) (render.Surface, error) {
	if input == nil || out == nil {
		return nil, fmt.Errorf("stage: crt Apply requires non-nil input and output")
	}
	size := out.Size()

	s.mu.Lock()
	program := s.program
	flags := s.flagsLocked()
	uniforms := render.CRTUniforms{
		Width:             float32(size.Width),
		Height:            float32(size.Height),
		Time:              s.time,
		Flags:             flags,
		ScanlineIntensity: s.scanlineIntensity,
		ScanlineSpacing:   s.scanlineSpacing,
		CurvatureAmount:   s.curvatureAmount,
		CornerDarkening:   s.cornerDarkening,
		GlowIntensity:     s.glowIntensity,
		GlowThreshold:     s.glowThreshold,
		NoiseIntensity:    s.noiseIntensity,
		FlickerIntensity:  s.flickerIntensity,
		FlickerSpeed:      s.flickerSpeed,
	}
	if flags == 0 {
		program = s.passthrough
	}
	s.mu.Unlock()

	if program == nil {
		return nil, fmt.Errorf("stage: crt stage not initialized")
	}
	if err := s.device.ApplyFilter(program, input, common.StructToBytes(&uniforms), out); err != nil {
		return nil, fmt.Errorf("stage: crt apply failed: %w", err)
	}
	return out, nil
}

func (s *crtStage) Update(deltaTime float32) {
	if deltaTime <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.time += deltaTime
}

func (s *crtStage) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
}

// releaseLocked releases both programs. Caller must hold s.mu.
func (s *crtStage) releaseLocked() {
	if s.program != nil {
		s.program.Release()
		s.program = nil
	}
	if s.passthrough != nil {
		s.passthrough.Release()
		s.passthrough = nil
	}
}
