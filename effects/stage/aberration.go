package stage

import (
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/render"
)

const aberrationProgramKey = "postfx.aberration"

// Offsets below this leave no visible fringe at any practical resolution.
const aberrationEpsilon = 1e-5

// AberrationStage separates the red and blue channels from green by a small
// UV offset. In radial mode the offset scales with distance from the screen
// center, leaving the middle of the frame sharp.
type AberrationStage interface {
	Stage

	// Offset returns the red/blue UV sampling offsets from green.
	//
	// Returns:
	//   - x, y: the UV offset components
	Offset() (x, y float32)

	// SetOffset sets the UV sampling offsets, clamped to [-0.05, 0.05] per
	// axis. Non-finite values are rejected and prior state is kept.
	//
	// Parameters:
	//   - x, y: the UV offset components
	//
	// Returns:
	//   - error: error if either value is non-finite
	SetOffset(x, y float32) error

	// Intensity returns the offset magnitude scale.
	Intensity() float32

	// SetIntensity sets the offset magnitude scale, clamped to [0, 1].
	// Non-finite values are rejected and prior state is kept.
	//
	// Parameters:
	//   - v: the intensity
	//
	// Returns:
	//   - error: error if the value is non-finite
	SetIntensity(v float32) error

	// Radial returns whether the offset scales with distance from center.
	Radial() bool

	// SetRadial sets whether the offset scales with distance from center.
	//
	// Parameters:
	//   - radial: true for radial scaling
	SetRadial(radial bool)
}

type aberrationStage struct {
	mu sync.Mutex

	device      render.Device
	recoverFunc RecoverShaderFunc

	enabled          bool
	offsetX, offsetY float32
	intensity        float32
	radial           bool

	program     render.FilterProgram
	passthrough render.FilterProgram
}

var _ AberrationStage = &aberrationStage{}

// NewAberrationStage creates a chromatic aberration stage drawing through the
// given Device. Panics if the device is nil.
//
// Parameters:
//   - device: the render device (must not be nil)
//   - options: functional options to configure the stage
//
// Returns:
//   - AberrationStage: the newly created stage
func NewAberrationStage(device render.Device, options ...AberrationBuilderOption) AberrationStage {
	if device == nil {
		panic("stage: NewAberrationStage requires a non-nil Device")
	}
	s := &aberrationStage{
		device:    device,
		offsetX:   0.002,
		offsetY:   0.002,
		intensity: 0.5,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *aberrationStage) Name() string {
	return NameAberration
}

func (s *aberrationStage) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *aberrationStage) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

func (s *aberrationStage) Offset() (x, y float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offsetX, s.offsetY
}

func (s *aberrationStage) SetOffset(x, y float32) error {
	if !common.IsFinite(float64(x)) || !common.IsFinite(float64(y)) {
		return fmt.Errorf("stage: non-finite aberration offset (%v, %v)", x, y)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offsetX = common.Clamp32(x, -0.05, 0.05)
	s.offsetY = common.Clamp32(y, -0.05, 0.05)
	return nil
}

func (s *aberrationStage) Intensity() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intensity
}

func (s *aberrationStage) SetIntensity(v float32) error {
	if !common.IsFinite(float64(v)) {
		return fmt.Errorf("stage: non-finite aberration intensity %v", v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intensity = common.Clamp32(v, 0, 1)
	return nil
}

func (s *aberrationStage) Radial() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.radial
}

func (s *aberrationStage) SetRadial(radial bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.radial = radial
}

func (s *aberrationStage) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()

	program, err := s.device.CompileFilter(aberrationProgramKey, aberrationShaderSrc)
	if err != nil {
		if s.recoverFunc == nil {
			return fmt.Errorf("stage: failed to compile %q: %w", aberrationProgramKey, err)
		}
		log.Printf("[PostFX] aberration program failed to compile, attempting recovery: %v", err)
		program, err = s.recoverFunc(aberrationProgramKey, aberrationShaderSrc)
		if err != nil {
			return fmt.Errorf("stage: failed to recover %q: %w", aberrationProgramKey, err)
		}
	}
	s.program = program

	passthrough, err := s.device.CompileFilter(aberrationProgramKey+".passthrough", passthroughShaderSrc)
	if err != nil {
		return fmt.Errorf("stage: failed to compile aberration passthrough: %w", err)
	}
	s.passthrough = passthrough
	return nil
}

func (s *aberrationStage) Apply(input render.Texture, out render.Surface) (render.Surface, error) {
	if input == nil || out == nil {
		return nil, fmt.Errorf("stage: aberration Apply requires non-nil input and output")
	}

	s.mu.Lock()
	program := s.program
	uniforms := render.AberrationUniforms{
		OffsetX:   s.offsetX,
		OffsetY:   s.offsetY,
		Intensity: s.intensity,
	}
	if s.radial {
		uniforms.Radial = 1
	}
	magnitude := s.intensity * max(abs32(s.offsetX), abs32(s.offsetY))
	if magnitude < aberrationEpsilon {
		program = s.passthrough
	}
	s.mu.Unlock()

	if program == nil {
		return nil, fmt.Errorf("stage: aberration stage not initialized")
	}
	if err := s.device.ApplyFilter(program, input, common.StructToBytes(&uniforms), out); err != nil {
		return nil, fmt.Errorf("stage: aberration apply failed: %w", err)
	}
	return out, nil
}

func (s *aberrationStage) Update(_ float32) {
	// Aberration has no time-dependent state.
}

func (s *aberrationStage) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
}

// releaseLocked releases both programs. Caller must hold s.mu.
func (s *aberrationStage) releaseLocked() {
	if s.program != nil {
		s.program.Release()
		s.program = nil
	}
	if s.passthrough != nil {
		s.passthrough.Release()
		s.passthrough = nil
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
