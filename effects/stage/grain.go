package stage

import (
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/render"
)

const grainProgramKey = "postfx.grain"

// Grain below this amplitude is not visible in 8-bit output.
const grainEpsilon = 1.0 / 512.0

// Per-channel noise weights. Slightly uneven weighting avoids the flat
// monochrome look of equal-channel noise.
const (
	grainWeightR = 1.0
	grainWeightG = 0.95
	grainWeightB = 0.9
)

// GrainStage adds per-pixel pseudo-random noise to the color channels.
// Intensity changes ease smoothly toward their target over a configurable
// transition rate rather than snapping, so quality switches don't pop.
type GrainStage interface {
	Stage

	// Intensity returns the current eased noise amplitude.
	Intensity() float32

	// TargetIntensity returns the amplitude the stage is easing toward.
	TargetIntensity() float32

	// SetIntensity sets the target noise amplitude, clamped to [0, 1]. The
	// visible amplitude eases toward it at the transition rate. Non-finite
	// values are rejected and prior state is kept.
	//
	// Parameters:
	//   - v: the target amplitude
	//
	// Returns:
	//   - error: error if the value is non-finite
	SetIntensity(v float32) error

	// TransitionRate returns the easing rate in seconds per unit of intensity
	// change. Zero means intensity changes apply instantly.
	TransitionRate() float32

	// SetTransitionRate sets the easing rate in seconds per unit change,
	// clamped to [0, 10]. Non-finite values are rejected and prior state is
	// kept.
	//
	// Parameters:
	//   - v: the rate in seconds per unit change
	//
	// Returns:
	//   - error: error if the value is non-finite
	SetTransitionRate(v float32) error

	// Animated returns whether the noise pattern changes over time.
	Animated() bool

	// SetAnimated sets whether the noise pattern changes over time.
	//
	// Parameters:
	//   - animated: true for animated noise
	SetAnimated(animated bool)
}

type grainStage struct {
	mu sync.Mutex

	device      render.Device
	recoverFunc RecoverShaderFunc

	enabled         bool
	intensity       float32 // current eased amplitude
	targetIntensity float32
	transitionRate  float32 // seconds per unit of intensity change
	animated        bool
	time            float32 // accumulated animation time in seconds

	program     render.FilterProgram
	passthrough render.FilterProgram
}

var _ GrainStage = &grainStage{}

// NewGrainStage creates a film grain stage drawing through the given Device.
// Panics if the device is nil.
//
// Parameters:
//   - device: the render device (must not be nil)
//   - options: functional options to configure the stage
//
// Returns:
//   - GrainStage: the newly created stage
func NewGrainStage(device render.Device, options ...GrainBuilderOption) GrainStage {
	if device == nil {
		panic("stage: NewGrainStage requires a non-nil Device")
	}
	s := &grainStage{
		device:          device,
		intensity:       0.05,
		targetIntensity: 0.05,
		transitionRate:  0.5,
		animated:        true,
	}
	for _, option := range options {
		option(s)
	}
	// Builder options set the target; start already settled on it.
	s.intensity = s.targetIntensity
	return s
}

func (s *grainStage) Name() string {
	return NameGrain
}

func (s *grainStage) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *grainStage) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

func (s *grainStage) Intensity() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intensity
}

func (s *grainStage) TargetIntensity() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetIntensity
}

func (s *grainStage) SetIntensity(v float32) error {
	if !common.IsFinite(float64(v)) {
		return fmt.Errorf("stage: non-finite grain intensity %v", v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetIntensity = common.Clamp32(v, 0, 1)
	if s.transitionRate <= 0 {
		s.intensity = s.targetIntensity
	}
	return nil
}

func (s *grainStage) TransitionRate() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionRate
}

func (s *grainStage) SetTransitionRate(v float32) error {
	if !common.IsFinite(float64(v)) {
		return fmt.Errorf("stage: non-finite grain transition rate %v", v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitionRate = common.Clamp32(v, 0, 10)
	return nil
}

func (s *grainStage) Animated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.animated
}

func (s *grainStage) SetAnimated(animated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.animated = animated
}

func (s *grainStage) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()

	program, err := s.device.CompileFilter(grainProgramKey, grainShaderSrc)
	if err != nil {
		if s.recoverFunc == nil {
			return fmt.Errorf("stage: failed to compile %q: %w", grainProgramKey, err)
		}
		log.Printf("[PostFX] grain program failed to compile, attempting recovery: %v", err)
		program, err = s.recoverFunc(grainProgramKey, grainShaderSrc)
		if err != nil {
			return fmt.Errorf("stage: failed to recover %q: %w", grainProgramKey, err)
		}
	}
	s.program = program

	passthrough, err := s.device.CompileFilter(grainProgramKey+".passthrough", passthroughShaderSrc)
	if err != nil {
		return fmt.Errorf("stage: failed to compile grain passthrough: %w", err)
	}
	s.passthrough = passthrough
	return nil
}

func (s *grainStage) Apply(input render.Texture, out render.Surface) (render.Surface, error) {
	if input == nil || out == nil {
		return nil, fmt.Errorf("stage: grain Apply requires non-nil input and output")
	}

	s.mu.Lock()
	program := s.program
	uniforms := render.GrainUniforms{
		Intensity: s.intensity,
		Time:      s.time,
		WeightR:   grainWeightR,
		WeightG:   grainWeightG,
		WeightB:   grainWeightB,
	}
	if s.animated {
		uniforms.Animated = 1
	}
	if s.intensity < grainEpsilon {
		program = s.passthrough
	}
	s.mu.Unlock()

	if program == nil {
		return nil, fmt.Errorf("stage: grain stage not initialized")
	}
	if err := s.device.ApplyFilter(program, input, common.StructToBytes(&uniforms), out); err != nil {
		return nil, fmt.Errorf("stage: grain apply failed: %w", err)
	}
	return out, nil
}

func (s *grainStage) Update(deltaTime float32) {
	if deltaTime <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.animated {
		s.time += deltaTime
	}

	if s.intensity != s.targetIntensity {
		if s.transitionRate <= 0 {
			s.intensity = s.targetIntensity
		} else {
			// transitionRate is seconds per unit of change, so the per-tick
			// step is deltaTime/rate.
			step := float64(deltaTime) / float64(s.transitionRate)
			s.intensity = float32(common.MoveToward(float64(s.intensity), float64(s.targetIntensity), step))
		}
	}
}

func (s *grainStage) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
}

// releaseLocked releases both programs. Caller must hold s.mu.
func (s *grainStage) releaseLocked() {
	if s.program != nil {
		s.program.Release()
		s.program = nil
	}
	if s.passthrough != nil {
		s.passthrough.Release()
		s.passthrough = nil
	}
}
