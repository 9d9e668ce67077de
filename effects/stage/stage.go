// Package stage implements the individual links of the post-processing chain:
// the three image filters (chromatic aberration, CRT emulation, film grain)
// and the low-resolution pixelation stage. Filter programs are embedded WGSL;
// the software render backend mirrors their math on the CPU.
package stage

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-postfx/render"
)

//go:embed shaders/aberration.wgsl
var aberrationShaderSrc string

//go:embed shaders/crt.wgsl
var crtShaderSrc string

//go:embed shaders/grain.wgsl
var grainShaderSrc string

//go:embed shaders/passthrough.wgsl
var passthroughShaderSrc string

// Stage names as they appear in the pipeline's active list and in per-stage
// timing reports.
const (
	NameAberration = "aberration"
	NameCRT        = "crt"
	NameGrain      = "grain"
	NameResolution = "resolution"
)

// RecoverShaderFunc attempts to produce a working substitute for a filter
// program whose compilation failed. Wired from the effects error handler.
type RecoverShaderFunc func(key, source string) (render.FilterProgram, error)

// RecoverSurfaceFunc attempts to produce a substitute for a surface whose
// creation failed. Wired from the effects error handler.
type RecoverSurfaceFunc func(opts render.SurfaceOptions) (render.Surface, error)

// PassthroughSource returns the WGSL source of the passthrough program.
//
// Returns:
//   - string: the passthrough shader source
func PassthroughSource() string {
	return passthroughShaderSrc
}

// Stage is one link in the post-processing filter chain. Stages are
// stateless between frames except for accumulated time and eased parameters.
type Stage interface {
	// Name returns the stage's identifier in the chain.
	Name() string

	// Enabled returns whether the stage participates in the active list.
	Enabled() bool

	// SetEnabled sets whether the stage participates in the active list.
	//
	// Parameters:
	//   - enabled: true to include the stage
	SetEnabled(enabled bool)

	// Init compiles the stage's filter programs on its device. Called once
	// before first use and again after a device restore; programs held from
	// before a restore are invalid.
	//
	// Returns:
	//   - error: error if compilation and recovery both fail
	Init() error

	// Apply reads input, writes the processed result into out and returns the
	// surface holding the result. A near-zero visible effect takes the
	// passthrough fast path.
	//
	// Parameters:
	//   - input: the source texture
	//   - out: the surface to write into
	//
	// Returns:
	//   - render.Surface: the surface holding the result (out)
	//   - error: error if the filter application fails
	Apply(input render.Texture, out render.Surface) (render.Surface, error)

	// Update advances time-dependent stage state by deltaTime seconds.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last update in seconds
	Update(deltaTime float32)

	// Dispose releases the stage's programs. Idempotent.
	Dispose()
}
