// Package capability captures a one-time snapshot of the render device's
// limits and classifies the host as low-end or not. The snapshot is immutable
// after construction; all optimization decisions derive from it.
package capability

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/render"
)

// Complexity ranks an effect's rendering cost for gating decisions.
type Complexity int

const (
	ComplexityLow Complexity = iota
	ComplexityMedium
	ComplexityHigh
)

// Texture-size ceilings applied on top of the device limit.
const (
	textureCeiling       = 4096
	lowEndTextureCeiling = 2048
)

// Probe is an immutable snapshot of device and host capabilities.
type Probe interface {
	// MaxTextureSize returns the largest supported texture dimension in pixels.
	MaxTextureSize() int

	// MaxTextureUnits returns the number of sampled textures per shader stage.
	MaxTextureUnits() int

	// MaxVaryingVectors returns the supported inter-stage vector count.
	MaxVaryingVectors() int

	// FloatTextures returns whether float pixel formats are renderable.
	FloatTextures() bool

	// Renderer returns the device's renderer identification string.
	Renderer() string

	// Platform returns the host platform string.
	Platform() string

	// LogicalCores returns the host's logical CPU count.
	LogicalCores() int

	// LowEnd returns whether the host classifies as low-end or mobile.
	LowEnd() bool

	// OptimizedTextureSize rounds each dimension to the nearest power of two
	// and clamps it to a device-appropriate ceiling, stricter on low-end
	// hosts.
	//
	// Parameters:
	//   - width, height: the requested dimensions in pixels
	//
	// Returns:
	//   - w, h: the optimized dimensions
	OptimizedTextureSize(width, height int) (w, h int)

	// ShouldEnableEffect reports whether an effect of the given complexity
	// should be enabled on this host. High complexity is refused outright on
	// low-end hosts; medium complexity is additionally refused when the
	// texture ceiling is very small.
	//
	// Parameters:
	//   - name: the effect name, used for logging only
	//   - complexity: the effect's cost class
	//
	// Returns:
	//   - bool: true when the effect should be enabled
	ShouldEnableEffect(name string, complexity Complexity) bool

	// OptimizedRenderTargetOptions builds surface options with optimized
	// dimensions. Higher-precision formats are selected only when float
	// textures are supported and the host is not low-end.
	//
	// Parameters:
	//   - label: the debug label for the surface
	//   - width, height: the requested dimensions in pixels
	//   - highPrecision: true to request a float format when available
	//
	// Returns:
	//   - render.SurfaceOptions: the optimized surface options
	OptimizedRenderTargetOptions(label string, width, height int, highPrecision bool) render.SurfaceOptions

	// Summary returns a one-line description of the snapshot.
	Summary() string
}

type probe struct {
	maxTextureSize    int
	maxTextureUnits   int
	maxVaryingVectors int
	floatTextures     bool
	renderer          string
	platform          string
	logicalCores      int
	lowEnd            bool
}

var _ Probe = &probe{}

// NewProbe captures a capability snapshot from the given Device. Panics if
// the device is nil.
//
// Parameters:
//   - device: the render device to query (must not be nil)
//   - options: functional options, used by tests to pin host attributes
//
// Returns:
//   - Probe: the immutable snapshot
func NewProbe(device render.Device, options ...ProbeBuilderOption) Probe {
	if device == nil {
		panic("capability: NewProbe requires a non-nil Device")
	}

	limits := device.Limits()
	p := &probe{
		maxTextureSize:    limits.MaxTextureSize,
		maxTextureUnits:   limits.MaxTextureUnits,
		maxVaryingVectors: limits.MaxVaryingVectors,
		floatTextures:     limits.FloatTextures,
		renderer:          limits.Renderer,
		platform:          runtime.GOOS,
		logicalCores:      runtime.NumCPU(),
	}
	for _, option := range options {
		option(p)
	}
	p.lowEnd = p.classifyLowEnd()
	return p
}

// classifyLowEnd applies the mobile/low-end heuristic over the snapshot.
func (p *probe) classifyLowEnd() bool {
	if p.platform == "android" || p.platform == "ios" {
		return true
	}
	if p.maxTextureSize > 0 && p.maxTextureSize < 4096 {
		return true
	}
	if p.logicalCores > 0 && p.logicalCores <= 2 {
		return true
	}
	renderer := strings.ToLower(p.renderer)
	for _, marker := range []string{"software", "llvmpipe", "swiftshader"} {
		if strings.Contains(renderer, marker) {
			return true
		}
	}
	return false
}

func (p *probe) MaxTextureSize() int    { return p.maxTextureSize }
func (p *probe) MaxTextureUnits() int   { return p.maxTextureUnits }
func (p *probe) MaxVaryingVectors() int { return p.maxVaryingVectors }
func (p *probe) FloatTextures() bool    { return p.floatTextures }
func (p *probe) Renderer() string       { return p.renderer }
func (p *probe) Platform() string       { return p.platform }
func (p *probe) LogicalCores() int      { return p.logicalCores }
func (p *probe) LowEnd() bool           { return p.lowEnd }

func (p *probe) OptimizedTextureSize(width, height int) (w, h int) {
	ceiling := textureCeiling
	if p.lowEnd {
		ceiling = lowEndTextureCeiling
	}
	if p.maxTextureSize > 0 && p.maxTextureSize < ceiling {
		ceiling = p.maxTextureSize
	}

	w = common.ClampInt(common.NearestPowerOfTwo(width), 1, ceiling)
	h = common.ClampInt(common.NearestPowerOfTwo(height), 1, ceiling)
	return w, h
}

func (p *probe) ShouldEnableEffect(name string, complexity Complexity) bool {
	switch complexity {
	case ComplexityHigh:
		return !p.lowEnd
	case ComplexityMedium:
		return !(p.lowEnd && p.maxTextureSize < 4096)
	default:
		return true
	}
}

func (p *probe) OptimizedRenderTargetOptions(label string, width, height int, highPrecision bool) render.SurfaceOptions {
	w, h := p.OptimizedTextureSize(width, height)
	format := render.FormatRGBA8Unorm
	if highPrecision && p.floatTextures && !p.lowEnd {
		format = render.FormatRGBA16Float
	}
	return render.SurfaceOptions{
		Label:    label,
		Width:    w,
		Height:   h,
		Format:   format,
		Sampling: render.FilterLinear,
	}
}

func (p *probe) Summary() string {
	return fmt.Sprintf("renderer=%q platform=%s cores=%d maxTexture=%d units=%d varyings=%d float=%t lowEnd=%t",
		p.renderer, p.platform, p.logicalCores, p.maxTextureSize, p.maxTextureUnits, p.maxVaryingVectors, p.floatTextures, p.lowEnd)
}
