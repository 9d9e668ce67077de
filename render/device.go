package render

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-postfx/common"
)

// BackendType identifies which Device backend implementation to use.
type BackendType int

const (
	// BackendTypeWGPU is the hardware-accelerated WebGPU backend.
	BackendTypeWGPU BackendType = iota

	// BackendTypeSoftware is the CPU reference backend. It evaluates filter
	// programs in Go against image.RGBA surfaces, which makes the full post
	// processing chain runnable (and testable) without a GPU.
	BackendTypeSoftware
)

// PixelFormat identifies the pixel storage format of a Surface.
type PixelFormat int

const (
	// FormatRGBA8Unorm is 8 bits per channel, the safe default everywhere.
	FormatRGBA8Unorm PixelFormat = iota

	// FormatBGRA8Unorm is the swapped-channel 8-bit format some swapchains prefer.
	FormatBGRA8Unorm

	// FormatRGBA16Float is half-float per channel, for higher-precision intermediates.
	FormatRGBA16Float

	// FormatRGBA32Float is full-float per channel. Requires float texture support.
	FormatRGBA32Float
)

// String returns a short human-readable name for the format.
func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA8Unorm:
		return "rgba8unorm"
	case FormatBGRA8Unorm:
		return "bgra8unorm"
	case FormatRGBA16Float:
		return "rgba16float"
	case FormatRGBA32Float:
		return "rgba32float"
	default:
		return "unknown"
	}
}

// FilterMode selects how a texture is sampled when magnified or minified.
type FilterMode int

const (
	// FilterNearest picks the closest source pixel. Preserves hard pixel edges,
	// which is what the low-resolution pixelation look depends on.
	FilterNearest FilterMode = iota

	// FilterLinear blends neighboring source pixels.
	FilterLinear
)

// ErrDeviceLost is returned by Device operations attempted while the
// underlying GPU context is invalid and awaiting restoration.
var ErrDeviceLost = errors.New("render: device lost")

// Texture is an opaque handle to sampleable image data owned by a Surface.
type Texture interface {
	// Size returns the texture dimensions in pixels.
	//
	// Returns:
	//   - common.Viewport: the texture width and height
	Size() common.Viewport
}

// Surface is an off-screen GPU-writable image buffer used as intermediate
// storage in the filter chain, or the display surface itself.
type Surface interface {
	// Size returns the surface dimensions in pixels.
	//
	// Returns:
	//   - common.Viewport: the surface width and height
	Size() common.Viewport

	// Format returns the pixel storage format of this surface.
	//
	// Returns:
	//   - PixelFormat: the surface format
	Format() PixelFormat

	// Texture returns the sampleable texture handle backing this surface.
	//
	// Returns:
	//   - Texture: the surface's texture
	Texture() Texture

	// Released reports whether Release has been called on this surface.
	//
	// Returns:
	//   - bool: true once the surface's resources have been freed
	Released() bool

	// Release frees the surface's resources. Safe to call multiple times.
	Release()
}

// FilterProgram is a compiled full-screen filter shader program.
type FilterProgram interface {
	// Key returns the unique identifier this program was compiled under.
	//
	// Returns:
	//   - string: the program key
	Key() string

	// Source returns the shader source text the program was compiled from.
	//
	// Returns:
	//   - string: the WGSL source
	Source() string

	// Release frees the program's resources. Safe to call multiple times.
	Release()
}

// SurfaceOptions describes a Surface to be created by a Device.
type SurfaceOptions struct {
	// Label is an optional debug name attached to the GPU resource.
	Label string

	// Width and Height are the surface dimensions in pixels. Both must be positive.
	Width, Height int

	// Format is the pixel storage format.
	Format PixelFormat

	// Sampling selects the filter mode used when this surface's texture is
	// later read by a filter or blit.
	Sampling FilterMode
}

// Limits is a snapshot of device/driver capability limits, captured once when
// the Device is created.
type Limits struct {
	// MaxTextureSize is the largest supported texture dimension in pixels.
	MaxTextureSize int

	// MaxTextureUnits is the number of simultaneously bindable textures.
	MaxTextureUnits int

	// MaxVaryingVectors is the number of inter-stage varying vectors.
	MaxVaryingVectors int

	// FloatTextures reports whether float-format render targets are supported.
	FloatTextures bool

	// Renderer is the driver/adapter identification string.
	Renderer string
}

// SpriteInstance is one rectangle drawn by DrawSprites. The scene layer
// rasterizes its objects through this primitive.
type SpriteInstance struct {
	// X, Y are the sprite's lower-left corner in world units.
	X, Y float32

	// W, H are the sprite's extent in world units.
	W, H float32

	// Z is the depth used for back-to-front ordering (larger draws later).
	Z float32

	// Color is the sprite's solid fill color.
	Color common.Color
}

// Device is the GPU primitive layer the post-processing subsystem consumes:
// compile a shader program, create an off-screen surface, rasterize sprites,
// run a full-screen filter, and blit. Two implementations exist: a WebGPU
// backend and a CPU software backend.
//
// All operations are synchronous from the caller's perspective and must be
// driven from a single render goroutine.
type Device interface {
	// CompileFilter compiles a full-screen filter program from WGSL source and
	// caches it under the given key. Compiling the same key again replaces the
	// cached program.
	//
	// Parameters:
	//   - key: the unique identifier for the program
	//   - source: the WGSL source text
	//
	// Returns:
	//   - FilterProgram: the compiled program
	//   - error: an error if compilation fails
	CompileFilter(key, source string) (FilterProgram, error)

	// CreateSurface creates an off-screen surface.
	//
	// Parameters:
	//   - opts: the surface dimensions, format, and sampling mode
	//
	// Returns:
	//   - Surface: the created surface
	//   - error: an error if the surface could not be allocated
	CreateSurface(opts SurfaceOptions) (Surface, error)

	// ConfigureDisplay resizes the presentable display surface. Must be called
	// once before rendering and again whenever the viewport changes.
	//
	// Parameters:
	//   - width: the new display width in pixels
	//   - height: the new display height in pixels
	ConfigureDisplay(width, height int)

	// DisplaySurface returns the presentable display surface.
	//
	// Returns:
	//   - Surface: the display surface sized by the last ConfigureDisplay call
	DisplaySurface() Surface

	// Clear fills the target surface with a solid color.
	//
	// Parameters:
	//   - target: the surface to fill
	//   - color: the fill color
	//
	// Returns:
	//   - error: an error if the clear could not be encoded
	Clear(target Surface, color common.Color) error

	// DrawSprites rasterizes solid-color sprite instances into the target
	// using the given column-major view-projection matrix.
	//
	// Parameters:
	//   - target: the surface to draw into
	//   - viewProjection: 16-element column-major view-projection matrix
	//   - instances: the sprites to draw
	//
	// Returns:
	//   - error: an error if the draw could not be encoded
	DrawSprites(target Surface, viewProjection []float32, instances []SpriteInstance) error

	// ApplyFilter runs a compiled filter program over the input texture and
	// writes the result to the target surface. The uniforms block layout must
	// match the program's uniform struct (see uniforms.go).
	//
	// Parameters:
	//   - program: the compiled filter program
	//   - input: the source texture
	//   - uniforms: the packed uniform block bytes
	//   - target: the surface to write into
	//
	// Returns:
	//   - error: an error if the filter pass fails
	ApplyFilter(program FilterProgram, input Texture, uniforms []byte, target Surface) error

	// Blit copies the input texture into the target surface, scaling with the
	// given sampling mode when sizes differ.
	//
	// Parameters:
	//   - src: the source texture
	//   - dst: the destination surface
	//   - mode: FilterNearest or FilterLinear scaling
	//
	// Returns:
	//   - error: an error if the copy fails
	Blit(src Texture, dst Surface, mode FilterMode) error

	// Present presents the display surface. A no-op on backends without a
	// swapchain (the software backend).
	//
	// Returns:
	//   - error: an error if presentation fails
	Present() error

	// Limits returns the capability limits snapshot captured at creation.
	//
	// Returns:
	//   - Limits: the device limits
	Limits() Limits

	// PurgeCaches drops cached compiled pipelines and samplers. Used by the
	// memory-pressure handler; purged entries are lazily rebuilt on next use.
	//
	// Returns:
	//   - int: the number of cache entries dropped
	PurgeCaches() int

	// Release frees all device resources. Safe to call multiple times.
	Release()
}
