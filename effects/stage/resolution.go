package stage

import (
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/render"
	"github.com/Carmen-Shannon/oxy-postfx/scene"
)

// Bounds for the low-resolution surface and the upscaled output.
const (
	MinLowResDimension  = 64
	MaxLowResDimension  = 2048
	MaxUpscaleDimension = 8192
)

// ResolutionUpdate is a partial update of the stage's dimensions. Nil fields
// keep their current value; missing counterparts are inferred from the
// low-resolution aspect ratio.
type ResolutionUpdate struct {
	// Width, Height update the low-resolution surface dimensions.
	Width, Height *int

	// UpscaleWidth, UpscaleHeight update the upscaled output dimensions.
	UpscaleWidth, UpscaleHeight *int
}

// ResolutionStage renders its private scene into a small fixed-size surface
// with nearest-neighbor sampling. The small surface is the filter chain's
// source texture; the later blocky magnification happens when it is sampled
// at full size, so true low-resolution aliasing is preserved rather than a
// blur-then-mosaic look.
type ResolutionStage interface {
	// Name returns the stage's identifier.
	Name() string

	// Enabled returns whether the stage supplies the chain's source image.
	Enabled() bool

	// SetEnabled sets whether the stage supplies the chain's source image.
	//
	// Parameters:
	//   - enabled: true to enable the stage
	SetEnabled(enabled bool)

	// Scene returns the stage's private scene. Objects added to the pipeline
	// while this stage is enabled are routed here.
	//
	// Returns:
	//   - scene.Scene: the private scene
	Scene() scene.Scene

	// Resolution returns the low-resolution surface dimensions in pixels.
	//
	// Returns:
	//   - w, h: the surface dimensions
	Resolution() (w, h int)

	// UpscaleSize returns the upscaled output dimensions in pixels.
	//
	// Returns:
	//   - w, h: the output dimensions
	UpscaleSize() (w, h int)

	// UpdateResolution applies a partial dimension update. When only one
	// upscale dimension is given the other is derived from the low-resolution
	// aspect ratio; when the low-resolution dimensions change with no explicit
	// upscale the current scale factor is preserved. Bounds are validated
	// before commit and invalid input leaves the prior configuration
	// untouched.
	//
	// Parameters:
	//   - update: the partial update
	//
	// Returns:
	//   - error: error if any resulting dimension is out of bounds
	UpdateResolution(update ResolutionUpdate) error

	// Init (re)creates the low-resolution surface. Called once before first
	// use and again after a device restore.
	//
	// Returns:
	//   - error: error if surface creation and recovery both fail
	Init() error

	// Render rasterizes the private scene into the low-resolution surface and
	// returns its texture. A failed render recreates the surface and retries
	// once; a second failure returns an error and the caller falls back to a
	// direct full-resolution draw for the frame.
	//
	// Returns:
	//   - render.Texture: the low-resolution source texture
	//   - error: error if the render failed after the retry
	Render() (render.Texture, error)

	// HandleResize forwards a viewport change to the private scene. The
	// low-resolution surface keeps its configured dimensions.
	//
	// Parameters:
	//   - vp: the new world viewport
	HandleResize(vp common.Viewport)

	// Update advances the private scene's animators by deltaTime seconds.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last update in seconds
	Update(deltaTime float32)

	// Dispose releases the low-resolution surface and the private scene.
	// Idempotent.
	Dispose()
}

type resolutionStage struct {
	mu sync.Mutex

	device         render.Device
	scn            scene.Scene
	recoverSurface RecoverSurfaceFunc

	enabled                     bool
	width, height               int
	upscaleWidth, upscaleHeight int

	surface render.Surface
}

var _ ResolutionStage = &resolutionStage{}

// NewResolutionStage creates a pixelation stage with its own private scene.
// Defaults to a 480x270 surface upscaled to 1920x1080. Panics if the device
// is nil or the viewport invalid.
//
// Parameters:
//   - device: the render device (must not be nil)
//   - viewport: the world viewport shared with the primary scene
//   - options: functional options to configure the stage
//
// Returns:
//   - ResolutionStage: the newly created stage
func NewResolutionStage(device render.Device, viewport common.Viewport, options ...ResolutionBuilderOption) ResolutionStage {
	if device == nil {
		panic("stage: NewResolutionStage requires a non-nil Device")
	}
	s := &resolutionStage{
		device:        device,
		width:         480,
		height:        270,
		upscaleWidth:  1920,
		upscaleHeight: 1080,
	}
	for _, option := range options {
		option(s)
	}
	s.scn = scene.NewScene("postfx-lowres", device, viewport)
	return s
}

func (s *resolutionStage) Name() string {
	return NameResolution
}

func (s *resolutionStage) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *resolutionStage) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

func (s *resolutionStage) Scene() scene.Scene {
	return s.scn
}

func (s *resolutionStage) Resolution() (w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *resolutionStage) UpscaleSize() (w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upscaleWidth, s.upscaleHeight
}

func (s *resolutionStage) UpdateResolution(update ResolutionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newWidth := s.width
	newHeight := s.height
	if update.Width != nil {
		newWidth = *update.Width
	}
	if update.Height != nil {
		newHeight = *update.Height
	}

	newUpscaleWidth := s.upscaleWidth
	newUpscaleHeight := s.upscaleHeight
	lowResChanged := newWidth != s.width || newHeight != s.height

	switch {
	case update.UpscaleWidth != nil && update.UpscaleHeight != nil:
		newUpscaleWidth = *update.UpscaleWidth
		newUpscaleHeight = *update.UpscaleHeight
	case update.UpscaleWidth != nil:
		// Derive the missing dimension from the low-res aspect ratio.
		newUpscaleWidth = *update.UpscaleWidth
		newUpscaleHeight = int(math.Round(float64(newUpscaleWidth) * float64(newHeight) / float64(newWidth)))
	case update.UpscaleHeight != nil:
		newUpscaleHeight = *update.UpscaleHeight
		newUpscaleWidth = int(math.Round(float64(newUpscaleHeight) * float64(newWidth) / float64(newHeight)))
	case lowResChanged:
		// No explicit upscale with changed low-res dimensions: preserve the
		// current scale factor.
		scaleX := float64(s.upscaleWidth) / float64(s.width)
		scaleY := float64(s.upscaleHeight) / float64(s.height)
		newUpscaleWidth = int(math.Round(float64(newWidth) * scaleX))
		newUpscaleHeight = int(math.Round(float64(newHeight) * scaleY))
	}

	if newWidth < MinLowResDimension || newWidth > MaxLowResDimension ||
		newHeight < MinLowResDimension || newHeight > MaxLowResDimension {
		return fmt.Errorf("stage: low-res dimensions %dx%d outside [%d, %d]",
			newWidth, newHeight, MinLowResDimension, MaxLowResDimension)
	}
	if newUpscaleWidth < 1 || newUpscaleWidth > MaxUpscaleDimension ||
		newUpscaleHeight < 1 || newUpscaleHeight > MaxUpscaleDimension {
		return fmt.Errorf("stage: upscale dimensions %dx%d outside [1, %d]",
			newUpscaleWidth, newUpscaleHeight, MaxUpscaleDimension)
	}

	s.width = newWidth
	s.height = newHeight
	s.upscaleWidth = newUpscaleWidth
	s.upscaleHeight = newUpscaleHeight

	if lowResChanged && s.surface != nil {
		return s.createSurfaceLocked()
	}
	return nil
}

func (s *resolutionStage) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createSurfaceLocked()
}

// createSurfaceLocked replaces the low-resolution surface. Caller must hold s.mu.
func (s *resolutionStage) createSurfaceLocked() error {
	if s.surface != nil {
		s.surface.Release()
		s.surface = nil
	}

	opts := render.SurfaceOptions{
		Label:    "PostFX LowRes Surface",
		Width:    s.width,
		Height:   s.height,
		Format:   render.FormatRGBA8Unorm,
		Sampling: render.FilterNearest,
	}
	surface, err := s.device.CreateSurface(opts)
	if err != nil {
		if s.recoverSurface == nil {
			return fmt.Errorf("stage: failed to create %dx%d low-res surface: %w", s.width, s.height, err)
		}
		log.Printf("[PostFX] low-res surface creation failed, attempting recovery: %v", err)
		surface, err = s.recoverSurface(opts)
		if err != nil {
			return fmt.Errorf("stage: failed to recover %dx%d low-res surface: %w", s.width, s.height, err)
		}
	}
	s.surface = surface
	return nil
}

func (s *resolutionStage) Render() (render.Texture, error) {
	s.mu.Lock()
	surface := s.surface
	s.mu.Unlock()
	if surface == nil {
		return nil, fmt.Errorf("stage: resolution stage not initialized")
	}

	if err := s.scn.Rasterize(surface); err != nil {
		log.Printf("[PostFX] low-res render failed, recreating surface and retrying: %v", err)
		if initErr := s.Init(); initErr != nil {
			return nil, fmt.Errorf("stage: low-res surface recreation failed: %w", initErr)
		}
		s.mu.Lock()
		surface = s.surface
		s.mu.Unlock()
		if err := s.scn.Rasterize(surface); err != nil {
			return nil, fmt.Errorf("stage: low-res render failed after retry: %w", err)
		}
	}
	return surface.Texture(), nil
}

func (s *resolutionStage) HandleResize(vp common.Viewport) {
	s.scn.SetViewport(vp)
}

func (s *resolutionStage) Update(deltaTime float32) {
	s.scn.Update(deltaTime)
}

func (s *resolutionStage) Dispose() {
	s.mu.Lock()
	if s.surface != nil {
		s.surface.Release()
		s.surface = nil
	}
	s.mu.Unlock()
	s.scn.Dispose()
}
