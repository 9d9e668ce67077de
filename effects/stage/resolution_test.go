package stage

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/game_object"
)

func intPtr(v int) *int { return &v }

func TestResolutionUpscaleAspectInference(t *testing.T) {
	device := newTestDevice(t, 1920, 1080)
	stage := NewResolutionStage(device, common.Viewport{Width: 1920, Height: 1080})
	t.Cleanup(stage.Dispose)

	// 480x270 is 16:9; a 1280 upscale width infers a 720 height.
	if err := stage.UpdateResolution(ResolutionUpdate{UpscaleWidth: intPtr(1280)}); err != nil {
		t.Fatalf("UpdateResolution() error = %v", err)
	}
	w, h := stage.UpscaleSize()
	if w != 1280 || h != 720 {
		t.Fatalf("UpscaleSize() = %dx%d, want 1280x720", w, h)
	}

	// Height-only inference works the same way.
	if err := stage.UpdateResolution(ResolutionUpdate{UpscaleHeight: intPtr(1080)}); err != nil {
		t.Fatalf("UpdateResolution() error = %v", err)
	}
	w, h = stage.UpscaleSize()
	if w != 1920 || h != 1080 {
		t.Fatalf("UpscaleSize() = %dx%d, want 1920x1080", w, h)
	}
}

func TestResolutionScaleFactorPreserved(t *testing.T) {
	device := newTestDevice(t, 1920, 1080)
	stage := NewResolutionStage(device, common.Viewport{Width: 1920, Height: 1080})
	t.Cleanup(stage.Dispose)

	// Doubling the internal resolution without an explicit upscale keeps the
	// 4x scale factor.
	if err := stage.UpdateResolution(ResolutionUpdate{Width: intPtr(960), Height: intPtr(540)}); err != nil {
		t.Fatalf("UpdateResolution() error = %v", err)
	}
	w, h := stage.UpscaleSize()
	if w != 3840 || h != 2160 {
		t.Fatalf("UpscaleSize() = %dx%d, want 3840x2160", w, h)
	}
}

func TestResolutionBoundsRejected(t *testing.T) {
	device := newTestDevice(t, 1920, 1080)
	stage := NewResolutionStage(device, common.Viewport{Width: 1920, Height: 1080})
	t.Cleanup(stage.Dispose)

	tests := []struct {
		name   string
		update ResolutionUpdate
	}{
		{"width below minimum", ResolutionUpdate{Width: intPtr(32)}},
		{"height above maximum", ResolutionUpdate{Height: intPtr(4096)}},
		{"upscale above maximum", ResolutionUpdate{UpscaleWidth: intPtr(9000), UpscaleHeight: intPtr(9000)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := stage.UpdateResolution(tt.update); err == nil {
				t.Fatal("UpdateResolution() succeeded with out-of-range value")
			}
			// Rejected updates leave the previous state untouched.
			w, h := stage.Resolution()
			if w != 480 || h != 270 {
				t.Fatalf("Resolution() = %dx%d, want 480x270", w, h)
			}
		})
	}
}

func TestResolutionRenderProducesLowResTexture(t *testing.T) {
	device := newTestDevice(t, 1920, 1080)
	stage := NewResolutionStage(device, common.Viewport{Width: 1920, Height: 1080})
	t.Cleanup(stage.Dispose)
	if err := stage.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	stage.Scene().Add(game_object.NewGameObject(
		game_object.WithPosition(100, 100),
		game_object.WithSize(200, 200),
		game_object.WithColor(common.Color{R: 1, A: 1}),
	))

	tex, err := stage.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	size := tex.Size()
	if size.Width != 480 || size.Height != 270 {
		t.Fatalf("rendered texture size = %dx%d, want 480x270", size.Width, size.Height)
	}
}

func TestResolutionSurfaceRecreatedOnSizeChange(t *testing.T) {
	device := newTestDevice(t, 1920, 1080)
	stage := NewResolutionStage(device, common.Viewport{Width: 1920, Height: 1080})
	t.Cleanup(stage.Dispose)
	if err := stage.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if err := stage.UpdateResolution(ResolutionUpdate{Width: intPtr(320), Height: intPtr(180)}); err != nil {
		t.Fatalf("UpdateResolution() error = %v", err)
	}

	tex, err := stage.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	size := tex.Size()
	if size.Width != 320 || size.Height != 180 {
		t.Fatalf("rendered texture size = %dx%d, want 320x180", size.Width, size.Height)
	}
}

func TestResolutionRenderBeforeInitFails(t *testing.T) {
	device := newTestDevice(t, 1920, 1080)
	stage := NewResolutionStage(device, common.Viewport{Width: 1920, Height: 1080})
	t.Cleanup(stage.Dispose)

	if _, err := stage.Render(); err == nil {
		t.Fatal("Render() succeeded without Init")
	}
}
