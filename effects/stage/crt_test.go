package stage

import (
	"image/color"
	"testing"
)

func TestCRTAllSubEffectsOffIsPassthrough(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	stage := NewCRTStage(device, WithCRTSubEffects(false, false, false, false, false))
	t.Cleanup(stage.Dispose)
	if err := stage.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	input := newTestSurface(t, device, 8, 8)
	fillSurface(t, input, color.RGBA{R: 180, G: 120, B: 60, A: 255})
	out := newTestSurface(t, device, 8, 8)

	if _, err := stage.Apply(input.Texture(), out); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !samePixels(surfaceImage(t, input), surfaceImage(t, out)) {
		t.Fatal("CRT with no sub-effects altered the image")
	}
}

func TestCRTScanlinesDarkenAlternateRows(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	stage := NewCRTStage(device, WithCRTSubEffects(true, false, false, false, false))
	t.Cleanup(stage.Dispose)
	if err := stage.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := stage.SetScanlineIntensity(0.3); err != nil {
		t.Fatalf("SetScanlineIntensity() error = %v", err)
	}
	if err := stage.SetScanlineSpacing(2); err != nil {
		t.Fatalf("SetScanlineSpacing() error = %v", err)
	}

	input := newTestSurface(t, device, 8, 8)
	fillSurface(t, input, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	out := newTestSurface(t, device, 8, 8)

	if _, err := stage.Apply(input.Texture(), out); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	img := surfaceImage(t, out)
	// With 2px spacing the scanline term vanishes on even rows and peaks on
	// odd rows, darkening them by the full intensity.
	if got := img.RGBAAt(3, 0).R; got != 200 {
		t.Fatalf("even row value = %d, want 200", got)
	}
	if got := img.RGBAAt(3, 1).R; got < 139 || got > 140 {
		t.Fatalf("odd row value = %d, want ~140 (30%% darkened)", got)
	}
}

func TestCRTSettersClamp(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	stage := NewCRTStage(device)
	t.Cleanup(stage.Dispose)

	tests := []struct {
		name string
		set  func() error
		get  func() float32
		want float32
	}{
		{"scanline spacing above range", func() error { return stage.SetScanlineSpacing(9) }, stage.ScanlineSpacing, 4},
		{"scanline spacing below range", func() error { return stage.SetScanlineSpacing(0.1) }, stage.ScanlineSpacing, 1},
		{"curvature amount above range", func() error { return stage.SetCurvatureAmount(0.5) }, stage.CurvatureAmount, 0.1},
		{"flicker intensity above range", func() error { return stage.SetFlickerIntensity(0.9) }, stage.FlickerIntensity, 0.2},
		{"flicker speed above range", func() error { return stage.SetFlickerSpeed(120) }, stage.FlickerSpeed, 60},
		{"glow threshold below range", func() error { return stage.SetGlowThreshold(-2) }, stage.GlowThreshold, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.set(); err != nil {
				t.Fatalf("setter error = %v", err)
			}
			if got := tt.get(); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCRTSubEffectToggles(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	stage := NewCRTStage(device)
	t.Cleanup(stage.Dispose)

	// Everything defaults on.
	if !stage.ScanlinesEnabled() || !stage.CurvatureEnabled() || !stage.GlowEnabled() ||
		!stage.NoiseEnabled() || !stage.FlickerEnabled() {
		t.Fatal("expected all sub-effects enabled by default")
	}

	stage.SetGlowEnabled(false)
	stage.SetNoiseEnabled(false)
	if stage.GlowEnabled() || stage.NoiseEnabled() {
		t.Fatal("disabled sub-effects still report enabled")
	}
	if !stage.ScanlinesEnabled() {
		t.Fatal("unrelated sub-effect was disabled")
	}
}
