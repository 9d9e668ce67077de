package stage

import (
	"image/color"
	"math"
	"testing"
)

func TestGrainDeviationBoundedOnBlackFrame(t *testing.T) {
	device := newTestDevice(t, 4, 4)
	stage := NewGrainStage(device, WithGrainIntensity(0.05))
	t.Cleanup(stage.Dispose)
	if err := stage.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	input := newTestSurface(t, device, 4, 4)
	fillSurface(t, input, color.RGBA{A: 255})
	out := newTestSurface(t, device, 4, 4)

	if _, err := stage.Apply(input.Texture(), out); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	// Noise amplitude per channel is intensity * weight, so on a black frame
	// no channel may deviate further than that from zero.
	bounds := [3]float64{
		0.05 * 1.0 * 255,
		0.05 * 0.95 * 255,
		0.05 * 0.9 * 255,
	}
	img := surfaceImage(t, out)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			px := img.RGBAAt(x, y)
			for i, v := range [3]uint8{px.R, px.G, px.B} {
				if float64(v) > math.Ceil(bounds[i]) {
					t.Fatalf("pixel (%d,%d) channel %d = %d, want <= %.1f", x, y, i, v, bounds[i])
				}
			}
			if px.A != 255 {
				t.Fatalf("pixel (%d,%d) alpha = %d, want 255", x, y, px.A)
			}
		}
	}
}

func TestGrainZeroIntensityIsPassthrough(t *testing.T) {
	device := newTestDevice(t, 4, 4)
	stage := NewGrainStage(device, WithGrainIntensity(0), WithGrainTransitionRate(0))
	t.Cleanup(stage.Dispose)
	if err := stage.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	input := newTestSurface(t, device, 4, 4)
	fillSurface(t, input, color.RGBA{R: 40, G: 80, B: 120, A: 255})
	out := newTestSurface(t, device, 4, 4)

	if _, err := stage.Apply(input.Texture(), out); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !samePixels(surfaceImage(t, input), surfaceImage(t, out)) {
		t.Fatal("zero-intensity grain altered the image")
	}
}

func TestGrainIntensityEasing(t *testing.T) {
	device := newTestDevice(t, 4, 4)
	stage := NewGrainStage(device, WithGrainIntensity(0), WithGrainTransitionRate(0.5))
	t.Cleanup(stage.Dispose)

	if err := stage.SetIntensity(1); err != nil {
		t.Fatalf("SetIntensity() error = %v", err)
	}
	if got := stage.Intensity(); got != 0 {
		t.Fatalf("Intensity() before update = %v, want 0", got)
	}
	if got := stage.TargetIntensity(); got != 1 {
		t.Fatalf("TargetIntensity() = %v, want 1", got)
	}

	// 0.25s at 0.5s-per-unit moves the intensity halfway.
	stage.Update(0.25)
	if got := stage.Intensity(); math.Abs(float64(got)-0.5) > 1e-6 {
		t.Fatalf("Intensity() after 0.25s = %v, want 0.5", got)
	}

	// A large step settles exactly on the target without overshoot.
	stage.Update(10)
	if got := stage.Intensity(); got != 1 {
		t.Fatalf("Intensity() after settling = %v, want 1", got)
	}
}

func TestGrainZeroTransitionRateSnaps(t *testing.T) {
	device := newTestDevice(t, 4, 4)
	stage := NewGrainStage(device, WithGrainTransitionRate(0))
	t.Cleanup(stage.Dispose)

	if err := stage.SetIntensity(0.8); err != nil {
		t.Fatalf("SetIntensity() error = %v", err)
	}
	if got := stage.Intensity(); got != 0.8 {
		t.Fatalf("Intensity() = %v, want 0.8 immediately", got)
	}
}

func TestGrainRejectsNonFiniteValues(t *testing.T) {
	device := newTestDevice(t, 4, 4)
	stage := NewGrainStage(device)
	t.Cleanup(stage.Dispose)

	nan := float32(math.NaN())
	if err := stage.SetIntensity(nan); err == nil {
		t.Fatal("SetIntensity(NaN) succeeded")
	}
	if err := stage.SetTransitionRate(nan); err == nil {
		t.Fatal("SetTransitionRate(NaN) succeeded")
	}
}

func TestGrainTimeAdvancesOnlyWhenAnimated(t *testing.T) {
	device := newTestDevice(t, 4, 4)
	stage := NewGrainStage(device, WithGrainAnimated(false))
	t.Cleanup(stage.Dispose)
	if err := stage.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	input := newTestSurface(t, device, 4, 4)
	out1 := newTestSurface(t, device, 4, 4)
	out2 := newTestSurface(t, device, 4, 4)

	// With animation off the noise pattern is static across updates.
	if _, err := stage.Apply(input.Texture(), out1); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	stage.Update(1.0)
	if _, err := stage.Apply(input.Texture(), out2); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !samePixels(surfaceImage(t, out1), surfaceImage(t, out2)) {
		t.Fatal("static grain changed between frames")
	}
}
