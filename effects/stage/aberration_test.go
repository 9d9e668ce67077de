package stage

import (
	"image/color"
	"math"
	"testing"
)

func TestAberrationZeroOffsetIsPassthrough(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	stage := NewAberrationStage(device)
	t.Cleanup(stage.Dispose)
	if err := stage.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	input := newTestSurface(t, device, 8, 8)
	fillSurface(t, input, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	out := newTestSurface(t, device, 8, 8)

	if _, err := stage.Apply(input.Texture(), out); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !samePixels(surfaceImage(t, input), surfaceImage(t, out)) {
		t.Fatal("zero-offset aberration altered the image")
	}
}

func TestAberrationShiftsRedChannel(t *testing.T) {
	device := newTestDevice(t, 20, 4)
	stage := NewAberrationStage(device)
	t.Cleanup(stage.Dispose)
	if err := stage.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	// 0.05 of a 20px-wide image is a 1px red shift to the right.
	if err := stage.SetOffset(0.05, 0); err != nil {
		t.Fatalf("SetOffset() error = %v", err)
	}
	if err := stage.SetIntensity(1); err != nil {
		t.Fatalf("SetIntensity() error = %v", err)
	}

	input := newTestSurface(t, device, 20, 4)
	img := surfaceImage(t, input)
	for y := 0; y < 4; y++ {
		for x := 0; x < 20; x++ {
			r := uint8(0)
			if x < 10 {
				r = 255
			}
			img.SetRGBA(x, y, color.RGBA{R: r, G: 100, B: 50, A: 255})
		}
	}
	out := newTestSurface(t, device, 20, 4)

	if _, err := stage.Apply(input.Texture(), out); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	result := surfaceImage(t, out)
	// The red edge moves one pixel left: x=9 now samples the dark side.
	if got := result.RGBAAt(9, 2).R; got != 0 {
		t.Fatalf("red at x=9 = %d, want 0", got)
	}
	if got := result.RGBAAt(8, 2).R; got != 255 {
		t.Fatalf("red at x=8 = %d, want 255", got)
	}
	// Green and alpha are sampled at the original position.
	px := result.RGBAAt(9, 2)
	if px.G != 100 || px.A != 255 {
		t.Fatalf("green/alpha at x=9 = %d/%d, want 100/255", px.G, px.A)
	}
}

func TestAberrationRadialFalloff(t *testing.T) {
	device := newTestDevice(t, 20, 20)
	stage := NewAberrationStage(device, WithAberrationRadial(true))
	t.Cleanup(stage.Dispose)
	if err := stage.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := stage.SetOffset(0.05, 0); err != nil {
		t.Fatalf("SetOffset() error = %v", err)
	}
	if err := stage.SetIntensity(1); err != nil {
		t.Fatalf("SetIntensity() error = %v", err)
	}

	// Alternating red columns make any shift visible.
	input := newTestSurface(t, device, 20, 20)
	img := surfaceImage(t, input)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			r := uint8(0)
			if x%2 == 0 {
				r = 255
			}
			img.SetRGBA(x, y, color.RGBA{R: r, A: 255})
		}
	}
	out := newTestSurface(t, device, 20, 20)

	if _, err := stage.Apply(input.Texture(), out); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	result := surfaceImage(t, out)
	// At the center the radial factor is near zero, so the pixel is
	// unshifted; at the corner the full 1px shift applies.
	if got := result.RGBAAt(10, 10).R; got != 255 {
		t.Fatalf("red at center = %d, want 255 (unshifted)", got)
	}
	if got := result.RGBAAt(0, 0).R; got != 0 {
		t.Fatalf("red at corner = %d, want 0 (shifted)", got)
	}
}

func TestAberrationParameterValidation(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	stage := NewAberrationStage(device)
	t.Cleanup(stage.Dispose)

	nan := float32(math.NaN())
	if err := stage.SetOffset(nan, 0); err == nil {
		t.Fatal("SetOffset(NaN, 0) succeeded")
	}
	if err := stage.SetIntensity(nan); err == nil {
		t.Fatal("SetIntensity(NaN) succeeded")
	}

	// Out-of-range finite values clamp instead of failing.
	if err := stage.SetOffset(1, -1); err != nil {
		t.Fatalf("SetOffset(1, -1) error = %v", err)
	}
	x, y := stage.Offset()
	if x != 0.05 || y != -0.05 {
		t.Fatalf("Offset() = %v, %v, want 0.05, -0.05", x, y)
	}
	if err := stage.SetIntensity(5); err != nil {
		t.Fatalf("SetIntensity(5) error = %v", err)
	}
	if got := stage.Intensity(); got != 1 {
		t.Fatalf("Intensity() = %v, want 1", got)
	}
}
