package stage

import (
	"image"
	"image/color"
	"testing"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/render"
)

func newTestDevice(t *testing.T, width, height int) render.Device {
	t.Helper()
	device := render.NewDevice(render.BackendTypeSoftware, common.Viewport{Width: width, Height: height})
	t.Cleanup(device.Release)
	return device
}

func newTestSurface(t *testing.T, device render.Device, width, height int) render.Surface {
	t.Helper()
	surface, err := device.CreateSurface(render.SurfaceOptions{
		Label:  "Test Surface",
		Width:  width,
		Height: height,
	})
	if err != nil {
		t.Fatalf("CreateSurface() error = %v", err)
	}
	t.Cleanup(surface.Release)
	return surface
}

// surfaceImage reads a software surface's pixels back.
func surfaceImage(t *testing.T, s render.Surface) *image.RGBA {
	t.Helper()
	im, ok := s.(interface{ Image() *image.RGBA })
	if !ok {
		t.Fatalf("surface %T has no pixel readback", s)
	}
	return im.Image()
}

func fillSurface(t *testing.T, s render.Surface, c color.RGBA) {
	t.Helper()
	img := surfaceImage(t, s)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func samePixels(a, b *image.RGBA) bool {
	if a.Bounds() != b.Bounds() {
		return false
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			return false
		}
	}
	return true
}
