package scene

import (
	"image"
	"image/color"
	"testing"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/game_object"
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
		Label:  "Scene Test Surface",
		Width:  width,
		Height: height,
	})
	if err != nil {
		t.Fatalf("CreateSurface() error = %v", err)
	}
	t.Cleanup(surface.Release)
	return surface
}

func surfaceImage(t *testing.T, s render.Surface) *image.RGBA {
	t.Helper()
	im, ok := s.(interface{ Image() *image.RGBA })
	if !ok {
		t.Fatalf("surface %T has no pixel readback", s)
	}
	return im.Image()
}

func TestNewSceneValidation(t *testing.T) {
	device := newTestDevice(t, 8, 8)

	t.Run("nil device", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("NewScene(nil device) did not panic")
			}
		}()
		NewScene("bad", nil, common.Viewport{Width: 8, Height: 8})
	})

	t.Run("invalid viewport", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("NewScene(invalid viewport) did not panic")
			}
		}()
		NewScene("bad", device, common.Viewport{Width: 0, Height: 8})
	})
}

func TestSceneAddAssignsSequentialIDs(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	s := NewScene("ids", device, common.Viewport{Width: 8, Height: 8})
	defer s.Dispose()

	first := s.Add(game_object.NewGameObject())
	second := s.Add(game_object.NewGameObject())
	if first != 1 || second != 2 {
		t.Fatalf("Add() assigned IDs %d, %d, want 1, 2", first, second)
	}
	if s.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", s.Count())
	}
	if got := s.Get(first); got == nil || got.ID() != first {
		t.Errorf("Get(%d) = %v, want object with that ID", first, got)
	}
}

func TestSceneAddPreservesExplicitID(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	s := NewScene("explicit", device, common.Viewport{Width: 8, Height: 8})
	defer s.Dispose()

	id := s.Add(game_object.NewGameObject(game_object.WithID(42)))
	if id != 42 {
		t.Fatalf("Add() = %d, want 42", id)
	}
	if s.Get(42) == nil {
		t.Error("Get(42) = nil, want the added object")
	}
}

func TestSceneRemove(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	s := NewScene("remove", device, common.Viewport{Width: 8, Height: 8})
	defer s.Dispose()

	id := s.Add(game_object.NewGameObject())
	if !s.Remove(id) {
		t.Fatalf("Remove(%d) = false, want true", id)
	}
	if s.Remove(id) {
		t.Errorf("Remove(%d) second call = true, want false", id)
	}
	if s.Count() != 0 {
		t.Errorf("Count() after remove = %d, want 0", s.Count())
	}
	if s.Remove(999) {
		t.Error("Remove(999) = true for unknown ID, want false")
	}
}

func TestSceneClear(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	s := NewScene("clear", device, common.Viewport{Width: 8, Height: 8})
	defer s.Dispose()

	s.Add(game_object.NewGameObject())
	s.Add(game_object.NewGameObject())
	s.Add(game_object.NewGameObject(game_object.WithEphemeral(true)))
	s.Clear()

	if s.Count() != 0 || s.CountEphemeral() != 0 {
		t.Errorf("after Clear(): Count() = %d, CountEphemeral() = %d, want 0, 0", s.Count(), s.CountEphemeral())
	}
}

func TestSceneSetViewportRejectsInvalid(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	s := NewScene("viewport", device, common.Viewport{Width: 8, Height: 8})
	defer s.Dispose()

	s.SetViewport(common.Viewport{Width: -1, Height: 8})
	if got := s.Viewport(); got.Width != 8 || got.Height != 8 {
		t.Errorf("Viewport() after invalid SetViewport = %dx%d, want 8x8", got.Width, got.Height)
	}

	s.SetViewport(common.Viewport{Width: 16, Height: 9})
	if got := s.Viewport(); got.Width != 16 || got.Height != 9 {
		t.Errorf("Viewport() = %dx%d, want 16x9", got.Width, got.Height)
	}
}

func TestSceneUpdateAdvancesAnimators(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	s := NewScene("update", device, common.Viewport{Width: 8, Height: 8}, WithUpdateWorkers(2))
	defer s.Dispose()

	obj := game_object.NewGameObject(game_object.WithVelocity(10, -4))
	s.Add(obj)
	s.Update(0.5)

	x, y := obj.Position()
	if x != 5 || y != -2 {
		t.Errorf("Position() after Update(0.5) = (%v, %v), want (5, -2)", x, y)
	}
}

func TestSceneUpdateSkipsDisabledObjects(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	s := NewScene("skip", device, common.Viewport{Width: 8, Height: 8}, WithUpdateWorkers(1))
	defer s.Dispose()

	obj := game_object.NewGameObject(
		game_object.WithVelocity(10, 10),
		game_object.WithEnabled(false),
	)
	s.Add(obj)
	s.Update(1)

	if x, y := obj.Position(); x != 0 || y != 0 {
		t.Errorf("disabled object moved to (%v, %v), want (0, 0)", x, y)
	}
}

func TestSceneRasterizeDrawsSprites(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	target := newTestSurface(t, device, 8, 8)
	s := NewScene("draw", device, common.Viewport{Width: 8, Height: 8})
	defer s.Dispose()

	s.Add(game_object.NewGameObject(
		game_object.WithPosition(0, 0),
		game_object.WithSize(4, 4),
		game_object.WithColor(common.Color{R: 1, A: 1}),
	))
	if err := s.Rasterize(target); err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}

	img := surfaceImage(t, target)
	// World y is up; a sprite at the world origin lands in the bottom-left of
	// the image.
	if got := img.RGBAAt(1, 6); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("pixel inside sprite = %v, want opaque red", got)
	}
	if got := img.RGBAAt(6, 1); got != (color.RGBA{A: 255}) {
		t.Errorf("pixel outside sprite = %v, want clear color", got)
	}
}

func TestSceneRasterizeDepthOrdering(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	target := newTestSurface(t, device, 8, 8)
	s := NewScene("depth", device, common.Viewport{Width: 8, Height: 8})
	defer s.Dispose()

	s.Add(game_object.NewGameObject(
		game_object.WithSize(8, 8),
		game_object.WithDepth(0.5),
		game_object.WithColor(common.Color{B: 1, A: 1}),
	))
	s.Add(game_object.NewGameObject(
		game_object.WithSize(8, 8),
		game_object.WithDepth(0.1),
		game_object.WithColor(common.Color{R: 1, A: 1}),
	))
	if err := s.Rasterize(target); err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}

	if got := surfaceImage(t, target).RGBAAt(4, 4); got != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("overlapping pixel = %v, want the higher-depth sprite's blue on top", got)
	}
}

func TestSceneRasterizeSkipsDisabledObjects(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	target := newTestSurface(t, device, 8, 8)
	s := NewScene("disabled", device, common.Viewport{Width: 8, Height: 8})
	defer s.Dispose()

	s.Add(game_object.NewGameObject(
		game_object.WithSize(8, 8),
		game_object.WithColor(common.Color{G: 1, A: 1}),
		game_object.WithEnabled(false),
	))
	if err := s.Rasterize(target); err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}

	if got := surfaceImage(t, target).RGBAAt(4, 4); got != (color.RGBA{A: 255}) {
		t.Errorf("pixel = %v, want clear color with the only sprite disabled", got)
	}
}

func TestSceneEphemeralObjectsDrawnOnce(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	target := newTestSurface(t, device, 8, 8)
	s := NewScene("ephemeral", device, common.Viewport{Width: 8, Height: 8})
	defer s.Dispose()

	s.Add(game_object.NewGameObject(
		game_object.WithEphemeral(true),
		game_object.WithSize(8, 8),
		game_object.WithColor(common.Color{R: 1, A: 1}),
	))
	if s.CountEphemeral() != 1 {
		t.Fatalf("CountEphemeral() = %d, want 1", s.CountEphemeral())
	}

	if err := s.Rasterize(target); err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}
	if got := surfaceImage(t, target).RGBAAt(4, 4); got != (color.RGBA{R: 255, A: 255}) {
		t.Fatalf("first frame pixel = %v, want opaque red", got)
	}
	if s.CountEphemeral() != 0 {
		t.Errorf("CountEphemeral() after Rasterize = %d, want 0", s.CountEphemeral())
	}

	if err := s.Rasterize(target); err != nil {
		t.Fatalf("second Rasterize() error = %v", err)
	}
	if got := surfaceImage(t, target).RGBAAt(4, 4); got != (color.RGBA{A: 255}) {
		t.Errorf("second frame pixel = %v, want clear color", got)
	}
}

func TestSceneClearColor(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	target := newTestSurface(t, device, 8, 8)
	s := NewScene("tinted", device, common.Viewport{Width: 8, Height: 8},
		WithClearColor(common.Color{R: 0, G: 1, B: 0, A: 1}))
	defer s.Dispose()

	if err := s.Rasterize(target); err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}
	if got := surfaceImage(t, target).RGBAAt(0, 0); got != (color.RGBA{G: 255, A: 255}) {
		t.Errorf("pixel = %v, want the configured green clear color", got)
	}
}

func TestSceneRasterizeValidation(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	target := newTestSurface(t, device, 8, 8)
	s := NewScene("validation", device, common.Viewport{Width: 8, Height: 8})

	if err := s.Rasterize(nil); err == nil {
		t.Error("Rasterize(nil) = nil error, want error")
	}

	s.Dispose()
	if err := s.Rasterize(target); err == nil {
		t.Error("Rasterize() on disposed scene = nil error, want error")
	}
}

func TestSceneDisposeIdempotent(t *testing.T) {
	device := newTestDevice(t, 8, 8)
	s := NewScene("dispose", device, common.Viewport{Width: 8, Height: 8})
	s.Add(game_object.NewGameObject())

	s.Dispose()
	s.Dispose()

	if s.Count() != 0 {
		t.Errorf("Count() after Dispose = %d, want 0", s.Count())
	}
	// Update on a disposed scene is a no-op rather than a panic.
	s.Update(0.016)
}
