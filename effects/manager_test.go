package effects

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/effects/capability"
	"github.com/Carmen-Shannon/oxy-postfx/effects/stage"
	"github.com/Carmen-Shannon/oxy-postfx/game_object"
	"github.com/Carmen-Shannon/oxy-postfx/render"
)

// fakeProbe reports a capable host so capability gating never interferes
// with the behavior under test; the software backend's renderer string would
// otherwise classify as low-end.
type fakeProbe struct{}

func (fakeProbe) MaxTextureSize() int    { return 8192 }
func (fakeProbe) MaxTextureUnits() int   { return 16 }
func (fakeProbe) MaxVaryingVectors() int { return 8 }
func (fakeProbe) FloatTextures() bool    { return false }
func (fakeProbe) Renderer() string       { return "test adapter" }
func (fakeProbe) Platform() string       { return "linux" }
func (fakeProbe) LogicalCores() int      { return 8 }
func (fakeProbe) LowEnd() bool           { return false }

func (fakeProbe) OptimizedTextureSize(width, height int) (int, int) {
	return width, height
}

func (fakeProbe) ShouldEnableEffect(string, capability.Complexity) bool {
	return true
}

func (fakeProbe) OptimizedRenderTargetOptions(label string, width, height int, _ bool) render.SurfaceOptions {
	return render.SurfaceOptions{Label: label, Width: width, Height: height}
}

func (fakeProbe) Summary() string { return "test probe" }

var _ capability.Probe = fakeProbe{}

func newTestManager(t *testing.T, options ...ManagerBuilderOption) Manager {
	t.Helper()
	device := render.NewDevice(render.BackendTypeSoftware, common.Viewport{Width: 640, Height: 360})
	t.Cleanup(device.Release)
	options = append([]ManagerBuilderOption{WithCapabilityProbe(fakeProbe{})}, options...)
	m := NewManager(device, common.Viewport{Width: 640, Height: 360}, options...)
	t.Cleanup(m.Dispose)
	return m
}

func addTestObject(m Manager) uint64 {
	return m.AddGameObject(game_object.NewGameObject(
		game_object.WithPosition(100, 100),
		game_object.WithSize(200, 150),
		game_object.WithColor(common.Color{R: 1, G: 0.5, B: 0.2, A: 1}),
	))
}

func TestManagerRenderFrame(t *testing.T) {
	m := newTestManager(t)
	if err := m.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	addTestObject(m)

	m.UpdateTime(1.0 / 60)
	if err := m.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
}

func TestManagerRenderBeforeInitFails(t *testing.T) {
	m := newTestManager(t)
	if err := m.Render(); err == nil {
		t.Fatal("Render() succeeded before Init")
	}
}

func TestManagerDisposeIdempotent(t *testing.T) {
	m := newTestManager(t)
	if err := m.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	m.Dispose()
	m.Dispose()

	if err := m.Render(); err == nil {
		t.Fatal("Render() succeeded after Dispose")
	}
}

func TestManagerRenderNoOpWhileDeviceLost(t *testing.T) {
	m := newTestManager(t)
	if err := m.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	addTestObject(m)

	m.NotifyDeviceLost("simulated loss")
	if err := m.Render(); err != nil {
		t.Fatalf("Render() while lost error = %v, want nil no-op", err)
	}

	m.NotifyDeviceRestored()
	if err := m.Render(); err != nil {
		t.Fatalf("Render() after restore error = %v", err)
	}
}

func TestManagerResizeThenRender(t *testing.T) {
	m := newTestManager(t)
	if err := m.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	addTestObject(m)

	m.HandleResize(800, 600)
	if err := m.Render(); err != nil {
		t.Fatalf("Render() after resize error = %v", err)
	}

	cfg := m.Config()
	if cfg.Resolution.UpscaleWidth != 800 || cfg.Resolution.UpscaleHeight != 600 {
		t.Fatalf("upscale after resize = %dx%d, want 800x600",
			cfg.Resolution.UpscaleWidth, cfg.Resolution.UpscaleHeight)
	}
}

func TestManagerFilterOrderIsFixedSubsequence(t *testing.T) {
	fullOrder := []string{stage.NameAberration, stage.NameCRT, stage.NameGrain}

	// Every enable/disable combination must produce an active list that is a
	// subsequence of the full fixed order.
	for mask := 0; mask < 8; mask++ {
		m := newTestManager(t).(*manager)
		for i, name := range fullOrder {
			if err := m.ToggleEffect(name, mask&(1<<i) != 0); err != nil {
				t.Fatalf("ToggleEffect(%q) error = %v", name, err)
			}
		}

		active := m.activeFiltersLocked()
		pos := 0
		for _, st := range active {
			found := false
			for pos < len(fullOrder) {
				if fullOrder[pos] == st.Name() {
					found = true
					pos++
					break
				}
				pos++
			}
			if !found {
				t.Fatalf("mask %03b: active order %v is not a subsequence of %v", mask, names(active), fullOrder)
			}
		}

		wantLen := 0
		for i := range fullOrder {
			if mask&(1<<i) != 0 {
				wantLen++
			}
		}
		if len(active) != wantLen {
			t.Fatalf("mask %03b: active count = %d, want %d", mask, len(active), wantLen)
		}
	}
}

func names(stages []stage.Stage) []string {
	out := make([]string, len(stages))
	for i, st := range stages {
		out[i] = st.Name()
	}
	return out
}

func TestManagerUpdateConfigAppliesParameters(t *testing.T) {
	m := newTestManager(t)
	if err := m.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	err := m.UpdateConfig(ConfigUpdate{
		Grain: &GrainConfigUpdate{Intensity: floatPtr(0.2)},
		CRT:   &CRTConfigUpdate{ScanlineSpacing: floatPtr(3)},
	})
	if err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}

	cfg := m.Config()
	if cfg.Grain.Intensity != 0.2 {
		t.Fatalf("Grain.Intensity = %v, want 0.2", cfg.Grain.Intensity)
	}
	if cfg.CRT.ScanlineSpacing != 3 {
		t.Fatalf("CRT.ScanlineSpacing = %v, want 3", cfg.CRT.ScanlineSpacing)
	}

	// The values reached the stages, not just the stored config.
	impl := m.(*manager)
	if got := impl.grain.TargetIntensity(); got != 0.2 {
		t.Fatalf("grain stage target intensity = %v, want 0.2", got)
	}
	if got := impl.crt.ScanlineSpacing(); got != 3 {
		t.Fatalf("crt stage scanline spacing = %v, want 3", got)
	}
}

func TestManagerUpdateConfigRollsBackOnFailure(t *testing.T) {
	m := newTestManager(t)
	if err := m.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	before := m.Config()

	err := m.UpdateConfig(ConfigUpdate{
		Grain: &GrainConfigUpdate{Intensity: floatPtr(float32(math.NaN()))},
	})
	if err == nil {
		t.Fatal("UpdateConfig() accepted a NaN intensity")
	}

	if got := m.Config(); got != before {
		t.Fatalf("config changed after rejected update:\n got %+v\nwant %+v", got, before)
	}
}

func TestManagerToggleEffectUnknownName(t *testing.T) {
	m := newTestManager(t)
	if err := m.ToggleEffect("bloom", true); err == nil {
		t.Fatal("ToggleEffect() accepted an unknown effect name")
	}
}

func TestManagerQualityPresetApplied(t *testing.T) {
	m := newTestManager(t)
	if err := m.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	var gotLevel int
	var gotPreset QualityPreset
	m.OnQualityChange(func(level int, preset QualityPreset) {
		gotLevel = level
		gotPreset = preset
	})

	m.SetQualityLevel(0)

	if m.QualityLevel() != 0 {
		t.Fatalf("QualityLevel() = %d, want 0", m.QualityLevel())
	}
	presets := DefaultQualityPresets()
	if m.Config() != presets[0].Config {
		t.Fatal("config does not match the lowest preset")
	}
	if gotLevel != 0 || gotPreset.Name != "low" {
		t.Fatalf("listener got level %d preset %q, want 0 low", gotLevel, gotPreset.Name)
	}
}

func TestManagerAddRemoveGameObject(t *testing.T) {
	m := newTestManager(t)

	id := addTestObject(m)
	if got := m.Scene().Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}

	if !m.RemoveGameObject(id) {
		t.Fatal("RemoveGameObject() = false for an existing object")
	}
	if got := m.Scene().Count(); got != 0 {
		t.Fatalf("Count() after removal = %d, want 0", got)
	}
	if m.RemoveGameObject(id) {
		t.Fatal("RemoveGameObject() = true for a removed object")
	}
}

func TestManagerRenderWithAllFiltersDisabled(t *testing.T) {
	m := newTestManager(t)
	if err := m.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	addTestObject(m)

	for _, name := range []string{stage.NameAberration, stage.NameCRT, stage.NameGrain} {
		if err := m.ToggleEffect(name, false); err != nil {
			t.Fatalf("ToggleEffect(%q) error = %v", name, err)
		}
	}

	if err := m.Render(); err != nil {
		t.Fatalf("Render() with empty chain error = %v", err)
	}
}

func TestManagerRenderWithResolutionDisabled(t *testing.T) {
	m := newTestManager(t)
	if err := m.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	addTestObject(m)

	if err := m.ToggleEffect(stage.NameResolution, false); err != nil {
		t.Fatalf("ToggleEffect() error = %v", err)
	}
	if err := m.Render(); err != nil {
		t.Fatalf("Render() at full resolution error = %v", err)
	}
}
