package effects

import (
	"testing"
)

func boolPtr(v bool) *bool        { return &v }
func intPtr(v int) *int           { return &v }
func floatPtr(v float32) *float32 { return &v }

func TestMergeAppliesOnlySetFields(t *testing.T) {
	base := DefaultEffectsConfig()

	merged := Merge(base, ConfigUpdate{
		Grain: &GrainConfigUpdate{
			Intensity: floatPtr(0.2),
		},
		CRT: &CRTConfigUpdate{
			Enabled: boolPtr(false),
		},
	})

	if merged.Grain.Intensity != 0.2 {
		t.Fatalf("Grain.Intensity = %v, want 0.2", merged.Grain.Intensity)
	}
	if merged.Grain.TransitionRate != base.Grain.TransitionRate {
		t.Fatalf("Grain.TransitionRate changed to %v", merged.Grain.TransitionRate)
	}
	if merged.CRT.Enabled {
		t.Fatal("CRT.Enabled still true")
	}
	if merged.CRT.ScanlineIntensity != base.CRT.ScanlineIntensity {
		t.Fatalf("CRT.ScanlineIntensity changed to %v", merged.CRT.ScanlineIntensity)
	}
	if merged.Resolution != base.Resolution || merged.Aberration != base.Aberration {
		t.Fatal("untouched sections changed")
	}
}

func TestMergeClampsOutOfRangeValues(t *testing.T) {
	merged := Merge(DefaultEffectsConfig(), ConfigUpdate{
		Resolution: &ResolutionConfigUpdate{
			Width:  intPtr(10000),
			Height: intPtr(1),
		},
		Aberration: &AberrationConfigUpdate{
			OffsetX: floatPtr(0.5),
		},
		CRT: &CRTConfigUpdate{
			ScanlineSpacing: floatPtr(99),
			CurvatureAmount: floatPtr(-1),
		},
	})

	if merged.Resolution.Width != 2048 || merged.Resolution.Height != 64 {
		t.Fatalf("Resolution = %dx%d, want 2048x64", merged.Resolution.Width, merged.Resolution.Height)
	}
	if merged.Aberration.OffsetX != 0.05 {
		t.Fatalf("Aberration.OffsetX = %v, want 0.05", merged.Aberration.OffsetX)
	}
	if merged.CRT.ScanlineSpacing != 4 {
		t.Fatalf("CRT.ScanlineSpacing = %v, want 4", merged.CRT.ScanlineSpacing)
	}
	if merged.CRT.CurvatureAmount != 0 {
		t.Fatalf("CRT.CurvatureAmount = %v, want 0", merged.CRT.CurvatureAmount)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(DefaultEffectsConfig()); err != nil {
		t.Fatalf("Validate(default) error = %v", err)
	}

	bad := DefaultEffectsConfig()
	bad.Resolution.Width = 16
	if err := Validate(bad); err == nil {
		t.Fatal("Validate() accepted a 16px internal width")
	}

	bad = DefaultEffectsConfig()
	bad.Grain.Intensity = 2
	if err := Validate(bad); err == nil {
		t.Fatal("Validate() accepted grain intensity 2")
	}
}

func TestDiffClassification(t *testing.T) {
	base := DefaultEffectsConfig()

	t.Run("identical configs diff empty", func(t *testing.T) {
		d := Diff(base, base)
		if !d.Empty() || d.Structural() {
			t.Fatalf("diff = %+v, want empty", d)
		}
	})

	t.Run("parameter change is not structural", func(t *testing.T) {
		changed := base
		changed.Grain.Intensity = 0.3
		d := Diff(base, changed)
		if d.Structural() || !d.ParametersChanged {
			t.Fatalf("diff = %+v, want parameter-only", d)
		}
	})

	t.Run("filter toggle is structural", func(t *testing.T) {
		changed := base
		changed.CRT.Enabled = false
		d := Diff(base, changed)
		if !d.FiltersToggled || !d.Structural() || d.ParametersChanged {
			t.Fatalf("diff = %+v, want filter toggle only", d)
		}
	})

	t.Run("resolution resize is structural", func(t *testing.T) {
		changed := base
		changed.Resolution.Width = 640
		changed.Resolution.Height = 360
		d := Diff(base, changed)
		if !d.ResolutionResized || !d.Structural() {
			t.Fatalf("diff = %+v, want resolution resize", d)
		}
	})

	t.Run("resolution toggle is structural", func(t *testing.T) {
		changed := base
		changed.Resolution.Enabled = false
		d := Diff(base, changed)
		if !d.ResolutionToggled || !d.Structural() {
			t.Fatalf("diff = %+v, want resolution toggle", d)
		}
	})
}

func TestDefaultQualityPresets(t *testing.T) {
	presets := DefaultQualityPresets()
	if len(presets) != 4 {
		t.Fatalf("preset count = %d, want 4", len(presets))
	}

	wantNames := []string{"low", "medium", "high", "ultra"}
	for i, preset := range presets {
		if preset.Name != wantNames[i] {
			t.Fatalf("preset %d name = %q, want %q", i, preset.Name, wantNames[i])
		}
		if err := Validate(preset.Config); err != nil {
			t.Fatalf("preset %q invalid: %v", preset.Name, err)
		}
	}

	// The top preset is the full default configuration.
	if presets[3].Config != Normalize(DefaultEffectsConfig()) {
		t.Fatal("ultra preset differs from the default configuration")
	}

	// Lower presets never enable a filter a higher preset disables.
	if presets[0].Config.Grain.Enabled || presets[0].Config.CRT.Enabled || presets[0].Config.Aberration.Enabled {
		t.Fatal("low preset has filters enabled")
	}
	if presets[1].Config.CRT.Enabled || presets[1].Config.Aberration.Enabled {
		t.Fatal("medium preset has expensive filters enabled")
	}
	if presets[2].Config.Aberration.Enabled {
		t.Fatal("high preset has aberration enabled")
	}
}
