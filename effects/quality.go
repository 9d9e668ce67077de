package effects

// QualityPreset pairs a complete pipeline configuration with a display name.
// Presets are ordered lowest quality first so the performance monitor's
// level index selects directly into the slice.
type QualityPreset struct {
	Name   string
	Config EffectsConfig
}

// DefaultQualityPresets returns the built-in quality ladder, lowest first.
// Each step down disables the most expensive remaining work: Ultra runs
// everything, High drops chromatic aberration, Medium drops the CRT filter
// and shrinks the internal resolution, Low keeps only the small render
// target with no filters at all.
//
// Returns:
//   - []QualityPreset: the ordered presets
func DefaultQualityPresets() []QualityPreset {
	ultra := DefaultEffectsConfig()

	high := ultra
	high.Aberration.Enabled = false

	medium := high
	medium.CRT.Enabled = false
	medium.Resolution.Width = 384
	medium.Resolution.Height = 216
	medium.Grain.Intensity = 0.03

	low := medium
	low.Grain.Enabled = false
	low.Resolution.Width = 320
	low.Resolution.Height = 180

	return []QualityPreset{
		{Name: "low", Config: Normalize(low)},
		{Name: "medium", Config: Normalize(medium)},
		{Name: "high", Config: Normalize(high)},
		{Name: "ultra", Config: Normalize(ultra)},
	}
}
