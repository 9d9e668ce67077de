// Package effects orchestrates the post-processing pipeline: the low
// resolution stage, the filter chain, adaptive quality, and error recovery
// behind a single Manager.
package effects

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/effects/stage"
)

// ResolutionConfig describes the low resolution stage. Width and Height are
// the internal render size (64 to 2048 per axis); UpscaleWidth and
// UpscaleHeight the presented size (up to 8192 per axis).
type ResolutionConfig struct {
	Enabled       bool
	Width         int
	Height        int
	UpscaleWidth  int
	UpscaleHeight int
}

// AberrationConfig describes the chromatic aberration filter. Offsets are in
// normalized texture coordinates (-0.05 to 0.05), Intensity 0 to 1.
type AberrationConfig struct {
	Enabled   bool
	OffsetX   float32
	OffsetY   float32
	Radial    bool
	Intensity float32
}

// CRTConfig describes the CRT filter's five sub-effects. Intensities are 0
// to 1 unless noted; ScanlineSpacing is in pixels (1 to 4), CurvatureAmount
// 0 to 0.1, FlickerIntensity 0 to 0.2, FlickerSpeed 1 to 60 Hz.
type CRTConfig struct {
	Enabled           bool
	Scanlines         bool
	ScanlineIntensity float32
	ScanlineSpacing   float32
	Curvature         bool
	CurvatureAmount   float32
	CornerDarkening   float32
	Glow              bool
	GlowIntensity     float32
	GlowThreshold     float32
	Noise             bool
	NoiseIntensity    float32
	Flicker           bool
	FlickerIntensity  float32
	FlickerSpeed      float32
}

// GrainConfig describes the film grain filter. Intensity is 0 to 1,
// TransitionRate the seconds a full-range intensity change takes (0 snaps).
type GrainConfig struct {
	Enabled        bool
	Intensity      float32
	TransitionRate float32
	Animated       bool
}

// EffectsConfig is the complete pipeline configuration.
type EffectsConfig struct {
	Resolution ResolutionConfig
	Aberration AberrationConfig
	CRT        CRTConfig
	Grain      GrainConfig
}

// DefaultEffectsConfig returns the configuration every stage starts with.
//
// Returns:
//   - EffectsConfig: the default configuration
func DefaultEffectsConfig() EffectsConfig {
	return EffectsConfig{
		Resolution: ResolutionConfig{
			Enabled:       true,
			Width:         480,
			Height:        270,
			UpscaleWidth:  1920,
			UpscaleHeight: 1080,
		},
		Aberration: AberrationConfig{
			Enabled:   true,
			OffsetX:   0.003,
			OffsetY:   0.0,
			Radial:    false,
			Intensity: 1.0,
		},
		CRT: CRTConfig{
			Enabled:           true,
			Scanlines:         true,
			ScanlineIntensity: 0.3,
			ScanlineSpacing:   2.0,
			Curvature:         true,
			CurvatureAmount:   0.03,
			CornerDarkening:   0.3,
			Glow:              true,
			GlowIntensity:     0.4,
			GlowThreshold:     0.7,
			Noise:             true,
			NoiseIntensity:    0.05,
			Flicker:           true,
			FlickerIntensity:  0.03,
			FlickerSpeed:      12.0,
		},
		Grain: GrainConfig{
			Enabled:        true,
			Intensity:      0.05,
			TransitionRate: 0.5,
			Animated:       true,
		},
	}
}

// ResolutionConfigUpdate is a partial update; nil fields keep their current
// value.
type ResolutionConfigUpdate struct {
	Enabled       *bool
	Width         *int
	Height        *int
	UpscaleWidth  *int
	UpscaleHeight *int
}

// AberrationConfigUpdate is a partial update; nil fields keep their current
// value.
type AberrationConfigUpdate struct {
	Enabled   *bool
	OffsetX   *float32
	OffsetY   *float32
	Radial    *bool
	Intensity *float32
}

// CRTConfigUpdate is a partial update; nil fields keep their current value.
type CRTConfigUpdate struct {
	Enabled           *bool
	Scanlines         *bool
	ScanlineIntensity *float32
	ScanlineSpacing   *float32
	Curvature         *bool
	CurvatureAmount   *float32
	CornerDarkening   *float32
	Glow              *bool
	GlowIntensity     *float32
	GlowThreshold     *float32
	Noise             *bool
	NoiseIntensity    *float32
	Flicker           *bool
	FlickerIntensity  *float32
	FlickerSpeed      *float32
}

// GrainConfigUpdate is a partial update; nil fields keep their current value.
type GrainConfigUpdate struct {
	Enabled        *bool
	Intensity      *float32
	TransitionRate *float32
	Animated       *bool
}

// ConfigUpdate is a partial pipeline configuration; nil sections keep their
// current values.
type ConfigUpdate struct {
	Resolution *ResolutionConfigUpdate
	Aberration *AberrationConfigUpdate
	CRT        *CRTConfigUpdate
	Grain      *GrainConfigUpdate
}

// Merge applies the non-nil fields of update onto base and returns the
// result with every parameter clamped to its documented range. Neither input
// is modified.
//
// Parameters:
//   - base: the configuration to start from
//   - update: the partial update to apply
//
// Returns:
//   - EffectsConfig: the merged, normalized configuration
func Merge(base EffectsConfig, update ConfigUpdate) EffectsConfig {
	merged := base
	if u := update.Resolution; u != nil {
		setBool(&merged.Resolution.Enabled, u.Enabled)
		setInt(&merged.Resolution.Width, u.Width)
		setInt(&merged.Resolution.Height, u.Height)
		setInt(&merged.Resolution.UpscaleWidth, u.UpscaleWidth)
		setInt(&merged.Resolution.UpscaleHeight, u.UpscaleHeight)
	}
	if u := update.Aberration; u != nil {
		setBool(&merged.Aberration.Enabled, u.Enabled)
		setFloat(&merged.Aberration.OffsetX, u.OffsetX)
		setFloat(&merged.Aberration.OffsetY, u.OffsetY)
		setBool(&merged.Aberration.Radial, u.Radial)
		setFloat(&merged.Aberration.Intensity, u.Intensity)
	}
	if u := update.CRT; u != nil {
		setBool(&merged.CRT.Enabled, u.Enabled)
		setBool(&merged.CRT.Scanlines, u.Scanlines)
		setFloat(&merged.CRT.ScanlineIntensity, u.ScanlineIntensity)
		setFloat(&merged.CRT.ScanlineSpacing, u.ScanlineSpacing)
		setBool(&merged.CRT.Curvature, u.Curvature)
		setFloat(&merged.CRT.CurvatureAmount, u.CurvatureAmount)
		setFloat(&merged.CRT.CornerDarkening, u.CornerDarkening)
		setBool(&merged.CRT.Glow, u.Glow)
		setFloat(&merged.CRT.GlowIntensity, u.GlowIntensity)
		setFloat(&merged.CRT.GlowThreshold, u.GlowThreshold)
		setBool(&merged.CRT.Noise, u.Noise)
		setFloat(&merged.CRT.NoiseIntensity, u.NoiseIntensity)
		setBool(&merged.CRT.Flicker, u.Flicker)
		setFloat(&merged.CRT.FlickerIntensity, u.FlickerIntensity)
		setFloat(&merged.CRT.FlickerSpeed, u.FlickerSpeed)
	}
	if u := update.Grain; u != nil {
		setBool(&merged.Grain.Enabled, u.Enabled)
		setFloat(&merged.Grain.Intensity, u.Intensity)
		setFloat(&merged.Grain.TransitionRate, u.TransitionRate)
		setBool(&merged.Grain.Animated, u.Animated)
	}
	return Normalize(merged)
}

// Normalize clamps every parameter of cfg to its documented range.
//
// Parameters:
//   - cfg: the configuration to normalize
//
// Returns:
//   - EffectsConfig: the clamped configuration
func Normalize(cfg EffectsConfig) EffectsConfig {
	cfg.Resolution.Width = common.ClampInt(cfg.Resolution.Width, stage.MinLowResDimension, stage.MaxLowResDimension)
	cfg.Resolution.Height = common.ClampInt(cfg.Resolution.Height, stage.MinLowResDimension, stage.MaxLowResDimension)
	cfg.Resolution.UpscaleWidth = common.ClampInt(cfg.Resolution.UpscaleWidth, cfg.Resolution.Width, stage.MaxUpscaleDimension)
	cfg.Resolution.UpscaleHeight = common.ClampInt(cfg.Resolution.UpscaleHeight, cfg.Resolution.Height, stage.MaxUpscaleDimension)

	cfg.Aberration.OffsetX = common.Clamp32(cfg.Aberration.OffsetX, -0.05, 0.05)
	cfg.Aberration.OffsetY = common.Clamp32(cfg.Aberration.OffsetY, -0.05, 0.05)
	cfg.Aberration.Intensity = common.Clamp32(cfg.Aberration.Intensity, 0, 1)

	cfg.CRT.ScanlineIntensity = common.Clamp32(cfg.CRT.ScanlineIntensity, 0, 1)
	cfg.CRT.ScanlineSpacing = common.Clamp32(cfg.CRT.ScanlineSpacing, 1, 4)
	cfg.CRT.CurvatureAmount = common.Clamp32(cfg.CRT.CurvatureAmount, 0, 0.1)
	cfg.CRT.CornerDarkening = common.Clamp32(cfg.CRT.CornerDarkening, 0, 1)
	cfg.CRT.GlowIntensity = common.Clamp32(cfg.CRT.GlowIntensity, 0, 1)
	cfg.CRT.GlowThreshold = common.Clamp32(cfg.CRT.GlowThreshold, 0, 1)
	cfg.CRT.NoiseIntensity = common.Clamp32(cfg.CRT.NoiseIntensity, 0, 1)
	cfg.CRT.FlickerIntensity = common.Clamp32(cfg.CRT.FlickerIntensity, 0, 0.2)
	cfg.CRT.FlickerSpeed = common.Clamp32(cfg.CRT.FlickerSpeed, 1, 60)

	cfg.Grain.Intensity = common.Clamp32(cfg.Grain.Intensity, 0, 1)
	cfg.Grain.TransitionRate = common.Clamp32(cfg.Grain.TransitionRate, 0, 10)

	return cfg
}

// Validate reports the first out-of-range parameter in cfg, or nil when
// every parameter is within its documented range.
//
// Parameters:
//   - cfg: the configuration to check
//
// Returns:
//   - error: error describing the first violation, nil when valid
func Validate(cfg EffectsConfig) error {
	if cfg.Resolution.Width < stage.MinLowResDimension || cfg.Resolution.Width > stage.MaxLowResDimension {
		return fmt.Errorf("effects: resolution width %d outside [%d, %d]", cfg.Resolution.Width, stage.MinLowResDimension, stage.MaxLowResDimension)
	}
	if cfg.Resolution.Height < stage.MinLowResDimension || cfg.Resolution.Height > stage.MaxLowResDimension {
		return fmt.Errorf("effects: resolution height %d outside [%d, %d]", cfg.Resolution.Height, stage.MinLowResDimension, stage.MaxLowResDimension)
	}
	if cfg.Resolution.UpscaleWidth < cfg.Resolution.Width || cfg.Resolution.UpscaleWidth > stage.MaxUpscaleDimension {
		return fmt.Errorf("effects: upscale width %d outside [%d, %d]", cfg.Resolution.UpscaleWidth, cfg.Resolution.Width, stage.MaxUpscaleDimension)
	}
	if cfg.Resolution.UpscaleHeight < cfg.Resolution.Height || cfg.Resolution.UpscaleHeight > stage.MaxUpscaleDimension {
		return fmt.Errorf("effects: upscale height %d outside [%d, %d]", cfg.Resolution.UpscaleHeight, cfg.Resolution.Height, stage.MaxUpscaleDimension)
	}
	if cfg.Aberration.OffsetX < -0.05 || cfg.Aberration.OffsetX > 0.05 {
		return fmt.Errorf("effects: aberration offset x %v outside [-0.05, 0.05]", cfg.Aberration.OffsetX)
	}
	if cfg.Aberration.OffsetY < -0.05 || cfg.Aberration.OffsetY > 0.05 {
		return fmt.Errorf("effects: aberration offset y %v outside [-0.05, 0.05]", cfg.Aberration.OffsetY)
	}
	if cfg.Aberration.Intensity < 0 || cfg.Aberration.Intensity > 1 {
		return fmt.Errorf("effects: aberration intensity %v outside [0, 1]", cfg.Aberration.Intensity)
	}
	if cfg.CRT.ScanlineSpacing < 1 || cfg.CRT.ScanlineSpacing > 4 {
		return fmt.Errorf("effects: scanline spacing %v outside [1, 4]", cfg.CRT.ScanlineSpacing)
	}
	if cfg.CRT.CurvatureAmount < 0 || cfg.CRT.CurvatureAmount > 0.1 {
		return fmt.Errorf("effects: curvature amount %v outside [0, 0.1]", cfg.CRT.CurvatureAmount)
	}
	if cfg.Grain.Intensity < 0 || cfg.Grain.Intensity > 1 {
		return fmt.Errorf("effects: grain intensity %v outside [0, 1]", cfg.Grain.Intensity)
	}
	if cfg.Grain.TransitionRate < 0 || cfg.Grain.TransitionRate > 10 {
		return fmt.Errorf("effects: grain transition rate %v outside [0, 10]", cfg.Grain.TransitionRate)
	}
	return nil
}

// ConfigDiff classifies the changes between two configurations. Structural
// changes need surfaces or the active stage list rebuilt; parameter changes
// only need values pushed into the stages.
type ConfigDiff struct {
	ResolutionToggled bool
	ResolutionResized bool
	FiltersToggled    bool
	ParametersChanged bool
}

// Structural reports whether the diff contains any change that cannot be
// applied by updating stage parameters alone.
//
// Returns:
//   - bool: true when surfaces or the stage list must be rebuilt
func (d ConfigDiff) Structural() bool {
	return d.ResolutionToggled || d.ResolutionResized || d.FiltersToggled
}

// Empty reports whether the two configurations were identical.
//
// Returns:
//   - bool: true when nothing changed
func (d ConfigDiff) Empty() bool {
	return !d.Structural() && !d.ParametersChanged
}

// Diff compares two configurations and classifies what changed.
//
// Parameters:
//   - old: the configuration before the change
//   - new: the configuration after the change
//
// Returns:
//   - ConfigDiff: the classified changes
func Diff(old, new EffectsConfig) ConfigDiff {
	var d ConfigDiff
	d.ResolutionToggled = old.Resolution.Enabled != new.Resolution.Enabled
	d.ResolutionResized = old.Resolution.Width != new.Resolution.Width ||
		old.Resolution.Height != new.Resolution.Height ||
		old.Resolution.UpscaleWidth != new.Resolution.UpscaleWidth ||
		old.Resolution.UpscaleHeight != new.Resolution.UpscaleHeight
	d.FiltersToggled = old.Aberration.Enabled != new.Aberration.Enabled ||
		old.CRT.Enabled != new.CRT.Enabled ||
		old.Grain.Enabled != new.Grain.Enabled
	d.ParametersChanged = parametersDiffer(old, new)
	return d
}

// parametersDiffer ignores the toggle and size fields and compares only the
// remaining parameters.
func parametersDiffer(old, new EffectsConfig) bool {
	old.Resolution = new.Resolution
	old.Aberration.Enabled = new.Aberration.Enabled
	old.CRT.Enabled = new.CRT.Enabled
	old.Grain.Enabled = new.Grain.Enabled
	return old != new
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float32, src *float32) {
	if src != nil {
		*dst = *src
	}
}
