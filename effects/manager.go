package effects

import (
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/effects/capability"
	"github.com/Carmen-Shannon/oxy-postfx/effects/monitor"
	"github.com/Carmen-Shannon/oxy-postfx/effects/recovery"
	"github.com/Carmen-Shannon/oxy-postfx/effects/stage"
	"github.com/Carmen-Shannon/oxy-postfx/game_object"
	"github.com/Carmen-Shannon/oxy-postfx/render"
	"github.com/Carmen-Shannon/oxy-postfx/scene"
)

// Manager owns the full post-processing pipeline: the scene, the low
// resolution stage, the filter chain, the performance monitor, and the error
// handler. All rendering methods must be driven from a single render
// goroutine; configuration and query methods are safe from any goroutine.
type Manager interface {
	// Init compiles the filter programs, creates the intermediate surfaces,
	// and pushes the current configuration into every stage. Must be called
	// once before the first Render.
	//
	// Returns:
	//   - error: an error if any stage or surface could not be initialized
	Init() error

	// Render draws one frame: the scene through the low resolution stage
	// (or directly at full resolution), then the enabled filters in a fixed
	// order through the intermediate surfaces, the last one targeting the
	// display, and presents. A failing filter is skipped with a passthrough
	// copy so the chain always completes. While the device is lost Render is
	// a no-op.
	//
	// Returns:
	//   - error: an error if the frame could not be produced at all
	Render() error

	// UpdateTime advances time-dependent stage state and the scene's
	// animators.
	//
	// Parameters:
	//   - deltaTime: seconds since the previous update
	UpdateTime(deltaTime float32)

	// Config returns the current pipeline configuration.
	//
	// Returns:
	//   - EffectsConfig: a copy of the active configuration
	Config() EffectsConfig

	// UpdateConfig merges a partial update into the active configuration and
	// pushes the result into the stages. If applying fails the previous
	// configuration is restored.
	//
	// Parameters:
	//   - update: the partial configuration to apply
	//
	// Returns:
	//   - error: an error if the update could not be applied
	UpdateConfig(update ConfigUpdate) error

	// ToggleEffect enables or disables a single stage by name.
	//
	// Parameters:
	//   - name: one of the stage name constants
	//   - enabled: the new state
	//
	// Returns:
	//   - error: an error if the name matches no stage
	ToggleEffect(name string, enabled bool) error

	// Scene returns the scene whose objects the pipeline renders.
	//
	// Returns:
	//   - scene.Scene: the pipeline's scene
	Scene() scene.Scene

	// AddGameObject adds an object to the pipeline's scene.
	//
	// Parameters:
	//   - obj: the object to add
	//
	// Returns:
	//   - uint64: the ID assigned to the object
	AddGameObject(obj game_object.GameObject) uint64

	// RemoveGameObject removes an object from the pipeline's scene.
	//
	// Parameters:
	//   - id: the object's ID
	//
	// Returns:
	//   - bool: true if an object with that ID was removed
	RemoveGameObject(id uint64) bool

	// HandleResize reconfigures the display and recreates the intermediate
	// surfaces for a new window size.
	//
	// Parameters:
	//   - width: the new display width in pixels
	//   - height: the new display height in pixels
	HandleResize(width, height int)

	// PerformanceMetrics returns the monitor's current metrics snapshot.
	//
	// Returns:
	//   - monitor.Metrics: the snapshot
	PerformanceMetrics() monitor.Metrics

	// PerformanceSummary returns a one-line human-readable metrics summary.
	//
	// Returns:
	//   - string: the summary
	PerformanceSummary() string

	// QualityLevel returns the current quality level index, 0 being lowest.
	//
	// Returns:
	//   - int: the level index
	QualityLevel() int

	// SetQualityLevel manually selects a quality preset and applies it.
	//
	// Parameters:
	//   - level: the preset index, clamped to the valid range
	SetQualityLevel(level int)

	// OnQualityChange registers a listener invoked after a quality preset
	// has been applied, whether adaptively or manually.
	//
	// Parameters:
	//   - fn: the listener, receiving the level index and the preset
	OnQualityChange(fn func(level int, preset QualityPreset))

	// HealthStatus returns the error handler's derived subsystem health.
	//
	// Returns:
	//   - recovery.Health: the current health
	HealthStatus() recovery.Health

	// ErrorHistory returns a copy of the recorded fault history.
	//
	// Returns:
	//   - []recovery.ErrorReport: the recorded faults, oldest first
	ErrorHistory() []recovery.ErrorReport

	// HandleMemoryPressure asks the error handler to release reclaimable
	// memory.
	//
	// Returns:
	//   - bool: true, cleanup was attempted
	HandleMemoryPressure() bool

	// NotifyDeviceLost informs the pipeline that the GPU context is gone.
	// Rendering becomes a no-op until NotifyDeviceRestored.
	//
	// Parameters:
	//   - reason: a description of the loss
	NotifyDeviceLost(reason string)

	// NotifyDeviceRestored informs the pipeline that the GPU context is back
	// and triggers a full reinitialization of programs and surfaces.
	NotifyDeviceRestored()

	// Capabilities returns the device capability snapshot taken at creation.
	//
	// Returns:
	//   - capability.Probe: the snapshot
	Capabilities() capability.Probe

	// Dispose releases every stage, surface, and timer. Safe to call
	// multiple times.
	Dispose()
}

type manager struct {
	mu sync.Mutex

	device   render.Device
	viewport common.Viewport

	handler recovery.Handler
	probe   capability.Probe
	perf    monitor.PerformanceMonitor

	resolution stage.ResolutionStage
	aberration stage.AberrationStage
	crt        stage.CRTStage
	grain      stage.GrainStage

	pingA, pingB render.Surface

	config   EffectsConfig
	presets  []QualityPreset
	adaptive bool

	qualityListeners []func(level int, preset QualityPreset)

	initialized bool
	disposed    bool
}

var _ Manager = &manager{}

// NewManager creates the post-processing pipeline for the given device and
// viewport. Effects whose complexity exceeds the host's capabilities are
// disabled up front. Panics if the device is nil or the viewport invalid.
//
// Parameters:
//   - device: the render device (must not be nil)
//   - viewport: the display size in pixels (must be positive)
//   - options: functional options to configure the manager
//
// Returns:
//   - Manager: the newly created manager
func NewManager(device render.Device, viewport common.Viewport, options ...ManagerBuilderOption) Manager {
	if device == nil {
		panic("effects: NewManager requires a non-nil Device")
	}
	if viewport.Width <= 0 || viewport.Height <= 0 {
		panic(fmt.Sprintf("effects: NewManager requires a positive viewport, got %dx%d", viewport.Width, viewport.Height))
	}

	m := &manager{
		device:   device,
		viewport: viewport,
		config:   DefaultEffectsConfig(),
		adaptive: true,
	}
	for _, option := range options {
		option(m)
	}

	if m.handler == nil {
		m.handler = recovery.NewHandler(device)
	}
	if m.probe == nil {
		m.probe = capability.NewProbe(device)
	}
	if len(m.presets) == 0 {
		m.presets = DefaultQualityPresets()
	}
	log.Printf("[PostFX] %s", m.probe.Summary())

	// Gate effects the host cannot afford before any shader is compiled.
	if !m.probe.ShouldEnableEffect(stage.NameCRT, capability.ComplexityHigh) {
		m.config.CRT.Enabled = false
	}
	if !m.probe.ShouldEnableEffect(stage.NameAberration, capability.ComplexityMedium) {
		m.config.Aberration.Enabled = false
	}
	m.config = Normalize(m.config)

	if m.perf == nil {
		m.perf = monitor.NewPerformanceMonitor(len(m.presets))
	}

	m.resolution = stage.NewResolutionStage(device, viewport,
		stage.WithResolutionEnabled(m.config.Resolution.Enabled),
		stage.WithResolutionSize(m.config.Resolution.Width, m.config.Resolution.Height),
		stage.WithUpscaleSize(m.config.Resolution.UpscaleWidth, m.config.Resolution.UpscaleHeight),
		stage.WithSurfaceRecovery(m.handler.RecoverSurface),
	)
	m.aberration = stage.NewAberrationStage(device, stage.WithAberrationRecovery(m.handler.RecoverShader))
	m.crt = stage.NewCRTStage(device, stage.WithCRTRecovery(m.handler.RecoverShader))
	m.grain = stage.NewGrainStage(device, stage.WithGrainRecovery(m.handler.RecoverShader))

	if m.adaptive {
		m.perf.OnQualityChange(func(level int) {
			m.applyPreset(level)
		})
	}
	m.handler.OnDeviceRestored(func() {
		if err := m.reinit(); err != nil {
			log.Printf("[PostFX] reinitialization after device restore failed: %v", err)
		}
	})

	return m
}

func (m *manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return fmt.Errorf("effects: manager is disposed")
	}

	if err := m.applyConfigLocked(m.config); err != nil {
		return fmt.Errorf("effects: initial configuration rejected: %w", err)
	}

	m.device.ConfigureDisplay(m.viewport.Width, m.viewport.Height)
	if err := m.resolution.Init(); err != nil {
		return err
	}
	for _, st := range []stage.Stage{m.aberration, m.crt, m.grain} {
		if err := st.Init(); err != nil {
			return err
		}
	}
	if err := m.createIntermediatesLocked(); err != nil {
		return err
	}
	m.initialized = true
	return nil
}

// createIntermediatesLocked replaces both full-resolution intermediate
// surfaces. Caller must hold m.mu.
func (m *manager) createIntermediatesLocked() error {
	m.releaseIntermediatesLocked()

	for i, label := range []string{"PostFX Intermediate A", "PostFX Intermediate B"} {
		opts := render.SurfaceOptions{
			Label:    label,
			Width:    m.viewport.Width,
			Height:   m.viewport.Height,
			Format:   render.FormatRGBA8Unorm,
			Sampling: render.FilterLinear,
		}
		surface, err := m.device.CreateSurface(opts)
		if err != nil {
			surface, err = m.handler.RecoverSurface(opts)
			if err != nil {
				return fmt.Errorf("effects: failed to create intermediate surface %q: %w", label, err)
			}
		}
		if i == 0 {
			m.pingA = surface
		} else {
			m.pingB = surface
		}
	}
	return nil
}

// releaseIntermediatesLocked frees both intermediate surfaces. Caller must
// hold m.mu.
func (m *manager) releaseIntermediatesLocked() {
	if m.pingA != nil {
		m.pingA.Release()
		m.pingA = nil
	}
	if m.pingB != nil {
		m.pingB.Release()
		m.pingB = nil
	}
}

func (m *manager) Render() error {
	if m.handler.DeviceLost() {
		return nil
	}

	m.perf.StartFrame()
	err := m.renderFrame()
	m.perf.EndFrame()
	if err != nil {
		return err
	}

	if presentErr := m.device.Present(); presentErr != nil {
		m.handler.ReportError(recovery.CategoryDeviceContext, recovery.SeverityHigh,
			fmt.Sprintf("present failed: %v", presentErr), false, "")
		return fmt.Errorf("effects: present failed: %w", presentErr)
	}
	return nil
}

func (m *manager) renderFrame() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return fmt.Errorf("effects: manager is disposed")
	}
	if !m.initialized {
		return fmt.Errorf("effects: manager not initialized")
	}

	var source render.Texture
	sourceIsPingA := false
	if m.resolution.Enabled() {
		m.perf.StartEffectTiming(stage.NameResolution)
		tex, err := m.resolution.Render()
		m.perf.EndEffectTiming(stage.NameResolution)
		if err != nil {
			m.handler.ReportError(recovery.CategoryRenderTarget, recovery.SeverityHigh,
				fmt.Sprintf("low-res render failed, drawing at full resolution: %v", err), true, "direct_full_res")
			log.Printf("[PostFX] low-res render failed, drawing at full resolution: %v", err)
			if rasterErr := m.resolution.Scene().Rasterize(m.pingA); rasterErr != nil {
				return m.lastResortLocked(fmt.Errorf("effects: full-resolution fallback failed: %w", rasterErr))
			}
			source = m.pingA.Texture()
			sourceIsPingA = true
		} else {
			source = tex
		}
	} else {
		if err := m.resolution.Scene().Rasterize(m.pingA); err != nil {
			return m.lastResortLocked(fmt.Errorf("effects: scene rasterization failed: %w", err))
		}
		source = m.pingA.Texture()
		sourceIsPingA = true
	}

	display := m.device.DisplaySurface()
	active := m.activeFiltersLocked()
	if len(active) == 0 {
		if err := m.device.Blit(source, display, render.FilterNearest); err != nil {
			return m.lastResortLocked(fmt.Errorf("effects: display blit failed: %w", err))
		}
		return nil
	}

	intermediates := [2]render.Surface{m.pingA, m.pingB}
	next := 0
	if sourceIsPingA {
		next = 1
	}
	current := source
	for i, st := range active {
		var target render.Surface
		if i == len(active)-1 {
			target = display
		} else {
			target = intermediates[next]
			next = 1 - next
		}

		m.perf.StartEffectTiming(st.Name())
		out, err := st.Apply(current, target)
		m.perf.EndEffectTiming(st.Name())
		if err != nil {
			m.handler.ReportError(recovery.CategoryFilterApplication, recovery.SeverityMedium,
				fmt.Sprintf("%s apply failed, passing through: %v", st.Name(), err), true, "passthrough")
			log.Printf("[PostFX] %s apply failed, passing through: %v", st.Name(), err)
			if blitErr := m.device.Blit(current, target, render.FilterNearest); blitErr != nil {
				return m.lastResortLocked(fmt.Errorf("effects: %s passthrough copy failed: %w", st.Name(), blitErr))
			}
			out = target
		}
		if i < len(active)-1 {
			current = out.Texture()
		}
	}
	return nil
}

// lastResortLocked draws the scene straight to the display so the frame is
// not lost entirely, then returns the original error. Caller must hold m.mu.
func (m *manager) lastResortLocked(err error) error {
	if drawErr := m.resolution.Scene().Rasterize(m.device.DisplaySurface()); drawErr != nil {
		m.handler.ReportError(recovery.CategoryUnknown, recovery.SeverityCritical,
			fmt.Sprintf("direct display draw failed: %v", drawErr), false, "")
	}
	return err
}

// activeFiltersLocked returns the enabled filters in their fixed chain
// order. Caller must hold m.mu.
func (m *manager) activeFiltersLocked() []stage.Stage {
	var active []stage.Stage
	for _, st := range []stage.Stage{m.aberration, m.crt, m.grain} {
		if st.Enabled() {
			active = append(active, st)
		}
	}
	return active
}

func (m *manager) UpdateTime(deltaTime float32) {
	m.resolution.Update(deltaTime)
	m.aberration.Update(deltaTime)
	m.crt.Update(deltaTime)
	m.grain.Update(deltaTime)
}

func (m *manager) Config() EffectsConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

func (m *manager) UpdateConfig(update ConfigUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.config
	merged := Merge(old, update)
	if Diff(old, merged).Empty() {
		return nil
	}

	if err := m.applyConfigLocked(merged); err != nil {
		if rollbackErr := m.applyConfigLocked(old); rollbackErr != nil {
			log.Printf("[PostFX] configuration rollback failed: %v", rollbackErr)
		}
		m.handler.ReportError(recovery.CategoryUnknown, recovery.SeverityMedium,
			fmt.Sprintf("configuration update rejected: %v", err), true, "rollback")
		return fmt.Errorf("effects: configuration update rejected: %w", err)
	}
	m.config = merged
	return nil
}

// applyConfigLocked pushes every value of cfg into the stages. Caller must
// hold m.mu.
func (m *manager) applyConfigLocked(cfg EffectsConfig) error {
	m.resolution.SetEnabled(cfg.Resolution.Enabled)
	if err := m.resolution.UpdateResolution(stage.ResolutionUpdate{
		Width:         &cfg.Resolution.Width,
		Height:        &cfg.Resolution.Height,
		UpscaleWidth:  &cfg.Resolution.UpscaleWidth,
		UpscaleHeight: &cfg.Resolution.UpscaleHeight,
	}); err != nil {
		return err
	}

	m.aberration.SetEnabled(cfg.Aberration.Enabled)
	if err := m.aberration.SetOffset(cfg.Aberration.OffsetX, cfg.Aberration.OffsetY); err != nil {
		return err
	}
	if err := m.aberration.SetIntensity(cfg.Aberration.Intensity); err != nil {
		return err
	}
	m.aberration.SetRadial(cfg.Aberration.Radial)

	m.crt.SetEnabled(cfg.CRT.Enabled)
	m.crt.SetScanlinesEnabled(cfg.CRT.Scanlines)
	m.crt.SetCurvatureEnabled(cfg.CRT.Curvature)
	m.crt.SetGlowEnabled(cfg.CRT.Glow)
	m.crt.SetNoiseEnabled(cfg.CRT.Noise)
	m.crt.SetFlickerEnabled(cfg.CRT.Flicker)
	for _, set := range []func() error{
		func() error { return m.crt.SetScanlineIntensity(cfg.CRT.ScanlineIntensity) },
		func() error { return m.crt.SetScanlineSpacing(cfg.CRT.ScanlineSpacing) },
		func() error { return m.crt.SetCurvatureAmount(cfg.CRT.CurvatureAmount) },
		func() error { return m.crt.SetCornerDarkening(cfg.CRT.CornerDarkening) },
		func() error { return m.crt.SetGlowIntensity(cfg.CRT.GlowIntensity) },
		func() error { return m.crt.SetGlowThreshold(cfg.CRT.GlowThreshold) },
		func() error { return m.crt.SetNoiseIntensity(cfg.CRT.NoiseIntensity) },
		func() error { return m.crt.SetFlickerIntensity(cfg.CRT.FlickerIntensity) },
		func() error { return m.crt.SetFlickerSpeed(cfg.CRT.FlickerSpeed) },
	} {
		if err := set(); err != nil {
			return err
		}
	}

	m.grain.SetEnabled(cfg.Grain.Enabled)
	if err := m.grain.SetIntensity(cfg.Grain.Intensity); err != nil {
		return err
	}
	if err := m.grain.SetTransitionRate(cfg.Grain.TransitionRate); err != nil {
		return err
	}
	m.grain.SetAnimated(cfg.Grain.Animated)

	return nil
}

func (m *manager) ToggleEffect(name string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch name {
	case stage.NameResolution:
		m.config.Resolution.Enabled = enabled
		m.resolution.SetEnabled(enabled)
	case stage.NameAberration:
		m.config.Aberration.Enabled = enabled
		m.aberration.SetEnabled(enabled)
	case stage.NameCRT:
		m.config.CRT.Enabled = enabled
		m.crt.SetEnabled(enabled)
	case stage.NameGrain:
		m.config.Grain.Enabled = enabled
		m.grain.SetEnabled(enabled)
	default:
		return fmt.Errorf("effects: unknown effect %q", name)
	}
	return nil
}

func (m *manager) Scene() scene.Scene {
	return m.resolution.Scene()
}

func (m *manager) AddGameObject(obj game_object.GameObject) uint64 {
	return m.resolution.Scene().Add(obj)
}

func (m *manager) RemoveGameObject(id uint64) bool {
	return m.resolution.Scene().Remove(id)
}

func (m *manager) HandleResize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return
	}

	m.viewport = common.Viewport{Width: width, Height: height}
	m.device.ConfigureDisplay(width, height)
	if err := m.createIntermediatesLocked(); err != nil {
		log.Printf("[PostFX] intermediate surface recreation failed after resize: %v", err)
	}
	m.resolution.HandleResize(m.viewport)

	upscaleWidth := common.ClampInt(width, m.config.Resolution.Width, stage.MaxUpscaleDimension)
	upscaleHeight := common.ClampInt(height, m.config.Resolution.Height, stage.MaxUpscaleDimension)
	if err := m.resolution.UpdateResolution(stage.ResolutionUpdate{
		UpscaleWidth:  &upscaleWidth,
		UpscaleHeight: &upscaleHeight,
	}); err != nil {
		log.Printf("[PostFX] upscale size update failed after resize: %v", err)
		return
	}
	m.config.Resolution.UpscaleWidth = upscaleWidth
	m.config.Resolution.UpscaleHeight = upscaleHeight
}

func (m *manager) PerformanceMetrics() monitor.Metrics {
	return m.perf.Metrics()
}

func (m *manager) PerformanceSummary() string {
	return m.perf.Summary()
}

func (m *manager) QualityLevel() int {
	return m.perf.QualityLevel()
}

func (m *manager) SetQualityLevel(level int) {
	m.perf.SetQualityLevel(level)
	if !m.adaptive {
		m.applyPreset(m.perf.QualityLevel())
	}
}

// applyPreset replaces the active configuration with the preset at the
// given level and notifies the quality listeners.
func (m *manager) applyPreset(level int) {
	m.mu.Lock()
	if m.disposed || level < 0 || level >= len(m.presets) {
		m.mu.Unlock()
		return
	}
	preset := m.presets[level]
	if err := m.applyConfigLocked(preset.Config); err != nil {
		m.mu.Unlock()
		log.Printf("[PostFX] quality preset %q rejected: %v", preset.Name, err)
		return
	}
	m.config = preset.Config
	listeners := make([]func(level int, preset QualityPreset), len(m.qualityListeners))
	copy(listeners, m.qualityListeners)
	m.mu.Unlock()

	log.Printf("[PostFX] quality preset %q applied (level %d)", preset.Name, level)
	for _, fn := range listeners {
		fn(level, preset)
	}
}

func (m *manager) OnQualityChange(fn func(level int, preset QualityPreset)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.qualityListeners = append(m.qualityListeners, fn)
}

func (m *manager) HealthStatus() recovery.Health {
	return m.handler.HealthStatus()
}

func (m *manager) ErrorHistory() []recovery.ErrorReport {
	return m.handler.History()
}

func (m *manager) HandleMemoryPressure() bool {
	return m.handler.HandleMemoryPressure()
}

func (m *manager) NotifyDeviceLost(reason string) {
	m.handler.NotifyDeviceLost(reason)
}

func (m *manager) NotifyDeviceRestored() {
	m.handler.NotifyDeviceRestored()
}

// reinit rebuilds every program and surface after a device restore.
func (m *manager) reinit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return nil
	}

	m.device.ConfigureDisplay(m.viewport.Width, m.viewport.Height)
	if err := m.resolution.Init(); err != nil {
		return err
	}
	for _, st := range []stage.Stage{m.aberration, m.crt, m.grain} {
		if err := st.Init(); err != nil {
			return err
		}
	}
	if err := m.createIntermediatesLocked(); err != nil {
		return err
	}
	return m.applyConfigLocked(m.config)
}

func (m *manager) Capabilities() capability.Probe {
	return m.probe
}

func (m *manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return
	}
	m.disposed = true

	m.aberration.Dispose()
	m.crt.Dispose()
	m.grain.Dispose()
	m.resolution.Dispose()
	m.releaseIntermediatesLocked()
	m.handler.Dispose()
}
