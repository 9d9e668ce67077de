// Package recovery implements the pipeline's fault tolerance: a two-state
// Active/Lost device machine with plain listener lists, bounded-retry
// fallback strategies for shader, surface, and memory failures, and a
// bounded error history feeding the health status.
package recovery

import (
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-postfx/effects/stage"
	"github.com/Carmen-Shannon/oxy-postfx/render"
)

// DeviceState is the handler's view of the GPU device.
type DeviceState int

const (
	DeviceActive DeviceState = iota
	DeviceLost
)

const (
	historyLimit = 100
	recentWindow = 10

	// Bounded retries per named shader and per requested surface size.
	maxShaderAttempts  = 3
	maxSurfaceAttempts = 3

	// Fixed delay for scheduled recovery retries; never a blocking sleep.
	retryDelay = 500 * time.Millisecond
)

// Minimum dimension the surface-halving strategy will go down to.
const minSurfaceDimension = 256

// Handler is the pipeline's error handler.
type Handler interface {
	// State returns the current device state.
	State() DeviceState

	// DeviceLost reports whether the device is currently lost.
	DeviceLost() bool

	// NotifyDeviceLost transitions to the Lost state, records a critical
	// error, and invokes the loss listeners. Redundant notifications while
	// already lost are ignored.
	//
	// Parameters:
	//   - reason: a description of the loss, recorded in the history
	NotifyDeviceLost(reason string)

	// NotifyDeviceRestored transitions back to the Active state and invokes
	// the restore listeners. Ignored when the device is not lost.
	NotifyDeviceRestored()

	// OnDeviceLost registers a listener invoked on every loss transition.
	//
	// Parameters:
	//   - fn: the listener
	OnDeviceLost(fn func())

	// OnDeviceRestored registers a listener invoked on every restore
	// transition.
	//
	// Parameters:
	//   - fn: the listener
	OnDeviceRestored(fn func())

	// RecoverShader attempts to produce a working substitute for a filter
	// program whose compilation failed, with bounded retries per key.
	// Strategy 1 strips known-expensive constructs from the source and
	// verifies the result by compiling and rendering to a throwaway 1x1
	// surface; strategy 2 substitutes a minimal passthrough program.
	//
	// Parameters:
	//   - key: the program's cache key
	//   - source: the original shader source
	//
	// Returns:
	//   - render.FilterProgram: the substitute program
	//   - error: error when all strategies are exhausted
	RecoverShader(key, source string) (render.FilterProgram, error)

	// RecoverSurface attempts to produce a substitute for a surface whose
	// creation failed, with bounded retries per requested size. Strategy 1
	// halves both dimensions (floor, minimum 256) with a safer pixel format;
	// strategy 2 falls back to a fixed 256x256 safe-format surface.
	//
	// Parameters:
	//   - opts: the failed surface request
	//
	// Returns:
	//   - render.Surface: the substitute surface
	//   - error: error when all strategies are exhausted
	RecoverSurface(opts render.SurfaceOptions) (render.Surface, error)

	// HandleMemoryPressure purges the device's caches and hints the runtime
	// to return memory to the OS. Always reports that cleanup was attempted;
	// its effectiveness is unobservable.
	//
	// Returns:
	//   - bool: true, cleanup was attempted
	HandleMemoryPressure() bool

	// ReportError records an externally detected fault into the history.
	//
	// Parameters:
	//   - category: the fault category
	//   - severity: the fault severity
	//   - message: a description of the fault
	//   - recovered: whether the caller recovered from it
	//   - strategy: the recovery strategy used, empty if none
	ReportError(category Category, severity Severity, message string, recovered bool, strategy string)

	// History returns a copy of the bounded error history, oldest first.
	//
	// Returns:
	//   - []ErrorReport: the recorded faults
	History() []ErrorReport

	// Recent returns a copy of the most recent faults, oldest first.
	//
	// Returns:
	//   - []ErrorReport: up to the last 10 recorded faults
	Recent() []ErrorReport

	// HealthStatus derives the subsystem health from the history: critical
	// when an unrecovered critical fault is in the recent window, warning
	// when more than 2 unrecovered high-severity faults exist or the device
	// is lost, healthy otherwise.
	//
	// Returns:
	//   - Health: the derived status
	HealthStatus() Health

	// ScheduleRetry runs fn once after the fixed recovery delay.
	//
	// Parameters:
	//   - fn: the retry to run
	ScheduleRetry(fn func())

	// ClearHistory drops all recorded faults and retry counters.
	ClearHistory()

	// Dispose cancels pending scheduled retries. Idempotent.
	Dispose()
}

type handler struct {
	mu sync.Mutex

	device render.Device

	state             DeviceState
	lostListeners     []func()
	restoredListeners []func()

	history         []ErrorReport
	shaderAttempts  map[string]int
	surfaceAttempts map[string]int

	timers   []*time.Timer
	disposed bool

	// clock is swapped in tests for deterministic report timestamps.
	clock func() time.Time
}

var _ Handler = &handler{}

// NewHandler creates an error handler operating on the given Device. Panics
// if the device is nil.
//
// Parameters:
//   - device: the render device (must not be nil)
//   - options: functional options to configure the handler
//
// Returns:
//   - Handler: the newly created handler
func NewHandler(device render.Device, options ...HandlerBuilderOption) Handler {
	if device == nil {
		panic("recovery: NewHandler requires a non-nil Device")
	}
	h := &handler{
		device:          device,
		shaderAttempts:  make(map[string]int),
		surfaceAttempts: make(map[string]int),
		clock:           time.Now,
	}
	for _, option := range options {
		option(h)
	}
	return h
}

func (h *handler) State() DeviceState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *handler) DeviceLost() bool {
	return h.State() == DeviceLost
}

func (h *handler) NotifyDeviceLost(reason string) {
	h.mu.Lock()
	if h.state == DeviceLost {
		h.mu.Unlock()
		return
	}
	h.state = DeviceLost
	h.recordLocked(CategoryDeviceContext, SeverityCritical, fmt.Sprintf("device lost: %s", reason), false, "")
	listeners := make([]func(), len(h.lostListeners))
	copy(listeners, h.lostListeners)
	h.mu.Unlock()

	log.Printf("[Recovery] device lost: %s", reason)
	for _, fn := range listeners {
		fn()
	}
}

func (h *handler) NotifyDeviceRestored() {
	h.mu.Lock()
	if h.state != DeviceLost {
		h.mu.Unlock()
		return
	}
	h.state = DeviceActive
	h.recordLocked(CategoryDeviceContext, SeverityLow, "device restored", true, "reinitialize")
	listeners := make([]func(), len(h.restoredListeners))
	copy(listeners, h.restoredListeners)
	h.mu.Unlock()

	log.Printf("[Recovery] device restored")
	for _, fn := range listeners {
		fn()
	}
}

func (h *handler) OnDeviceLost(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lostListeners = append(h.lostListeners, fn)
}

func (h *handler) OnDeviceRestored(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.restoredListeners = append(h.restoredListeners, fn)
}

func (h *handler) RecoverShader(key, source string) (render.FilterProgram, error) {
	h.mu.Lock()
	h.shaderAttempts[key]++
	attempts := h.shaderAttempts[key]
	h.mu.Unlock()

	if attempts > maxShaderAttempts {
		err := fmt.Errorf("recovery: shader %q exceeded %d recovery attempts", key, maxShaderAttempts)
		h.record(CategoryShaderCompilation, SeverityHigh, err.Error(), false, "")
		return nil, err
	}

	// Strategy 1: strip expensive constructs and verify with a 1x1 render.
	if stripped := stripExpensiveConstructs(source); stripped != source {
		program, err := h.device.CompileFilter(key+"#stripped", stripped)
		if err == nil {
			if verifyErr := h.verifyProgram(program); verifyErr == nil {
				h.record(CategoryShaderCompilation, SeverityHigh,
					fmt.Sprintf("shader %q recovered with stripped source", key), true, "strip_expensive")
				log.Printf("[Recovery] shader %q recovered with stripped source", key)
				return program, nil
			}
			program.Release()
		}
	}

	// Strategy 2: minimal passthrough substitute.
	program, err := h.device.CompileFilter(key+".passthrough", stage.PassthroughSource())
	if err == nil {
		h.record(CategoryShaderCompilation, SeverityHigh,
			fmt.Sprintf("shader %q replaced with passthrough", key), true, "passthrough")
		log.Printf("[Recovery] shader %q replaced with passthrough", key)
		return program, nil
	}

	err = fmt.Errorf("recovery: all strategies failed for shader %q: %w", key, err)
	h.record(CategoryShaderCompilation, SeverityHigh, err.Error(), false, "")
	return nil, err
}

// verifyProgram compiles nothing further; it renders through the program into
// a throwaway 1x1 surface to prove the driver accepts it end to end.
func (h *handler) verifyProgram(program render.FilterProgram) error {
	probeOpts := render.SurfaceOptions{
		Label:  "Recovery Probe",
		Width:  1,
		Height: 1,
		Format: render.FormatRGBA8Unorm,
	}
	input, err := h.device.CreateSurface(probeOpts)
	if err != nil {
		return err
	}
	defer input.Release()
	target, err := h.device.CreateSurface(probeOpts)
	if err != nil {
		return err
	}
	defer target.Release()

	return h.device.ApplyFilter(program, input.Texture(), nil, target)
}

func (h *handler) RecoverSurface(opts render.SurfaceOptions) (render.Surface, error) {
	sizeKey := fmt.Sprintf("%dx%d", opts.Width, opts.Height)
	h.mu.Lock()
	h.surfaceAttempts[sizeKey]++
	attempts := h.surfaceAttempts[sizeKey]
	h.mu.Unlock()

	if attempts > maxSurfaceAttempts {
		err := fmt.Errorf("recovery: surface %s exceeded %d recovery attempts", sizeKey, maxSurfaceAttempts)
		h.record(CategoryRenderTarget, SeverityHigh, err.Error(), false, "")
		return nil, err
	}

	// Strategy 1: halve both dimensions with a safer format.
	halved := opts
	halved.Width = max(opts.Width/2, minSurfaceDimension)
	halved.Height = max(opts.Height/2, minSurfaceDimension)
	halved.Format = render.FormatRGBA8Unorm
	if surface, err := h.device.CreateSurface(halved); err == nil {
		h.record(CategoryRenderTarget, SeverityHigh,
			fmt.Sprintf("surface %s recovered at %dx%d", sizeKey, halved.Width, halved.Height), true, "halve_dimensions")
		log.Printf("[Recovery] surface %s recovered at %dx%d", sizeKey, halved.Width, halved.Height)
		return surface, nil
	}

	// Strategy 2: fixed minimal safe-format surface.
	minimal := render.SurfaceOptions{
		Label:  opts.Label,
		Width:  minSurfaceDimension,
		Height: minSurfaceDimension,
		Format: render.FormatRGBA8Unorm,
	}
	surface, err := h.device.CreateSurface(minimal)
	if err == nil {
		h.record(CategoryRenderTarget, SeverityHigh,
			fmt.Sprintf("surface %s recovered at minimal %dx%d", sizeKey, minimal.Width, minimal.Height), true, "minimal_surface")
		log.Printf("[Recovery] surface %s recovered at minimal %dx%d", sizeKey, minimal.Width, minimal.Height)
		return surface, nil
	}

	err = fmt.Errorf("recovery: all strategies failed for surface %s: %w", sizeKey, err)
	h.record(CategoryRenderTarget, SeverityHigh, err.Error(), false, "")
	return nil, err
}

func (h *handler) HandleMemoryPressure() bool {
	purged := h.device.PurgeCaches()
	debug.FreeOSMemory()
	h.record(CategoryMemory, SeverityMedium,
		fmt.Sprintf("memory pressure cleanup attempted, %d cache entries purged", purged), true, "cache_purge")
	log.Printf("[Recovery] memory pressure cleanup attempted, %d cache entries purged", purged)
	return true
}

func (h *handler) ReportError(category Category, severity Severity, message string, recovered bool, strategy string) {
	h.record(category, severity, message, recovered, strategy)
}

func (h *handler) record(category Category, severity Severity, message string, recovered bool, strategy string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recordLocked(category, severity, message, recovered, strategy)
}

// recordLocked appends a report, evicting the oldest entry once the history
// is full. Caller must hold h.mu.
func (h *handler) recordLocked(category Category, severity Severity, message string, recovered bool, strategy string) {
	if len(h.history) == historyLimit {
		copy(h.history, h.history[1:])
		h.history = h.history[:historyLimit-1]
	}
	h.history = append(h.history, ErrorReport{
		Timestamp: h.clock(),
		Category:  category,
		Severity:  severity,
		Message:   message,
		Recovered: recovered,
		Strategy:  strategy,
	})
}

func (h *handler) History() []ErrorReport {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ErrorReport, len(h.history))
	copy(out, h.history)
	return out
}

func (h *handler) Recent() []ErrorReport {
	h.mu.Lock()
	defer h.mu.Unlock()
	start := 0
	if len(h.history) > recentWindow {
		start = len(h.history) - recentWindow
	}
	out := make([]ErrorReport, len(h.history)-start)
	copy(out, h.history[start:])
	return out
}

func (h *handler) HealthStatus() Health {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := 0
	if len(h.history) > recentWindow {
		start = len(h.history) - recentWindow
	}
	for _, report := range h.history[start:] {
		if report.Severity == SeverityCritical && !report.Recovered {
			return HealthCritical
		}
	}

	unrecoveredHigh := 0
	for _, report := range h.history {
		if report.Severity == SeverityHigh && !report.Recovered {
			unrecoveredHigh++
		}
	}
	if unrecoveredHigh > 2 || h.state == DeviceLost {
		return HealthWarning
	}
	return HealthHealthy
}

func (h *handler) ScheduleRetry(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(retryDelay, func() {
		fn()
		h.mu.Lock()
		for i, t := range h.timers {
			if t == timer {
				h.timers = append(h.timers[:i], h.timers[i+1:]...)
				break
			}
		}
		h.mu.Unlock()
	})
	h.timers = append(h.timers, timer)
}

func (h *handler) ClearHistory() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = nil
	h.shaderAttempts = make(map[string]int)
	h.surfaceAttempts = make(map[string]int)
}

func (h *handler) Dispose() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return
	}
	h.disposed = true
	for _, timer := range h.timers {
		timer.Stop()
	}
	h.timers = nil
}
