// Package monitor samples frame and per-stage timing and runs the hysteretic
// control loop that selects among discrete quality levels. Classification is
// deliberately asymmetric (3 consecutive poor readings to drop a level, 5
// consecutive good readings to raise one) so the pipeline never oscillates
// between presets.
package monitor

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Control loop tuning.
const (
	windowSize       = 60
	minSamples       = 30
	evaluateInterval = 2 * time.Second
	poorStreakToDrop = 3
	goodStreakToRise = 5
)

// Metrics is a point-in-time snapshot of the monitor's measurements.
type Metrics struct {
	// FPS and FrameTime are the most recent frame's instantaneous values.
	FPS       float64
	FrameTime time.Duration

	// AverageFPS and AverageFrameTime are rolling averages over the sample
	// window.
	AverageFPS       float64
	AverageFrameTime time.Duration

	// StageAverages maps stage names to their rolling average cost per frame.
	StageAverages map[string]time.Duration

	// MemoryMB is the current heap estimate in megabytes.
	MemoryMB float64

	// QualityLevel is the currently selected level index.
	QualityLevel int

	// SampleCount is the number of frames currently in the window.
	SampleCount int
}

// PerformanceMonitor brackets frames and stage applications with timing
// calls and adjusts the quality level against a frame-time budget.
type PerformanceMonitor interface {
	// StartFrame marks the beginning of a frame.
	StartFrame()

	// EndFrame computes the elapsed frame time, appends it to the rolling
	// window, and advances the control loop when its cadence has elapsed.
	EndFrame()

	// StartEffectTiming marks the beginning of one stage's contribution.
	//
	// Parameters:
	//   - name: the stage name
	StartEffectTiming(name string)

	// EndEffectTiming records the elapsed stage time into the stage's own
	// rolling window.
	//
	// Parameters:
	//   - name: the stage name
	EndEffectTiming(name string)

	// Metrics returns a snapshot of the current measurements.
	//
	// Returns:
	//   - Metrics: the snapshot
	Metrics() Metrics

	// Summary returns a one-line human-readable digest of the snapshot.
	//
	// Returns:
	//   - string: the digest
	Summary() string

	// QualityLevel returns the currently selected level index.
	QualityLevel() int

	// LevelCount returns the number of configured quality levels.
	LevelCount() int

	// SetQualityLevel manually reseeds the current level, clamped to the
	// valid range. Both hysteresis streaks reset, matching an automatic
	// transition, and the change callback fires if the level moved.
	//
	// Parameters:
	//   - level: the level index to select
	SetQualityLevel(level int)

	// OnQualityChange registers the callback invoked with the new level index
	// whenever the level changes, automatically or manually.
	//
	// Parameters:
	//   - fn: the callback
	OnQualityChange(fn func(level int))

	// OnLowFPS registers the callback invoked when instantaneous fps falls
	// below the warning floor, independent of the control loop cadence. The
	// callback is edge-triggered on the crossing.
	//
	// Parameters:
	//   - fn: the callback
	OnLowFPS(fn func(fps float64))

	// Reset clears all sample windows and hysteresis streaks. The quality
	// level is kept.
	Reset()
}

// rollingWindow is a bounded sample buffer; the oldest sample is evicted once
// the window is full.
type rollingWindow struct {
	samples []float64
	sum     float64
}

func (w *rollingWindow) push(v float64) {
	if len(w.samples) == windowSize {
		w.sum -= w.samples[0]
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:windowSize-1]
	}
	w.samples = append(w.samples, v)
	w.sum += v
}

func (w *rollingWindow) average() float64 {
	if len(w.samples) == 0 {
		return 0
	}
	return w.sum / float64(len(w.samples))
}

type performanceMonitor struct {
	mu sync.Mutex

	targetFPS    float64
	minFPS       float64
	maxFrameTime time.Duration
	lowFPSFloor  float64

	levelCount int
	level      int

	frameStart  time.Time
	stageStarts map[string]time.Time

	frameTimes   rollingWindow // milliseconds
	fpsSamples   rollingWindow
	stageWindows map[string]*rollingWindow

	lastFPS       float64
	lastFrameTime time.Duration

	lastEvaluation time.Time
	poorStreak     int
	goodStreak     int

	onQualityChange func(level int)
	onLowFPS        func(fps float64)
	belowFloor      bool

	memStats runtime.MemStats

	// clock is swapped in tests to drive the cadence deterministically.
	clock func() time.Time
}

var _ PerformanceMonitor = &performanceMonitor{}

// NewPerformanceMonitor creates a monitor with the given number of quality
// levels, starting at the top level. Defaults: 60 fps target, 30 fps minimum,
// 33.3ms frame budget, 15 fps warning floor.
//
// Parameters:
//   - levelCount: the number of quality levels (minimum 1)
//   - options: functional options to configure the monitor
//
// Returns:
//   - PerformanceMonitor: the newly created monitor
func NewPerformanceMonitor(levelCount int, options ...MonitorBuilderOption) PerformanceMonitor {
	if levelCount < 1 {
		panic("monitor: NewPerformanceMonitor requires at least one quality level")
	}
	m := &performanceMonitor{
		targetFPS:    60,
		minFPS:       30,
		maxFrameTime: 33300 * time.Microsecond,
		lowFPSFloor:  15,
		levelCount:   levelCount,
		level:        levelCount - 1,
		stageStarts:  make(map[string]time.Time),
		stageWindows: make(map[string]*rollingWindow),
		clock:        time.Now,
	}
	for _, option := range options {
		option(m)
	}
	m.lastEvaluation = m.clock()
	return m
}

func (m *performanceMonitor) StartFrame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frameStart = m.clock()
}

func (m *performanceMonitor) EndFrame() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frameStart.IsZero() {
		return
	}
	now := m.clock()
	frameTime := now.Sub(m.frameStart)
	m.frameStart = time.Time{}
	if frameTime <= 0 {
		return
	}

	fps := float64(time.Second) / float64(frameTime)
	m.lastFPS = fps
	m.lastFrameTime = frameTime
	m.frameTimes.push(float64(frameTime) / float64(time.Millisecond))
	m.fpsSamples.push(fps)

	// Low-fps warning is edge-triggered on the crossing and independent of
	// the control loop cadence, so it surfaces even at the lowest level.
	if fps < m.lowFPSFloor {
		if !m.belowFloor && m.onLowFPS != nil {
			fn := m.onLowFPS
			m.mu.Unlock()
			fn(fps)
			m.mu.Lock()
		}
		m.belowFloor = true
	} else {
		m.belowFloor = false
	}

	if now.Sub(m.lastEvaluation) >= evaluateInterval && len(m.fpsSamples.samples) >= minSamples {
		m.lastEvaluation = now
		m.evaluateLocked()
	}
}

// evaluateLocked classifies the rolling averages and advances the hysteresis
// streaks, moving at most one level. Caller must hold m.mu.
func (m *performanceMonitor) evaluateLocked() {
	avgFPS := m.fpsSamples.average()
	avgFrameMs := m.frameTimes.average()
	maxFrameMs := float64(m.maxFrameTime) / float64(time.Millisecond)

	switch {
	case avgFPS < m.minFPS || avgFrameMs > maxFrameMs:
		m.poorStreak++
		m.goodStreak = 0
		if m.poorStreak >= poorStreakToDrop {
			m.poorStreak = 0
			m.goodStreak = 0
			m.changeLevelLocked(m.level - 1)
		}
	case avgFPS > 0.9*m.targetFPS && avgFrameMs < 0.8*maxFrameMs:
		m.goodStreak++
		m.poorStreak = 0
		if m.goodStreak >= goodStreakToRise {
			m.poorStreak = 0
			m.goodStreak = 0
			m.changeLevelLocked(m.level + 1)
		}
	default:
		m.poorStreak = 0
		m.goodStreak = 0
	}
}

// changeLevelLocked clamps and applies a level change, firing the callback
// when the level moved. Caller must hold m.mu.
func (m *performanceMonitor) changeLevelLocked(level int) {
	if level < 0 {
		level = 0
	}
	if level > m.levelCount-1 {
		level = m.levelCount - 1
	}
	if level == m.level {
		return
	}
	m.level = level
	if m.onQualityChange != nil {
		fn := m.onQualityChange
		m.mu.Unlock()
		fn(level)
		m.mu.Lock()
	}
}

func (m *performanceMonitor) StartEffectTiming(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stageStarts[name] = m.clock()
}

func (m *performanceMonitor) EndEffectTiming(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start, ok := m.stageStarts[name]
	if !ok {
		return
	}
	delete(m.stageStarts, name)

	window, ok := m.stageWindows[name]
	if !ok {
		window = &rollingWindow{}
		m.stageWindows[name] = window
	}
	window.push(float64(m.clock().Sub(start)) / float64(time.Millisecond))
}

func (m *performanceMonitor) Metrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	stages := make(map[string]time.Duration, len(m.stageWindows))
	for name, window := range m.stageWindows {
		stages[name] = time.Duration(window.average() * float64(time.Millisecond))
	}

	runtime.ReadMemStats(&m.memStats)

	return Metrics{
		FPS:              m.lastFPS,
		FrameTime:        m.lastFrameTime,
		AverageFPS:       m.fpsSamples.average(),
		AverageFrameTime: time.Duration(m.frameTimes.average() * float64(time.Millisecond)),
		StageAverages:    stages,
		MemoryMB:         float64(m.memStats.Alloc) / 1024 / 1024,
		QualityLevel:     m.level,
		SampleCount:      len(m.fpsSamples.samples),
	}
}

func (m *performanceMonitor) Summary() string {
	metrics := m.Metrics()

	var stages []string
	for name, avg := range metrics.StageAverages {
		stages = append(stages, fmt.Sprintf("%s: %.2fms", name, float64(avg)/float64(time.Millisecond)))
	}
	sort.Strings(stages)
	stagePart := "none"
	if len(stages) > 0 {
		stagePart = strings.Join(stages, ", ")
	}

	return fmt.Sprintf("FPS: %.2f (avg %.2f) | Frame: %.2fms (avg %.2fms) | Quality: %d/%d | Heap: %.2f MB | Stages: %s",
		metrics.FPS, metrics.AverageFPS,
		float64(metrics.FrameTime)/float64(time.Millisecond),
		float64(metrics.AverageFrameTime)/float64(time.Millisecond),
		metrics.QualityLevel, m.LevelCount()-1,
		metrics.MemoryMB, stagePart)
}

func (m *performanceMonitor) QualityLevel() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

func (m *performanceMonitor) LevelCount() int {
	return m.levelCount
}

func (m *performanceMonitor) SetQualityLevel(level int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poorStreak = 0
	m.goodStreak = 0
	m.changeLevelLocked(level)
}

func (m *performanceMonitor) OnQualityChange(fn func(level int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onQualityChange = fn
}

func (m *performanceMonitor) OnLowFPS(fn func(fps float64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLowFPS = fn
}

func (m *performanceMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frameTimes = rollingWindow{}
	m.fpsSamples = rollingWindow{}
	m.stageWindows = make(map[string]*rollingWindow)
	m.stageStarts = make(map[string]time.Time)
	m.poorStreak = 0
	m.goodStreak = 0
	m.belowFloor = false
	m.lastFPS = 0
	m.lastFrameTime = 0
	m.lastEvaluation = m.clock()
}
