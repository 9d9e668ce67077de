package monitor

import (
	"testing"
	"time"
)

// fakeClock drives the monitor deterministically; every frame advances it by
// the simulated frame time.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func (c *fakeClock) timeFunc() func() time.Time {
	return func() time.Time { return c.now }
}

// runFrames simulates n frames of the given duration.
func runFrames(m PerformanceMonitor, clock *fakeClock, n int, frameTime time.Duration) {
	for i := 0; i < n; i++ {
		m.StartFrame()
		clock.advance(frameTime)
		m.EndFrame()
	}
}

// framesPerEvaluation returns a frame count that crosses exactly one
// evaluation boundary at the given frame duration.
func framesPerEvaluation(frameTime time.Duration) int {
	return int(evaluateInterval/frameTime) + 1
}

const (
	// 50ms frames: 20 fps, below the 30 fps minimum.
	poorFrame = 50 * time.Millisecond

	// 25ms frames: 40 fps, above minimum but below the 90% target band.
	neutralFrame = 25 * time.Millisecond

	// 15ms frames: ~66 fps, inside the sustained-good band.
	goodFrame = 15 * time.Millisecond
)

func TestMonitorStartsAtTopLevel(t *testing.T) {
	m := NewPerformanceMonitor(4)
	if got := m.QualityLevel(); got != 3 {
		t.Fatalf("QualityLevel() = %d, want 3", got)
	}
	if got := m.LevelCount(); got != 4 {
		t.Fatalf("LevelCount() = %d, want 4", got)
	}
}

func TestDropAfterThreePoorEvaluations(t *testing.T) {
	clock := newFakeClock()
	m := NewPerformanceMonitor(4, withClock(clock.timeFunc()))

	var changes []int
	m.OnQualityChange(func(level int) {
		changes = append(changes, level)
	})

	batch := framesPerEvaluation(poorFrame)

	runFrames(m, clock, batch, poorFrame)
	runFrames(m, clock, batch, poorFrame)
	if got := m.QualityLevel(); got != 3 {
		t.Fatalf("level after 2 poor evaluations = %d, want 3", got)
	}

	runFrames(m, clock, batch, poorFrame)
	if got := m.QualityLevel(); got != 2 {
		t.Fatalf("level after 3 poor evaluations = %d, want 2", got)
	}
	if len(changes) != 1 || changes[0] != 2 {
		t.Fatalf("quality change callbacks = %v, want [2]", changes)
	}
}

func TestPoorStreakResetByNeutralEvaluation(t *testing.T) {
	clock := newFakeClock()
	m := NewPerformanceMonitor(4, withClock(clock.timeFunc()))

	// Two poor evaluations, one neutral, one poor: the streak restarts at
	// the neutral evaluation, so no drop occurs.
	runFrames(m, clock, framesPerEvaluation(poorFrame), poorFrame)
	runFrames(m, clock, framesPerEvaluation(poorFrame), poorFrame)
	runFrames(m, clock, framesPerEvaluation(neutralFrame), neutralFrame)
	runFrames(m, clock, framesPerEvaluation(poorFrame), poorFrame)

	if got := m.QualityLevel(); got != 3 {
		t.Fatalf("level after interrupted poor streak = %d, want 3", got)
	}
}

func TestRiseAfterFiveGoodEvaluations(t *testing.T) {
	clock := newFakeClock()
	m := NewPerformanceMonitor(4, withClock(clock.timeFunc()), WithInitialLevel(0))

	batch := framesPerEvaluation(goodFrame)
	for i := 0; i < 4; i++ {
		runFrames(m, clock, batch, goodFrame)
	}
	if got := m.QualityLevel(); got != 0 {
		t.Fatalf("level after 4 good evaluations = %d, want 0", got)
	}

	runFrames(m, clock, batch, goodFrame)
	if got := m.QualityLevel(); got != 1 {
		t.Fatalf("level after 5 good evaluations = %d, want 1", got)
	}
}

func TestSampleWindowBounded(t *testing.T) {
	clock := newFakeClock()
	m := NewPerformanceMonitor(1, withClock(clock.timeFunc()))

	runFrames(m, clock, 100, neutralFrame)

	if got := m.Metrics().SampleCount; got != windowSize {
		t.Fatalf("SampleCount = %d, want %d", got, windowSize)
	}
}

func TestManualOverrideResetsStreaks(t *testing.T) {
	clock := newFakeClock()
	m := NewPerformanceMonitor(4, withClock(clock.timeFunc()))

	batch := framesPerEvaluation(poorFrame)
	runFrames(m, clock, batch, poorFrame)
	runFrames(m, clock, batch, poorFrame)

	// Re-selecting the current level still clears the accumulated streak.
	m.SetQualityLevel(3)

	runFrames(m, clock, batch, poorFrame)
	if got := m.QualityLevel(); got != 3 {
		t.Fatalf("level after override and 1 poor evaluation = %d, want 3", got)
	}

	runFrames(m, clock, batch, poorFrame)
	runFrames(m, clock, batch, poorFrame)
	if got := m.QualityLevel(); got != 2 {
		t.Fatalf("level after 3 further poor evaluations = %d, want 2", got)
	}
}

func TestSetQualityLevelClamped(t *testing.T) {
	m := NewPerformanceMonitor(3)

	m.SetQualityLevel(99)
	if got := m.QualityLevel(); got != 2 {
		t.Fatalf("QualityLevel() after SetQualityLevel(99) = %d, want 2", got)
	}

	m.SetQualityLevel(-5)
	if got := m.QualityLevel(); got != 0 {
		t.Fatalf("QualityLevel() after SetQualityLevel(-5) = %d, want 0", got)
	}
}

func TestLowFPSCallbackEdgeTriggered(t *testing.T) {
	clock := newFakeClock()
	m := NewPerformanceMonitor(1, withClock(clock.timeFunc()))

	var calls int
	m.OnLowFPS(func(fps float64) {
		calls++
		if fps >= 15 {
			t.Errorf("OnLowFPS fired at %.2f fps, want < 15", fps)
		}
	})

	// 100ms frames are 10 fps, below the 15 fps floor. The callback fires
	// once on the crossing, not on every frame below it.
	runFrames(m, clock, 10, 100*time.Millisecond)
	if calls != 1 {
		t.Fatalf("callback count while below floor = %d, want 1", calls)
	}

	// Recover above the floor, then fall below again for a second edge.
	runFrames(m, clock, 5, goodFrame)
	runFrames(m, clock, 5, 100*time.Millisecond)
	if calls != 2 {
		t.Fatalf("callback count after second crossing = %d, want 2", calls)
	}
}

func TestEndFrameWithoutStartIsIgnored(t *testing.T) {
	clock := newFakeClock()
	m := NewPerformanceMonitor(1, withClock(clock.timeFunc()))

	m.EndFrame()

	if got := m.Metrics().SampleCount; got != 0 {
		t.Fatalf("SampleCount = %d, want 0", got)
	}
}

func TestStageTiming(t *testing.T) {
	clock := newFakeClock()
	m := NewPerformanceMonitor(1, withClock(clock.timeFunc()))

	m.StartEffectTiming("grain")
	clock.advance(5 * time.Millisecond)
	m.EndEffectTiming("grain")

	got, ok := m.Metrics().StageAverages["grain"]
	if !ok {
		t.Fatal("StageAverages missing entry for grain")
	}
	if got != 5*time.Millisecond {
		t.Fatalf("grain average = %v, want 5ms", got)
	}
}

func TestEndEffectTimingWithoutStartIsIgnored(t *testing.T) {
	m := NewPerformanceMonitor(1)

	m.EndEffectTiming("crt")

	if _, ok := m.Metrics().StageAverages["crt"]; ok {
		t.Fatal("StageAverages has entry for crt without a matching start")
	}
}

func TestResetKeepsQualityLevel(t *testing.T) {
	clock := newFakeClock()
	m := NewPerformanceMonitor(4, withClock(clock.timeFunc()))

	batch := framesPerEvaluation(poorFrame)
	for i := 0; i < 3; i++ {
		runFrames(m, clock, batch, poorFrame)
	}
	if got := m.QualityLevel(); got != 2 {
		t.Fatalf("level before reset = %d, want 2", got)
	}

	m.Reset()

	if got := m.QualityLevel(); got != 2 {
		t.Fatalf("level after reset = %d, want 2", got)
	}
	if got := m.Metrics().SampleCount; got != 0 {
		t.Fatalf("SampleCount after reset = %d, want 0", got)
	}
}
