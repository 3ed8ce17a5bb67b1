package sequencer

// Timing constants
const (
	// TriggerPulseSeconds is the one-shot trigger pulse width.
	TriggerPulseSeconds = 1e-3
	// RetrigGapSeconds is the forced-low gap used to make a retrigger
	// visible to downstream envelopes.
	RetrigGapSeconds = 0.5e-3

	// SchmittLow and SchmittHigh are the hysteresis thresholds for
	// voltage-style edge inputs.
	SchmittLow  = 0.1
	SchmittHigh = 1.0

	// DefaultClockPeriod is the assumed period before the first
	// measurement (120 BPM quarter notes).
	DefaultClockPeriod = 0.5

	clockDebounce = 1e-3
	clockTimeout  = 2.0
)

// SpeedIndexX1 is the index of the x1 ratio in SpeedRatios.
const SpeedIndexX1 = 8

// SpeedRatios is the master tick rate relative to the external clock,
// from /16 through x16.
var SpeedRatios = []float64{
	1.0 / 16, 1.0 / 12, 1.0 / 8, 1.0 / 6, 1.0 / 4, 1.0 / 3, 1.0 / 2, 2.0 / 3,
	1,
	3.0 / 2, 2, 3, 4, 6, 8, 12, 16,
}

// SpeedLabels are display names for SpeedRatios entries.
var SpeedLabels = []string{
	"/16", "/12", "/8", "/6", "/4", "/3", "/2", "/1.5",
	"x1",
	"x1.5", "x2", "x3", "x4", "x6", "x8", "x12", "x16",
}

// QuantRatios is the per-lane clock division table.
var QuantRatios = []float64{1, 1.0 / 2, 1.0 / 4, 1.0 / 8, 1.0 / 16}

// QuantLabels are display names for QuantRatios entries.
var QuantLabels = []string{"x1", "/2", "/4", "/8", "/16"}

// QuantDivisor returns the integer divisor for a quant table index.
func QuantDivisor(idx int) int {
	idx = clampInt(idx, 0, len(QuantRatios)-1)
	div := int(1.0 / QuantRatios[idx])
	if div < 1 {
		div = 1
	}
	return div
}

// SchmittTrigger detects rising edges with hysteresis: the input must
// fall to the low threshold before another high crossing counts.
type SchmittTrigger struct {
	high bool
}

// Process feeds one sample and reports whether a rising edge occurred.
func (s *SchmittTrigger) Process(v, low, high float64) bool {
	if s.high {
		if v <= low {
			s.high = false
		}
		return false
	}
	if v >= high {
		s.high = true
		return true
	}
	return false
}

// Reset forgets the input level.
func (s *SchmittTrigger) Reset() {
	s.high = false
}

// PulseGenerator emits a fixed-length high pulse.
type PulseGenerator struct {
	remaining float64
}

// Trigger starts (or restarts) a pulse of the given duration in seconds.
func (p *PulseGenerator) Trigger(duration float64) {
	if duration > p.remaining {
		p.remaining = duration
	}
}

// Process advances by dt and reports whether the pulse is still high.
func (p *PulseGenerator) Process(dt float64) bool {
	if p.remaining <= 0 {
		return false
	}
	p.remaining -= dt
	return true
}

// Scheduler derives master ticks from a measured external clock period,
// a speed ratio and a swing skew. External edges always force a tick and
// re-anchor phase and swing parity, so free-running drift is bounded by
// one clock period. Two seconds without an edge unlocks the scheduler
// and suspends ticking until the next edge.
type Scheduler struct {
	period         float64
	timeSinceClock float64
	phase          float64
	locked         bool
	hadFirstTick   bool
	swingLong      bool
	prevSpeedIdx   int
}

// NewScheduler creates a scheduler with the default period, unlocked.
func NewScheduler() *Scheduler {
	s := &Scheduler{}
	s.Reset()
	return s
}

// Reset clears all derived state. The next external edge re-anchors
// timing from scratch.
func (s *Scheduler) Reset() {
	s.period = DefaultClockPeriod
	s.timeSinceClock = 0
	s.phase = 0
	s.locked = false
	s.hadFirstTick = false
	s.swingLong = true
	s.prevSpeedIdx = SpeedIndexX1
}

// Period returns the measured external clock period in seconds.
func (s *Scheduler) Period() float64 { return s.period }

// SetPeriod restores a persisted period measurement.
func (s *Scheduler) SetPeriod(p float64) {
	if p > 0 {
		s.period = p
	}
}

// Locked reports whether external clock edges are currently being tracked.
func (s *Scheduler) Locked() bool { return s.locked }

// Advance steps the scheduler by dt seconds and reports whether a master
// tick fires this frame. clockEdge is a pre-detected external rising
// edge. speedIdx indexes SpeedRatios; swingPercent is 50 (even) to 75.
func (s *Scheduler) Advance(dt float64, clockEdge, running bool, speedIdx int, swingPercent float64) bool {
	s.timeSinceClock += dt

	if clockEdge {
		if s.timeSinceClock > clockDebounce {
			s.period = s.timeSinceClock
			s.locked = true
		}
		s.timeSinceClock = 0
	}

	if s.timeSinceClock > clockTimeout {
		s.locked = false
		s.hadFirstTick = false
	}

	speedIdx = clampInt(speedIdx, 0, len(SpeedRatios)-1)
	if speedIdx != s.prevSpeedIdx {
		// Resync on the next edge rather than ticking from stale phase.
		s.hadFirstTick = false
		s.phase = 0
		s.prevSpeedIdx = speedIdx
	}

	if !running || !s.locked {
		return false
	}

	swingRatio := clampFloat(swingPercent, 50, 75) / 100
	baseInterval := s.period / SpeedRatios[speedIdx]
	longInterval := 2 * baseInterval * swingRatio
	shortInterval := 2 * baseInterval * (1 - swingRatio)

	if clockEdge {
		s.hadFirstTick = true
		s.swingLong = true
		s.phase = 0
		return true
	}

	if !s.hadFirstTick {
		return false
	}

	current := shortInterval
	if s.swingLong {
		current = longInterval
	}
	s.phase += dt
	if s.phase >= current {
		s.phase -= current
		s.swingLong = !s.swingLong
		return true
	}
	return false
}
