package sequencer

import "sync/atomic"

// LaneParams is the per-lane control surface, refreshed every frame by
// the host. CV fields are numeric offsets already scaled by the caller.
type LaneParams struct {
	Steps    int
	Hits     int
	HitsCV   float64
	Rotation int
	QuantIdx int
	ProbA    float64
	ProbACV  float64
	ProbB    float64
	ProbBCV  float64
	Retrig   bool
}

// Inputs is everything the core reads for one control-rate frame.
// Clock, Reset and Run are voltage-style levels run through Schmitt
// hysteresis; Run is treated as always-on unless RunConnected is set.
type Inputs struct {
	Clock        float64
	Reset        float64
	Run          float64
	RunConnected bool

	SpeedIdx     int
	SwingPercent float64

	Lanes []LaneParams
}

// LaneOutputs is one lane's output levels for the current frame.
type LaneOutputs struct {
	Gate    bool
	Trig    bool
	PreGate bool
	// LFO is a 0..1 ramp tracking cursor/(steps-1).
	LFO float64
}

// Outputs is the per-frame result of Core.Process. The Lanes slice is
// reused between calls and is only valid until the next Process.
type Outputs struct {
	Ticked  bool
	Locked  bool
	Running bool
	Lanes   []LaneOutputs
}

// Snapshot is an immutable copy of display state, published once per
// tick (and after table edits) for readers running at a different
// cadence than the process loop.
type Snapshot struct {
	InputState uint16
	Mapping    []uint16
	Gates      []bool
	PreGates   []bool
	Cursors    []int
	Steps      []int
	Patterns   [][]bool
	Locked     bool
	Running    bool
}

// Core runs n parallel Euclidean/probability lanes into one shared
// truth table, driven by the swing scheduler. All methods are intended
// for a single process goroutine; concurrent readers use Snapshot.
type Core struct {
	n       int
	engines []*Engine
	probA   []*Gate
	probB   []*Gate
	table   *TruthTable
	sched   *Scheduler

	clockTrig SchmittTrigger
	resetTrig SchmittTrigger

	quantCounter []int
	trigPulse    []PulseGenerator
	prevGateHigh []bool
	retrigGap    []float64
	gateState    []bool
	preGate      []bool
	preLogic     []bool
	inputState   uint16
	running      bool

	out  Outputs
	snap atomic.Pointer[Snapshot]
}

// NewCore creates an n-lane core. The seed feeds every probability gate
// and the truth table RNG; lanes get distinct derived seeds so their
// streams are independent but reproducible.
func NewCore(n int, seed int64) *Core {
	n = clampInt(n, 1, MaxChannels)
	c := &Core{
		n:            n,
		engines:      make([]*Engine, n),
		probA:        make([]*Gate, n),
		probB:        make([]*Gate, n),
		table:        NewTruthTable(n, seed),
		sched:        NewScheduler(),
		quantCounter: make([]int, n),
		trigPulse:    make([]PulseGenerator, n),
		prevGateHigh: make([]bool, n),
		retrigGap:    make([]float64, n),
		gateState:    make([]bool, n),
		preGate:      make([]bool, n),
		preLogic:     make([]bool, n),
		running:      true,
	}
	for i := 0; i < n; i++ {
		c.engines[i] = NewEngine()
		c.probA[i] = NewGate(seed + int64(i)*2 + 1)
		c.probB[i] = NewGate(seed + int64(i)*2 + 2)
	}
	c.out.Lanes = make([]LaneOutputs, n)
	c.publish()
	return c
}

// Channels returns the lane count.
func (c *Core) Channels() int { return c.n }

// Table exposes the shared truth table. Callers outside the process
// goroutine must go through the edit methods below instead.
func (c *Core) Table() *TruthTable { return c.table }

// Scheduler exposes the clock scheduler, mainly for persistence.
func (c *Core) Scheduler() *Scheduler { return c.sched }

// Engine returns lane i's Euclidean engine, or nil out of range.
func (c *Core) Engine(i int) *Engine {
	if i < 0 || i >= c.n {
		return nil
	}
	return c.engines[i]
}

// Snapshot returns the most recently published display state.
func (c *Core) Snapshot() *Snapshot {
	return c.snap.Load()
}

// Process steps the core by one control-rate frame of dt seconds.
func (c *Core) Process(in Inputs, dt float64) Outputs {
	if c.resetTrig.Process(in.Reset, SchmittLow, SchmittHigh) {
		c.Reset()
	}

	c.running = !in.RunConnected || in.Run > SchmittHigh

	clockEdge := c.clockTrig.Process(in.Clock, SchmittLow, SchmittHigh)
	ticked := c.sched.Advance(dt, clockEdge, c.running, in.SpeedIdx, in.SwingPercent)
	if ticked {
		c.processTick(in)
		c.publish()
	}

	c.out.Ticked = ticked
	c.out.Locked = c.sched.Locked()
	c.out.Running = c.running
	for i := 0; i < c.n; i++ {
		lane := &c.out.Lanes[i]

		if c.retrigGap[i] > 0 {
			c.retrigGap[i] -= dt
			lane.Gate = false
		} else {
			lane.Gate = c.gateState[i]
		}

		lane.Trig = c.trigPulse[i].Process(dt)
		lane.PreGate = c.preGate[i]
		lane.LFO = c.engines[i].Phase()
	}
	return c.out
}

// processTick runs the tick pipeline: quant counters, Euclidean
// advancement, pre-logic probability, truth table, post-logic
// probability, then gate/trigger/retrigger shaping.
func (c *Core) processTick(in Inputs) {
	for i := 0; i < c.n; i++ {
		p := laneParams(in.Lanes, i)

		c.quantCounter[i]++
		if c.quantCounter[i] >= QuantDivisor(p.QuantIdx) {
			c.quantCounter[i] = 0

			steps := clampInt(p.Steps, MinSteps, MaxSteps)
			hits := clampInt(p.Hits+int(p.HitsCV), 0, steps)
			c.engines[i].Configure(steps, hits, p.Rotation)
			hit := c.engines[i].Tick()

			probA := clampFloat(p.ProbA+p.ProbACV, 0, 1)
			c.preLogic[i] = hit && c.probA[i].ProcessWith(true, probA)
		} else {
			c.preLogic[i] = false
		}
		c.preGate[i] = c.preLogic[i]
	}

	c.inputState = c.table.Pack(c.preLogic)
	postLogic := c.table.Evaluate(c.preLogic)

	for i := 0; i < c.n; i++ {
		p := laneParams(in.Lanes, i)
		probB := clampFloat(p.ProbB+p.ProbBCV, 0, 1)
		final := postLogic[i] && c.probB[i].ProcessWith(true, probB)

		if final && (!c.prevGateHigh[i] || p.Retrig) {
			c.trigPulse[i].Trigger(TriggerPulseSeconds)
		}
		if final && c.prevGateHigh[i] && p.Retrig {
			// Force a clean falling+rising edge on sustained hits.
			c.retrigGap[i] = RetrigGapSeconds
		}

		c.gateState[i] = final
		c.prevGateHigh[i] = final
	}
}

// Reset reinitializes transport and lane state. The truth table mapping
// is deliberately left alone: logic state is independent of transport.
func (c *Core) Reset() {
	for i := 0; i < c.n; i++ {
		c.engines[i].Reset()
		c.quantCounter[i] = 0
		c.gateState[i] = false
		c.preGate[i] = false
		c.preLogic[i] = false
		c.prevGateHigh[i] = false
		c.retrigGap[i] = 0
	}
	c.sched.Reset()
	c.running = true
	c.inputState = 0
	c.publish()
}

// Table edit surface. These mirror the front-panel buttons: each
// publishes a fresh snapshot so displays pick up the change without
// waiting for the next tick.

// Randomize randomizes the truth table.
func (c *Core) Randomize() {
	c.table.Randomize()
	c.publish()
}

// Mutate flips a few random truth table bits.
func (c *Core) Mutate() {
	c.table.Mutate()
	c.publish()
}

// Undo reverts the last table edit.
func (c *Core) Undo() bool {
	ok := c.table.Undo()
	if ok {
		c.publish()
	}
	return ok
}

// Redo reverses the last Undo.
func (c *Core) Redo() bool {
	ok := c.table.Redo()
	if ok {
		c.publish()
	}
	return ok
}

// LoadPreset loads a named table preset.
func (c *Core) LoadPreset(p Preset) {
	c.table.LoadPreset(p)
	c.publish()
}

// ToggleBit flips one table bit as an interactive edit, recording undo
// history before the mutation.
func (c *Core) ToggleBit(state, bit int) {
	c.table.PushUndo()
	c.table.ToggleBit(state, bit)
	c.publish()
}

func (c *Core) publish() {
	s := &Snapshot{
		InputState: c.inputState,
		Mapping:    c.table.Serialize(),
		Gates:      make([]bool, c.n),
		PreGates:   make([]bool, c.n),
		Cursors:    make([]int, c.n),
		Steps:      make([]int, c.n),
		Patterns:   make([][]bool, c.n),
		Locked:     c.sched.Locked(),
		Running:    c.running,
	}
	for i := 0; i < c.n; i++ {
		s.Gates[i] = c.gateState[i]
		s.PreGates[i] = c.preGate[i]
		s.Cursors[i] = c.engines[i].Cursor()
		s.Steps[i] = c.engines[i].Steps()
		s.Patterns[i] = c.engines[i].Pattern()
	}
	c.snap.Store(s)
}

// laneParams returns lane i's params, falling back to usable defaults
// when the host supplied a short slice.
func laneParams(lanes []LaneParams, i int) LaneParams {
	if i < len(lanes) {
		return lanes[i]
	}
	return LaneParams{Steps: 16, Hits: 8, ProbA: 1, ProbB: 1}
}
