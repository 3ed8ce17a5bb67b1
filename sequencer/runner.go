package sequencer

import (
	"sync"
	"time"

	"github.com/timini/wiggleroom-sub000/debug"
	"github.com/timini/wiggleroom-sub000/midi"
)

// Control loop timing
const (
	processInterval = time.Millisecond
	uiFPS           = 30

	// maxFrameDt bounds a single frame after the process goroutine was
	// starved, so one late wakeup doesn't burst a pile of ticks.
	maxFrameDt = 0.05

	// clockHigh is the synthesized level for clock/run/reset inputs,
	// comfortably above the Schmitt high threshold.
	clockHigh = 10.0

	gateVelocity = 100
)

// Tempo limits for the internal clock.
const (
	MinTempo = 20.0
	MaxTempo = 300.0
)

// Runner drives a Core from a ~1kHz goroutine, synthesizes or relays the
// external clock, and dispatches lane gates to MIDI. All parameter
// setters are safe to call from other goroutines; displays read state
// through Core.Snapshot without locking.
type Runner struct {
	core *Core
	out  *midi.Out

	mu sync.RWMutex

	playing  bool
	tempo    float64 // BPM for the internal clock
	swing    float64 // 50-75
	speedIdx int
	lanes    []LaneParams

	externalClock bool
	pendingEdge   bool
	pendingReset  bool

	clockPhase float64
	prevGate   []bool

	stopChan chan struct{}

	// UpdateChan notifies the TUI of state changes (non-blocking sends).
	UpdateChan chan struct{}
}

// NewRunner wraps a core with transport, clock synthesis and MIDI
// dispatch. out may be nil to run without hardware.
func NewRunner(core *Core, out *midi.Out) *Runner {
	r := &Runner{
		core:       core,
		out:        out,
		tempo:      120,
		swing:      50,
		speedIdx:   SpeedIndexX1,
		lanes:      make([]LaneParams, core.Channels()),
		prevGate:   make([]bool, core.Channels()),
		stopChan:   make(chan struct{}),
		UpdateChan: make(chan struct{}, 1),
	}
	for i := range r.lanes {
		r.lanes[i] = LaneParams{Steps: 16, Hits: 8, ProbA: 1, ProbB: 1}
	}
	return r
}

// Core returns the wrapped core. Callers must not mutate it directly
// while the runner is started; use the runner's edit methods.
func (r *Runner) Core() *Core { return r.core }

// Start launches the process goroutine.
func (r *Runner) Start() {
	go r.processLoop()
}

// Shutdown stops the process goroutine and silences any open gates.
func (r *Runner) Shutdown() {
	close(r.stopChan)
	if r.out != nil {
		r.out.AllNotesOff(r.core.Channels())
	}
}

// processLoop steps the core at roughly 1kHz using measured wall-clock
// dt, and pushes UI notifications at a display rate.
func (r *Runner) processLoop() {
	ticker := time.NewTicker(processInterval)
	uiTicker := time.NewTicker(time.Second / uiFPS)
	defer ticker.Stop()
	defer uiTicker.Stop()

	last := time.Now()
	for {
		select {
		case <-r.stopChan:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if dt > maxFrameDt {
				dt = maxFrameDt
			}
			r.step(dt)
		case <-uiTicker.C:
			r.notifyUpdate()
		}
	}
}

// step runs one control-rate frame: build inputs, process the core and
// diff lane gates into MIDI note on/off.
func (r *Runner) step(dt float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var in Inputs
	if r.externalClock {
		if r.pendingEdge {
			in.Clock = clockHigh
			r.pendingEdge = false
		}
	} else {
		// Internal clock: square wave at the tempo, high for the first
		// half of each beat so the Schmitt input sees clean edges.
		beat := 60 / r.tempo
		r.clockPhase += dt
		for r.clockPhase >= beat {
			r.clockPhase -= beat
		}
		if r.clockPhase < beat/2 {
			in.Clock = clockHigh
		}
	}

	if r.pendingReset {
		in.Reset = clockHigh
		r.pendingReset = false
	}

	in.RunConnected = true
	if r.playing {
		in.Run = clockHigh
	}
	in.SpeedIdx = r.speedIdx
	in.SwingPercent = r.swing
	in.Lanes = r.lanes

	out := r.core.Process(in, dt)

	for i := range out.Lanes {
		gate := out.Lanes[i].Gate
		if gate == r.prevGate[i] {
			continue
		}
		r.prevGate[i] = gate
		if r.out == nil {
			continue
		}
		if gate {
			r.out.NoteOn(i, gateVelocity)
		} else {
			r.out.NoteOff(i)
		}
	}
}

// notifyUpdate pings the TUI without blocking the process loop.
func (r *Runner) notifyUpdate() {
	select {
	case r.UpdateChan <- struct{}{}:
	default:
	}
}

// Transport

// Play starts the transport.
func (r *Runner) Play() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.playing {
		return
	}
	r.playing = true
	debug.Log("transport", "play tempo=%.1f swing=%.1f speed=%s", r.tempo, r.swing, SpeedLabels[r.speedIdx])
}

// Stop stops the transport and closes any open gates.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.playing {
		return
	}
	r.playing = false
	if r.out != nil {
		r.out.AllNotesOff(r.core.Channels())
	}
	for i := range r.prevGate {
		r.prevGate[i] = false
	}
	debug.Log("transport", "stop")
}

// TogglePlay flips the transport state.
func (r *Runner) TogglePlay() {
	r.mu.RLock()
	playing := r.playing
	r.mu.RUnlock()
	if playing {
		r.Stop()
	} else {
		r.Play()
	}
}

// Playing reports the transport state.
func (r *Runner) Playing() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.playing
}

// ResetTransport rewinds all lane cursors and timing on the next frame.
func (r *Runner) ResetTransport() {
	r.mu.Lock()
	r.pendingReset = true
	r.mu.Unlock()
}

// Clock source

// SetExternalClock switches between the internal clock and MIDI clock
// edges delivered via ClockPulse.
func (r *Runner) SetExternalClock(external bool) {
	r.mu.Lock()
	r.externalClock = external
	r.clockPhase = 0
	r.mu.Unlock()
}

// ExternalClock reports the current clock source.
func (r *Runner) ExternalClock() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.externalClock
}

// ClockPulse queues an external clock edge for the next frame. Safe to
// call from MIDI driver goroutines.
func (r *Runner) ClockPulse() {
	r.mu.Lock()
	r.pendingEdge = true
	r.mu.Unlock()
}

// HandleTransport applies a MIDI realtime transport event.
func (r *Runner) HandleTransport(evt midi.TransportEvent) {
	switch evt.Type {
	case midi.TransportStart:
		r.ResetTransport()
		r.Play()
	case midi.TransportContinue:
		r.Play()
	case midi.TransportStop:
		r.Stop()
	}
}

// Master parameters

// SetTempo sets the internal clock BPM, clamped to [MinTempo, MaxTempo].
func (r *Runner) SetTempo(bpm float64) {
	r.mu.Lock()
	r.tempo = clampFloat(bpm, MinTempo, MaxTempo)
	r.mu.Unlock()
}

// Tempo returns the internal clock BPM.
func (r *Runner) Tempo() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tempo
}

// AdjustTempo nudges the tempo by delta BPM.
func (r *Runner) AdjustTempo(delta float64) {
	r.mu.Lock()
	r.tempo = clampFloat(r.tempo+delta, MinTempo, MaxTempo)
	r.mu.Unlock()
}

// SetSwing sets the swing percentage, clamped to [50, 75].
func (r *Runner) SetSwing(percent float64) {
	r.mu.Lock()
	r.swing = clampFloat(percent, 50, 75)
	r.mu.Unlock()
}

// Swing returns the swing percentage.
func (r *Runner) Swing() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.swing
}

// AdjustSwing nudges the swing by delta percent.
func (r *Runner) AdjustSwing(delta float64) {
	r.mu.Lock()
	r.swing = clampFloat(r.swing+delta, 50, 75)
	r.mu.Unlock()
}

// SetSpeedIdx selects a SpeedRatios entry.
func (r *Runner) SetSpeedIdx(idx int) {
	r.mu.Lock()
	r.speedIdx = clampInt(idx, 0, len(SpeedRatios)-1)
	r.mu.Unlock()
}

// SpeedIdx returns the current SpeedRatios index.
func (r *Runner) SpeedIdx() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.speedIdx
}

// AdjustSpeed moves the speed index by delta steps.
func (r *Runner) AdjustSpeed(delta int) {
	r.mu.Lock()
	r.speedIdx = clampInt(r.speedIdx+delta, 0, len(SpeedRatios)-1)
	r.mu.Unlock()
}

// Lane parameters

// Lane returns a copy of lane i's parameters.
func (r *Runner) Lane(i int) LaneParams {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.lanes) {
		return LaneParams{}
	}
	return r.lanes[i]
}

// editLane applies fn to lane i's parameters under the lock.
func (r *Runner) editLane(i int, fn func(*LaneParams)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.lanes) {
		return
	}
	fn(&r.lanes[i])
}

// AdjustSteps nudges lane i's step count.
func (r *Runner) AdjustSteps(i, delta int) {
	r.editLane(i, func(p *LaneParams) {
		p.Steps = clampInt(p.Steps+delta, MinSteps, MaxSteps)
		p.Hits = clampInt(p.Hits, 0, p.Steps)
		p.Rotation = clampInt(p.Rotation, 0, p.Steps-1)
	})
}

// AdjustHits nudges lane i's hit count.
func (r *Runner) AdjustHits(i, delta int) {
	r.editLane(i, func(p *LaneParams) {
		p.Hits = clampInt(p.Hits+delta, 0, p.Steps)
	})
}

// AdjustRotation nudges lane i's rotation.
func (r *Runner) AdjustRotation(i, delta int) {
	r.editLane(i, func(p *LaneParams) {
		n := p.Steps
		p.Rotation = ((p.Rotation+delta)%n + n) % n
	})
}

// CycleQuant steps lane i's clock division through QuantRatios.
func (r *Runner) CycleQuant(i int) {
	r.editLane(i, func(p *LaneParams) {
		p.QuantIdx = (p.QuantIdx + 1) % len(QuantRatios)
	})
}

// AdjustProbA nudges lane i's pre-logic probability.
func (r *Runner) AdjustProbA(i int, delta float64) {
	r.editLane(i, func(p *LaneParams) {
		p.ProbA = clampFloat(p.ProbA+delta, 0, 1)
	})
}

// AdjustProbB nudges lane i's post-logic probability.
func (r *Runner) AdjustProbB(i int, delta float64) {
	r.editLane(i, func(p *LaneParams) {
		p.ProbB = clampFloat(p.ProbB+delta, 0, 1)
	})
}

// ToggleRetrig flips lane i's retrigger mode.
func (r *Runner) ToggleRetrig(i int) {
	r.editLane(i, func(p *LaneParams) {
		p.Retrig = !p.Retrig
	})
}

// Table edits. Each takes the lock so edits never race the process loop.

// Randomize randomizes the truth table.
func (r *Runner) Randomize() {
	r.mu.Lock()
	r.core.Randomize()
	r.mu.Unlock()
	r.notifyUpdate()
}

// Mutate flips a few random truth table bits.
func (r *Runner) Mutate() {
	r.mu.Lock()
	r.core.Mutate()
	r.mu.Unlock()
	r.notifyUpdate()
}

// Undo reverts the last table edit.
func (r *Runner) Undo() bool {
	r.mu.Lock()
	ok := r.core.Undo()
	r.mu.Unlock()
	if ok {
		r.notifyUpdate()
	}
	return ok
}

// Redo reverses the last Undo.
func (r *Runner) Redo() bool {
	r.mu.Lock()
	ok := r.core.Redo()
	r.mu.Unlock()
	if ok {
		r.notifyUpdate()
	}
	return ok
}

// LoadPreset loads a named truth table preset.
func (r *Runner) LoadPreset(p Preset) {
	r.mu.Lock()
	r.core.LoadPreset(p)
	r.mu.Unlock()
	r.notifyUpdate()
}

// ToggleBit flips one table bit interactively.
func (r *Runner) ToggleBit(state, bit int) {
	r.mu.Lock()
	r.core.ToggleBit(state, bit)
	r.mu.Unlock()
	r.notifyUpdate()
}

// Snapshot returns the core's latest display snapshot.
func (r *Runner) Snapshot() *Snapshot {
	return r.core.Snapshot()
}

// Persistence

// Serialize captures persisted engine state.
func (r *Runner) Serialize() PersistedState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.core.Serialize()
}

// Deserialize restores persisted engine state.
func (r *Runner) Deserialize(st PersistedState) {
	r.mu.Lock()
	r.core.Deserialize(st)
	r.mu.Unlock()
	r.notifyUpdate()
}
