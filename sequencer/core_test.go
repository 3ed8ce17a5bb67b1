package sequencer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frameRec is one frame of core output, copied out because Outputs
// reuses its lane slice.
type frameRec struct {
	ticked bool
	gates  []bool
	trigs  []bool
	pres   []bool
	lfos   []float64
}

// driveCore runs the core for frames milliseconds with a clock edge
// every clockEvery frames (single high frame, low otherwise).
func driveCore(c *Core, lanes []LaneParams, frames, clockEvery int) []frameRec {
	recs := make([]frameRec, 0, frames)
	for f := 0; f < frames; f++ {
		in := Inputs{SpeedIdx: SpeedIndexX1, SwingPercent: 50, Lanes: lanes}
		if f > 0 && f%clockEvery == 0 {
			in.Clock = 10
		}
		out := c.Process(in, 0.001)

		rec := frameRec{
			ticked: out.Ticked,
			gates:  make([]bool, len(out.Lanes)),
			trigs:  make([]bool, len(out.Lanes)),
			pres:   make([]bool, len(out.Lanes)),
			lfos:   make([]float64, len(out.Lanes)),
		}
		for i, l := range out.Lanes {
			rec.gates[i] = l.Gate
			rec.trigs[i] = l.Trig
			rec.pres[i] = l.PreGate
			rec.lfos[i] = l.LFO
		}
		recs = append(recs, rec)
	}
	return recs
}

func countTicks(recs []frameRec) int {
	n := 0
	for _, r := range recs {
		if r.ticked {
			n++
		}
	}
	return n
}

func fullLanes(n int) []LaneParams {
	lanes := make([]LaneParams, n)
	for i := range lanes {
		lanes[i] = LaneParams{Steps: 4, Hits: 4, ProbA: 1, ProbB: 1}
	}
	return lanes
}

func TestCore_EndToEndGates(t *testing.T) {
	c := NewCore(2, 42)
	recs := driveCore(c, fullLanes(2), 2400, 250)

	// 9 edges, one tick each at x1
	require.Equal(t, 9, countTicks(recs))

	// Every step hits with certain probability and an identity table,
	// so both gates go high on the first tick and stay high
	trigFrames := 0
	for f, r := range recs {
		if r.ticked {
			assert.True(t, r.gates[0], "frame %d", f)
			assert.True(t, r.gates[1], "frame %d", f)
		}
		if r.trigs[0] {
			trigFrames++
		}
	}
	// Gate never falls, retrigger off: a single trigger pulse
	assert.Equal(t, 1, trigFrames)

	// 9 ticks over a 4-step pattern leaves the cursor at step 1
	last := recs[len(recs)-1]
	assert.InDelta(t, 1.0/3, last.lfos[0], 1e-9)
}

func TestCore_RetriggerFiresEveryHit(t *testing.T) {
	lanes := fullLanes(1)
	lanes[0].Retrig = true

	c := NewCore(1, 42)
	recs := driveCore(c, lanes, 2400, 250)
	require.Equal(t, 9, countTicks(recs))

	trigFrames := 0
	firstTick := -1
	lowAfterFirst := 0
	for f, r := range recs {
		if r.ticked && firstTick < 0 {
			firstTick = f
		}
		if r.trigs[0] {
			trigFrames++
		}
		if firstTick >= 0 && !r.gates[0] {
			lowAfterFirst++
		}
	}

	assert.Equal(t, 9, trigFrames)
	// Each sustained retrigger forces one low frame for the gap
	assert.Equal(t, 8, lowAfterFirst)
}

func TestCore_ClockMultiplyDoublesTriggers(t *testing.T) {
	lanes := fullLanes(1)
	lanes[0].Retrig = true

	c := NewCore(1, 42)
	x2 := SpeedIndexX1 + 2
	require.Equal(t, 2.0, SpeedRatios[x2])

	var trigFrames []int
	for f := 0; f < 2150; f++ {
		in := Inputs{SpeedIdx: x2, SwingPercent: 50, Lanes: lanes}
		if f > 0 && f%250 == 0 {
			in.Clock = 10
		}
		out := c.Process(in, 0.001)
		if out.Lanes[0].Trig {
			trigFrames = append(trigFrames, f)
		}
	}

	// 8 edges at x2: a tick per edge plus one halfway between, and the
	// every-step pattern retriggers on each, so 16 evenly spaced pulses
	require.Len(t, trigFrames, 16)
	for i := 1; i < len(trigFrames); i++ {
		assert.InDelta(t, 125, trigFrames[i]-trigFrames[i-1], 2, "pulse %d", i)
	}
}

func TestCore_QuantDividesLaneClock(t *testing.T) {
	lanes := fullLanes(3)
	lanes[1].QuantIdx = 1 // /2
	lanes[2].QuantIdx = 2 // /4

	c := NewCore(3, 42)
	recs := driveCore(c, lanes, 2150, 250)
	require.Equal(t, 8, countTicks(recs))

	fires := make([]int, 3)
	for _, r := range recs {
		if !r.ticked {
			continue
		}
		for i := range fires {
			if r.pres[i] {
				fires[i]++
			}
		}
	}
	assert.Equal(t, []int{8, 4, 2}, fires)
}

func TestCore_TableRoutesLanes(t *testing.T) {
	c := NewCore(2, 42)

	// Swap the two channels in the table
	tbl := c.Table()
	tbl.SetMapping(0b01, 0b10)
	tbl.SetMapping(0b10, 0b01)

	lanes := fullLanes(2)
	lanes[1].Hits = 0 // lane 1 never hits

	recs := driveCore(c, lanes, 1200, 250)
	for f, r := range recs {
		if !r.ticked {
			continue
		}
		// Lane 0 hit pre-logic, lane 1 carries it post-logic
		assert.True(t, r.pres[0], "frame %d", f)
		assert.False(t, r.gates[0], "frame %d", f)
		assert.True(t, r.gates[1], "frame %d", f)
	}
}

func TestCore_SeededProbabilityIsDeterministic(t *testing.T) {
	lanes := fullLanes(2)
	lanes[0].ProbA = 0.5
	lanes[1].ProbB = 0.5

	a := NewCore(2, 7)
	b := NewCore(2, 7)
	ra := driveCore(a, lanes, 4200, 250)
	rb := driveCore(b, lanes, 4200, 250)

	for f := range ra {
		assert.Equal(t, rb[f].gates, ra[f].gates, "frame %d", f)
	}
}

func TestCore_DifferentSeedsDiverge(t *testing.T) {
	lanes := fullLanes(1)
	lanes[0].ProbA = 0.5

	a := NewCore(1, 1)
	b := NewCore(1, 2)
	ra := driveCore(a, lanes, 8200, 250)
	rb := driveCore(b, lanes, 8200, 250)

	same := true
	for f := range ra {
		if ra[f].gates[0] != rb[f].gates[0] {
			same = false
			break
		}
	}
	assert.False(t, same)
}

func TestCore_ResetPreservesTableMapping(t *testing.T) {
	c := NewCore(2, 42)
	c.Randomize()
	mapping := c.Table().Serialize()

	// 5 ticks over a 4-step pattern leaves the cursor off zero
	driveCore(c, fullLanes(2), 1300, 250)
	require.NotEqual(t, 0, c.Snapshot().Cursors[0])

	c.Process(Inputs{Reset: 10, SpeedIdx: SpeedIndexX1, SwingPercent: 50, Lanes: fullLanes(2)}, 0.001)

	snap := c.Snapshot()
	assert.Equal(t, []int{0, 0}, snap.Cursors)
	assert.Equal(t, mapping, snap.Mapping)
	assert.False(t, snap.Locked)
}

func TestCore_ProbBZeroSilencesButShowsPreGate(t *testing.T) {
	lanes := fullLanes(1)
	lanes[0].ProbB = 0

	c := NewCore(1, 42)
	recs := driveCore(c, lanes, 1200, 250)
	for f, r := range recs {
		if !r.ticked {
			continue
		}
		assert.True(t, r.pres[0], "frame %d", f)
		assert.False(t, r.gates[0], "frame %d", f)
	}
}

func TestCore_HitsCVModulation(t *testing.T) {
	lanes := []LaneParams{{Steps: 4, Hits: 0, HitsCV: 4, ProbA: 1, ProbB: 1}}

	c := NewCore(1, 42)
	recs := driveCore(c, lanes, 1200, 250)
	ticked := false
	for _, r := range recs {
		if r.ticked {
			ticked = true
			assert.True(t, r.gates[0])
		}
	}
	require.True(t, ticked)
}

func TestCore_SerializeRoundTrip(t *testing.T) {
	a := NewCore(3, 42)
	a.Randomize()
	a.Scheduler().SetPeriod(0.25)

	st := a.Serialize()
	assert.Equal(t, 0.25, st.ClockPeriod)

	b := NewCore(3, 42)
	b.Deserialize(st)
	assert.Equal(t, a.Table().Serialize(), b.Table().Serialize())
	assert.Equal(t, 0.25, b.Scheduler().Period())
}

func TestCore_DeserializeMalformedKeepsDefaults(t *testing.T) {
	c := NewCore(2, 42)
	c.Deserialize(PersistedState{ClockPeriod: -5, TruthTable: []uint16{2}})

	assert.Equal(t, DefaultClockPeriod, c.Scheduler().Period())
	assert.Equal(t, uint16(2), c.Table().Mapping(0))
	for i := 1; i < c.Table().States(); i++ {
		assert.Equal(t, uint16(i), c.Table().Mapping(i))
	}
}

func TestCore_EditMethodsPublishSnapshots(t *testing.T) {
	c := NewCore(2, 42)

	c.Randomize()
	assert.Equal(t, c.Table().Serialize(), c.Snapshot().Mapping)

	before := c.Snapshot().Mapping
	require.True(t, c.Undo())
	assert.NotEqual(t, before, c.Snapshot().Mapping)
	require.True(t, c.Redo())
	assert.Equal(t, before, c.Snapshot().Mapping)

	d := NewCore(2, 42)
	d.ToggleBit(0, 1)
	assert.Equal(t, uint16(0b10), d.Snapshot().Mapping[0])
	require.True(t, d.Undo())
	assert.Equal(t, uint16(0), d.Snapshot().Mapping[0])
}

func TestCore_ChannelCountClamped(t *testing.T) {
	assert.Equal(t, 1, NewCore(0, 1).Channels())
	assert.Equal(t, MaxChannels, NewCore(100, 1).Channels())
}

func TestCore_RunGateHoldsTicks(t *testing.T) {
	c := NewCore(1, 42)
	lanes := fullLanes(1)

	ticks := 0
	for f := 0; f < 1200; f++ {
		in := Inputs{SpeedIdx: SpeedIndexX1, SwingPercent: 50, Lanes: lanes, RunConnected: true}
		if f > 0 && f%250 == 0 {
			in.Clock = 10
		}
		if c.Process(in, 0.001).Ticked {
			ticks++
		}
	}
	assert.Zero(t, ticks)

	// Raising run resumes on the next edge
	for f := 0; f < 300; f++ {
		in := Inputs{SpeedIdx: SpeedIndexX1, SwingPercent: 50, Lanes: lanes, RunConnected: true, Run: 10}
		if f == 100 {
			in.Clock = 10
		}
		if c.Process(in, 0.001).Ticked {
			ticks++
		}
	}
	assert.NotZero(t, ticks)
}
