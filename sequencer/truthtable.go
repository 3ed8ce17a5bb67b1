package sequencer

import (
	"math/bits"
	"math/rand"
)

// MaxChannels bounds the truth table width so masks fit in uint16.
const MaxChannels = 16

// Preset identifies a built-in truth table function.
type Preset int

const (
	PresetPass Preset = iota
	PresetOr
	PresetAnd
	PresetXor
	PresetMajority
	PresetNor
	PresetNand
	PresetRotate
	PresetInvert
)

var presetNames = []string{
	"PASS", "OR", "AND", "XOR", "MAJORITY", "NOR", "NAND", "ROTATE", "INVERT",
}

// Presets lists all built-in presets in display order.
func Presets() []Preset {
	out := make([]Preset, len(presetNames))
	for i := range out {
		out[i] = Preset(i)
	}
	return out
}

func (p Preset) String() string {
	if p < 0 || int(p) >= len(presetNames) {
		return "?"
	}
	return presetNames[p]
}

// TruthTable maps every combination of n boolean inputs to an n-bit
// output mask. It starts as the identity (output mirrors input) and
// supports randomize/mutate editing with unlimited undo and redo.
//
// Index and bit arguments outside range are silently ignored: the table
// is driven by internally computed indices that are always in range, so
// an out-of-range call is a caller bug, not a runtime condition.
type TruthTable struct {
	n       int
	mapping []uint16

	undoStack [][]uint16
	redoStack [][]uint16

	rng *rand.Rand
}

// NewTruthTable creates an identity table for n channels. n is clamped
// to [1, MaxChannels].
func NewTruthTable(n int, seed int64) *TruthTable {
	n = clampInt(n, 1, MaxChannels)
	t := &TruthTable{
		n:       n,
		mapping: make([]uint16, 1<<n),
		rng:     rand.New(rand.NewSource(seed)),
	}
	for i := range t.mapping {
		t.mapping[i] = uint16(i)
	}
	return t
}

// Channels returns the channel count n.
func (t *TruthTable) Channels() int { return t.n }

// States returns the number of table rows, 2^n.
func (t *TruthTable) States() int { return len(t.mapping) }

// SetSeed reseeds the RNG used by Randomize and Mutate.
func (t *TruthTable) SetSeed(seed int64) {
	t.rng = rand.New(rand.NewSource(seed))
}

func (t *TruthTable) maskAll() uint16 {
	return uint16(1<<t.n - 1)
}

// Pack converts an input vector to its table index (input i is bit i).
func (t *TruthTable) Pack(inputs []bool) uint16 {
	var idx uint16
	for i := 0; i < t.n && i < len(inputs); i++ {
		if inputs[i] {
			idx |= 1 << i
		}
	}
	return idx
}

// Evaluate maps the input vector through the table. Pure with respect to
// table state.
func (t *TruthTable) Evaluate(inputs []bool) []bool {
	mask := t.mapping[t.Pack(inputs)]
	outputs := make([]bool, t.n)
	for i := 0; i < t.n; i++ {
		outputs[i] = mask>>i&1 != 0
	}
	return outputs
}

// Mapping returns the output mask for an input state, or 0 out of range.
func (t *TruthTable) Mapping(state int) uint16 {
	if state < 0 || state >= len(t.mapping) {
		return 0
	}
	return t.mapping[state]
}

// SetMapping sets the output mask for an input state. No-op out of range.
func (t *TruthTable) SetMapping(state int, mask uint16) {
	if state < 0 || state >= len(t.mapping) {
		return
	}
	t.redoStack = nil
	t.mapping[state] = mask & t.maskAll()
}

// ToggleBit flips one output bit of one input state. It does not record
// undo history itself; interactive callers are expected to PushUndo
// before mutating. The redo stack is still invalidated.
func (t *TruthTable) ToggleBit(state, bit int) {
	if state < 0 || state >= len(t.mapping) || bit < 0 || bit >= t.n {
		return
	}
	t.redoStack = nil
	t.mapping[state] ^= 1 << bit
}

func (t *TruthTable) snapshot() []uint16 {
	out := make([]uint16, len(t.mapping))
	copy(out, t.mapping)
	return out
}

// PushUndo records the current mapping and clears the redo stack.
func (t *TruthTable) PushUndo() {
	t.undoStack = append(t.undoStack, t.snapshot())
	t.redoStack = nil
}

// Undo restores the previous mapping. Returns false if there is none.
func (t *TruthTable) Undo() bool {
	if len(t.undoStack) == 0 {
		return false
	}
	t.redoStack = append(t.redoStack, t.snapshot())
	t.mapping = t.undoStack[len(t.undoStack)-1]
	t.undoStack = t.undoStack[:len(t.undoStack)-1]
	return true
}

// Redo reverses the most recent Undo. Returns false if there is none.
func (t *TruthTable) Redo() bool {
	if len(t.redoStack) == 0 {
		return false
	}
	t.undoStack = append(t.undoStack, t.snapshot())
	t.mapping = t.redoStack[len(t.redoStack)-1]
	t.redoStack = t.redoStack[:len(t.redoStack)-1]
	return true
}

// Randomize replaces every entry with a uniform random mask.
func (t *TruthTable) Randomize() {
	t.PushUndo()
	for i := range t.mapping {
		t.mapping[i] = uint16(t.rng.Intn(len(t.mapping)))
	}
}

// Mutate flips 1-3 random bits across independent (entry, bit) picks.
// Picks may collide and flip the same bit twice, netting no change; that
// occasional no-op is part of the observed behavior.
func (t *TruthTable) Mutate() {
	t.PushUndo()
	flips := 1 + t.rng.Intn(min(3, t.n))
	for i := 0; i < flips; i++ {
		entry := t.rng.Intn(len(t.mapping))
		bit := t.rng.Intn(t.n)
		t.mapping[entry] ^= 1 << bit
	}
}

// LoadPreset rewrites the whole table from a named boolean function of
// the input index. All presets are defined for any channel count; for
// n=4 they match the classic 16-row table.
func (t *TruthTable) LoadPreset(p Preset) {
	t.PushUndo()
	all := t.maskAll()
	for i := range t.mapping {
		idx := uint16(i)
		pop := bits.OnesCount16(idx)
		switch p {
		case PresetOr:
			t.mapping[i] = allIf(idx != 0, all)
		case PresetAnd:
			t.mapping[i] = allIf(idx == all, all)
		case PresetXor:
			t.mapping[i] = allIf(pop%2 == 1, all)
		case PresetMajority:
			t.mapping[i] = allIf(pop >= (t.n+1)/2, all)
		case PresetNor:
			t.mapping[i] = allIf(idx == 0, all)
		case PresetNand:
			t.mapping[i] = allIf(idx != all, all)
		case PresetRotate:
			t.mapping[i] = (idx<<1 | idx>>(t.n-1)) & all
		case PresetInvert:
			t.mapping[i] = ^idx & all
		default: // PresetPass
			t.mapping[i] = idx
		}
	}
}

// Serialize returns a copy of the mapping as small integers.
func (t *TruthTable) Serialize() []uint16 {
	return t.snapshot()
}

// Deserialize restores the mapping entry by entry. Missing entries keep
// the identity default and extra entries are ignored, so a short or
// partially corrupt document never prevents loading.
func (t *TruthTable) Deserialize(data []uint16) {
	for i := range t.mapping {
		if i < len(data) {
			t.mapping[i] = data[i] & t.maskAll()
		} else {
			t.mapping[i] = uint16(i)
		}
	}
}

func allIf(cond bool, all uint16) uint16 {
	if cond {
		return all
	}
	return 0
}
