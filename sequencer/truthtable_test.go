package sequencer

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruthTable_IdentityDefault(t *testing.T) {
	tt := NewTruthTable(4, 1)
	require.Equal(t, 16, tt.States())

	for i := 0; i < tt.States(); i++ {
		assert.Equal(t, uint16(i), tt.Mapping(i))
	}

	in := []bool{true, false, true, false}
	assert.Equal(t, in, tt.Evaluate(in))
}

func TestTruthTable_PackBitOrder(t *testing.T) {
	tt := NewTruthTable(4, 1)
	assert.Equal(t, uint16(0b0001), tt.Pack([]bool{true, false, false, false}))
	assert.Equal(t, uint16(0b1010), tt.Pack([]bool{false, true, false, true}))
	assert.Equal(t, uint16(0b1111), tt.Pack([]bool{true, true, true, true}))
}

func TestTruthTable_ToggleBit(t *testing.T) {
	tt := NewTruthTable(4, 1)

	tt.ToggleBit(5, 3)
	assert.Equal(t, uint16(5|8), tt.Mapping(5))
	tt.ToggleBit(5, 3)
	assert.Equal(t, uint16(5), tt.Mapping(5))

	// Out of range is a silent no-op
	tt.ToggleBit(100, 0)
	tt.ToggleBit(0, 9)
	assert.Equal(t, uint16(0), tt.Mapping(0))

	// ToggleBit records no history itself; that is the caller's job
	assert.False(t, tt.Undo())

	tt.PushUndo()
	tt.ToggleBit(5, 3)
	require.True(t, tt.Undo())
	assert.Equal(t, uint16(5), tt.Mapping(5))

	// A direct toggle still invalidates the redo branch
	tt.ToggleBit(0, 0)
	assert.False(t, tt.Redo())
}

func TestTruthTable_UndoRedo(t *testing.T) {
	tt := NewTruthTable(3, 1)
	identity := tt.Serialize()

	tt.Randomize()
	randomized := tt.Serialize()

	require.True(t, tt.Undo())
	assert.Equal(t, identity, tt.Serialize())

	require.True(t, tt.Redo())
	assert.Equal(t, randomized, tt.Serialize())

	require.True(t, tt.Undo())
	assert.Equal(t, identity, tt.Serialize())
}

func TestTruthTable_UndoEmptyStack(t *testing.T) {
	tt := NewTruthTable(3, 1)
	assert.False(t, tt.Undo())
	assert.False(t, tt.Redo())
}

func TestTruthTable_EditClearsRedo(t *testing.T) {
	tt := NewTruthTable(3, 1)

	tt.Randomize()
	require.True(t, tt.Undo())
	require.True(t, tt.Redo())
	require.True(t, tt.Undo())

	// A fresh edit invalidates the redo branch
	tt.Mutate()
	assert.False(t, tt.Redo())
}

func TestTruthTable_UnlimitedUndoDepth(t *testing.T) {
	tt := NewTruthTable(3, 1)
	for i := 0; i < 100; i++ {
		tt.Mutate()
	}
	for i := 0; i < 100; i++ {
		require.True(t, tt.Undo(), "undo %d", i)
	}
	assert.False(t, tt.Undo())

	for i := 0; i < tt.States(); i++ {
		assert.Equal(t, uint16(i), tt.Mapping(i))
	}
}

func TestTruthTable_MutateFlipsAtMostThreeBits(t *testing.T) {
	tt := NewTruthTable(4, 1)
	for trial := 0; trial < 200; trial++ {
		before := tt.Serialize()
		tt.Mutate()
		after := tt.Serialize()

		flipped := 0
		for i := range before {
			flipped += bits.OnesCount16(before[i] ^ after[i])
		}
		// Colliding picks may cancel out, so zero is legal
		assert.LessOrEqual(t, flipped, 3)
	}
}

func TestTruthTable_RandomizeIsUndoable(t *testing.T) {
	tt := NewTruthTable(4, 7)
	before := tt.Serialize()
	tt.Randomize()
	assert.NotEqual(t, before, tt.Serialize())
	require.True(t, tt.Undo())
	assert.Equal(t, before, tt.Serialize())
}

func TestTruthTable_Presets(t *testing.T) {
	tt := NewTruthTable(4, 1)
	all := uint16(0b1111)

	check := func(p Preset, want func(idx uint16) uint16) {
		t.Helper()
		tt.LoadPreset(p)
		for i := 0; i < tt.States(); i++ {
			assert.Equal(t, want(uint16(i)), tt.Mapping(i), "%s state %d", p, i)
		}
	}

	check(PresetPass, func(idx uint16) uint16 { return idx })
	check(PresetOr, func(idx uint16) uint16 { return allIf(idx != 0, all) })
	check(PresetAnd, func(idx uint16) uint16 { return allIf(idx == all, all) })
	check(PresetXor, func(idx uint16) uint16 { return allIf(bits.OnesCount16(idx)%2 == 1, all) })
	check(PresetMajority, func(idx uint16) uint16 { return allIf(bits.OnesCount16(idx) >= 2, all) })
	check(PresetNor, func(idx uint16) uint16 { return allIf(idx == 0, all) })
	check(PresetNand, func(idx uint16) uint16 { return allIf(idx != all, all) })
	check(PresetInvert, func(idx uint16) uint16 { return ^idx & all })
	check(PresetRotate, func(idx uint16) uint16 { return (idx<<1 | idx>>3) & all })
}

func TestTruthTable_PresetsGeneralizeToAnyWidth(t *testing.T) {
	tt := NewTruthTable(3, 1)
	tt.LoadPreset(PresetMajority)

	// 3 channels: majority needs 2 of 3
	assert.Equal(t, uint16(0), tt.Mapping(0b001))
	assert.Equal(t, uint16(0b111), tt.Mapping(0b011))
	assert.Equal(t, uint16(0b111), tt.Mapping(0b111))
}

func TestTruthTable_PresetIsUndoable(t *testing.T) {
	tt := NewTruthTable(4, 1)
	tt.LoadPreset(PresetXor)
	require.True(t, tt.Undo())
	assert.Equal(t, uint16(5), tt.Mapping(5))
}

func TestTruthTable_SerializeReturnsCopy(t *testing.T) {
	tt := NewTruthTable(3, 1)
	data := tt.Serialize()
	data[0] = 7
	assert.Equal(t, uint16(0), tt.Mapping(0))
}

func TestTruthTable_DeserializeDefaultsMissingEntries(t *testing.T) {
	tt := NewTruthTable(4, 1)
	tt.Randomize()

	tt.Deserialize([]uint16{3, 1})
	assert.Equal(t, uint16(3), tt.Mapping(0))
	assert.Equal(t, uint16(1), tt.Mapping(1))
	for i := 2; i < tt.States(); i++ {
		assert.Equal(t, uint16(i), tt.Mapping(i), "state %d", i)
	}
}

func TestTruthTable_DeserializeMasksOutOfRangeBits(t *testing.T) {
	tt := NewTruthTable(2, 1)
	tt.Deserialize([]uint16{0xFFFF})
	assert.Equal(t, uint16(0b11), tt.Mapping(0))
}

func TestPreset_Names(t *testing.T) {
	assert.Equal(t, "PASS", PresetPass.String())
	assert.Equal(t, "MAJORITY", PresetMajority.String())
	assert.Equal(t, "?", Preset(-1).String())
	assert.Len(t, Presets(), 9)
}
