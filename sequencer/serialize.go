package sequencer

// PersistedState is the minimal document needed to reconstruct scheduler
// calibration and logic state across save/reload. The core only produces
// and consumes this struct; how it reaches disk is the caller's concern.
type PersistedState struct {
	ClockPeriod float64  `json:"clockPeriod"`
	TruthTable  []uint16 `json:"truthTable"`
}

// Serialize captures the measured clock period and the table mapping.
func (c *Core) Serialize() PersistedState {
	return PersistedState{
		ClockPeriod: c.sched.Period(),
		TruthTable:  c.table.Serialize(),
	}
}

// Deserialize restores persisted state. Fields are applied entry by
// entry with defaults for anything missing or out of range, so a
// partially corrupt document still loads.
func (c *Core) Deserialize(st PersistedState) {
	c.sched.SetPeriod(st.ClockPeriod)
	c.table.Deserialize(st.TruthTable)
	c.publish()
}
