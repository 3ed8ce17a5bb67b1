package sequencer

import "math/rand"

// Gate passes boolean events through with a configurable probability.
// The RNG stream is seeded so two gates with the same seed and the same
// call sequence produce identical results, which is what makes the
// probability path unit-testable. A draw is consumed only when the input
// is active and the probability is strictly between 0 and 1. Inactive
// inputs must not advance the stream, or gates fed different hit
// densities would desynchronize.
type Gate struct {
	probability float64
	seed        int64
	rng         *rand.Rand
}

// NewGate creates a gate that always passes, seeded with the given seed.
func NewGate(seed int64) *Gate {
	return &Gate{
		probability: 1.0,
		seed:        seed,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// SetSeed reseeds the RNG stream.
func (g *Gate) SetSeed(seed int64) {
	g.seed = seed
	g.rng = rand.New(rand.NewSource(seed))
}

// Reset rewinds the stream to its initial state without changing the seed.
func (g *Gate) Reset() {
	g.rng = rand.New(rand.NewSource(g.seed))
}

// SetProbability sets the pass probability, clamped to [0, 1].
func (g *Gate) SetProbability(p float64) {
	g.probability = clampFloat(p, 0, 1)
}

// Probability returns the current pass probability.
func (g *Gate) Probability() float64 { return g.probability }

// Test draws against the current probability. p<=0 and p>=1 short-circuit
// without consuming a draw.
func (g *Gate) Test() bool {
	return g.draw(g.probability)
}

// Process applies the gate to an input using the stored probability.
func (g *Gate) Process(input bool) bool {
	if !input {
		return false
	}
	return g.draw(g.probability)
}

// ProcessWith applies the gate with an explicit probability, for values
// modulated per call.
func (g *Gate) ProcessWith(input bool, p float64) bool {
	if !input {
		return false
	}
	return g.draw(p)
}

func (g *Gate) draw(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return g.rng.Float64() < p
}
