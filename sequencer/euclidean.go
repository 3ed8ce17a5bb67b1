package sequencer

// Engine parameter limits
const (
	MinSteps = 1
	MaxSteps = 64
)

// Engine generates Euclidean rhythm patterns with Bjorklund's algorithm
// and steps through them with a wrapping cursor.
type Engine struct {
	steps    int
	hits     int
	rotation int

	cursor  int
	pattern []bool
}

// NewEngine creates an engine with the default 16-step, 8-hit pattern.
func NewEngine() *Engine {
	e := &Engine{steps: 16, hits: 8}
	e.generate()
	return e
}

// bjorklund distributes hits as evenly as possible across steps.
// Two bucket lists are interleaved pairwise until the remainder list
// has at most one bucket, then flattened in order.
func bjorklund(steps, hits int) []bool {
	pattern := make([]bool, steps)
	if hits <= 0 {
		return pattern
	}
	if hits >= steps {
		for i := range pattern {
			pattern[i] = true
		}
		return pattern
	}

	first := make([][]bool, 0, hits)
	second := make([][]bool, 0, steps-hits)
	for i := 0; i < hits; i++ {
		first = append(first, []bool{true})
	}
	for i := 0; i < steps-hits; i++ {
		second = append(second, []bool{false})
	}

	for len(second) > 1 {
		n := min(len(first), len(second))
		for i := 0; i < n; i++ {
			first[i] = append(first[i], second[i]...)
		}

		var remainder [][]bool
		if len(second) > len(first) {
			remainder = second[len(first):]
		} else if len(first) > len(second) {
			remainder = first[len(second):]
			first = first[:len(second)]
		}
		second = remainder
	}

	flat := make([]bool, 0, steps)
	for _, bucket := range first {
		flat = append(flat, bucket...)
	}
	for _, bucket := range second {
		flat = append(flat, bucket...)
	}
	return flat
}

// generate recomputes the pattern from the current parameters.
func (e *Engine) generate() {
	flat := bjorklund(e.steps, e.hits)

	// Apply rotation as a cyclic shift
	e.pattern = make([]bool, e.steps)
	for i := 0; i < e.steps; i++ {
		e.pattern[i] = flat[(i+e.rotation)%e.steps]
	}
}

// Configure clamps the parameters and regenerates the pattern, but only
// when something actually changed. The cursor resets only when the step
// count changes; otherwise it is clamped into range.
func (e *Engine) Configure(steps, hits, rotation int) {
	steps = clampInt(steps, MinSteps, MaxSteps)
	hits = clampInt(hits, 0, steps)
	rotation = clampInt(rotation, 0, steps-1)

	if steps == e.steps && hits == e.hits && rotation == e.rotation {
		return
	}

	stepsChanged := steps != e.steps
	e.steps = steps
	e.hits = hits
	e.rotation = rotation
	e.generate()

	if stepsChanged || e.cursor >= e.steps {
		e.cursor = 0
	}
}

// Tick returns whether the current step is a hit and advances the cursor.
func (e *Engine) Tick() bool {
	if len(e.pattern) == 0 {
		return false
	}
	hit := e.pattern[e.cursor]
	e.cursor = (e.cursor + 1) % e.steps
	return hit
}

// Reset moves the cursor back to step 0 without touching the pattern.
func (e *Engine) Reset() {
	e.cursor = 0
}

// Hit reports whether step n is a hit, without advancing.
func (e *Engine) Hit(n int) bool {
	if n < 0 || n >= len(e.pattern) {
		return false
	}
	return e.pattern[n]
}

// Steps returns the configured step count.
func (e *Engine) Steps() int { return e.steps }

// Hits returns the configured hit count.
func (e *Engine) Hits() int { return e.hits }

// Cursor returns the current step index.
func (e *Engine) Cursor() int { return e.cursor }

// Pattern returns a copy of the current hit pattern.
func (e *Engine) Pattern() []bool {
	out := make([]bool, len(e.pattern))
	copy(out, e.pattern)
	return out
}

// Phase returns the cursor position as a 0..1 ramp. The denominator is
// steps-1 so the ramp reaches its full range on the last step.
func (e *Engine) Phase() float64 {
	if e.steps <= 1 {
		return 0
	}
	return float64(e.cursor) / float64(e.steps-1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
