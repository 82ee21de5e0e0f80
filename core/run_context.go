package core

import (
	"hash/fnv"
	"math/rand"
)

// RunContext carries the explicit randomness and device scope threaded
// through construction of every stateful component. There is no hidden
// process-wide seed: each component receives its own derived RNG stream so
// that component construction order does not perturb reproducibility.
type RunContext struct {
	Seed   int64
	Device string
	RNG    *rand.Rand
}

// NewRunContext constructs a root context for the given seed and device.
func NewRunContext(seed int64, device string) *RunContext {
	return &RunContext{
		Seed:   seed,
		Device: device,
		RNG:    rand.New(rand.NewSource(seed)),
	}
}

// Split derives a child context with an independent RNG stream keyed by name.
// Two splits with the same name off the same parent produce identical
// streams, which keeps resumed runs reproducible.
func (rc *RunContext) Split(name string) *RunContext {
	h := fnv.New64a()
	h.Write([]byte(name))
	seed := rc.Seed ^ int64(h.Sum64())
	return &RunContext{
		Seed:   seed,
		Device: rc.Device,
		RNG:    rand.New(rand.NewSource(seed)),
	}
}
