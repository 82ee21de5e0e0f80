package core

// Space describes one agent's observation or action box: shape, per-dimension
// bounds and uniform sampling within those bounds.
type Space interface {
	Shape() []int
	Low() []float64
	High() []float64

	// Sample draws a uniformly random point inside the box. Used for
	// exploration during the warm-up phase.
	Sample() []float64
}

// Environment is the simulator boundary. It hosts a fixed, ordered set of
// agent identities and emits one global episode-termination signal per step.
// Environment-side errors are surfaced through Step's info map or panics in
// the simulator itself; this core does not wrap them.
type Environment interface {
	// Reset starts a new episode and returns the initial observations keyed
	// by agent id.
	Reset() map[string][]float64

	// Step advances the simulation by one tick with the given actions and
	// returns next observations, per-agent rewards, the global done flag and
	// auxiliary info.
	Step(actions map[string][]float64) (map[string][]float64, map[string]float64, bool, map[string]any)

	// Seed reseeds the simulator's randomness.
	Seed(seed int64)

	// Agents returns the ordered agent identity set, fixed for the lifetime
	// of the environment.
	Agents() []string

	ObservationSpace(agentID string) Space
	ActionSpace(agentID string) Space

	// Horizon returns the fixed maximum episode length.
	Horizon() int
}

// Framer is an optional environment capability: a renderable snapshot of the
// current simulator state, consumed by episode recorders.
type Framer interface {
	Frame() []float64
}
