package core

// Learner is the capability interface a learning agent must satisfy to be
// orchestrated by a controller, independent of its internal algorithm.
//
// Implementations must:
//   - Keep Act free of side effects on any replay store
//   - Perform exactly one learning update per Update call
//   - Restore behavior exactly on ImportState(ExportState())
type Learner interface {
	// Reset clears any internal episodic state (e.g. recurrent hidden state).
	// Learners without episodic state implement it as a no-op.
	Reset()

	// Training reports whether the learner is in training behavior.
	Training() bool

	// SetTraining switches between training and evaluation behavior. The
	// switch affects behavioral toggles only; it must not touch parameters.
	SetTraining(training bool)

	// Act selects an action for one observation. sample=true draws a
	// stochastic action for exploration; sample=false returns the
	// deterministic mode action for evaluation.
	Act(observation []float64, sample bool) []float64

	// Update performs one learning update consuming a sample from store and
	// records training diagnostics through logger.
	Update(store Sampler, logger MetricsLogger, step int) error

	// ExportState snapshots every learnable parameter and optimizer buffer.
	ExportState() (LearnerState, error)

	// ImportState restores a snapshot produced by ExportState. After a
	// successful import, Act and Update behave identically to the learner
	// that exported the state.
	ImportState(state LearnerState) error
}

// OptimState is the exported state of one optimizer: its step counter and
// one momentum buffer per parameter group entry.
type OptimState struct {
	Step     int                  `cbor:"step"`
	Momentum map[string][]float64 `cbor:"momentum"`
}

// LearnerState is a full parameter + optimizer snapshot of a learner. All
// tensors are flat float64 slices keyed by parameter name; Device records the
// placement the snapshot was taken on so a load can remap explicitly.
type LearnerState struct {
	Algo    string                `cbor:"algo"`
	Device  string                `cbor:"device"`
	Params  map[string][]float64  `cbor:"params"`
	Scalars map[string]float64    `cbor:"scalars"`
	Optims  map[string]OptimState `cbor:"optims"`
}

// Clone returns a deep copy of the state.
func (s LearnerState) Clone() LearnerState {
	out := LearnerState{
		Algo:    s.Algo,
		Device:  s.Device,
		Params:  make(map[string][]float64, len(s.Params)),
		Scalars: make(map[string]float64, len(s.Scalars)),
		Optims:  make(map[string]OptimState, len(s.Optims)),
	}
	for k, v := range s.Params {
		out.Params[k] = append([]float64(nil), v...)
	}
	for k, v := range s.Scalars {
		out.Scalars[k] = v
	}
	for k, o := range s.Optims {
		mom := make(map[string][]float64, len(o.Momentum))
		for mk, mv := range o.Momentum {
			mom[mk] = append([]float64(nil), mv...)
		}
		out.Optims[k] = OptimState{Step: o.Step, Momentum: mom}
	}
	return out
}

// LearnerParams is the fully resolved, per-agent construction input for a
// learner. It is built once from the environment's spaces and passed
// immutably into the factory; no shared configuration object is mutated.
type LearnerParams struct {
	ObsDim      int
	ActionDim   int
	ActionRange [2]float64
	Run         *RunContext
}

// LearnerFactory constructs a learner from fully resolved parameters.
type LearnerFactory func(params LearnerParams) (Learner, error)
