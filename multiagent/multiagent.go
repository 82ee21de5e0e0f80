package multiagent

import (
	"fmt"

	"github.com/hupe1980/meshrl/checkpoint"
	"github.com/hupe1980/meshrl/core"
	"github.com/hupe1980/meshrl/logging"
)

// Controller is the public contract of both orchestration variants. All
// per-agent maps are keyed by agent id; iteration follows the ordered agent
// identity set supplied at construction.
type Controller interface {
	// Reset resets every distinct underlying learner exactly once.
	Reset()

	// Act selects one action per agent identity. mode scopes the learner's
	// train/eval behavior around the call (acquired before acting, restored
	// after); an unrecognized mode fails with ErrInvalidMode.
	Act(obs map[string][]float64, sample bool, mode core.Mode) (map[string][]float64, error)

	// Update runs learning updates for one orchestration step, logging
	// diagnostics through the per-agent loggers.
	Update(loggers map[string]core.MetricsLogger, step int) error

	// AddToBuffer constructs one transition per agent identity and writes it
	// to the identity's store, in agent-id order. done and doneNoMax are
	// shared scalars for the whole multi-agent step.
	AddToBuffer(obs, actions map[string][]float64, rewards map[string]float64, nextObs map[string][]float64, done, doneNoMax bool)

	// SaveCheckpoint writes a cp_<step> checkpoint under dir.
	SaveCheckpoint(dir string, step int) error

	// LoadCheckpoint restores learner state from dir/name and, in train
	// mode, reconstructs every store. It returns the saved step counter.
	LoadCheckpoint(dir, name string) (int, error)

	// AgentIDs returns the ordered agent identity set.
	AgentIDs() []string
}

// Options holds dependency overrides shared by both variant constructors.
type Options struct {
	Logger     logging.Logger
	Checkpoint *checkpoint.Manager
}

func defaultOptions() Options {
	return Options{
		Logger:     logging.NoOpLogger{},
		Checkpoint: checkpoint.NewManager(),
	}
}

// actScoped applies the acting-mode scope around a single learner act call.
// The previous behavior is restored before returning, so no mode state leaks
// across calls.
func actScoped(l core.Learner, obs []float64, sample bool, mode core.Mode) ([]float64, error) {
	switch mode {
	case core.ModeEval:
		defer scopedTraining(l, false)()
	case core.ModeTrain:
		defer scopedTraining(l, true)()
	case core.ModeNone:
	default:
		return nil, fmt.Errorf("multiagent: %w: %q", core.ErrInvalidMode, mode)
	}
	return l.Act(obs, sample), nil
}

func scopedTraining(l core.Learner, training bool) func() {
	prev := l.Training()
	l.SetTraining(training)
	return func() { l.SetTraining(prev) }
}

// resolveParams builds the immutable per-agent learner parameters from the
// environment's spaces for one agent identity.
func resolveParams(env core.Environment, agentID string, run *core.RunContext) core.LearnerParams {
	obsSpace := env.ObservationSpace(agentID)
	actSpace := env.ActionSpace(agentID)
	return core.LearnerParams{
		ObsDim:      obsSpace.Shape()[0],
		ActionDim:   actSpace.Shape()[0],
		ActionRange: [2]float64{minOf(actSpace.Low()), maxOf(actSpace.High())},
		Run:         run,
	}
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
