package multiagent

import (
	"fmt"

	"github.com/hupe1980/meshrl/checkpoint"
	"github.com/hupe1980/meshrl/core"
	"github.com/hupe1980/meshrl/logging"
	"github.com/hupe1980/meshrl/replay"
)

// Individual maps every agent identity to its own learner and replay store.
// Stores and learners are fully disjoint; nothing is amortized.
type Individual struct {
	agentIDs []string
	learners map[string]core.Learner
	buffers  map[string]*replay.Buffer
	run      *core.RunContext
	runMode  core.RunMode
	ckpt     *checkpoint.Manager
	logger   logging.Logger
}

// NewIndividual constructs the per-agent variant. capacity is the replay
// capacity of each agent's own store.
func NewIndividual(
	run *core.RunContext,
	env core.Environment,
	capacity int,
	runMode core.RunMode,
	factory core.LearnerFactory,
	optFns ...func(o *Options),
) (*Individual, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	agentIDs := env.Agents()
	c := &Individual{
		agentIDs: append([]string(nil), agentIDs...),
		learners: make(map[string]core.Learner, len(agentIDs)),
		buffers:  make(map[string]*replay.Buffer, len(agentIDs)),
		run:      run,
		runMode:  runMode,
		ckpt:     opts.Checkpoint,
		logger:   opts.Logger,
	}

	for _, id := range c.agentIDs {
		params := resolveParams(env, id, run.Split("learner/"+id))

		learner, err := factory(params)
		if err != nil {
			return nil, fmt.Errorf("multiagent: construct learner for agent %s: %w", id, err)
		}
		c.learners[id] = learner

		buf, err := replay.New(params.ObsDim, params.ActionDim, capacity, run.Split("replay/"+id).RNG)
		if err != nil {
			return nil, fmt.Errorf("multiagent: construct store for agent %s: %w", id, err)
		}
		c.buffers[id] = buf
	}
	return c, nil
}

// Reset resets each agent's learner once.
func (c *Individual) Reset() {
	for _, id := range c.agentIDs {
		c.learners[id].Reset()
	}
}

// Act selects one action per agent from that agent's own learner.
func (c *Individual) Act(obs map[string][]float64, sample bool, mode core.Mode) (map[string][]float64, error) {
	actions := make(map[string][]float64, len(c.agentIDs))
	for _, id := range c.agentIDs {
		action, err := actScoped(c.learners[id], obs[id], sample, mode)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", id, err)
		}
		actions[id] = action
	}
	return actions, nil
}

// Update runs one update per agent on its own store, learner and logger.
func (c *Individual) Update(loggers map[string]core.MetricsLogger, step int) error {
	for _, id := range c.agentIDs {
		if err := c.learners[id].Update(c.buffers[id], loggers[id], step); err != nil {
			return fmt.Errorf("multiagent: update agent %s: %w", id, err)
		}
	}
	return nil
}

// AddToBuffer writes one transition per agent into that agent's store.
func (c *Individual) AddToBuffer(obs, actions map[string][]float64, rewards map[string]float64, nextObs map[string][]float64, done, doneNoMax bool) {
	for _, id := range c.agentIDs {
		c.buffers[id].Add(core.Transition{
			Observation:     obs[id],
			Action:          actions[id],
			Reward:          rewards[id],
			NextObservation: nextObs[id],
			Done:            done,
			DoneNoMax:       doneNoMax,
		})
	}
}

// SaveCheckpoint writes every learner's state and every store's raw arrays.
func (c *Individual) SaveCheckpoint(dir string, step int) error {
	models := make(map[string]core.LearnerState, len(c.agentIDs))
	archives := make(map[string]replay.Arrays, len(c.agentIDs))
	for _, id := range c.agentIDs {
		state, err := c.learners[id].ExportState()
		if err != nil {
			return fmt.Errorf("multiagent: export agent %s: %w", id, err)
		}
		models[id] = state
		archives[id] = c.buffers[id].Arrays()
	}
	return c.ckpt.Save(dir, step, models, archives)
}

// LoadCheckpoint restores every learner and, in train mode, reconstructs
// every store by replaying exactly step insertions per agent.
func (c *Individual) LoadCheckpoint(dir, name string) (int, error) {
	step, models, err := c.ckpt.Load(dir, name)
	if err != nil {
		return 0, err
	}

	for _, id := range c.agentIDs {
		state, ok := models[id]
		if !ok {
			return 0, fmt.Errorf("multiagent: %w: no model state for agent %s", core.ErrCheckpointCorrupt, id)
		}
		// Remap onto the runtime device; never rely on the saved placement.
		state = state.Clone()
		state.Device = c.run.Device
		if err := c.learners[id].ImportState(state); err != nil {
			return 0, fmt.Errorf("multiagent: import agent %s: %w", id, err)
		}
	}

	if c.runMode == core.RunModeTrain {
		for _, id := range c.agentIDs {
			arrays, err := c.ckpt.ReadArchive(dir, name, id)
			if err != nil {
				return 0, fmt.Errorf("multiagent: archive for agent %s: %w", id, err)
			}
			if err := c.ckpt.Replay(c.buffers[id], arrays, step); err != nil {
				return 0, fmt.Errorf("multiagent: reconstruct store for agent %s: %w", id, err)
			}
		}
	}

	c.logger.Info("loaded checkpoint", "name", name, "step", step, "variant", "individual")
	return step, nil
}

// AgentIDs returns the ordered agent identity set.
func (c *Individual) AgentIDs() []string { return append([]string(nil), c.agentIDs...) }

// Buffer returns the named agent's store. Exposed for evaluation tooling and
// tests; training code reaches stores only through Update and AddToBuffer.
func (c *Individual) Buffer(agentID string) *replay.Buffer { return c.buffers[agentID] }

// Learner returns the named agent's learner.
func (c *Individual) Learner(agentID string) core.Learner { return c.learners[agentID] }

var _ Controller = (*Individual)(nil)
