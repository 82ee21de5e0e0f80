package multiagent

import (
	"fmt"

	"github.com/hupe1980/meshrl/checkpoint"
	"github.com/hupe1980/meshrl/core"
	"github.com/hupe1980/meshrl/logging"
	"github.com/hupe1980/meshrl/replay"
)

// sharedKey names the single model state and archive file of the Shared
// variant inside a checkpoint.
const sharedKey = "shared"

// Shared references one learner and one replay store from every agent
// identity. All identities are assumed to share observation and action
// spaces; the first identity's spaces parameterize the learner. The store is
// provisioned with perAgentCapacity times the number of identities so one
// full cycle across all identities fits.
type Shared struct {
	agentIDs []string
	learner  core.Learner
	buffer   *replay.Buffer
	run      *core.RunContext
	runMode  core.RunMode
	ckpt     *checkpoint.Manager
	logger   logging.Logger
}

// NewShared constructs the pooled variant. perAgentCapacity is the replay
// capacity budgeted per identity; the shared store multiplies it out.
func NewShared(
	run *core.RunContext,
	env core.Environment,
	perAgentCapacity int,
	runMode core.RunMode,
	factory core.LearnerFactory,
	optFns ...func(o *Options),
) (*Shared, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	agentIDs := env.Agents()
	if len(agentIDs) == 0 {
		return nil, fmt.Errorf("multiagent: environment exposes no agent identities")
	}

	params := resolveParams(env, agentIDs[0], run.Split("learner/"+sharedKey))
	learner, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("multiagent: construct shared learner: %w", err)
	}

	buf, err := replay.New(params.ObsDim, params.ActionDim, perAgentCapacity*len(agentIDs), run.Split("replay/"+sharedKey).RNG)
	if err != nil {
		return nil, fmt.Errorf("multiagent: construct shared store: %w", err)
	}

	return &Shared{
		agentIDs: append([]string(nil), agentIDs...),
		learner:  learner,
		buffer:   buf,
		run:      run,
		runMode:  runMode,
		ckpt:     opts.Checkpoint,
		logger:   opts.Logger,
	}, nil
}

// Reset resets the single shared learner once, not once per identity.
func (c *Shared) Reset() {
	c.learner.Reset()
}

// Act selects one action per agent identity from the shared learner.
func (c *Shared) Act(obs map[string][]float64, sample bool, mode core.Mode) (map[string][]float64, error) {
	actions := make(map[string][]float64, len(c.agentIDs))
	for _, id := range c.agentIDs {
		action, err := actScoped(c.learner, obs[id], sample, mode)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", id, err)
		}
		actions[id] = action
	}
	return actions, nil
}

// Update runs one update per agent identity, all against the shared learner
// and store. The shared learner deliberately receives len(agentIDs) updates
// per orchestration step; the logged diagnostics are not agent-specific,
// each call just routes through a different identity's logger.
func (c *Shared) Update(loggers map[string]core.MetricsLogger, step int) error {
	for _, id := range c.agentIDs {
		if err := c.learner.Update(c.buffer, loggers[id], step); err != nil {
			return fmt.Errorf("multiagent: shared update via agent %s: %w", id, err)
		}
	}
	return nil
}

// AddToBuffer writes one transition per agent identity into the shared
// store, in agent-id order.
func (c *Shared) AddToBuffer(obs, actions map[string][]float64, rewards map[string]float64, nextObs map[string][]float64, done, doneNoMax bool) {
	for _, id := range c.agentIDs {
		c.buffer.Add(core.Transition{
			Observation:     obs[id],
			Action:          actions[id],
			Reward:          rewards[id],
			NextObservation: nextObs[id],
			Done:            done,
			DoneNoMax:       doneNoMax,
		})
	}
}

// SaveCheckpoint writes the shared learner state and the shared store's raw
// arrays under a single key.
func (c *Shared) SaveCheckpoint(dir string, step int) error {
	state, err := c.learner.ExportState()
	if err != nil {
		return fmt.Errorf("multiagent: export shared learner: %w", err)
	}
	return c.ckpt.Save(dir, step,
		map[string]core.LearnerState{sharedKey: state},
		map[string]replay.Arrays{sharedKey: c.buffer.Arrays()},
	)
}

// LoadCheckpoint restores the shared learner and, in train mode,
// reconstructs the shared store by replaying step times len(agentIDs)
// insertions, one per identity per orchestration step.
func (c *Shared) LoadCheckpoint(dir, name string) (int, error) {
	step, models, err := c.ckpt.Load(dir, name)
	if err != nil {
		return 0, err
	}

	state, ok := models[sharedKey]
	if !ok {
		return 0, fmt.Errorf("multiagent: %w: no shared model state", core.ErrCheckpointCorrupt)
	}
	// Remap onto the runtime device; never rely on the saved placement.
	state = state.Clone()
	state.Device = c.run.Device
	if err := c.learner.ImportState(state); err != nil {
		return 0, fmt.Errorf("multiagent: import shared learner: %w", err)
	}

	if c.runMode == core.RunModeTrain {
		arrays, err := c.ckpt.ReadArchive(dir, name, sharedKey)
		if err != nil {
			return 0, fmt.Errorf("multiagent: shared archive: %w", err)
		}
		if err := c.ckpt.Replay(c.buffer, arrays, step*len(c.agentIDs)); err != nil {
			return 0, fmt.Errorf("multiagent: reconstruct shared store: %w", err)
		}
	}

	c.logger.Info("loaded checkpoint", "name", name, "step", step, "variant", "shared")
	return step, nil
}

// AgentIDs returns the ordered agent identity set.
func (c *Shared) AgentIDs() []string { return append([]string(nil), c.agentIDs...) }

// Buffer returns the shared store.
func (c *Shared) Buffer() *replay.Buffer { return c.buffer }

// Learner returns the shared learner.
func (c *Shared) Learner() core.Learner { return c.learner }

var _ Controller = (*Shared)(nil)
