package agent

import (
	"math/rand"

	"github.com/hupe1980/meshrl/core"
)

const algoRandom = "random"

// Random is a uniform-random baseline learner. It acts uniformly inside the
// action range, never learns, and exports an empty (but round-trippable)
// state. Useful for wiring tests and as a floor in evaluation comparisons.
type Random struct {
	actionDim int
	low, high float64
	rng       *rand.Rand
	device    string
	training  bool
}

// RandomFactory constructs Random learners.
func RandomFactory() core.LearnerFactory {
	return func(p core.LearnerParams) (core.Learner, error) {
		return &Random{
			actionDim: p.ActionDim,
			low:       p.ActionRange[0],
			high:      p.ActionRange[1],
			rng:       p.Run.RNG,
			device:    p.Run.Device,
			training:  true,
		}, nil
	}
}

// Reset clears episodic state; Random carries none.
func (r *Random) Reset() {}

// Training reports the behavior flag.
func (r *Random) Training() bool { return r.training }

// SetTraining switches the behavior flag.
func (r *Random) SetTraining(training bool) { r.training = training }

// Act returns a uniformly random action regardless of sample.
func (r *Random) Act(_ []float64, _ bool) []float64 {
	action := make([]float64, r.actionDim)
	for i := range action {
		action[i] = r.low + r.rng.Float64()*(r.high-r.low)
	}
	return action
}

// Update consumes one sample to honor the learner contract and records the
// batch reward; no parameters exist to update.
func (r *Random) Update(store core.Sampler, logger core.MetricsLogger, step int) error {
	batch, err := store.Sample(1)
	if err != nil {
		return err
	}
	logger.Log("train/batch_reward", mean(batch.Rewards), step)
	return nil
}

// ExportState returns an empty snapshot tagged with the algorithm name.
func (r *Random) ExportState() (core.LearnerState, error) {
	return core.LearnerState{Algo: algoRandom, Device: r.device, Params: map[string][]float64{}}, nil
}

// ImportState accepts any snapshot produced by ExportState.
func (r *Random) ImportState(state core.LearnerState) error {
	if state.Device != "" {
		r.device = state.Device
	}
	return nil
}

var _ core.Learner = (*Random)(nil)
