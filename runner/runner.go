// Package runner drives the step/episode training cycle: a warm-up phase of
// uniformly random exploration, the learning phase with one controller
// update per step, episode bookkeeping with the infinite-bootstrap policy at
// the horizon, periodic evaluation and a final checkpoint.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/meshrl/core"
	"github.com/hupe1980/meshrl/evaluation"
	"github.com/hupe1980/meshrl/logging"
	"github.com/hupe1980/meshrl/multiagent"
)

// Phase is the training loop state: warm-up until seed steps are collected,
// learning until the step budget is reached, then done.
type Phase int

const (
	PhaseWarmup Phase = iota
	PhaseLearning
	PhaseDone
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseWarmup:
		return "warmup"
	case PhaseLearning:
		return "learning"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Options holds configuration overrides passed to New().
type Options struct {
	// SeedSteps is the length of the warm-up phase.
	SeedSteps int
	// TrainSteps is the total step budget.
	TrainSteps int
	// EvalFrequency triggers an evaluation pass every N steps, checked at
	// episode boundaries. 0 disables periodic evaluation.
	EvalFrequency int
	// StartStep resumes the step counter, typically from a checkpoint.
	StartStep int
	// SaveCheckpoint enables the final checkpoint at loop termination.
	SaveCheckpoint bool
	// CheckpointDir is the directory final checkpoints are written under.
	CheckpointDir string
	// Evaluator runs the periodic evaluation passes. Nil disables them.
	Evaluator *evaluation.Evaluator
	// Logger receives ambient diagnostics.
	Logger logging.Logger
}

// Runner owns one training run. It is single-threaded and synchronous:
// every operation runs to completion before the next begins, so stores are
// never accessed concurrently.
type Runner struct {
	env        core.Environment
	controller multiagent.Controller
	loggers    map[string]core.MetricsLogger

	seedSteps      int
	trainSteps     int
	evalFrequency  int
	saveCheckpoint bool
	checkpointDir  string
	evaluator      *evaluation.Evaluator
	logger         logging.Logger

	step int
}

// New constructs a Runner with optional overrides.
func New(
	env core.Environment,
	controller multiagent.Controller,
	loggers map[string]core.MetricsLogger,
	optFns ...func(o *Options),
) *Runner {
	opts := Options{
		SeedSteps:  1000,
		TrainSteps: 100000,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		env:            env,
		controller:     controller,
		loggers:        loggers,
		seedSteps:      opts.SeedSteps,
		trainSteps:     opts.TrainSteps,
		evalFrequency:  opts.EvalFrequency,
		saveCheckpoint: opts.SaveCheckpoint,
		checkpointDir:  opts.CheckpointDir,
		evaluator:      opts.Evaluator,
		logger:         opts.Logger,
		step:           opts.StartStep,
	}
}

// Step returns the current global step counter.
func (r *Runner) Step() int { return r.step }

// Phase returns the loop state derived from the step counter.
func (r *Runner) Phase() Phase {
	switch {
	case r.step >= r.trainSteps:
		return PhaseDone
	case r.step < r.seedSteps:
		return PhaseWarmup
	default:
		return PhaseLearning
	}
}

// Train runs the loop to its step budget. Reference ordering within a step:
// act, update, environment step, buffer write — so an update at step t
// consumes the store state as of step t. The context is checked once per
// step; cancellation aborts between steps, never mid-operation.
func (r *Runner) Train(ctx context.Context) error {
	agentIDs := r.controller.AgentIDs()
	episodeRewards := make(map[string]float64, len(agentIDs))
	episodeStep := 0
	episode := 0
	if r.env.Horizon() > 0 {
		episode = r.step / r.env.Horizon()
	}

	r.logger.Info("training started", "phase", r.Phase().String(), "step", r.step, "budget", r.trainSteps)

	obs := r.env.Reset()
	r.controller.Reset()
	episodeStart := time.Now()

	for r.step < r.trainSteps {
		if err := ctx.Err(); err != nil {
			return err
		}

		var actions map[string][]float64
		if r.step < r.seedSteps {
			actions = make(map[string][]float64, len(agentIDs))
			for _, id := range agentIDs {
				actions[id] = r.env.ActionSpace(id).Sample()
			}
		} else {
			var err error
			actions, err = r.controller.Act(obs, true, core.ModeEval)
			if err != nil {
				return fmt.Errorf("runner: act at step %d: %w", r.step, err)
			}
		}

		if r.step >= r.seedSteps {
			if err := r.controller.Update(r.loggers, r.step); err != nil {
				return fmt.Errorf("runner: update at step %d: %w", r.step, err)
			}
		}

		nextObs, rewards, done, _ := r.env.Step(actions)

		// Infinite bootstrap: termination caused purely by the horizon must
		// not look terminal to the learner.
		doneNoMax := done
		if episodeStep+1 == r.env.Horizon() {
			doneNoMax = false
		}

		for _, id := range agentIDs {
			episodeRewards[id] += rewards[id]
		}
		r.controller.AddToBuffer(obs, actions, rewards, nextObs, done, doneNoMax)

		obs = nextObs
		episodeStep++
		r.step++

		if done {
			duration := time.Since(episodeStart).Seconds()
			for _, id := range agentIDs {
				logger := r.loggers[id]
				logger.Log("train/duration", duration, r.step)
				logger.Log("train/episode", float64(episode), r.step)
				logger.Log("train/episode_reward", episodeRewards[id], r.step)
				logger.Dump(r.step, r.step > r.seedSteps)
			}

			if r.evaluator != nil && r.evalFrequency > 0 && r.step > 0 && r.step%r.evalFrequency == 0 {
				for _, id := range agentIDs {
					r.loggers[id].Log("eval/episode", float64(episode), r.step)
				}
				if _, err := r.evaluator.Run(r.step, r.loggers); err != nil {
					return fmt.Errorf("runner: evaluation at step %d: %w", r.step, err)
				}
			}

			obs = r.env.Reset()
			r.controller.Reset()
			for _, id := range agentIDs {
				episodeRewards[id] = 0
			}
			episodeStep = 0
			episode++
			episodeStart = time.Now()
		}
	}

	if r.saveCheckpoint {
		if err := r.controller.SaveCheckpoint(r.checkpointDir, r.step); err != nil {
			return fmt.Errorf("runner: final checkpoint: %w", err)
		}
	}

	r.logger.Info("training finished", "phase", r.Phase().String(), "step", r.step)
	return nil
}
