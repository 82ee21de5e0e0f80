// Package evaluation runs deterministic evaluation passes over a controller:
// a fixed number of full episodes with mode-scoped deterministic action
// selection, no store writes and optional episode recording.
package evaluation

import (
	"fmt"

	"github.com/hupe1980/meshrl/core"
	"github.com/hupe1980/meshrl/logging"
	"github.com/hupe1980/meshrl/multiagent"
)

// Options configures an Evaluator.
type Options struct {
	Episodes int
	Recorder core.Recorder
	Logger   logging.Logger
}

// Evaluator drives evaluation episodes against an environment and a
// controller. It never writes to replay stores.
type Evaluator struct {
	env        core.Environment
	controller multiagent.Controller
	episodes   int
	recorder   core.Recorder
	logger     logging.Logger
}

// New constructs an Evaluator with optional overrides.
func New(env core.Environment, controller multiagent.Controller, optFns ...func(o *Options)) *Evaluator {
	opts := Options{
		Episodes: 10,
		Recorder: nil,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Recorder == nil {
		opts.Recorder = noopRecorder{}
	}
	return &Evaluator{
		env:        env,
		controller: controller,
		episodes:   opts.Episodes,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
	}
}

// Run executes the configured number of episodes with deterministic action
// selection, records the first one, logs the averaged episode reward per
// agent and returns the averages.
func (e *Evaluator) Run(step int, loggers map[string]core.MetricsLogger) (map[string]float64, error) {
	agentIDs := e.controller.AgentIDs()
	averages := make(map[string]float64, len(agentIDs))

	for episode := 0; episode < e.episodes; episode++ {
		obs := e.env.Reset()
		e.controller.Reset()
		e.recorder.Init(episode == 0)

		done := false
		for !done {
			actions, err := e.controller.Act(obs, false, core.ModeEval)
			if err != nil {
				return nil, fmt.Errorf("evaluation: %w", err)
			}
			var rewards map[string]float64
			obs, rewards, done, _ = e.env.Step(actions)
			e.recorder.Record(e.env)
			for _, id := range agentIDs {
				averages[id] += rewards[id]
			}
		}

		if err := e.recorder.Save(fmt.Sprintf("%d", step)); err != nil {
			e.logger.Warn("saving evaluation recording failed", "step", step, "error", err)
		}
	}

	for _, id := range agentIDs {
		averages[id] /= float64(e.episodes)
		if logger, ok := loggers[id]; ok {
			logger.Log("eval/episode_reward", averages[id], step)
			logger.Dump(step, true)
		}
	}
	return averages, nil
}

type noopRecorder struct{}

func (noopRecorder) Init(bool)               {}
func (noopRecorder) Record(core.Environment) {}
func (noopRecorder) Save(string) error       { return nil }
