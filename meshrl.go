// Package meshrl provides a high-level façade over the training core
// (controllers, replay stores, checkpointing) enabling rapid construction of
// multi-agent continuous-control training runs. Most applications interact
// with this package by:
//  1. Loading or building a config.Config
//  2. Creating a Workspace via NewWorkspace() (optionally overriding the
//     environment, learner factory or recorder)
//  3. Calling Train (run mode "train") or Evaluate (run mode "eval")
//
// The façade delegates the step/episode cycle to runner.Runner while keeping
// setup ergonomics concise. All defaults are safe for local training; custom
// environments plug in through core.Environment.
package meshrl

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/meshrl/agent"
	"github.com/hupe1980/meshrl/cartpole"
	"github.com/hupe1980/meshrl/checkpoint"
	"github.com/hupe1980/meshrl/config"
	"github.com/hupe1980/meshrl/core"
	"github.com/hupe1980/meshrl/evaluation"
	"github.com/hupe1980/meshrl/logging"
	"github.com/hupe1980/meshrl/metrics"
	"github.com/hupe1980/meshrl/multiagent"
	"github.com/hupe1980/meshrl/runner"
	"github.com/hupe1980/meshrl/video"
)

// Options configures the Workspace instance.
type Options struct {
	// Environment overrides the default cartpole environment.
	Environment core.Environment
	// Factory overrides the default SAC learner factory.
	Factory core.LearnerFactory
	// Recorder overrides the evaluation episode recorder.
	Recorder core.Recorder
	// Logger receives ambient diagnostics (defaults to NoOp).
	Logger logging.Logger
}

// Workspace aggregates everything one run needs: environment, controller,
// per-agent metrics loggers, evaluator and the training loop. Construction
// performs the resume-from-checkpoint, so a constructed workspace is always
// ready to continue from its step counter.
type Workspace struct {
	cfg        *config.Config
	runID      string
	workDir    string
	env        core.Environment
	controller multiagent.Controller
	loggers    map[string]core.MetricsLogger
	closers    []*metrics.Logger
	evaluator  *evaluation.Evaluator
	runner     *runner.Runner
	logger     logging.Logger
}

// NewWorkspace wires a run from its configuration with optional overrides.
func NewWorkspace(cfg *config.Config, optFns ...func(o *Options)) (*Workspace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	runID := uuid.NewString()
	workDir := cfg.WorkDir
	if !cfg.LoadCheckpoint {
		// Fresh runs get their own directory; resumes reuse the one holding
		// the checkpoint and its metric history.
		workDir = filepath.Join(cfg.WorkDir, time.Now().Format("2006-01-02"), runID[:8])
	}

	run := core.NewRunContext(cfg.Seed, cfg.Device)

	env := opts.Environment
	if env == nil {
		env = cartpole.New(cfg.NumAgents, func(o *cartpole.Options) {
			o.Horizon = cfg.Horizon
		})
	}
	env.Seed(cfg.Seed)

	factory := opts.Factory
	if factory == nil {
		factory = agent.Factory(cfg.Agent)
	}

	ckpt := checkpoint.NewManager(func(o *checkpoint.Options) { o.Logger = opts.Logger })

	var controller multiagent.Controller
	var err error
	switch cfg.MultiAgentMode {
	case "individual":
		controller, err = multiagent.NewIndividual(run, env, cfg.ReplayCapacity, cfg.Mode, factory,
			func(o *multiagent.Options) { o.Logger = opts.Logger; o.Checkpoint = ckpt })
	case "shared":
		controller, err = multiagent.NewShared(run, env, cfg.ReplayCapacity, cfg.Mode, factory,
			func(o *multiagent.Options) { o.Logger = opts.Logger; o.Checkpoint = ckpt })
	default:
		err = fmt.Errorf("meshrl: unknown multi_agent_mode %q", cfg.MultiAgentMode)
	}
	if err != nil {
		return nil, err
	}

	w := &Workspace{
		cfg:        cfg,
		runID:      runID,
		workDir:    workDir,
		env:        env,
		controller: controller,
		loggers:    make(map[string]core.MetricsLogger, len(env.Agents())),
		logger:     opts.Logger,
	}

	for _, id := range env.Agents() {
		ml, err := metrics.NewLogger(filepath.Join(workDir, "metrics"), id,
			func(o *metrics.Options) { o.Logger = opts.Logger })
		if err != nil {
			w.Close()
			return nil, err
		}
		w.loggers[id] = ml
		w.closers = append(w.closers, ml)
	}

	startStep := 0
	if cfg.LoadCheckpoint {
		startStep, err = controller.LoadCheckpoint(w.checkpointDir(), cfg.CheckpointName)
		if err != nil {
			w.Close()
			return nil, err
		}
	}

	recorder := opts.Recorder
	if recorder == nil {
		if cfg.SaveVideo {
			recorder = video.NewStateTrace(filepath.Join(workDir, "video"))
		} else {
			recorder = video.NoOp{}
		}
	}

	w.evaluator = evaluation.New(env, controller, func(o *evaluation.Options) {
		o.Episodes = cfg.EvalEpisodes
		o.Recorder = recorder
		o.Logger = opts.Logger
	})

	w.runner = runner.New(env, controller, w.loggers, func(o *runner.Options) {
		o.SeedSteps = cfg.SeedSteps
		o.TrainSteps = cfg.TrainSteps
		o.EvalFrequency = cfg.EvalFrequency
		o.StartStep = startStep
		o.SaveCheckpoint = cfg.SaveCheckpoint
		o.CheckpointDir = w.checkpointDir()
		o.Evaluator = w.evaluator
		o.Logger = opts.Logger
	})

	opts.Logger.Info("workspace ready", "run_id", runID, "dir", workDir,
		"variant", cfg.MultiAgentMode, "start_step", startStep)
	return w, nil
}

// Train runs the training loop to its configured step budget.
func (w *Workspace) Train(ctx context.Context) error {
	return w.runner.Train(ctx)
}

// Evaluate runs one evaluation pass and returns the averaged episode reward
// per agent.
func (w *Workspace) Evaluate() (map[string]float64, error) {
	return w.evaluator.Run(w.runner.Step(), w.loggers)
}

// Controller exposes the orchestration variant, mainly for tests and tools.
func (w *Workspace) Controller() multiagent.Controller { return w.controller }

// Step returns the current global step counter.
func (w *Workspace) Step() int { return w.runner.Step() }

// WorkDir returns the run directory holding metrics, videos and checkpoints.
func (w *Workspace) WorkDir() string { return w.workDir }

// RunID returns the unique identifier of this workspace instance.
func (w *Workspace) RunID() string { return w.runID }

// Close flushes and closes the per-agent metric logs.
func (w *Workspace) Close() error {
	var firstErr error
	for _, c := range w.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (w *Workspace) checkpointDir() string {
	return filepath.Join(w.workDir, "checkpoints")
}
