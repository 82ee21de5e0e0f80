// Package config loads the run configuration consumed by the workspace
// façade. The file format is YAML; every field has a usable default so a
// minimal file (or none at all) yields a runnable training setup.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/meshrl/agent"
	"github.com/hupe1980/meshrl/core"
)

// Config is the opaque configuration object passed into the core at
// construction. It is read once and never mutated afterwards.
type Config struct {
	// Mode selects a training run or an evaluation-only run.
	Mode core.RunMode `yaml:"mode"`
	// MultiAgentMode selects the controller variant: individual or shared.
	MultiAgentMode string `yaml:"multi_agent_mode"`

	Seed   int64  `yaml:"seed"`
	Device string `yaml:"device"`

	NumAgents int `yaml:"num_agents"`
	Horizon   int `yaml:"horizon"`

	// ReplayCapacity is the per-agent store capacity. The shared variant
	// multiplies it by the number of agent identities.
	ReplayCapacity int `yaml:"replay_buffer_capacity"`

	SeedSteps     int `yaml:"num_seed_steps"`
	TrainSteps    int `yaml:"num_train_steps"`
	EvalFrequency int `yaml:"eval_frequency"`
	EvalEpisodes  int `yaml:"num_eval_episodes"`

	WorkDir   string `yaml:"work_dir"`
	SaveVideo bool   `yaml:"save_video"`

	SaveCheckpoint bool   `yaml:"save_checkpoint"`
	LoadCheckpoint bool   `yaml:"load_checkpoint"`
	CheckpointName string `yaml:"checkpoint_name"`

	Agent agent.Config `yaml:"agent"`
}

// Default returns a runnable baseline configuration.
func Default() *Config {
	return &Config{
		Mode:           core.RunModeTrain,
		MultiAgentMode: "individual",
		Seed:           1,
		Device:         "cpu",
		NumAgents:      2,
		Horizon:        500,
		ReplayCapacity: 100000,
		SeedSteps:      1000,
		TrainSteps:     100000,
		EvalFrequency:  5000,
		EvalEpisodes:   10,
		WorkDir:        "runs",
		SaveCheckpoint: true,
		Agent:          agent.DefaultConfig(),
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Mode != core.RunModeTrain && c.Mode != core.RunModeEval {
		return fmt.Errorf("config: mode must be train or eval, got %q", c.Mode)
	}
	if c.MultiAgentMode != "individual" && c.MultiAgentMode != "shared" {
		return fmt.Errorf("config: multi_agent_mode must be individual or shared, got %q", c.MultiAgentMode)
	}
	if c.NumAgents <= 0 {
		return fmt.Errorf("config: num_agents must be positive, got %d", c.NumAgents)
	}
	if c.ReplayCapacity <= 0 {
		return fmt.Errorf("config: replay_buffer_capacity must be positive, got %d", c.ReplayCapacity)
	}
	if c.SeedSteps < 0 || c.TrainSteps <= 0 {
		return fmt.Errorf("config: invalid step budget seed=%d train=%d", c.SeedSteps, c.TrainSteps)
	}
	if c.SeedSteps >= c.TrainSteps {
		return fmt.Errorf("config: num_seed_steps (%d) must be below num_train_steps (%d)", c.SeedSteps, c.TrainSteps)
	}
	if c.LoadCheckpoint && c.CheckpointName == "" {
		return fmt.Errorf("config: load_checkpoint requires checkpoint_name")
	}
	return nil
}
