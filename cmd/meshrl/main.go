// Command meshrl trains and evaluates multi-agent continuous-control
// learners from a YAML run configuration.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/meshrl"
	"github.com/hupe1980/meshrl/config"
	"github.com/hupe1980/meshrl/core"
	"github.com/hupe1980/meshrl/logging"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "meshrl",
	Short:         "Multi-agent continuous-control training",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Run a training session (resumes from a checkpoint when configured)",
	RunE:  runTrain,
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Run a deterministic evaluation pass",
	RunE:  runEval,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML run configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(trainCmd, evalCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runTrain(cmd *cobra.Command, _ []string) error {
	ws, err := buildWorkspace(core.RunModeTrain)
	if err != nil {
		return err
	}
	defer ws.Close()

	return ws.Train(cmd.Context())
}

func runEval(cmd *cobra.Command, _ []string) error {
	ws, err := buildWorkspace(core.RunModeEval)
	if err != nil {
		return err
	}
	defer ws.Close()

	averages, err := ws.Evaluate()
	if err != nil {
		return err
	}
	for id, reward := range averages {
		fmt.Printf("%s\taverage episode reward %.3f\n", id, reward)
	}
	return nil
}

func buildWorkspace(mode core.RunMode) (*meshrl.Workspace, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.Mode = mode

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(&logging.Config{Level: level, Format: "text", Output: os.Stderr})

	return meshrl.NewWorkspace(cfg, func(o *meshrl.Options) { o.Logger = logger })
}
