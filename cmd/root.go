// Package cmd implements the friday CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/friday/internal/config"
	"github.com/crystaldolphin/friday/internal/logging"
)

const version = "0.1.0"
const logo = "✦"

var cfgFile string

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:           "friday",
	Short:         logo + " friday — conversational coding assistant",
	Long:          logo + " friday — answers questions and analyzes files in your project, with pluggable conversation memory",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.friday/config.yaml)")

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(benchCmd)
}

func configPath() string {
	if cfgFile != "" {
		return config.ExpandHome(cfgFile)
	}
	return config.ConfigPath()
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging sends logs to the daily file, or to stderr when toStderr is set.
func setupLogging(cfg *config.Config, toStderr bool) (func(), error) {
	return logging.Setup(logging.Options{
		Level:  cfg.Logging.Level,
		Dir:    cfg.LogDir(),
		Stderr: toStderr,
	})
}
