package main

import (
	"fmt"
	"os"

	"github.com/aretw0/intake/internal/config"
	"github.com/aretw0/intake/pkg/form"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Intake is a step-by-step registration bot",
	Long: `Intake walks each user through a fixed form one question at a time,
shows them the compiled record and forwards it to an admin channel.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringSlice("env-file", nil, "dotenv files to load (default .env if present)")
	rootCmd.PersistentFlags().String("form", "", "YAML form definition (overrides INTAKE_FORM)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides INTAKE_LOG_LEVEL)")
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	files, _ := cmd.Flags().GetStringSlice("env-file")
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("form"); v != "" {
		cfg.FormPath = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}

// loadForm returns the configured form, or the built-in one.
func loadForm(cfg *config.Config) (*form.Definition, error) {
	if cfg.FormPath == "" {
		return form.Default(), nil
	}
	return form.Load(cfg.FormPath)
}
