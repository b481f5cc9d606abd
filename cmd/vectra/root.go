package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/api"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/config"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/home"
	"github.com/playandogamer150-commits/vectra-ai-sub000/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	userID       string
)

var rootCmd = &cobra.Command{
	Use:   "vectra",
	Short: "Prompt compiler and LoRA training pipeline",
	Long: `Vectra compiles structured image-generation requests into
deterministic, profile-specific prompts and runs the training pipeline
for user LoRA adapters.

It provides:
  - A template catalog of profiles, blueprints, blocks and filters
  - A prompt compiler with scoring, seeds and adapter injection
  - Dataset validation and signed dispatch to an external trainer
  - An idempotent training webhook and per-user adapter activation`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.vectra/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "vectra home directory (default: ~/.vectra)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVarP(
		&userID, "user", "u", "", "user id sent as X-User-ID on api commands",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := api.SetOutputFormat(outputFormat); err != nil {
			return err
		}
		api.SetUser(userID)
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}

// getHome returns the home directory, creating it if needed.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}
	return h, nil
}

// loadConfig loads configuration from --config, or the home directory's
// config file when --home is set and one exists.
func loadConfig(h *home.Dir) (*config.Manager, error) {
	file := cfgFile
	if file == "" && homeDir != "" && h.ConfigExists() {
		file = h.ConfigPath()
	}
	return config.NewManager(file)
}
