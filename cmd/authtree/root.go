package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/authtree/internal/config"
	"github.com/aretw0/authtree/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "authtree",
	Short: "authtree runs resumable authentication trees",
	Long: `authtree evaluates authentication trees defined as YAML or JSON files in a realm
directory, suspending for user input and resuming from sealed continuation tokens.`,
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
	rootCmd.PersistentFlags().StringP("config", "c", "authtree.yaml", "Service configuration file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("dir", "", "Realm directory with tree definitions (overrides trees_dir)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (overrides log_level)")
}

// loadConfig reads the configuration file and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		cfg.TreesDir = dir
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewWriter(cmd.ErrOrStderr(), level), nil
}
