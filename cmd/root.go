package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reptin/rcs/internal/config"
	"github.com/reptin/rcs/internal/logger"
)

var (
	logLevel   string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "rcs",
	Short: "rcs search platform sync server",
	Long: `rcs keeps a collection of search platforms and projects it onto
context menus, keyboard shortcuts and a websocket bridge for trusted
catalog pages.

Commands:
  rcs            Run the sync server (default)
  rcs serve      Run the sync server
  rcs engines    Inspect and edit the platform collection
  rcs catalog    Manage the suggested-platform catalog`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Run: runServe,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"Log level: trace, debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (default: .rcs.yaml next to the executable)")
}

// loadConfig reads the config file, falling back to defaults on error.
func loadConfig() *config.Config {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config, using defaults: %v\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
