// Package cmd implements the routeplan command line.
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/routeplan/config"
	"github.com/kilianp07/routeplan/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "routeplan",
	Short:         "Pack deliveries into vehicle loads and sequence their routes",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the configuration and sets up logging. The returned
// closer releases the log file.
func loadConfig() (*config.Config, io.Closer, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	closer, err := logger.Setup(cfg.Logging.Options())
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}
	return cfg, closer, nil
}
