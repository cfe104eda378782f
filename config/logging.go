package config

import (
	"fmt"

	"github.com/kilianp07/routeplan/infra/logger"
)

// LoggingConfig defines the application log output.
type LoggingConfig struct {
	Level string `json:"level"`
	// Format is "json" or "console".
	Format string `json:"format"`
	// File redirects logs from stderr to a size rotated file.
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
	if c.File != "" && c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 50
	}
}

// Validate checks the format name.
func (c LoggingConfig) Validate() error {
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("unknown format %s", c.Format)
	}
	return nil
}

// Options converts the section for logger.Setup.
func (c LoggingConfig) Options() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}
