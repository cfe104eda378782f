// Package config loads the planner configuration from a YAML or JSON file,
// with K_ prefixed environment variables taking precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/routeplan/core/metrics"
	"github.com/kilianp07/routeplan/core/optimizer"
	"github.com/kilianp07/routeplan/core/planlog"
	"github.com/kilianp07/routeplan/infra/mqtt"
)

// EnvPrefix marks the environment variables read by Load. Nested keys are
// separated by a double underscore, e.g. K_PLANNER__AVG_SPEED_KMH=40.
const EnvPrefix = "K_"

type Config struct {
	Planner optimizer.Config `json:"planner"`
	PlanLog planlog.Config   `json:"plan_log"`
	Metrics metrics.Config   `json:"metrics"`
	MQTT    mqtt.Config      `json:"mqtt"`
	API     APIConfig        `json:"api"`
	Logging LoggingConfig    `json:"logging"`
	Sentry  SentryConfig     `json:"sentry"`
}

// Load reads path, applies environment overrides then defaults, and
// validates the result. An empty path loads the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps K_PLAN_LOG__PATH to plan_log.path.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Planner.SetDefaults()
	c.PlanLog.SetDefaults()
	c.MQTT.SetDefaults()
	c.API.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section and reports all failures at once.
func (c Config) Validate() error {
	var errs []error
	if err := c.Planner.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("planner: %w", err))
	}
	if err := c.PlanLog.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.MQTT.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.MQTT.Enabled() {
		for _, s := range c.Metrics.Sinks {
			if strings.EqualFold(strings.TrimSpace(s.Type), "mqtt") {
				errs = append(errs, errors.New("mqtt: configured both as the mqtt section and as a metrics sink; keep one"))
				break
			}
		}
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if err := c.Sentry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sentry: %w", err))
	}
	return errors.Join(errs...)
}
