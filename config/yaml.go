package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type yamlBreaker struct {
	Enabled      *bool  `yaml:"enabled"`
	Threshold    *int   `yaml:"threshold"`
	ResetTimeout string `yaml:"reset_timeout"`
}

type yamlSettings struct {
	MaxPoolSize      *int        `yaml:"max_pool_size"`
	MaxActiveObjects *int        `yaml:"max_active_objects"`
	OperationTimeout string      `yaml:"operation_timeout"`
	TimeToLive       string      `yaml:"time_to_live"`
	IdleTimeout      string      `yaml:"idle_timeout"`
	WarmupSize       *int        `yaml:"warmup_size"`
	CircuitBreaker   yamlBreaker `yaml:"circuit_breaker"`
}

// FromYAML overlays the YAML document over Default. Durations are Go
// duration strings ("30s", "1h30m").
func FromYAML(data []byte) (Settings, error) {
	var doc yamlSettings
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Settings{}, fmt.Errorf("parse pool config: %w", err)
	}

	s := Default()
	if doc.MaxPoolSize != nil {
		s.MaxPoolSize = *doc.MaxPoolSize
	}
	if doc.MaxActiveObjects != nil {
		s.MaxActiveObjects = doc.MaxActiveObjects
	}
	var err error
	if s.OperationTimeout, err = overlayDuration(doc.OperationTimeout, "operation_timeout", s.OperationTimeout); err != nil {
		return Settings{}, err
	}
	if s.TimeToLive, err = overlayDuration(doc.TimeToLive, "time_to_live", s.TimeToLive); err != nil {
		return Settings{}, err
	}
	if s.IdleTimeout, err = overlayDuration(doc.IdleTimeout, "idle_timeout", s.IdleTimeout); err != nil {
		return Settings{}, err
	}
	if doc.WarmupSize != nil {
		s.WarmupSize = *doc.WarmupSize
	}
	if doc.CircuitBreaker.Enabled != nil {
		s.CircuitBreaker.Enabled = *doc.CircuitBreaker.Enabled
	}
	if doc.CircuitBreaker.Threshold != nil {
		s.CircuitBreaker.Threshold = *doc.CircuitBreaker.Threshold
	}
	if s.CircuitBreaker.ResetTimeout, err = overlayDuration(doc.CircuitBreaker.ResetTimeout, "circuit_breaker.reset_timeout", s.CircuitBreaker.ResetTimeout); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// FromYAMLFile loads settings from the YAML file at path.
func FromYAMLFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read pool config: %w", err)
	}
	return FromYAML(data)
}

func overlayDuration(raw, field string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	return d, nil
}
