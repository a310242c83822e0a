// Package config loads YAML-configured advisor tunables, grounded on the
// teacher's database.ParseGeneratorConfig pattern.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config holds advisor-wide tunables that aren't part of the public
// expert API: the dependency-mask closure cap and the ambient log level.
// Zero value is every default.
type Config struct {
	// ClosureCap overrides the dependency-mask closure cap of the expert
	// package's candidate synthesis (spec.md §9); 0 means "use the
	// built-in default".
	ClosureCap int `yaml:"closure_cap"`

	// LogLevel overrides the LOG_LEVEL environment variable util.InitSlog
	// otherwise reads (debug, info, warn, error); "" means "use the
	// environment".
	LogLevel string `yaml:"log_level"`
}

// Parse reads and decodes a YAML config file. An empty path returns the
// zero Config, matching the teacher's "no --config flag given" behavior.
func Parse(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseString(string(buf))
}

// ParseString decodes a YAML document already in memory (used by tests
// and by callers that already have the config embedded elsewhere).
func ParseString(yamlDoc string) (Config, error) {
	if yamlDoc == "" {
		return Config{}, nil
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(yamlDoc), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
