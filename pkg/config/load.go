package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Load reads a user settings document from path (if non-empty), deep-merges
// it over the compiled-in defaults, applies environment variable
// overrides, and validates the result.
//
// An empty path is valid: Load then returns the defaults (with any
// environment overrides applied), matching a run with no -C flag.
func Load(path string) (*Config, error) {
	cfg := New()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}

		var user map[string]interface{}
		if err := yaml.Unmarshal(data, &user); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}

		if user != nil {
			if err := mergo.Merge(&cfg.data, user, mergo.WithOverride); err != nil {
				return nil, fmt.Errorf("failed to merge configuration file %q: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envOverrides lists the fixed set of environment variables recognized
// as configuration overrides, each naming the dot-path key it writes.
// Environment variables always win over both defaults and the file,
// matching the teacher's LoadConfigWithEnvOverrides precedence.
var envOverrides = []string{
	"locker.repo_url",
	"locker.branch",
	"locker.default_branch",
	"locker.local_path",
	"locker.ttl_tolerance",
	"locker.depth",
	"locker.shallow_days",
	"locker.prev_repo_url",
	"locker.force_push",
	"locker.ignore_signatures",
	"locker.large_file_threshold",
	"runbooks.enabled",
	"runbooks.base_url",
	"org.name",
	"agent_name",
	"agent_private_key",
	"agent_public_key",
	"use_agent_dir",
}

// applyEnvOverrides applies AUDITREE_SECTION_FIELD environment variables
// over whatever Load has merged so far.
func applyEnvOverrides(cfg *Config) {
	for _, key := range envOverrides {
		envKey := formatEnvKey(key)
		val, ok := os.LookupEnv(envKey)
		if !ok {
			continue
		}
		cfg.Set(key, parseEnvValue(val))
	}
}
