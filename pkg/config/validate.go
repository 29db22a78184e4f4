package config

import (
	"fmt"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "locker.branch").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks the merged configuration document for internal
// consistency. It returns a ValidationError collecting every problem
// found, or nil if the configuration is usable.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateLocker(cfg)...)
	errs = append(errs, validateRunbooks(cfg)...)
	errs = append(errs, validateAgent(cfg)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateLocker(cfg *Config) []FieldError {
	var errs []FieldError

	if cfg.GetString("locker.default_branch", "") == "" {
		errs = append(errs, FieldError{
			Field:   "locker.default_branch",
			Message: "must not be empty",
		})
	}

	if cfg.GetInt("locker.ttl_tolerance", 0) < 0 {
		errs = append(errs, FieldError{
			Field:   "locker.ttl_tolerance",
			Message: "must be non-negative",
		})
	}

	if cfg.GetInt("locker.depth", 0) < 0 {
		errs = append(errs, FieldError{
			Field:   "locker.depth",
			Message: "must be non-negative",
		})
	}

	if cfg.GetInt("locker.shallow_days", 0) < 0 {
		errs = append(errs, FieldError{
			Field:   "locker.shallow_days",
			Message: "must be non-negative",
		})
	}

	if cfg.GetInt("locker.large_file_threshold", 0) <= 0 {
		errs = append(errs, FieldError{
			Field:   "locker.large_file_threshold",
			Message: "must be positive",
		})
	}

	return errs
}

func validateRunbooks(cfg *Config) []FieldError {
	var errs []FieldError

	if cfg.GetBool("runbooks.enabled", false) && cfg.GetString("runbooks.base_url", "") == "" {
		errs = append(errs, FieldError{
			Field:   "runbooks.base_url",
			Message: "required when runbooks.enabled is true",
		})
	}

	return errs
}

// validateAgent enforces that agent identity fields are set together:
// a configuration either names no signing agent at all, or names one
// with both halves of its keypair present.
func validateAgent(cfg *Config) []FieldError {
	var errs []FieldError

	name := cfg.GetString("agent_name", "")
	priv := cfg.GetString("agent_private_key", "")
	pub := cfg.GetString("agent_public_key", "")

	anySet := name != "" || priv != "" || pub != ""
	allSet := name != "" && priv != "" && pub != ""

	if anySet && !allSet {
		errs = append(errs, FieldError{
			Field:   "agent_name",
			Message: "agent_name, agent_private_key, and agent_public_key must be set together",
		})
	}

	return errs
}
