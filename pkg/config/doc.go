// Package config provides dot-path configuration management for the
// auditree evidence pipeline.
//
// Configuration is a tree keyed by dot-path. Get("a.b.c", default) walks
// a deep-merged document: compiled-in defaults, overridden by whatever
// the caller loaded from a user-supplied YAML settings document.
// Every accessor returns a deep copy (round-tripped through JSON) so
// callers can never mutate shared state by holding onto a returned map
// or slice.
//
// # Loading
//
//	cfg, err := config.Load("compliance.yaml")
//	branch := cfg.GetString("locker.branch", "master")
//	tolerance := cfg.GetDuration("locker.ttl_tolerance", 10*time.Minute)
//
// # Environment overrides
//
// Load always applies environment overrides of the form
// AUDITREE_SECTION_FIELD (dots become underscores, upper-cased) after
// merging the YAML document, so environment variables take precedence
// over both defaults and the file.
//
// # Singleton
//
// For the common case of a single compliance run, Initialize/Get provide
// a package-level singleton. Tests and library callers should prefer
// constructing a *Config directly with Load or New.
package config
