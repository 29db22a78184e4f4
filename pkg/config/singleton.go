package config

import (
	"sync"
)

var (
	// globalConfig holds the singleton configuration instance.
	globalConfig *Config

	// configMutex protects access to globalConfig.
	configMutex sync.RWMutex

	// initOnce ensures configuration is initialized only once.
	initOnce sync.Once
)

// Initialize loads configuration from the specified path with environment
// variable overrides and stores it as the global singleton configuration.
// This function should be called once at application startup, with the
// path given by the CLI's -C/--compliance-config flag. Subsequent calls are ignored
// (uses sync.Once internally).
func Initialize(path string) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := Load(path)
		if err != nil {
			initErr = err
			return
		}

		configMutex.Lock()
		globalConfig = cfg
		configMutex.Unlock()
	})

	return initErr
}

// Get returns the global configuration instance, or nil if Initialize has
// not been called successfully.
//
// For testing, prefer constructing a *Config directly with New or Load
// rather than relying on the global singleton.
func Get() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// Set installs cfg as the global configuration instance. Primarily
// intended for tests.
func Set(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// MustGet returns the global configuration instance. It panics if the
// configuration has not been initialized.
func MustGet() *Config {
	cfg := Get()
	if cfg == nil {
		panic("config: not initialized, call Initialize first")
	}
	return cfg
}
