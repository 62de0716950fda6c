package config

import (
	"encoding/json"
	"os"

	"github.com/ftpsheep/ftpsheep/internal/deployerr"
)

// GlobalConfig holds deployment defaults applied to any profile missing
// the corresponding field.
type GlobalConfig struct {
	DefaultConcurrency        int      `json:"defaultConcurrency"`
	DefaultRetryCount         int      `json:"defaultRetryCount"`
	DefaultTimeoutSeconds     int      `json:"defaultTimeoutSeconds"`
	DefaultExclusionPatterns  []string `json:"defaultExclusionPatterns,omitempty"`
	DefaultBuildConfiguration string   `json:"defaultBuildConfiguration"`
	VerboseLogging            bool     `json:"verboseLogging"`
	ProfileStoragePath        string   `json:"profileStoragePath,omitempty"`
}

// DefaultGlobalConfig returns the baseline defaults, including the
// default set of exclusion globs.
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		DefaultConcurrency:    4,
		DefaultRetryCount:     3,
		DefaultTimeoutSeconds: 30,
		DefaultExclusionPatterns: []string{
			"**/.git/**", "**/.vs/**", "**/obj/**", "**/bin/Debug/**",
			"**/*.user", "**/*.suo",
		},
		DefaultBuildConfiguration: "Release",
	}
}

// LoadGlobalConfig reads the global config file, returning defaults if it
// does not yet exist.
func LoadGlobalConfig(path string) (GlobalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultGlobalConfig(), nil
		}
		return GlobalConfig{}, &deployerr.ConfigError{Path: path, Err: err}
	}
	cfg := DefaultGlobalConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return GlobalConfig{}, &deployerr.ConfigError{Path: path, Err: err}
	}
	return cfg, nil
}

// SaveGlobalConfig writes cfg atomically, matching SaveProfile's pattern.
func SaveGlobalConfig(path string, cfg GlobalConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return &deployerr.ConfigError{Path: path, Err: err}
	}
	return atomicWrite(path, data)
}
