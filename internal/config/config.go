// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package config loads and persists the Sentinel configuration. It layers
// defaults, a YAML config file (sentinel.yaml), environment variables with
// the SENTINEL_ prefix, and command-line flags, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the single process-wide settings value. It is initialized to
// defaults at startup and replaced wholesale on reconfiguration; components
// read it on their next operation.
type Config struct {
	Database        DatabaseConfig        `mapstructure:"database" yaml:"database"`
	Biometric       BiometricConfig       `mapstructure:"biometric" yaml:"biometric"`
	KeyManagement   KeyManagementConfig   `mapstructure:"keymanagement" yaml:"keymanagement"`
	ThreatDetection ThreatDetectionConfig `mapstructure:"threatdetection" yaml:"threatdetection"`
	Language        string                `mapstructure:"language" yaml:"language"`
}

// DatabaseConfig selects the backing of the protected persistence facility.
type DatabaseConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

// BiometricConfig controls the authorization gate.
type BiometricConfig struct {
	// AllowFallback offers a passcode fallback when the biometric challenge
	// cannot be completed.
	AllowFallback bool `mapstructure:"allowfallback" yaml:"allowfallback"`
	// RequireForSensitive requires a successful challenge before sensitive
	// store operations.
	RequireForSensitive bool `mapstructure:"requireforsensitive" yaml:"requireforsensitive"`
	// TimeoutHint is a policy hint for callers; the gate itself does not
	// enforce a hard cutoff on a pending challenge.
	TimeoutHint time.Duration `mapstructure:"timeouthint" yaml:"timeouthint"`
}

// KeyManagementConfig controls the symmetric encryption manager. The
// rotation and backup fields are advisory; no code path enforces them.
type KeyManagementConfig struct {
	Algorithm        string        `mapstructure:"algorithm" yaml:"algorithm"`
	AutoRotate       bool          `mapstructure:"autorotate" yaml:"autorotate"`
	RotationInterval time.Duration `mapstructure:"rotationinterval" yaml:"rotationinterval"`
	MaxKeyAge        time.Duration `mapstructure:"maxkeyage" yaml:"maxkeyage"`
	EnableBackup     bool          `mapstructure:"enablebackup" yaml:"enablebackup"`
}

// ThreatDetectionConfig toggles the individual threat heuristics and sets
// the severity floor for reported findings.
type ThreatDetectionConfig struct {
	DetectTamperSignals bool   `mapstructure:"detecttampersignals" yaml:"detecttampersignals"`
	DetectDebugger      bool   `mapstructure:"detectdebugger" yaml:"detectdebugger"`
	MonitorNetwork      bool   `mapstructure:"monitornetwork" yaml:"monitornetwork"`
	AlertThreshold      string `mapstructure:"alertthreshold" yaml:"alertthreshold"`
}

// Defaults returns the default settings map used to seed viper before any
// file, environment or flag overrides apply.
func Defaults() map[string]any {
	return map[string]any{
		"database.type":                       "sqlite",
		"database.dsn":                        "./sentinel.db",
		"language":                            "en",
		"biometric.allowfallback":             true,
		"biometric.requireforsensitive":       false,
		"biometric.timeouthint":               30 * time.Second,
		"keymanagement.algorithm":             "aes-gcm",
		"keymanagement.autorotate":            false,
		"keymanagement.rotationinterval":      30 * 24 * time.Hour,
		"keymanagement.maxkeyage":             90 * 24 * time.Hour,
		"keymanagement.enablebackup":          false,
		"threatdetection.detecttampersignals": true,
		"threatdetection.detectdebugger":      true,
		"threatdetection.monitornetwork":      false,
		"threatdetection.alertthreshold":      "low",
	}
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		// System-wide configuration paths
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Sentinel")
		default: // Linux, macOS, etc.
			configDir = "/etc/sentinel"
		}
	} else {
		// User-specific configuration paths
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "sentinel")
	}

	return filepath.Join(configDir, "sentinel.yaml"), nil
}

// LoadConfig assembles a configuration value of type T. Precedence, lowest
// to highest: defaults, config file, environment, command-line flags. An
// explicit config file path (from --config) wins over the search paths.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, explicitConfigPath *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("sentinel")
	v.SetConfigType("yaml")

	if explicitConfigPath != nil {
		v.SetConfigFile(*explicitConfigPath)
	}

	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".") // Look for sentinel.yaml in current dir

	// A missing file is not fatal: defaults, environment and flags still
	// apply. The not-found error is returned alongside the populated config
	// so the caller can decide to write a default file on first run.
	var notFound error
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
		notFound = err
	}

	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("sentinel")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, notFound
}

// WriteConfigFile persists the configuration as YAML at the standard path.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := GetConfigPath(system)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600: the file may contain sensitive settings.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}

	return nil
}
