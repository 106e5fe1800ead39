// Package config loads tool configuration through viper. Defaults cover a
// full run; an optional geopose.cfg.json in the config directory overrides
// them.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Load sets default values and merges the optional JSON config file from
// configDir. A missing config file is not an error; the tool is expected
// to run on defaults alone.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("fileLog", false)

	viper.SetDefault("projector.decayScaleM", 30.0)
	viper.SetDefault("projector.confidenceThreshold", 0.5)
	viper.SetDefault("projector.segmentJumpWindow", 5)
	viper.SetDefault("projector.searchWindow", 10)
	viper.SetDefault("projector.tieEpsilonM", 2.0)
	viper.SetDefault("projector.workers", 0) // 0 = NumCPU

	viper.SetDefault("storage.archive.enabled", false)
	viper.SetDefault("storage.archive.path", "./geopose_runs.db")

	viper.SetConfigName("geopose.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetFloat64 returns a float config value.
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
