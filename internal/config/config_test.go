package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"projector": { "decayScaleM": 15.5, "workers": 4 },
		"storage": { "archive": { "enabled": true } }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geopose.cfg.json"), []byte(cfg), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, 15.5, viper.GetFloat64("projector.decayScaleM"))
	assert.Equal(t, 4, viper.GetInt("projector.workers"))
	assert.Equal(t, true, viper.GetBool("storage.archive.enabled"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	// Empty dir: no config file, defaults only.
	err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./logs", viper.GetString("logsDir"))
	assert.Equal(t, false, viper.GetBool("fileLog"))
	assert.Equal(t, 30.0, viper.GetFloat64("projector.decayScaleM"))
	assert.Equal(t, 0.5, viper.GetFloat64("projector.confidenceThreshold"))
	assert.Equal(t, 5, viper.GetInt("projector.segmentJumpWindow"))
	assert.Equal(t, 10, viper.GetInt("projector.searchWindow"))
	assert.Equal(t, 2.0, viper.GetFloat64("projector.tieEpsilonM"))
	assert.Equal(t, 0, viper.GetInt("projector.workers"))
	assert.Equal(t, false, viper.GetBool("storage.archive.enabled"))
	assert.Equal(t, "./geopose_runs.db", viper.GetString("storage.archive.path"))
}

func TestLoad_MalformedConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geopose.cfg.json"), []byte(`{not json`), 0644))

	err := Load(dir)
	require.Error(t, err)
}
