package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfig verifies defaults when nothing is configured.
func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "today.csv", config.SnapshotFile)
	assert.Equal(t, "historic.csv", config.LedgerFile)
	assert.Equal(t, 1, config.CompactEvery)
	assert.Equal(t, "Australia/Canberra", config.Timezone)
	assert.Equal(t, StoreFS, config.Store)
	assert.Equal(t, "auto", config.LogFormat)
	assert.NotEmpty(t, config.WorkDir)
}

// TestConfig_EnvironmentVariables verifies environment variable loading.
func TestConfig_EnvironmentVariables(t *testing.T) {
	t.Setenv("SITREP_DATA_DIR", "/srv/sitrep")
	t.Setenv("SITREP_STORE", "MINIO")
	t.Setenv("SITREP_MINIO_BUCKET", "reports")
	t.Setenv("SITREP_MINIO_USE_SSL", "false")
	t.Setenv("SITREP_VERBOSE", "true")
	t.Setenv("SITREP_LOG_LEVEL", "error")
	t.Setenv("SITREP_NOTIFY_COMMAND", "mail -s")
	t.Setenv("SITREP_COMPACT_EVERY", "7")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/srv/sitrep", config.DataDir)
	assert.Equal(t, StoreMinio, config.Store)
	assert.Equal(t, "reports", config.Minio.Bucket)
	assert.False(t, config.Minio.UseSSL)
	assert.True(t, config.Verbose)
	assert.Equal(t, "error", config.LogLevel)
	assert.Equal(t, "mail -s", config.NotifyCommand)
	assert.Equal(t, 7, config.CompactEvery)
}

func TestConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitrep.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /var/lib/sitrep\ntimezone: UTC\nledger_file: ledger.csv\n"), 0o644))

	t.Run("file values", func(t *testing.T) {
		config, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/sitrep", config.DataDir)
		assert.Equal(t, "UTC", config.Timezone)
		assert.Equal(t, "ledger.csv", config.LedgerFile)
		assert.Equal(t, path, config.ConfigFile)
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("SITREP_TIMEZONE", "Europe/Paris")
		config, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "Europe/Paris", config.Timezone)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

// TestConfig_UpdateFromFlags verifies flag overrides.
func TestConfig_UpdateFromFlags(t *testing.T) {
	yes := true
	debug := "debug"

	tests := []struct {
		name      string
		flags     Flags
		wantLevel string
		verbose   bool
	}{
		{name: "no flags keep env level", flags: Flags{}, wantLevel: "error"},
		{name: "verbose clears env level", flags: Flags{Verbose: &yes}, wantLevel: "", verbose: true},
		{name: "log level wins", flags: Flags{Verbose: &yes, LogLevel: &debug}, wantLevel: "debug", verbose: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{LogLevel: "error"}
			c.UpdateFromFlags(tt.flags)
			assert.Equal(t, tt.wantLevel, c.LogLevel)
			assert.Equal(t, tt.verbose, c.Verbose)
		})
	}
}
