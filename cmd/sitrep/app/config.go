package app

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/covid19datasets/sitrep/pkg/constants"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "SITREP"

// Store backends.
const (
	StoreFS    = "fs"
	StoreMinio = "minio"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Storage
	DataDir      string
	SnapshotFile string
	LedgerFile   string
	CompactEvery int
	Store        string
	Minio        MinioConfig

	// Pipeline
	Timezone      string
	PolicyFile    string
	SchemaFile    string
	WorkDir       string
	NotifyCommand string
	DryRun        bool

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// MinioConfig holds the object store settings used when Store is "minio".
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Region    string
	UseSSL    bool
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (applied later by UpdateFromFlags)
// 2. Environment variables (SITREP_*)
// 3. .env files
// 4. Config file (explicit path, or ~/.sitrep.yaml, ./.sitrep.yaml)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(constants.DefaultConfigName)

		// Read config file (ignore error if not found)
		_ = v.ReadInConfig()
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		DataDir:      v.GetString("data_dir"),
		SnapshotFile: v.GetString("snapshot_file"),
		LedgerFile:   v.GetString("ledger_file"),
		CompactEvery: v.GetInt("compact_every"),
		Store:        strings.ToLower(v.GetString("store")),
		Minio: MinioConfig{
			Endpoint:  v.GetString("minio_endpoint"),
			AccessKey: v.GetString("minio_access_key"),
			SecretKey: v.GetString("minio_secret_key"),
			Bucket:    v.GetString("minio_bucket"),
			Prefix:    v.GetString("minio_prefix"),
			Region:    v.GetString("minio_region"),
			UseSSL:    v.GetBool("minio_use_ssl"),
		},

		Timezone:      v.GetString("timezone"),
		PolicyFile:    v.GetString("policy_file"),
		SchemaFile:    v.GetString("schema_file"),
		WorkDir:       v.GetString("work_dir"),
		NotifyCommand: v.GetString("notify_command"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", constants.DefaultDataDir)
	v.SetDefault("snapshot_file", constants.DefaultSnapshotFile)
	v.SetDefault("ledger_file", constants.DefaultLedgerFile)
	v.SetDefault("compact_every", constants.DefaultCompactEvery)
	v.SetDefault("store", StoreFS)
	v.SetDefault("timezone", constants.DefaultTimezone)
	v.SetDefault("work_dir", filepath.Join(os.TempDir(), "sitrep"))
	v.SetDefault("minio_use_ssl", true)
	v.SetDefault("log_level", "")
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")

	// Registered so AutomaticEnv resolves them even without a config file
	for _, key := range []string{
		"verbose", "quiet", "no_color", "format", "policy_file", "schema_file", "notify_command",
		"minio_endpoint", "minio_access_key", "minio_secret_key", "minio_bucket",
		"minio_prefix", "minio_region",
	} {
		v.SetDefault(key, "")
	}
}

// Flags carries the global flag values changed on the command line.
// A nil field means the flag was not given.
type Flags struct {
	Verbose  *bool
	Quiet    *bool
	NoColor  *bool
	Format   *string
	LogLevel *string
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(f Flags) {
	if f.Verbose != nil {
		c.Verbose = *f.Verbose
	}
	if f.Quiet != nil {
		c.Quiet = *f.Quiet
	}
	if f.NoColor != nil {
		c.NoColor = *f.NoColor
	}
	if f.Format != nil {
		c.Format = *f.Format
	}
	switch {
	case f.LogLevel != nil:
		c.LogLevel = *f.LogLevel
	case f.Verbose != nil || f.Quiet != nil:
		// a shortcut flag beats a log level from the environment or file
		c.LogLevel = ""
	}
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// .env.local is loaded first so it wins: godotenv never overrides
	// variables that are already set
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
