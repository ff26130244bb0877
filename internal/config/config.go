// ABOUTME: Calyra configuration management with backend selection.
// ABOUTME: Reads config.yaml and CALYRA_* environment variables through viper.

package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harperreed/calyra/internal/storage"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "CALYRA"

	keyBackend  = "backend"
	keyDataDir  = "data_dir"
	keyLogLevel = "log_level"

	// SQLiteFile is the database file name inside the data directory.
	SQLiteFile = "calyra.db"
	// BadgerDir is the database directory name inside the data directory.
	BadgerDir = "badger"
)

// Config stores calyra configuration.
type Config struct {
	// Backend selects the storage backend: "badger" (default) or "sqlite".
	Backend string `mapstructure:"backend" yaml:"backend,omitempty"`

	// DataDir is the root directory for data storage.
	// Badger keeps its files in badger/ here, SQLite uses calyra.db.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/calyra.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir,omitempty"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `mapstructure:"log_level" yaml:"log_level,omitempty"`
}

// GetBackend returns the configured backend, defaulting to "badger".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return BackendBadger
	}
	return strings.ToLower(c.Backend)
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetLogLevel returns the configured log level, defaulting to info.
func (c *Config) GetLogLevel() log.Level {
	if c.LogLevel == "" {
		return log.InfoLevel
	}
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// StoragePath returns where the configured backend keeps its data.
func (c *Config) StoragePath() string {
	if c.GetBackend() == BackendSQLite {
		return filepath.Join(c.GetDataDir(), SQLiteFile)
	}
	return filepath.Join(c.GetDataDir(), BadgerDir)
}

// OpenStorage opens the Store for the configured backend.
func (c *Config) OpenStorage(logger *log.Logger) (storage.Store, error) {
	return OpenBackend(c.GetBackend(), c.GetDataDir(), logger)
}

// OpenBackend opens the named backend inside dataDir. On error the returned
// Store is nil.
func OpenBackend(backend, dataDir string, logger *log.Logger) (storage.Store, error) {
	switch strings.ToLower(backend) {
	case BackendBadger:
		s, err := storage.OpenBadger(filepath.Join(dataDir, BadgerDir), logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		s, err := storage.OpenSQLite(filepath.Join(dataDir, SQLiteFile), logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown backend: %q", backend)
	}
}

// RemoveStorage deletes the configured backend's database without reading
// its schema version.
func (c *Config) RemoveStorage(ctx context.Context, logger *log.Logger) error {
	return RemoveBackend(ctx, c.GetBackend(), c.GetDataDir(), logger)
}

// RemoveBackend deletes the named backend's database inside dataDir.
func RemoveBackend(ctx context.Context, backend, dataDir string, logger *log.Logger) error {
	switch strings.ToLower(backend) {
	case BackendBadger:
		return storage.RemoveBadger(ctx, filepath.Join(dataDir, BadgerDir), logger)
	case BackendSQLite:
		return storage.RemoveSQLite(ctx, filepath.Join(dataDir, SQLiteFile), logger)
	default:
		return fmt.Errorf("unknown backend: %q", backend)
	}
}

// GetConfigDir returns the directory holding config.yaml.
func GetConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "calyra")
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), configFileName+"."+configFileType)
}

// Load reads config.yaml and applies CALYRA_* environment overrides.
// A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(GetConfigDir())
	v.SetEnvPrefix(envPrefix)
	for _, key := range []string{keyBackend, keyDataDir, keyLogLevel} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Keys lists the settings Set accepts, as they appear in config.yaml.
var Keys = []string{keyBackend, keyDataDir, keyLogLevel}

// LoadFile reads config.yaml alone, without environment overrides. A missing
// file yields an empty Config.
func LoadFile() (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(GetConfigPath())
	if errors.Is(err, fs.ErrNotExist) {
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Set validates value and assigns it to key. An empty value clears the
// setting so its default applies.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case keyBackend:
		v := strings.ToLower(value)
		if v != "" && v != BackendBadger && v != BackendSQLite {
			return fmt.Errorf("unknown backend: %q (use %s or %s)", value, BackendBadger, BackendSQLite)
		}
		c.Backend = v
	case keyDataDir:
		c.DataDir = value
	case keyLogLevel:
		if value != "" {
			if _, err := log.ParseLevel(value); err != nil {
				return fmt.Errorf("unknown log level: %q (use debug, info, warn or error)", value)
			}
		}
		c.LogLevel = strings.ToLower(value)
	default:
		return fmt.Errorf("unknown setting: %q (use %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
