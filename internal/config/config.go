package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// ConfigFileName is the file searched for in each XDG config directory
const ConfigFileName = "config.json"

// MaxBufferFrames caps decode.buffer_frames
const MaxBufferFrames = 1 << 20

// ErrConfigExists is returned by InitConfig when the target exists and force is off
var ErrConfigExists = errors.New("config file already exists")

// FileLoggingConfig represents file-based logging configuration
type FileLoggingConfig struct {
	Enabled    bool   `json:"enabled"`      // Whether file logging is enabled
	Filename   string `json:"filename"`     // Log file path (empty = XDG cache path)
	MaxSizeMB  int    `json:"max_size_mb"`  // Max file size in MB before rotation
	MaxBackups int    `json:"max_backups"`  // Max number of backup files to keep
	MaxAgeDays int    `json:"max_age_days"` // Max age in days before deletion
	Compress   bool   `json:"compress"`     // Whether to compress rotated files
}

// HistoryConfig controls the decode history database
type HistoryConfig struct {
	Enabled      bool   `json:"enabled"`       // Whether decode runs are recorded
	DatabasePath string `json:"database_path"` // Custom database path (empty = XDG data path)
}

// DecodeConfig holds defaults for the decode command
type DecodeConfig struct {
	BufferFrames    int `json:"buffer_frames"`     // Frames pulled per ReadAudio call (0 = decoder default)
	DefaultBitDepth int `json:"default_bit_depth"` // Output WAV bit depth, 16 or 24 (0 = 16)
}

// Config represents tonearm configuration
type Config struct {
	LogLevel    string             `json:"log_level"`              // Log level (debug, info, warn, error)
	FileLogging *FileLoggingConfig `json:"file_logging,omitempty"` // File logging configuration
	History     *HistoryConfig     `json:"history,omitempty"`      // Decode history configuration
	Decode      *DecodeConfig      `json:"decode,omitempty"`       // Decode defaults
}

// XDGInterface defines the interface for XDG directory operations
type XDGInterface interface {
	GetConfigPaths(filename string) []string
	GetCachePath(purpose string) string
	GetDataPath(purpose string) string
}

// ConfigManager handles loading, saving, and validating configuration
type ConfigManager struct {
	fs      afero.Fs
	xdg     XDGInterface
	newLock func(path string) FileLockInterface
}

// NewConfigManager creates a configuration manager over the OS filesystem
func NewConfigManager() *ConfigManager {
	return NewConfigManagerWithFilesystem(afero.NewOsFs())
}

// NewConfigManagerWithFilesystem creates a configuration manager that does all
// file IO through fs
func NewConfigManagerWithFilesystem(fs afero.Fs) *ConfigManager {
	slog.Debug("creating new config manager")
	return &ConfigManager{
		fs:      fs,
		xdg:     NewXDGDirs(),
		newLock: NewFileLock,
	}
}

// Filesystem returns the filesystem the manager reads and writes through
func (cm *ConfigManager) Filesystem() afero.Fs {
	return cm.fs
}

// GetDefaultConfig returns the default configuration
func (cm *ConfigManager) GetDefaultConfig() *Config {
	defaultConfig := &Config{
		LogLevel: "warn",
		FileLogging: &FileLoggingConfig{
			Enabled:    false,
			Filename:   "", // Empty = XDG cache path
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		History: &HistoryConfig{
			Enabled:      true,
			DatabasePath: "",
		},
		Decode: &DecodeConfig{
			BufferFrames:    4096,
			DefaultBitDepth: 16,
		},
	}

	slog.Debug("generated default config",
		"log_level", defaultConfig.LogLevel,
		"file_logging_enabled", defaultConfig.FileLogging.Enabled,
		"history_enabled", defaultConfig.History.Enabled,
		"buffer_frames", defaultConfig.Decode.BufferFrames)

	return defaultConfig
}

// LoadFromFile loads configuration from a specific file. Sections missing
// from the file keep their default values.
func (cm *ConfigManager) LoadFromFile(filePath string) (*Config, error) {
	slog.Debug("loading config from file", "file_path", filePath)

	data, err := afero.ReadFile(cm.fs, filePath)
	if err != nil {
		slog.Error("failed to read config file", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := cm.GetDefaultConfig()
	err = json.Unmarshal(data, config)
	if err != nil {
		slog.Error("failed to parse config JSON", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	cm.fillSections(config)

	err = cm.ValidateConfig(config)
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	slog.Debug("config loaded successfully",
		"file_path", filePath,
		"log_level", config.LogLevel,
		"history_enabled", config.History.Enabled)

	return config, nil
}

// fillSections replaces sections explicitly set to null with defaults
func (cm *ConfigManager) fillSections(config *Config) {
	defaults := cm.GetDefaultConfig()
	if config.FileLogging == nil {
		config.FileLogging = defaults.FileLogging
	}
	if config.History == nil {
		config.History = defaults.History
	}
	if config.Decode == nil {
		config.Decode = defaults.Decode
	}
}

// SaveToFile saves configuration to a specific file
func (cm *ConfigManager) SaveToFile(config *Config, filePath string) error {
	slog.Debug("saving config to file", "file_path", filePath)

	err := cm.ValidateConfig(config)
	if err != nil {
		return fmt.Errorf("cannot save invalid config: %w", err)
	}

	dir := filepath.Dir(filePath)
	err = cm.fs.MkdirAll(dir, 0755)
	if err != nil {
		slog.Error("failed to create config directory", "directory", dir, "error", err)
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		slog.Error("failed to marshal config", "error", err)
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = afero.WriteFile(cm.fs, filePath, data, 0644)
	if err != nil {
		slog.Error("failed to write config file", "file_path", filePath, "error", err)
		return fmt.Errorf("failed to write config file: %w", err)
	}

	slog.Info("config saved successfully", "file_path", filePath)
	return nil
}

// LoadConfig loads configuration using XDG path discovery, falling back to
// defaults when no config file exists
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	configPaths := cm.xdg.GetConfigPaths(ConfigFileName)

	slog.Debug("searching for config file", "paths", configPaths)

	for i, configPath := range configPaths {
		if _, err := cm.fs.Stat(configPath); err == nil {
			slog.Debug("found config file", "path_index", i, "path", configPath)
			return cm.LoadFromFile(configPath)
		}
	}

	slog.Debug("no config file found, using defaults")
	return cm.GetDefaultConfig(), nil
}

// LoadConfigFrom loads filePath when it is set and otherwise searches the XDG
// config paths
func (cm *ConfigManager) LoadConfigFrom(filePath string) (*Config, error) {
	if filePath != "" {
		return cm.LoadFromFile(filePath)
	}
	return cm.LoadConfig()
}

// DefaultConfigPath is where InitConfig writes when no path is given
func (cm *ConfigManager) DefaultConfigPath() string {
	return cm.xdg.GetConfigPaths(ConfigFileName)[0]
}

// InitConfig writes the default configuration to filePath (or the user config
// path when empty) while holding a lock next to it. An existing file is only
// replaced when force is set.
func (cm *ConfigManager) InitConfig(filePath string, force bool) (string, error) {
	if filePath == "" {
		filePath = cm.DefaultConfigPath()
	}

	dir := filepath.Dir(filePath)
	if err := cm.fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	lock := cm.newLock(filePath + ".lock")
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("failed to lock config file: %w", err)
	}
	defer lock.Unlock()

	if _, err := cm.fs.Stat(filePath); err == nil && !force {
		slog.Warn("refusing to overwrite config file", "file_path", filePath)
		return filePath, fmt.Errorf("%w: %s", ErrConfigExists, filePath)
	}

	if err := cm.SaveToFile(cm.GetDefaultConfig(), filePath); err != nil {
		return "", err
	}
	return filePath, nil
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

// ValidateConfig validates configuration values. Every problem found is
// reported in the joined error.
func (cm *ConfigManager) ValidateConfig(config *Config) error {
	var errs []error

	if config.LogLevel != "" {
		if _, err := ParseLogLevel(config.LogLevel); err != nil {
			errs = append(errs, err)
		}
	}

	if fileLogging := config.FileLogging; fileLogging != nil {
		if fileLogging.MaxSizeMB < 0 {
			errs = append(errs, fmt.Errorf("file logging max_size_mb must be >= 0, got %d", fileLogging.MaxSizeMB))
		}
		if fileLogging.MaxBackups < 0 {
			errs = append(errs, fmt.Errorf("file logging max_backups must be >= 0, got %d", fileLogging.MaxBackups))
		}
		if fileLogging.MaxAgeDays < 0 {
			errs = append(errs, fmt.Errorf("file logging max_age_days must be >= 0, got %d", fileLogging.MaxAgeDays))
		}
	}

	if decode := config.Decode; decode != nil {
		if decode.BufferFrames < 0 || decode.BufferFrames > MaxBufferFrames {
			errs = append(errs, fmt.Errorf("decode buffer_frames must be between 0 and %d, got %d", MaxBufferFrames, decode.BufferFrames))
		}
		switch decode.DefaultBitDepth {
		case 0, 16, 24:
		default:
			errs = append(errs, fmt.Errorf("decode default_bit_depth must be 16 or 24, got %d", decode.DefaultBitDepth))
		}
	}

	if err := errors.Join(errs...); err != nil {
		slog.Error("config validation failed", "errors", len(errs), "error", err)
		return err
	}

	slog.Debug("config validation passed")
	return nil
}

// ApplyEnvironmentOverrides applies TONEARM_* environment variables to a copy
// of config. Invalid values are logged and ignored.
func (cm *ConfigManager) ApplyEnvironmentOverrides(config *Config) *Config {
	result := *config
	cm.fillSections(&result)
	fileLogging := *result.FileLogging
	history := *result.History
	decode := *result.Decode
	result.FileLogging, result.History, result.Decode = &fileLogging, &history, &decode

	if logLevel := os.Getenv("TONEARM_LOG_LEVEL"); logLevel != "" {
		if _, err := ParseLogLevel(logLevel); err == nil {
			result.LogLevel = strings.ToLower(logLevel)
			slog.Debug("applied log level override from environment", "value", logLevel)
		} else {
			slog.Warn("invalid TONEARM_LOG_LEVEL environment variable", "value", logLevel)
		}
	}

	envBool("TONEARM_FILE_LOGGING", &fileLogging.Enabled)
	envBool("TONEARM_HISTORY", &history.Enabled)

	if dbPath := os.Getenv("TONEARM_HISTORY_DB"); dbPath != "" {
		history.DatabasePath = dbPath
		slog.Debug("applied history database override from environment", "value", dbPath)
	}

	if s := os.Getenv("TONEARM_BUFFER_FRAMES"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= MaxBufferFrames {
			decode.BufferFrames = n
			slog.Debug("applied buffer frames override from environment", "value", n)
		} else {
			slog.Warn("invalid TONEARM_BUFFER_FRAMES environment variable", "value", s)
		}
	}

	if s := os.Getenv("TONEARM_BIT_DEPTH"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && (n == 16 || n == 24) {
			decode.DefaultBitDepth = n
			slog.Debug("applied bit depth override from environment", "value", n)
		} else {
			slog.Warn("invalid TONEARM_BIT_DEPTH environment variable", "value", s)
		}
	}

	return &result
}

func envBool(name string, dst *bool) {
	s := os.Getenv(name)
	if s == "" {
		return
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		slog.Warn("invalid boolean environment variable", "name", name, "value", s, "error", err)
		return
	}
	*dst = v
	slog.Debug("applied override from environment", "name", name, "value", v)
}

// ParseLogLevel maps debug, info, warn and error (any case) to slog levels
func ParseLogLevel(logLevel string) (slog.Level, error) {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level '%s', must be one of: %s", logLevel, strings.Join(validLogLevels, ", "))
}

// ApplyLogLevel configures the default slog logger to write to stderr
func (cm *ConfigManager) ApplyLogLevel(logLevel string) error {
	return cm.ApplyLogLevelWithWriter(logLevel, os.Stderr)
}

// ApplyLogLevelWithWriter configures the default slog logger with the given
// level and writer. An empty level leaves slog untouched.
func (cm *ConfigManager) ApplyLogLevelWithWriter(logLevel string, writer io.Writer) error {
	if logLevel == "" {
		return nil
	}

	level, err := ParseLogLevel(logLevel)
	if err != nil {
		return err
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	slog.Debug("slog configured", "log_level", logLevel)
	return nil
}

// ResolveLogFilePath resolves the log file path using the XDG cache
// directory when filename is empty
func (cm *ConfigManager) ResolveLogFilePath(filename string) string {
	if filename != "" {
		return filename
	}
	return filepath.Join(cm.xdg.GetCachePath("logs"), "tonearm.log")
}

// ResolveDatabasePath resolves the history database path using the XDG data
// directory when dbPath is empty
func (cm *ConfigManager) ResolveDatabasePath(dbPath string) string {
	if dbPath != "" {
		return dbPath
	}
	return filepath.Join(cm.xdg.GetDataPath(""), "history.db")
}
