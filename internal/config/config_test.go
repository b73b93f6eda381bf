package config

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

// MockXDGDirs points every XDG lookup at fixed directories
type MockXDGDirs struct {
	configPaths []string
	cacheDir    string
	dataDir     string
}

func (m *MockXDGDirs) GetConfigPaths(filename string) []string { return m.configPaths }
func (m *MockXDGDirs) GetCachePath(purpose string) string      { return filepath.Join(m.cacheDir, purpose) }
func (m *MockXDGDirs) GetDataPath(purpose string) string       { return filepath.Join(m.dataDir, purpose) }

// fakeLock records Lock and Unlock calls
type fakeLock struct {
	path    string
	locked  bool
	unlocks int
	lockErr error
}

func (l *fakeLock) Lock() error {
	if l.lockErr != nil {
		return l.lockErr
	}
	l.locked = true
	return nil
}

func (l *fakeLock) TryLock() (bool, error) { return !l.locked, nil }

func (l *fakeLock) Unlock() error {
	l.locked = false
	l.unlocks++
	return nil
}

func newMemoryManager(t *testing.T) (*ConfigManager, afero.Fs, *fakeLock) {
	t.Helper()
	fs := afero.NewMemMapFs()
	mgr := NewConfigManagerWithFilesystem(fs)
	mgr.xdg = &MockXDGDirs{
		configPaths: []string{"/home/user/.config/tonearm/config.json", "/etc/xdg/tonearm/config.json"},
		cacheDir:    "/home/user/.cache/tonearm",
		dataDir:     "/home/user/.local/share/tonearm",
	}
	lock := &fakeLock{}
	mgr.newLock = func(path string) FileLockInterface {
		lock.path = path
		return lock
	}
	return mgr, fs, lock
}

func TestGetDefaultConfig(t *testing.T) {
	mgr, _, _ := newMemoryManager(t)
	config := mgr.GetDefaultConfig()

	if config.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", config.LogLevel)
	}
	if config.History == nil || !config.History.Enabled {
		t.Error("history should be enabled by default")
	}
	if config.Decode == nil || config.Decode.BufferFrames != 4096 || config.Decode.DefaultBitDepth != 16 {
		t.Errorf("Decode = %+v", config.Decode)
	}
	if config.FileLogging == nil || config.FileLogging.Enabled {
		t.Error("file logging should be configured but off by default")
	}
	if err := mgr.ValidateConfig(config); err != nil {
		t.Errorf("default config fails validation: %v", err)
	}
}

func TestLoadFromFile_PartialKeepsDefaults(t *testing.T) {
	mgr, fs, _ := newMemoryManager(t)
	afero.WriteFile(fs, "/cfg.json", []byte(`{"log_level":"debug","decode":{"buffer_frames":1024}}`), 0644)

	config, err := mgr.LoadFromFile("/cfg.json")
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", config.LogLevel)
	}
	if config.Decode.BufferFrames != 1024 {
		t.Errorf("BufferFrames = %d, want 1024", config.Decode.BufferFrames)
	}
	if config.History == nil || !config.History.Enabled {
		t.Error("missing history section should fall back to defaults")
	}
}

func TestLoadFromFile_NullSection(t *testing.T) {
	mgr, fs, _ := newMemoryManager(t)
	afero.WriteFile(fs, "/cfg.json", []byte(`{"history":null}`), 0644)

	config, err := mgr.LoadFromFile("/cfg.json")
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if config.History == nil {
		t.Error("null history section was not replaced with defaults")
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	mgr, fs, _ := newMemoryManager(t)
	afero.WriteFile(fs, "/bad.json", []byte(`{not json`), 0644)
	afero.WriteFile(fs, "/invalid.json", []byte(`{"log_level":"loud"}`), 0644)

	tests := []struct {
		path    string
		wantMsg string
	}{
		{"/missing.json", "failed to read config file"},
		{"/bad.json", "failed to parse config JSON"},
		{"/invalid.json", "config validation failed"},
	}
	for _, tt := range tests {
		_, err := mgr.LoadFromFile(tt.path)
		if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
			t.Errorf("LoadFromFile(%s) error = %v, want %q", tt.path, err, tt.wantMsg)
		}
	}
}

func TestLoadConfig_XDGSearchOrder(t *testing.T) {
	mgr, fs, _ := newMemoryManager(t)

	config, err := mgr.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig with no files failed: %v", err)
	}
	if config.LogLevel != "warn" {
		t.Errorf("expected defaults, got log level %q", config.LogLevel)
	}

	afero.WriteFile(fs, "/etc/xdg/tonearm/config.json", []byte(`{"log_level":"error"}`), 0644)
	config, _ = mgr.LoadConfig()
	if config.LogLevel != "error" {
		t.Errorf("system config not found, log level %q", config.LogLevel)
	}

	afero.WriteFile(fs, "/home/user/.config/tonearm/config.json", []byte(`{"log_level":"info"}`), 0644)
	config, _ = mgr.LoadConfig()
	if config.LogLevel != "info" {
		t.Errorf("user config should win, log level %q", config.LogLevel)
	}

	afero.WriteFile(fs, "/explicit.json", []byte(`{"log_level":"debug"}`), 0644)
	config, _ = mgr.LoadConfigFrom("/explicit.json")
	if config.LogLevel != "debug" {
		t.Errorf("LoadConfigFrom ignored the explicit path, log level %q", config.LogLevel)
	}
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	mgr, fs, _ := newMemoryManager(t)
	config := mgr.GetDefaultConfig()
	config.History.DatabasePath = "/data/h.db"
	config.Decode.DefaultBitDepth = 24

	if err := mgr.SaveToFile(config, "/deep/dir/config.json"); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}
	if ok, _ := afero.Exists(fs, "/deep/dir/config.json"); !ok {
		t.Fatal("config file not written")
	}

	loaded, err := mgr.LoadFromFile("/deep/dir/config.json")
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.History.DatabasePath != "/data/h.db" || loaded.Decode.DefaultBitDepth != 24 {
		t.Errorf("round trip lost values: %+v %+v", loaded.History, loaded.Decode)
	}

	config.Decode.DefaultBitDepth = 12
	if err := mgr.SaveToFile(config, "/other.json"); err == nil {
		t.Error("SaveToFile accepted an invalid config")
	}
	if ok, _ := afero.Exists(fs, "/other.json"); ok {
		t.Error("invalid config was written")
	}
}

func TestValidateConfig_JoinsErrors(t *testing.T) {
	mgr, _, _ := newMemoryManager(t)
	config := mgr.GetDefaultConfig()
	config.LogLevel = "verbose"
	config.FileLogging.MaxBackups = -1
	config.Decode.BufferFrames = MaxBufferFrames + 1
	config.Decode.DefaultBitDepth = 8

	err := mgr.ValidateConfig(config)
	if err == nil {
		t.Fatal("ValidateConfig accepted an invalid config")
	}
	for _, want := range []string{"invalid log level 'verbose'", "max_backups", "buffer_frames", "default_bit_depth"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	mgr, _, _ := newMemoryManager(t)
	base := mgr.GetDefaultConfig()

	t.Setenv("TONEARM_LOG_LEVEL", "DEBUG")
	t.Setenv("TONEARM_HISTORY", "false")
	t.Setenv("TONEARM_HISTORY_DB", "/tmp/h.db")
	t.Setenv("TONEARM_FILE_LOGGING", "1")
	t.Setenv("TONEARM_BUFFER_FRAMES", "2048")
	t.Setenv("TONEARM_BIT_DEPTH", "24")

	result := mgr.ApplyEnvironmentOverrides(base)

	if result.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", result.LogLevel)
	}
	if result.History.Enabled || result.History.DatabasePath != "/tmp/h.db" {
		t.Errorf("History = %+v", result.History)
	}
	if !result.FileLogging.Enabled {
		t.Error("file logging override not applied")
	}
	if result.Decode.BufferFrames != 2048 || result.Decode.DefaultBitDepth != 24 {
		t.Errorf("Decode = %+v", result.Decode)
	}

	if !base.History.Enabled || base.Decode.BufferFrames != 4096 {
		t.Error("ApplyEnvironmentOverrides modified its input")
	}
}

func TestApplyEnvironmentOverrides_InvalidValuesIgnored(t *testing.T) {
	mgr, _, _ := newMemoryManager(t)

	t.Setenv("TONEARM_LOG_LEVEL", "chatty")
	t.Setenv("TONEARM_HISTORY", "maybe")
	t.Setenv("TONEARM_BUFFER_FRAMES", "-5")
	t.Setenv("TONEARM_BIT_DEPTH", "20")

	result := mgr.ApplyEnvironmentOverrides(mgr.GetDefaultConfig())

	if result.LogLevel != "warn" || !result.History.Enabled {
		t.Errorf("invalid overrides applied: %q %+v", result.LogLevel, result.History)
	}
	if result.Decode.BufferFrames != 4096 || result.Decode.DefaultBitDepth != 16 {
		t.Errorf("invalid decode overrides applied: %+v", result.Decode)
	}
}

func TestApplyLogLevelWithWriter(t *testing.T) {
	mgr, _, _ := newMemoryManager(t)
	saved := slog.Default()
	defer slog.SetDefault(saved)

	var buf bytes.Buffer
	if err := mgr.ApplyLogLevelWithWriter("info", &buf); err != nil {
		t.Fatalf("ApplyLogLevelWithWriter failed: %v", err)
	}
	slog.Debug("hidden message")
	slog.Info("visible message")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Error("debug message logged at info level")
	}
	if !strings.Contains(out, "visible message") {
		t.Error("info message not logged")
	}

	if err := mgr.ApplyLogLevelWithWriter("loud", &buf); err == nil {
		t.Error("invalid level accepted")
	}
	if err := mgr.ApplyLogLevelWithWriter("", &buf); err != nil {
		t.Errorf("empty level should be a no-op, got %v", err)
	}
}

func TestResolvePaths(t *testing.T) {
	mgr, _, _ := newMemoryManager(t)

	if got := mgr.ResolveLogFilePath(""); got != "/home/user/.cache/tonearm/logs/tonearm.log" {
		t.Errorf("ResolveLogFilePath(\"\") = %q", got)
	}
	if got := mgr.ResolveLogFilePath("/var/log/t.log"); got != "/var/log/t.log" {
		t.Errorf("explicit log path rewritten to %q", got)
	}
	if got := mgr.ResolveDatabasePath(""); got != "/home/user/.local/share/tonearm/history.db" {
		t.Errorf("ResolveDatabasePath(\"\") = %q", got)
	}
	if got := mgr.ResolveDatabasePath(":memory:"); got != ":memory:" {
		t.Errorf("explicit database path rewritten to %q", got)
	}
}

func TestInitConfig(t *testing.T) {
	mgr, fs, lock := newMemoryManager(t)

	path, err := mgr.InitConfig("", false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if path != "/home/user/.config/tonearm/config.json" {
		t.Errorf("path = %q", path)
	}
	if lock.path != path+".lock" || lock.locked || lock.unlocks != 1 {
		t.Errorf("lock = %+v, want one lock/unlock on %s.lock", lock, path)
	}

	afero.WriteFile(fs, path, []byte(`{"log_level":"error"}`), 0644)
	if _, err := mgr.InitConfig(path, false); !errors.Is(err, ErrConfigExists) {
		t.Errorf("second InitConfig error = %v, want ErrConfigExists", err)
	}
	if lock.unlocks != 2 {
		t.Error("lock not released after refusing to overwrite")
	}

	if _, err := mgr.InitConfig(path, true); err != nil {
		t.Fatalf("forced InitConfig failed: %v", err)
	}
	config, _ := mgr.LoadFromFile(path)
	if config.LogLevel != "warn" {
		t.Errorf("forced init did not restore defaults, log level %q", config.LogLevel)
	}
}

func TestInitConfig_LockFailure(t *testing.T) {
	mgr, fs, lock := newMemoryManager(t)
	lock.lockErr = errors.New("busy")

	if _, err := mgr.InitConfig("/c/config.json", false); err == nil {
		t.Fatal("InitConfig succeeded without the lock")
	}
	if ok, _ := afero.Exists(fs, "/c/config.json"); ok {
		t.Error("config written without holding the lock")
	}
}

func TestInitConfig_RealLock(t *testing.T) {
	mgr := NewConfigManager()
	path := filepath.Join(t.TempDir(), "tonearm", "config.json")

	if _, err := mgr.InitConfig(path, false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if _, err := mgr.LoadFromFile(path); err != nil {
		t.Errorf("written config does not load: %v", err)
	}
}
