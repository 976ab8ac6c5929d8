package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"winlock/internal/hotkeys"
)

const (
	appDirName     = "winlock"
	configFileName = "config.yaml"
	journalName    = "journal.db"

	maxConfigFileBytes int64 = 64 << 10
	maxRenameRetry           = 10
	// Windows file lock releases (antivirus/indexing) typically settle quickly.
	// Use a short linear backoff: baseDelay * (1..maxRenameRetry).
	renameRetryBaseDelay = 10 * time.Millisecond

	// DefaultLockSettleDelay matches lockctl.DefaultLockSettleDelay.
	DefaultLockSettleDelay = 500 * time.Millisecond
	// MaxLockSettleDelay bounds how long the native shortcut may stay usable
	// after a triggered lock.
	MaxLockSettleDelay = 10 * time.Second
)

// defaultConfigDirFn is a test seam; tests override it to simulate
// directory-resolution failures in Save.
var defaultConfigDirFn = defaultConfigDir
var userHomeDirFn = os.UserHomeDir

var defaultPathWarningState struct {
	mu       sync.Mutex
	messages []string
}

func recordDefaultPathWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	defaultPathWarningState.mu.Lock()
	defaultPathWarningState.messages = append(defaultPathWarningState.messages, trimmed)
	defaultPathWarningState.mu.Unlock()
}

// ConsumeDefaultPathWarnings returns and clears path-resolution warnings
// accumulated during DefaultPath() calls.
func ConsumeDefaultPathWarnings() []string {
	defaultPathWarningState.mu.Lock()
	defer defaultPathWarningState.mu.Unlock()
	if len(defaultPathWarningState.messages) == 0 {
		return nil
	}
	out := make([]string, len(defaultPathWarningState.messages))
	copy(out, defaultPathWarningState.messages)
	defaultPathWarningState.messages = nil
	return out
}

// Config is the winlock runtime configuration. Command-line flags that are
// explicitly set take precedence over every field.
type Config struct {
	DisableNative bool `yaml:"disable_native" json:"disable_native"`
	RestoreNative bool `yaml:"restore_native" json:"restore_native"`
	RestoreOnExit bool `yaml:"restore_on_exit" json:"restore_on_exit"`
	// Hotkey is the alternate lock combination, e.g. "Ctrl+Win+J".
	// Empty means no alternate hotkey is registered.
	Hotkey          string        `yaml:"hotkey" json:"hotkey"`
	LockSettleDelay time.Duration `yaml:"lock_settle_delay" json:"lock_settle_delay"`
	LogLevel        string        `yaml:"log_level" json:"log_level"`
	// Journal enables the SQLite action journal next to the config file.
	Journal bool `yaml:"journal" json:"journal"`
	// Control starts the local control channel used by status/stop/lock.
	Control bool `yaml:"control" json:"control"`
}

// DefaultConfig returns the values used when no config file exists.
func DefaultConfig() Config {
	return Config{
		LockSettleDelay: DefaultLockSettleDelay,
		LogLevel:        "info",
		Journal:         true,
		Control:         true,
	}
}

// DefaultPath resolves the config file path, preferring LOCALAPPDATA over
// APPDATA, falling back to ~/.config when both are unset, and then to
// os.TempDir() if the home directory cannot be resolved.
// The temp-dir fallback is not a stable persistence location and may vary
// between sessions depending on environment configuration.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("APPDATA"))
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			// Keep config path resolvable even in restricted environments.
			slog.Warn("[config] using temp dir as config path fallback", "error", err)
			recordDefaultPathWarning(
				"Config path fallback: failed to resolve LOCALAPPDATA/APPDATA/home directory. Using temp directory; settings persistence may be limited.",
			)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, appDirName, configFileName)
}

// JournalPath returns the journal database path that belongs with the
// config file at configPath.
func JournalPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), journalName)
}

// Load reads the config file. A missing or empty file yields defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[config] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save validates cfg and atomically writes it to path, which must lie inside
// the default config directory.
// Returns the normalized config that was actually written to disk.
func Save(path string, cfg Config) (Config, error) {
	expectedDir, err := defaultConfigDirFn()
	if err != nil {
		return cfg, fmt.Errorf("save config: resolve config dir: %w", err)
	}
	return saveWithin(path, expectedDir, cfg)
}

// saveWithin writes cfg to path after checking that path stays inside dir.
func saveWithin(path string, dir string, cfg Config) (Config, error) {
	normalizedPath, err := validateConfigPath(path, dir)
	if err != nil {
		return cfg, err
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, fmt.Errorf("save config: %w", err)
	}

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(normalizedPath, raw); err != nil {
		return cfg, err
	}
	slog.Debug("[config] config saved", "path", normalizedPath)
	return cfg, nil
}

// EnsureFile writes the default config if path does not exist yet and
// returns the effective config. created reports whether a file was written.
// path is an explicit caller choice (e.g. --config), so it may live outside
// the default config directory.
func EnsureFile(path string) (cfg Config, created bool, err error) {
	cfg, err = Load(path)
	if err != nil {
		return cfg, false, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if cfg, err = saveWithin(path, filepath.Dir(path), cfg); err != nil {
			return cfg, false, err
		}
		return cfg, true, nil
	}
	return cfg, false, nil
}

// ParseHotkey returns the configured binding, or nil when none is set.
func (c Config) ParseHotkey() (*hotkeys.Binding, error) {
	if strings.TrimSpace(c.Hotkey) == "" {
		return nil, nil
	}
	b, err := hotkeys.ParseBinding(c.Hotkey)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ParseLogLevel maps a level name to a slog level. Empty means info.
func ParseLogLevel(name string) (slog.Level, error) {
	var level slog.Level
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(trimmed)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// applyDefaultsAndValidate normalizes cfg in place.
// Used by both Load and Save to ensure consistent normalization.
func applyDefaultsAndValidate(cfg *Config) error {
	cfg.Hotkey = strings.TrimSpace(cfg.Hotkey)
	if cfg.Hotkey != "" {
		b, err := hotkeys.ParseBinding(cfg.Hotkey)
		if err != nil {
			return fmt.Errorf("hotkey: %w", err)
		}
		cfg.Hotkey = b.Normalized()
	}

	if cfg.LockSettleDelay < 0 || cfg.LockSettleDelay > MaxLockSettleDelay {
		return fmt.Errorf("lock_settle_delay %s is outside 0s..%s", cfg.LockSettleDelay, MaxLockSettleDelay)
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultConfig().LogLevel
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

// atomicWrite writes config data using temp-file + rename to avoid partial
// writes and retries rename on Windows to tolerate transient file locks.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save config: mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[config] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[config] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if err = tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("save config: chmod temp: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save config: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("save config: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("save config: close: %w", err)
	}

	if err = renameFileWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}

// validateConfigPath normalizes path and enforces that config writes stay
// inside expectedDir.
func validateConfigPath(path string, expectedDir string) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return "", fmt.Errorf("save config: resolve path: %w", err)
	}

	absoluteExpectedDir, err := filepath.Abs(expectedDir)
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	if !pathWithinDir(absolutePath, absoluteExpectedDir) {
		return "", fmt.Errorf("save config: path outside config directory: %q", absolutePath)
	}
	return absolutePath, nil
}

func defaultConfigDir() (string, error) {
	return filepath.Dir(DefaultPath()), nil
}

// pathWithinDir blocks directory traversal by ensuring path is under dir.
// It also rejects Windows cross-drive escapes because filepath.Rel returns
// an absolute path when roots differ.
func pathWithinDir(path string, dir string) bool {
	relativePath, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	if relativePath == "." {
		return true
	}
	if relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(os.PathSeparator)) {
		return false
	}
	return !filepath.IsAbs(relativePath)
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

func renameFileWithRetry(sourcePath string, targetPath string) error {
	var lastErr error
	for attempt := range maxRenameRetry {
		err := os.Rename(sourcePath, targetPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}
