package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"lofi/internal/options"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	UploadDir    string `toml:"upload_dir"`
	ConvertedDir string `toml:"converted_dir"`
	StateDir     string `toml:"state_dir"`
	UseHome      bool   `toml:"use_home"`
	APIBind      string `toml:"api_bind"`
	APIToken     string `toml:"api_token"`
}

// Transcode contains the process-wide acceleration profile and tool names.
type Transcode struct {
	Acceleration            string   `toml:"acceleration"`
	ExtraArgs               []string `toml:"extra_args"`
	FetchBinary             string   `toml:"fetch_binary"`
	TranscodeBinary         string   `toml:"transcode_binary"`
	TerminationGraceSeconds int      `toml:"termination_grace_seconds"`
}

// Server contains HTTP front-end limits.
type Server struct {
	MaxUploadMB          int `toml:"max_upload_mb"`
	JobTimeoutSeconds    int `toml:"job_timeout_seconds"`
	HistoryRetentionDays int `toml:"history_retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for lofi.
//
// Configuration sections by subsystem:
//   - Paths: working directories, state directory and API bind address
//   - Transcode: acceleration profile and external tool binaries
//   - Server: upload limits, job timeout and history retention
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Transcode Transcode `toml:"transcode"`
	Server    Server    `toml:"server"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lofi.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.ConvertedDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// UseHomeDirectories moves the working directories under the user's home.
func (c *Config) UseHomeDirectories() error {
	var err error
	c.Paths.UseHome = true
	if c.Paths.UploadDir, err = expandPath(homeUploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.ConvertedDir, err = expandPath(homeConvertedDir); err != nil {
		return fmt.Errorf("paths.converted_dir: %w", err)
	}
	return nil
}

// SetAcceleration replaces the configured acceleration and resets the encode
// arguments to that mode's defaults.
func (c *Config) SetAcceleration(accel options.Acceleration) {
	c.Transcode.Acceleration = accel.String()
	c.Transcode.ExtraArgs = nil
}

// Profile builds the immutable acceleration profile shared by every job.
func (c *Config) Profile() (options.Profile, error) {
	accel, err := options.ParseAcceleration(c.Transcode.Acceleration)
	if err != nil {
		return options.Profile{}, fmt.Errorf("transcode.acceleration: %w", err)
	}
	return options.NewProfile(accel, c.Transcode.ExtraArgs), nil
}

// Directories returns the job working directories.
func (c *Config) Directories() options.Dirs {
	return options.Dirs{Upload: c.Paths.UploadDir, Converted: c.Paths.ConvertedDir}
}

// MaxUploadBytes converts the upload limit to bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) * 1024 * 1024
}

// JobTimeout bounds a single job; zero means unbounded.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Server.JobTimeoutSeconds) * time.Second
}

// HistoryRetention is how long finished jobs stay in history; zero keeps them forever.
func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.Server.HistoryRetentionDays) * 24 * time.Hour
}

// HistoryPath is the SQLite database holding job history.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath is the file locked by a running server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "lofi.lock")
}

// LogPath is the persistent log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "lofi.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
