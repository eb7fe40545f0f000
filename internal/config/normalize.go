package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscode()
	c.normalizeServer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if c.Paths.UseHome {
		if err := c.UseHomeDirectories(); err != nil {
			return err
		}
	}
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		c.Paths.UploadDir = defaultUploadDir
	}
	if strings.TrimSpace(c.Paths.ConvertedDir) == "" {
		c.Paths.ConvertedDir = defaultConvertedDir
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	var err error
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.ConvertedDir, err = expandPath(c.Paths.ConvertedDir); err != nil {
		return fmt.Errorf("paths.converted_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("LOFI_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeTranscode() {
	if value, ok := os.LookupEnv("LOFI_ACCELERATION"); ok && strings.TrimSpace(value) != "" {
		c.Transcode.Acceleration = value
	}
	c.Transcode.Acceleration = strings.ToLower(strings.TrimSpace(c.Transcode.Acceleration))
	if c.Transcode.Acceleration == "" {
		c.Transcode.Acceleration = defaultAcceleration
	}
	args := c.Transcode.ExtraArgs[:0]
	for _, arg := range c.Transcode.ExtraArgs {
		if arg = strings.TrimSpace(arg); arg != "" {
			args = append(args, arg)
		}
	}
	if len(args) == 0 {
		args = nil
	}
	c.Transcode.ExtraArgs = args
	c.Transcode.FetchBinary = strings.TrimSpace(c.Transcode.FetchBinary)
	if c.Transcode.FetchBinary == "" {
		c.Transcode.FetchBinary = defaultFetchBinary
	}
	c.Transcode.TranscodeBinary = strings.TrimSpace(c.Transcode.TranscodeBinary)
	if c.Transcode.TranscodeBinary == "" {
		c.Transcode.TranscodeBinary = defaultTranscodeBinary
	}
	if c.Transcode.TerminationGraceSeconds <= 0 {
		c.Transcode.TerminationGraceSeconds = defaultTerminationGraceSeconds
	}
}

func (c *Config) normalizeServer() {
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = defaultMaxUploadMB
	}
	if c.Server.JobTimeoutSeconds < 0 {
		c.Server.JobTimeoutSeconds = 0
	}
	if c.Server.HistoryRetentionDays < 0 {
		c.Server.HistoryRetentionDays = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
