package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"lofi/internal/options"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.UploadDir == "" || c.Paths.ConvertedDir == "" {
		return errors.New("paths.upload_dir and paths.converted_dir must be set")
	}
	if c.Paths.UploadDir == c.Paths.ConvertedDir {
		return errors.New("paths.upload_dir and paths.converted_dir must differ")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateTranscode() error {
	if _, err := options.ParseAcceleration(c.Transcode.Acceleration); err != nil {
		return fmt.Errorf("transcode.acceleration: %w", err)
	}
	for _, arg := range c.Transcode.ExtraArgs {
		if strings.ContainsAny(arg, " \t") {
			return fmt.Errorf("transcode.extra_args: %q must be split into separate entries", arg)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
