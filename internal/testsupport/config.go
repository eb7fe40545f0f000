package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"lofi/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The working directories exist when it returns.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploads")
	cfgVal.Paths.ConvertedDir = filepath.Join(base, "converted")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Transcode.TerminationGraceSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithAPIToken sets the bearer token required by /api routes.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithMaxUploadMB lowers the upload size limit.
func WithMaxUploadMB(mb int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.MaxUploadMB = mb
	}
}

// WithStubTools installs scripted fetcher and transcoder stubs and points the
// config at them.
func WithStubTools(behaviour StubBehaviour) ConfigOption {
	return func(b *configBuilder) {
		tools := StubTools(b.t, filepath.Join(b.baseDir, "bin"), behaviour)
		b.cfg.Transcode.FetchBinary = tools.Fetch
		b.cfg.Transcode.TranscodeBinary = tools.Transcode
	}
}

// WithStubbedBinaries puts executables named after the default tools on
// PATH, leaving the config's bare binary names to resolve there. Each stub
// prints "<name> stub" and exits 0. Empty names stubs yt-dlp and ffmpeg.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg"}
		}
		binDir := filepath.Join(b.baseDir, "path-bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			script := fmt.Sprintf("#!/bin/sh\necho %q\nexit 0\n", name+" stub")
			if err := os.WriteFile(filepath.Join(binDir, name), []byte(script), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// Invocations returns the stub tool calls recorded for cfg, one per line.
func Invocations(t testing.TB, cfg *config.Config) []string {
	t.Helper()
	return ReadInvocations(t, filepath.Join(BaseDir(cfg), "bin"))
}
