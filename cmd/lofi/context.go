package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"lofi/internal/config"
	"lofi/internal/options"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads configuration once. Directories are created later by
// prepare so that --home can relocate them first.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// prepare applies runtime flags to the loaded config and provisions the
// working directories.
func (c *commandContext) prepare(flags *runtimeFlags) (*config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if flags != nil {
		if err := flags.apply(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runtimeFlags are the startup switches shared by serve and convert.
type runtimeFlags struct {
	android bool
	cudaCPU bool
	cuda    bool
	home    bool
}

func (f *runtimeFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.android, "android", false, "Decode with mediacodec")
	cmd.Flags().BoolVar(&f.cudaCPU, "cudacpu", false, "Decode with CUDA and encode on the CPU")
	cmd.Flags().BoolVar(&f.cuda, "cuda", false, "Decode with CUDA and encode with NVENC")
	cmd.Flags().BoolVar(&f.home, "home", false, "Use ~/uploads and ~/converted as working directories")
}

// apply overrides the configured acceleration only when a switch is given.
func (f *runtimeFlags) apply(cfg *config.Config) error {
	if f.android || f.cudaCPU || f.cuda {
		cfg.SetAcceleration(options.SelectAcceleration(f.android, f.cudaCPU, f.cuda))
	}
	if f.home {
		if err := cfg.UseHomeDirectories(); err != nil {
			return fmt.Errorf("use home directories: %w", err)
		}
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
