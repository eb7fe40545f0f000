package preflight

import (
	"context"

	"lofi/internal/config"
	"lofi/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll checks every working directory lofi writes into.
func RunAll(_ context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Upload directory", cfg.Paths.UploadDir),
		CheckDirectoryAccess("Converted directory", cfg.Paths.ConvertedDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Snapshot is the combined runtime status shown by `lofi status` and /api/status.
type Snapshot struct {
	Acceleration string        `json:"acceleration"`
	HWAccel      string        `json:"hwaccel"`
	ExtraArgs    []string      `json:"extra_args"`
	Dependencies []deps.Status `json:"dependencies"`
	Directories  []Result      `json:"directories"`
	Ready        bool          `json:"ready"`
}

// Collect gathers a Snapshot for cfg.
func Collect(ctx context.Context, cfg *config.Config) Snapshot {
	snap := Snapshot{
		Dependencies: CheckSystemDeps(ctx, cfg),
		Directories:  RunAll(ctx, cfg),
	}
	if profile, err := cfg.Profile(); err == nil {
		accel := profile.Acceleration()
		snap.Acceleration = accel.String()
		snap.HWAccel = accel.HWAccel()
		snap.ExtraArgs = profile.ExtraArgs()
	} else {
		snap.Acceleration = cfg.Transcode.Acceleration
	}
	snap.Ready = len(deps.MissingRequired(snap.Dependencies)) == 0 && len(Failed(snap.Directories)) == 0
	return snap
}
