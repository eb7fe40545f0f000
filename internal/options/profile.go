package options

import (
	"fmt"
	"slices"
	"strings"
)

// Acceleration selects the hardware decode path and encoder arguments.
type Acceleration int

const (
	AccelAuto Acceleration = iota
	AccelAndroid
	AccelCuda
	AccelCudaCPU
)

var (
	softwareEncodeArgs = []string{"-crf", "63", "-c:v", "libx264"}
	nvencEncodeArgs    = []string{"-b:v", "1k", "-c:v", "h264_nvenc"}
)

func (a Acceleration) String() string {
	switch a {
	case AccelAndroid:
		return "android"
	case AccelCuda:
		return "cuda"
	case AccelCudaCPU:
		return "cudacpu"
	default:
		return "auto"
	}
}

// HWAccel returns the value passed to the transcoder's -hwaccel flag.
func (a Acceleration) HWAccel() string {
	switch a {
	case AccelAndroid:
		return "mediacodec"
	case AccelCudaCPU:
		return "cuda"
	default:
		return "auto"
	}
}

// AcceptsPreset reports whether the encoder honours the speed preset flag.
// The NVENC path ignores x264 presets so the flag is never emitted for it.
func (a Acceleration) AcceptsPreset() bool {
	return a != AccelCuda
}

// DefaultEncodeArgs returns a fresh copy of the encoder arguments for a.
func (a Acceleration) DefaultEncodeArgs() []string {
	if a == AccelCuda {
		return slices.Clone(nvencEncodeArgs)
	}
	return slices.Clone(softwareEncodeArgs)
}

// ParseAcceleration maps a configured name onto an Acceleration.
func ParseAcceleration(value string) (Acceleration, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto", "default":
		return AccelAuto, nil
	case "android", "mediacodec":
		return AccelAndroid, nil
	case "cuda", "nvenc":
		return AccelCuda, nil
	case "cudacpu", "cuda-cpu", "cuda_cpu":
		return AccelCudaCPU, nil
	default:
		return AccelAuto, fmt.Errorf("unknown acceleration %q (want auto, android, cuda or cudacpu)", value)
	}
}

// SelectAcceleration applies startup flag precedence: android wins over
// cudacpu, which wins over cuda.
func SelectAcceleration(android, cudaCPU, cuda bool) Acceleration {
	switch {
	case android:
		return AccelAndroid
	case cudaCPU:
		return AccelCudaCPU
	case cuda:
		return AccelCuda
	default:
		return AccelAuto
	}
}

// Profile is the process-wide acceleration choice. It is fixed at startup
// and shared read-only by every job.
type Profile struct {
	acceleration Acceleration
	extraArgs    []string
}

// NewProfile builds a Profile. Empty extra arguments fall back to the
// acceleration's defaults.
func NewProfile(accel Acceleration, extraArgs []string) Profile {
	args := slices.Clone(extraArgs)
	if len(args) == 0 {
		args = accel.DefaultEncodeArgs()
	}
	return Profile{acceleration: accel, extraArgs: args}
}

// Acceleration returns the profile's acceleration mode.
func (p Profile) Acceleration() Acceleration {
	return p.acceleration
}

// ExtraArgs returns a copy of the encoder arguments.
func (p Profile) ExtraArgs() []string {
	if p.extraArgs == nil {
		return p.acceleration.DefaultEncodeArgs()
	}
	return slices.Clone(p.extraArgs)
}
