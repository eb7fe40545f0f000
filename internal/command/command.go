package command

import (
	"strconv"
	"strings"

	"lofi/internal/options"
)

const (
	// StdStream is the path both tools use for stdout/stdin.
	StdStream = "-"

	// ScaleFilter shrinks video to a 144 pixel wide frame with an even height.
	ScaleFilter  = "scale=144:-2"
	FastPreset   = "ultrafast"
	selectWorstA = "worstaudio"
	selectWorstV = "worstvideo+worstaudio"
	selectBestA  = "bestaudio"
	selectBestV  = "best"
)

var (
	compactAudioArgs = []string{"-c:a", "libmp3lame", "-b:a", "8k", "-ar", "24k", "-ac", "1"}
	defaultAudioArgs = []string{"-c:a", "aac", "-b:a", "1k", "-ar", "8k", "-ac", "1"}
)

// Invocation is a binary plus its argv, kept apart until exec time.
type Invocation struct {
	Binary string
	Args   []string
}

// String renders the invocation for logs, quoting arguments with spaces.
func (i Invocation) String() string {
	parts := make([]string, 0, len(i.Args)+1)
	parts = append(parts, i.Binary)
	for _, arg := range i.Args {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			arg = strconv.Quote(arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

type argList struct {
	args []string
}

func (a *argList) add(flag string, values ...string) {
	a.args = append(a.args, flag)
	a.args = append(a.args, values...)
}

func (a *argList) addIf(cond bool, flag string, values ...string) {
	if cond {
		a.add(flag, values...)
	}
}

func (a *argList) raw(tokens ...string) {
	a.args = append(a.args, tokens...)
}

// FormatSelector picks the fetcher quality selector. Staged downloads take
// the smallest available streams; streamed downloads take the best.
func FormatSelector(spec options.Spec) string {
	switch {
	case spec.Staged() && spec.AudioOnly:
		return selectWorstA
	case spec.Staged():
		return selectWorstV
	case spec.AudioOnly:
		return selectBestA
	default:
		return selectBestV
	}
}

// Fetch returns the fetcher argv writing to output. Output is a template for
// staged downloads and StdStream for streamed ones.
func Fetch(spec options.Spec, output string) []string {
	var a argList
	a.add("-o", output)
	a.add("-f", FormatSelector(spec))
	a.raw(spec.Source.URL)
	return a.args
}

// Transcode returns the transcoder argv reading input and writing output.
// Flag order differs by source: uploads apply the scale filter first, remote
// sources put the audio-only switch before the preset.
func Transcode(spec options.Spec, input, output string) []string {
	accel := spec.Profile.Acceleration()
	preset := spec.FastPreset && accel.AcceptsPreset()

	var a argList
	a.add("-hwaccel", accel.HWAccel())
	a.raw("-y")
	a.add("-i", input)
	a.raw(spec.ExtraArgs()...)

	switch spec.Source.Kind {
	case options.SourceRemote:
		a.addIf(spec.AudioOnly, "-vn")
		a.addIf(preset, "-preset", FastPreset)
	default:
		a.addIf(spec.Downscale, "-vf", ScaleFilter)
		a.addIf(preset, "-preset", FastPreset)
		a.addIf(spec.AudioOnly, "-vn")
	}
	a.raw(audioArgs(spec.CompactAudio)...)
	a.raw(output)
	return a.args
}

func audioArgs(compact bool) []string {
	if compact {
		return compactAudioArgs
	}
	return defaultAudioArgs
}
