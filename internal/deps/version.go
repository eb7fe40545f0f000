package deps

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionProbeTimeout = 5 * time.Second

// ProbeVersion runs command with args and returns the first non-empty line of
// its output, which is where both yt-dlp and ffmpeg print their version.
func ProbeVersion(ctx context.Context, command string, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	output, err := exec.CommandContext(probeCtx, command, args...).CombinedOutput()
	if err != nil {
		if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s timed out after %s", command, versionProbeTimeout)
		}
		return "", err
	}
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", errors.New("no version output")
}
