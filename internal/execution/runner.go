package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"lofi/internal/artifacts"
	"lofi/internal/command"
	"lofi/internal/logging"
	"lofi/internal/options"
	"lofi/internal/services"
)

// Mode is the execution strategy for a job.
type Mode string

const (
	ModeDirect   Mode = "direct"
	ModeStaged   Mode = "staged"
	ModeStreamed Mode = "streamed"
)

const (
	messageFetchFailed     = "An error occurred during YouTube download"
	messageTranscodeFailed = "An error occurred during conversion"
	messageNoDownload      = "Failed to download YouTube video."
	messageAmbiguous       = "Failed to download YouTube video: more than one file was produced."

	defaultTerminationGrace = 5 * time.Second
)

// SelectMode picks the strategy for spec.
func SelectMode(spec options.Spec) Mode {
	switch {
	case spec.Source.Kind == options.SourceUpload:
		return ModeDirect
	case spec.Staged():
		return ModeStaged
	default:
		return ModeStreamed
	}
}

// Binaries names the external tools.
type Binaries struct {
	Fetch     string
	Transcode string
}

// Registrar receives every path a run creates.
type Registrar interface {
	Register(path string, role artifacts.Role)
}

// Outcome describes a successful run.
type Outcome struct {
	Mode       Mode
	Input      string
	OutputPath string
	Fetch      *command.Invocation
	Transcode  command.Invocation
}

// Option configures the runner.
type Option func(*Runner)

// WithTerminationGrace sets the delay between SIGTERM and SIGKILL.
func WithTerminationGrace(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.grace = d
		}
	}
}

// Runner spawns the fetcher and transcoder. It holds no per-job state and
// may be shared by concurrent jobs.
type Runner struct {
	bins   Binaries
	grace  time.Duration
	logger *slog.Logger
}

// NewRunner constructs a runner.
func NewRunner(bins Binaries, logger *slog.Logger, opts ...Option) (*Runner, error) {
	bins.Fetch = strings.TrimSpace(bins.Fetch)
	bins.Transcode = strings.TrimSpace(bins.Transcode)
	if bins.Fetch == "" || bins.Transcode == "" {
		return nil, services.Wrap(services.ErrConfiguration, "execution", "init", "fetch and transcode binaries are required", nil)
	}
	r := &Runner{
		bins:   bins,
		grace:  defaultTerminationGrace,
		logger: logging.NewComponentLogger(logger, "execution"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run executes spec. The output path is registered by the caller; Run
// registers any intermediate files it discovers.
func (r *Runner) Run(ctx context.Context, spec options.Spec, reg Registrar) (Outcome, error) {
	mode := SelectMode(spec)
	logger := logging.WithContext(ctx, r.logger).With(logging.String("mode", string(mode)))

	var (
		out Outcome
		err error
	)
	switch mode {
	case ModeDirect:
		out, err = r.runDirect(ctx, spec, logger)
	case ModeStaged:
		out, err = r.runStaged(ctx, spec, reg, logger)
	default:
		out, err = r.runStreamed(ctx, spec, logger)
	}
	out.Mode = mode
	out.OutputPath = spec.OutputPath
	return out, err
}

func (r *Runner) fetchInvocation(spec options.Spec, output string) command.Invocation {
	return command.Invocation{Binary: r.bins.Fetch, Args: command.Fetch(spec, output)}
}

func (r *Runner) transcodeInvocation(spec options.Spec, input string) command.Invocation {
	return command.Invocation{Binary: r.bins.Transcode, Args: command.Transcode(spec, input, spec.OutputPath)}
}

func (r *Runner) runDirect(ctx context.Context, spec options.Spec, logger *slog.Logger) (Outcome, error) {
	inv := r.transcodeInvocation(spec, spec.InputPath)
	out := Outcome{Input: spec.InputPath, Transcode: inv}

	transcode := newProcess(services.WithStage(ctx, services.StageTranscode), "transcode", inv, r.grace, logger)
	if err := transcode.run(); err != nil {
		return out, transcodeFailure(transcode, err)
	}
	return out, nil
}

func (r *Runner) runStaged(ctx context.Context, spec options.Spec, reg Registrar, logger *slog.Logger) (Outcome, error) {
	fetchInv := r.fetchInvocation(spec, spec.StagingTemplate())
	out := Outcome{Fetch: &fetchInv}

	fetch := newProcess(services.WithStage(ctx, services.StageFetch), "fetch", fetchInv, r.grace, logger)
	fetchErr := fetch.run()

	// Partial downloads share the prefix, so they are tracked even when the
	// fetcher failed.
	input, matches, resolveErr := ResolvePrefix(spec.StagingDir, spec.StagingPrefix)
	for _, path := range matches {
		reg.Register(path, artifacts.RoleIntermediate)
	}

	if fetchErr != nil {
		return out, fetchFailure(fetch, fetchErr)
	}
	if resolveErr != nil {
		message := messageNoDownload
		if errors.Is(resolveErr, ErrAmbiguousDownload) {
			message = messageAmbiguous
		}
		return out, services.NewFailure(services.StageFetch, message, fetch.diagnostics(), resolveErr)
	}
	logger.Debug("staged download located", logging.String("path", input))

	out.Input = input
	out.Transcode = r.transcodeInvocation(spec, input)
	transcode := newProcess(services.WithStage(ctx, services.StageTranscode), "transcode", out.Transcode, r.grace, logger)
	if err := transcode.run(); err != nil {
		return out, transcodeFailure(transcode, err)
	}
	return out, nil
}

func (r *Runner) runStreamed(ctx context.Context, spec options.Spec, logger *slog.Logger) (Outcome, error) {
	fetchInv := r.fetchInvocation(spec, command.StdStream)
	out := Outcome{
		Input:     command.StdStream,
		Fetch:     &fetchInv,
		Transcode: r.transcodeInvocation(spec, command.StdStream),
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return out, services.NewFailure(services.StageFetch, messageFetchFailed+": could not create pipe", "", err)
	}

	fetch := newProcess(services.WithStage(ctx, services.StageFetch), "fetch", fetchInv, r.grace, logger)
	fetch.cmd.Stdout = pw
	transcode := newProcess(services.WithStage(ctx, services.StageTranscode), "transcode", out.Transcode, r.grace, logger)
	transcode.cmd.Stdin = pr

	if err := fetch.start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return out, fetchFailure(fetch, err)
	}
	if err := transcode.start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		fetch.terminate("transcoder failed to start")
		_ = fetch.wait()
		return out, transcodeFailure(transcode, err)
	}
	// The children hold their own copies; closing ours lets EOF and SIGPIPE
	// propagate between them.
	_ = pr.Close()
	_ = pw.Close()

	transcodeErr := transcode.wait()
	if transcodeErr != nil && !fetch.exited() {
		fetch.terminate("transcoder failed")
	}
	fetchErr := fetch.wait()
	fetchFirst := !fetch.exitedAt.After(transcode.exitedAt)

	switch {
	case fetchErr != nil && fetchFirst:
		// The transcoder usually fails too once its input ends early; the
		// fetcher is the root cause.
		return out, fetchFailure(fetch, fetchErr)
	case transcodeErr != nil:
		return out, transcodeFailure(transcode, transcodeErr)
	case fetchErr != nil && !fetch.wasTerminated():
		return out, fetchFailure(fetch, fetchErr)
	}
	return out, nil
}

func fetchFailure(p *process, err error) error {
	return services.NewFailure(services.StageFetch, fmt.Sprintf("%s: %s", messageFetchFailed, p.describe(err)), p.diagnostics(), err)
}

func transcodeFailure(p *process, err error) error {
	return services.NewFailure(services.StageTranscode, fmt.Sprintf("%s: %s", messageTranscodeFailed, p.describe(err)), p.diagnostics(), err)
}
