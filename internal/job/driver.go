package job

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"lofi/internal/artifacts"
	"lofi/internal/config"
	"lofi/internal/execution"
	"lofi/internal/fileutil"
	"lofi/internal/history"
	"lofi/internal/logging"
	"lofi/internal/options"
	"lofi/internal/services"
	"lofi/internal/textutil"
)

const (
	messageUploadTooLarge = "Uploaded file is too large."
	messageUploadFailed   = "Failed to save uploaded file."

	downloadSuffix   = "-lofi"
	outcomeCompleted = "completed"

	historyWriteTimeout = 5 * time.Second
)

// Upload is a client supplied file.
type Upload struct {
	Body     io.Reader
	Filename string
}

// Request is one conversion as submitted by a client.
type Request struct {
	UseRemote bool
	RemoteURL string
	// Upload is nil when the client sent no file part.
	Upload *Upload

	Downscale    bool
	FastPreset   bool
	AudioOnly    bool
	CompactAudio bool
}

func (r Request) options() options.Request {
	req := options.Request{
		UseRemote:    r.UseRemote,
		RemoteURL:    r.RemoteURL,
		Downscale:    r.Downscale,
		FastPreset:   r.FastPreset,
		AudioOnly:    r.AudioOnly,
		CompactAudio: r.CompactAudio,
	}
	if r.Upload != nil {
		req.HasUpload = true
		req.UploadName = r.Upload.Filename
	}
	return req
}

// Executor runs a resolved spec. *execution.Runner satisfies it.
type Executor interface {
	Run(ctx context.Context, spec options.Spec, reg execution.Registrar) (execution.Outcome, error)
}

// Recorder persists job lifecycle events. *history.Store satisfies it.
type Recorder interface {
	Begin(ctx context.Context, rec *history.Record) error
	Complete(ctx context.Context, id string, outputBytes int64, elapsed time.Duration) error
	Fail(ctx context.Context, id, stage, message string, elapsed time.Duration) error
}

// Observer receives job events for instrumentation. *metrics.Collector
// satisfies it.
type Observer interface {
	JobStarted(mode string)
	JobFinished(mode, outcome string, elapsed time.Duration)
	JobRejected()
	ArtifactsReleased(report artifacts.Report)
}

// Result is a successfully converted job. The output stays on disk until
// Release is called.
type Result struct {
	JobID        string
	Spec         options.Spec
	Mode         execution.Mode
	OutputPath   string
	Kind         options.MediaKind
	DownloadName string
	Size         int64
	Elapsed      time.Duration

	tracker  *artifacts.Tracker
	observer Observer
	once     sync.Once
	report   artifacts.Report
}

// Release removes every file the job created. Safe to call more than once.
func (r *Result) Release() artifacts.Report {
	if r == nil || r.tracker == nil {
		return artifacts.Report{}
	}
	r.once.Do(func() {
		r.report = r.tracker.ReleaseAll()
		r.observer.ArtifactsReleased(r.report)
	})
	return r.report
}

// Option customizes a Driver.
type Option func(*Driver)

// WithRecorder enables job history.
func WithRecorder(rec Recorder) Option {
	return func(d *Driver) {
		if rec != nil {
			d.recorder = rec
		}
	}
}

// WithObserver enables instrumentation.
func WithObserver(obs Observer) Option {
	return func(d *Driver) {
		if obs != nil {
			d.observer = obs
		}
	}
}

// WithMaxUploadBytes caps the size of a saved upload. Zero means unlimited.
func WithMaxUploadBytes(n int64) Option {
	return func(d *Driver) {
		if n >= 0 {
			d.maxUploadBytes = n
		}
	}
}

// Driver runs jobs. It holds no per-job state and may be shared.
type Driver struct {
	resolver       *options.Resolver
	executor       Executor
	recorder       Recorder
	observer       Observer
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewDriver wires a driver from its collaborators.
func NewDriver(resolver *options.Resolver, executor Executor, logger *slog.Logger, opts ...Option) *Driver {
	d := &Driver{
		resolver: resolver,
		executor: executor,
		recorder: nopRecorder{},
		observer: nopObserver{},
		logger:   logging.NewComponentLogger(logger, "job"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewFromConfig builds the resolver and runner described by cfg.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Driver, error) {
	profile, err := cfg.Profile()
	if err != nil {
		return nil, err
	}
	runner, err := execution.NewRunner(
		execution.Binaries{Fetch: cfg.Transcode.FetchBinary, Transcode: cfg.Transcode.TranscodeBinary},
		logger,
		execution.WithTerminationGrace(time.Duration(cfg.Transcode.TerminationGraceSeconds)*time.Second),
	)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithMaxUploadBytes(cfg.MaxUploadBytes())}, opts...)
	return NewDriver(options.NewResolver(profile, cfg.Directories()), runner, logger, opts...), nil
}

// Run converts one request. Failures are *services.Failure values and leave
// nothing on disk; on success the caller owns the returned Result.
func (d *Driver) Run(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	spec, err := d.resolver.Resolve(req.options())
	if err != nil {
		d.observer.JobRejected()
		logging.WithContext(ctx, d.logger).Info("job rejected", logging.Error(err))
		return nil, err
	}

	ctx = services.WithJobID(ctx, spec.ID)
	mode := execution.SelectMode(spec)
	logger := logging.WithContext(ctx, d.logger).With(logging.String("mode", string(mode)))

	tracker := artifacts.NewTracker(logger)
	tracker.Register(spec.OutputPath, artifacts.RoleOutput)

	d.observer.JobStarted(string(mode))
	if err := d.recorder.Begin(ctx, newRecord(spec, mode)); err != nil {
		logging.WarnWithContext(logger, "history begin failed", "history_write",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job missing from history"),
		)
	}
	logger.Info("job started", logging.String("job", spec.Describe()))

	if spec.Source.Kind == options.SourceUpload {
		tracker.Register(spec.InputPath, artifacts.RoleInput)
		saved, err := fileutil.SaveStream(spec.InputPath, req.Upload.Body, d.maxUploadBytes)
		if err != nil {
			return nil, d.fail(ctx, logger, tracker, spec, mode, started, uploadFailure(err))
		}
		logger.Debug("upload saved", logging.Int64("bytes", saved), logging.String("path", spec.InputPath))
	}

	outcome, err := d.executor.Run(ctx, spec, tracker)
	if err != nil {
		return nil, d.fail(ctx, logger, tracker, spec, mode, started, err)
	}

	elapsed := time.Since(started)
	size := fileutil.FileSize(outcome.OutputPath)
	recCtx, cancel := recordContext(ctx)
	defer cancel()
	if err := d.recorder.Complete(recCtx, spec.ID, size, elapsed); err != nil {
		logging.WarnWithContext(logger, "history complete failed", "history_write", logging.Error(err))
	}
	d.observer.JobFinished(string(mode), outcomeCompleted, elapsed)
	logger.Info("job completed",
		logging.Int64("output_bytes", size),
		logging.Duration("elapsed", elapsed),
	)

	return &Result{
		JobID:        spec.ID,
		Spec:         spec,
		Mode:         outcome.Mode,
		OutputPath:   outcome.OutputPath,
		Kind:         spec.Kind,
		DownloadName: downloadName(spec),
		Size:         size,
		Elapsed:      elapsed,
		tracker:      tracker,
		observer:     d.observer,
	}, nil
}

func (d *Driver) fail(ctx context.Context, logger *slog.Logger, tracker *artifacts.Tracker, spec options.Spec, mode execution.Mode, started time.Time, err error) error {
	report := tracker.ReleaseAll()
	d.observer.ArtifactsReleased(report)

	elapsed := time.Since(started)
	stage := "unknown"
	if s, ok := services.StageOf(err); ok {
		stage = string(s)
	}
	message := err.Error()
	var failure *services.Failure
	if errors.As(err, &failure) {
		message = failure.Message
	}

	recCtx, cancel := recordContext(ctx)
	defer cancel()
	if recErr := d.recorder.Fail(recCtx, spec.ID, stage, message, elapsed); recErr != nil {
		logging.WarnWithContext(logger, "history fail failed", "history_write", logging.Error(recErr))
	}
	d.observer.JobFinished(string(mode), stage, elapsed)
	logging.ErrorWithContext(logger, "job failed", "job_failure",
		logging.String(logging.FieldStage, stage),
		logging.Error(err),
		logging.Int("artifacts_removed", report.Removed),
	)
	return err
}

// recordContext outlives a cancelled or expired job context so the final
// history write still lands.
func recordContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
}

func uploadFailure(err error) error {
	if errors.Is(err, fileutil.ErrTooLarge) {
		return services.NewFailure(services.StageValidation, messageUploadTooLarge, "", err)
	}
	return services.NewFailure(services.StageValidation, messageUploadFailed, "", err)
}

func downloadName(spec options.Spec) string {
	if spec.Source.Kind == options.SourceUpload {
		if name := textutil.DownloadName(spec.Source.Filename, downloadSuffix, spec.Kind.Extension()); name != "" {
			return name
		}
	}
	return spec.OutputName()
}

func newRecord(spec options.Spec, mode execution.Mode) *history.Record {
	source := spec.Source.URL
	if spec.Source.Kind == options.SourceUpload {
		source = spec.Source.Filename
	}
	return &history.Record{
		ID:           spec.ID,
		SourceKind:   spec.Source.Kind.String(),
		Source:       source,
		Mode:         string(mode),
		MediaKind:    spec.Kind.String(),
		Acceleration: spec.Profile.Acceleration().String(),
		Downscale:    spec.Downscale,
		FastPreset:   spec.FastPreset,
		AudioOnly:    spec.AudioOnly,
		CompactAudio: spec.CompactAudio,
	}
}

type nopRecorder struct{}

func (nopRecorder) Begin(context.Context, *history.Record) error                      { return nil }
func (nopRecorder) Complete(context.Context, string, int64, time.Duration) error      { return nil }
func (nopRecorder) Fail(context.Context, string, string, string, time.Duration) error { return nil }

type nopObserver struct{}

func (nopObserver) JobStarted(string)                         {}
func (nopObserver) JobFinished(string, string, time.Duration) {}
func (nopObserver) JobRejected()                              {}
func (nopObserver) ArtifactsReleased(artifacts.Report)        {}
