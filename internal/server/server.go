package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/flock"

	"lofi/internal/config"
	"lofi/internal/history"
	"lofi/internal/job"
	"lofi/internal/logging"
	"lofi/internal/metrics"
	"lofi/internal/preflight"
)

const (
	defaultMaintenanceInterval = time.Hour
	defaultShutdownTimeout     = 5 * time.Second
	// formMemory is how much of a multipart body is held in memory before
	// spilling to temporary files.
	formMemory = 32 << 20
)

// Option customizes a Server.
type Option func(*Server)

// WithHistory serves /api/jobs from store and prunes it periodically.
func WithHistory(store *history.Store) Option {
	return func(s *Server) {
		s.history = store
	}
}

// WithMetrics mounts /metrics for collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = collector
	}
}

// WithMaintenanceInterval overrides how often history is pruned.
func WithMaintenanceInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.maintenanceInterval = d
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for requests to drain
// before cancelling running jobs.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// Server serves the form and API.
type Server struct {
	cfg     *config.Config
	driver  *job.Driver
	history *history.Store
	metrics *metrics.Collector
	logger  *slog.Logger

	maintenanceInterval time.Duration
	shutdownTimeout     time.Duration
	router              chi.Router

	// jobsCtx is cancelled by Stop once draining gives up; every job
	// context is tied to it.
	jobsCtx    context.Context
	cancelJobs context.CancelFunc
	jobsMu     sync.Mutex
	stopping   bool
	jobs       sync.WaitGroup

	lock     *flock.Flock
	listener net.Listener
	http     *http.Server
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

// New builds a server. The driver must already be wired to the same history
// and metrics passed here.
func New(cfg *config.Config, driver *job.Driver, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg == nil || driver == nil {
		return nil, errors.New("server requires config and job driver")
	}
	s := &Server{
		cfg:                 cfg,
		driver:              driver,
		logger:              logging.NewComponentLogger(logger, "server"),
		maintenanceInterval: defaultMaintenanceInterval,
		shutdownTimeout:     defaultShutdownTimeout,
		lock:                flock.New(cfg.LockPath()),
	}
	s.jobsCtx, s.cancelJobs = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the routed handler without listening.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start acquires the instance lock, checks the working directories, marks
// jobs left over from a previous run as interrupted and begins serving.
func (s *Server) Start(ctx context.Context) error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another lofi server is already running (lock %s)", s.cfg.LockPath())
	}

	if failed := preflight.Failed(preflight.RunAll(ctx, s.cfg)); len(failed) > 0 {
		_ = s.lock.Unlock()
		details := make([]string, 0, len(failed))
		for _, r := range failed {
			details = append(details, r.Name+": "+r.Detail)
		}
		return fmt.Errorf("preflight failed: %s", strings.Join(details, "; "))
	}
	for _, dep := range preflight.CheckSystemDeps(ctx, s.cfg) {
		if !dep.Available {
			logging.WarnWithContext(s.logger, "dependency unavailable", "dependency_check",
				logging.String("dependency", dep.Name),
				logging.String("detail", dep.Detail),
				logging.String(logging.FieldImpact, "conversions using it will fail"),
				logging.String(logging.FieldErrorHint, "install it or set the binary path in [transcode]"),
			)
		}
	}

	if s.history != nil {
		marked, err := s.history.MarkInterrupted(ctx)
		if err != nil {
			logging.WarnWithContext(s.logger, "mark interrupted failed", "history_write", logging.Error(err))
		} else if marked > 0 {
			s.logger.Info("jobs from previous run marked interrupted", logging.Int64("count", marked))
		}
	}

	listener, err := net.Listen("tcp", s.cfg.Paths.APIBind)
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = listener
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", logging.Error(err))
		}
	}()
	go func() {
		defer s.wg.Done()
		s.maintain(runCtx)
	}()

	attrs := []logging.Attr{
		logging.String("address", listener.Addr().String()),
		logging.String("uploads", s.cfg.Paths.UploadDir),
		logging.String("converted", s.cfg.Paths.ConvertedDir),
		logging.Bool("api_auth", s.cfg.Paths.APIToken != ""),
	}
	if profile, err := s.cfg.Profile(); err == nil {
		attrs = append(attrs,
			logging.String("acceleration", profile.Acceleration().String()),
			logging.Strings("encoder_args", profile.ExtraArgs()),
		)
	}
	s.logger.Info("server listening", logging.Args(attrs...)...)
	return nil
}

// beginJob registers a job with the server. It reports false once Stop has
// begun.
func (s *Server) beginJob() bool {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	if s.stopping {
		return false
	}
	s.jobs.Add(1)
	return true
}

// jobContext keeps the request's values but is cancelled only by Stop or
// the configured job timeout, never by the client going away.
func (s *Server) jobContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	stop := context.AfterFunc(s.jobsCtx, cancel)
	if timeout := s.cfg.JobTimeout(); timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
		return ctx, func() {
			cancelTimeout()
			stop()
			cancel()
		}
	}
	return ctx, func() {
		stop()
		cancel()
	}
}

// Addr is the bound listen address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop drains in-flight requests, cancels jobs still running after the
// shutdown timeout, waits for them to release their files and releases the
// lock.
func (s *Server) Stop() {
	s.jobsMu.Lock()
	s.stopping = true
	s.jobsMu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.http != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			logging.WarnWithContext(s.logger, "http shutdown incomplete", "shutdown",
				logging.Error(err),
				logging.String(logging.FieldImpact, "running jobs are cancelled"),
			)
		}
	}
	s.cancelJobs()
	s.jobs.Wait()
	s.wg.Wait()
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release server lock", logging.Error(err))
	}
	s.logger.Info("server stopped")
}
