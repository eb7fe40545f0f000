package execution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"time"

	"lofi/internal/command"
	"lofi/internal/logging"
)

// process is one external tool invocation.
type process struct {
	name   string
	inv    command.Invocation
	cmd    *exec.Cmd
	stderr *tailBuffer
	lines  *lineLogger
	grace  time.Duration
	logger *slog.Logger

	done       chan struct{}
	err        error
	exitedAt   time.Time
	terminated atomic.Bool
}

func newProcess(ctx context.Context, name string, inv command.Invocation, grace time.Duration, logger *slog.Logger) *process {
	logger = logger.With(logging.String("process", name))
	p := &process{
		name:   name,
		inv:    inv,
		stderr: newTailBuffer(stderrTailBytes),
		lines:  &lineLogger{logger: logger},
		grace:  grace,
		logger: logger,
		done:   make(chan struct{}),
	}

	cmd := exec.CommandContext(ctx, inv.Binary, inv.Args...)
	setProcessGroup(cmd)
	cmd.Stderr = io.MultiWriter(p.stderr, p.lines)
	cmd.Cancel = func() error {
		go p.terminate("context done")
		return nil
	}
	cmd.WaitDelay = grace + time.Second
	p.cmd = cmd
	return p
}

func (p *process) start() error {
	p.logger.Debug("starting process", logging.String("command", p.inv.String()))
	if err := p.cmd.Start(); err != nil {
		p.err = err
		p.exitedAt = time.Now()
		close(p.done)
		return err
	}
	go func() {
		p.err = p.cmd.Wait()
		p.exitedAt = time.Now()
		p.lines.Flush()
		close(p.done)
	}()
	return nil
}

// run starts the process and waits for it.
func (p *process) run() error {
	if err := p.start(); err != nil {
		return err
	}
	return p.wait()
}

func (p *process) wait() error {
	<-p.done
	return p.err
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// terminate stops the whole process group once.
func (p *process) terminate(reason string) {
	if p.cmd.Process == nil || !p.terminated.CompareAndSwap(false, true) {
		return
	}
	p.logger.Debug("terminating process group", logging.String("reason", reason))
	if err := stopGroup(p.cmd.Process.Pid, p.grace, p.done); err != nil {
		logging.WarnWithContext(p.logger, "process group termination failed", "process_terminate",
			logging.Error(err),
			logging.String(logging.FieldImpact, "child processes may outlive the job"),
		)
	}
}

func (p *process) wasTerminated() bool {
	return p.terminated.Load()
}

func (p *process) diagnostics() string {
	return p.stderr.Tail(diagnosticLines)
}

// describe renders an exit error the way it is shown to users.
func (p *process) describe(err error) string {
	tool := filepath.Base(p.inv.Binary)
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr) && exitErr.ExitCode() >= 0:
		return fmt.Sprintf("%s exited with status %d", tool, exitErr.ExitCode())
	case errors.As(err, &exitErr):
		return fmt.Sprintf("%s was terminated (%s)", tool, exitErr.ProcessState.String())
	case errors.Is(err, exec.ErrNotFound):
		return fmt.Sprintf("%s was not found on PATH", tool)
	default:
		return fmt.Sprintf("%s: %v", tool, err)
	}
}
