// Package subprocess implements the executor interfaces by spawning the
// Python interpreter directly on the host.
//
// TRUST MODEL:
// There is no OS-level sandbox here — no namespaces, no seccomp, no
// containers. The child runs as the server's user on the server's host.
// What this package does guarantee:
//   - every child is bounded by a hard wall-clock deadline and is killed
//     (whole process group) when it expires, never abandoned;
//   - the child sees only an allowlisted environment unless full
//     inheritance is explicitly configured;
//   - the number of concurrent children is capped;
//   - the on-disk code file is removed on every exit path.
//
// The host is assumed disposable enough to absorb a hostile child. Real
// isolation is a deployment concern, not solved at this layer.
package subprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sakif/pyrunner/internal/executor"
)

// Compile-time checks that *Executor satisfies both executor interfaces.
var (
	_ executor.Runner    = (*Executor)(nil)
	_ executor.Installer = (*Executor)(nil)
)

// Executor runs Python code and pip installs as host subprocesses.
type Executor struct {
	cfg     Config
	logger  *slog.Logger
	sem     *semaphore.Weighted
	version string
}

// New creates a subprocess Executor and probes the interpreter version for
// the health endpoint. A missing interpreter is not fatal here — it surfaces
// as a spawn fault on the first execution attempt instead.
func New(cfg Config, logger *slog.Logger) *Executor {
	e := &Executor{
		cfg:    cfg,
		logger: logger,
		sem:    semaphore.NewWeighted(cfg.MaxConcurrent),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	res, err := e.run(ctx, 15*time.Second, cfg.PythonBin, "-c", "import sys; print(sys.version)")
	switch {
	case err != nil:
		logger.Warn("python interpreter unavailable",
			slog.String("python", cfg.PythonBin),
			slog.String("error", err.Error()),
		)
	case res.ExitCode == 0:
		e.version = strings.TrimSpace(strings.ReplaceAll(res.Stdout, "\n", " "))
		logger.Info("python interpreter ready", slog.String("version", e.version))
	}

	return e
}

// Version returns the interpreter's version string, or "" if the probe at
// startup failed.
func (e *Executor) Version() string {
	return e.version
}

// Execute materializes the code into a work file and runs it under the run
// deadline. The work file is removed whatever happens after it is created.
func (e *Executor) Execute(ctx context.Context, req executor.Request) (*executor.Result, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for execution slot: %w", err)
	}
	defer e.sem.Release(1)

	wf, err := newWorkFile(e.cfg.WorkDir, req.Code)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := wf.Remove(); err != nil {
			e.logger.Error("failed to remove work file",
				slog.String("path", wf.Path()),
				slog.String("error", err.Error()),
			)
		}
	}()

	return e.run(ctx, e.cfg.RunTimeout, e.cfg.PythonBin, wf.Path())
}

// Install runs `python -m pip install <pkg>` under the install deadline.
// There is no work file on this path — the validated package name is passed
// directly as a single argument.
func (e *Executor) Install(ctx context.Context, pkg string) (*executor.Result, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for execution slot: %w", err)
	}
	defer e.sem.Release(1)

	return e.run(ctx, e.cfg.InstallTimeout, e.cfg.PythonBin, "-m", "pip", "install", pkg)
}

// run spawns a child, captures both streams in full, and waits for exit or
// deadline. On deadline expiry the child's entire process group is killed and
// then reaped; a timed-out Result carries no captured output.
//
// A failure to start or to wait is returned as an error (a spawn fault,
// distinct from both timeout and non-zero exit). A non-zero exit is NOT an
// error — it is a successful execution of a failing program.
func (e *Executor) run(ctx context.Context, timeout time.Duration, name string, args ...string) (*executor.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(name, args...)
	cmd.Env = e.childEnv()
	// Run the child in its own process group so a timeout kill reaches any
	// grandchildren it spawned, not just the interpreter itself.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", name, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done // reap, or the killed child lingers as a zombie
		e.logger.Warn("child process killed on deadline",
			slog.String("cmd", name),
			slog.Duration("timeout", timeout),
		)
		return &executor.Result{
			ExitCode: -1,
			Duration: time.Since(start),
			TimedOut: true,
		}, nil

	case waitErr := <-done:
		res := &executor.Result{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Duration: time.Since(start),
		}
		if waitErr != nil {
			var exitErr *exec.ExitError
			if !errors.As(waitErr, &exitErr) {
				return nil, fmt.Errorf("waiting for %s: %w", name, waitErr)
			}
			res.ExitCode = exitErr.ExitCode()
		}
		return res, nil
	}
}

// childEnv builds the child's environment. The allowlist is the default; full
// inheritance is an explicit, documented opt-in (see Config.InheritEnv).
func (e *Executor) childEnv() []string {
	if e.cfg.InheritEnv {
		return os.Environ()
	}
	env := make([]string, 0, len(e.cfg.EnvPassthrough))
	for _, key := range e.cfg.EnvPassthrough {
		if v, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+v)
		}
	}
	return env
}
