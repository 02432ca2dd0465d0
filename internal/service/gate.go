// Package service contains the business logic layer of the application.
//
// The Gate here is the error boundary for everything involving child
// processes: whatever happens below it — validation failure, timeout,
// non-zero exit, spawn fault, even a panic — comes back as a well-formed
// ExecutionResult. The handlers above it only ever render results; they
// never see an error from this subsystem.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/sakif/pyrunner/internal/apperror"
	"github.com/sakif/pyrunner/internal/executor"
	"github.com/sakif/pyrunner/internal/metrics"
	"github.com/sakif/pyrunner/internal/model"
	"github.com/sakif/pyrunner/internal/repository"
)

// List pagination bounds, matching the repository's expectations.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// packageNameRe is the sole defense against argument injection on the install
// path. The name is later handed to the subprocess as a single argument, so
// anything outside this set — shell metacharacters, whitespace, path
// separators — is rejected before a process ever exists. It is applied to the
// raw string, before any normalization.
var packageNameRe = regexp.MustCompile(`^[a-zA-Z0-9\-_.[\]]+$`)

// User-visible messages. These are part of the API surface — clients of the
// original backend match on them.
const (
	msgNoCode         = "No code provided"
	msgNoPackage      = "No package name provided"
	msgInvalidPackage = "Invalid package name. Only alphanumeric characters, hyphens, underscores, dots, and brackets are allowed."
)

// msgServerError is what every internal fault looks like from outside; the
// real cause goes to the log.
var msgServerError = apperror.Internal("execution failed unexpectedly").Message

// GateConfig carries the deadlines the Gate reports in timeout messages.
// The executor enforces them; the Gate only phrases them.
type GateConfig struct {
	RunTimeout     time.Duration
	InstallTimeout time.Duration
}

// Gate orchestrates a single request through admission aftermath, validation,
// execution, and result shaping.
//
// Per request the flow is:
//
//	Run:     validate(code non-empty) → acquire unit → spawn (30s) → release → result
//	Install: validate(package charset) → spawn (120s, no unit) → result
//
// Rate limiting happens before the Gate, in middleware — a rejected request
// never reaches this package.
type Gate struct {
	cfg       GateConfig
	runner    executor.Runner
	installer executor.Installer
	history   repository.ExecutionRepository
	logger    *slog.Logger
}

// NewGate creates the Gate. history may be nil, in which case outcomes are
// not recorded.
func NewGate(cfg GateConfig, runner executor.Runner, installer executor.Installer, history repository.ExecutionRepository, logger *slog.Logger) *Gate {
	return &Gate{
		cfg:       cfg,
		runner:    runner,
		installer: installer,
		history:   history,
		logger:    logger,
	}
}

// Run executes untrusted code and always returns a complete result — all
// three fields populated, no error return.
func (g *Gate) Run(ctx context.Context, code string) (result *model.ExecutionResult) {
	defer g.foldPanic(model.KindRun, &result)

	if code == "" {
		metrics.ExecutionsTotal.WithLabelValues(model.KindRun, metrics.OutcomeRejected).Inc()
		return &model.ExecutionResult{Success: false, Output: "", Errors: msgNoCode}
	}

	// Once admitted, a run cannot be aborted by the client dropping the
	// connection. The deadline is the only thing that stops it.
	ctx = context.WithoutCancel(ctx)

	res, err := g.runner.Execute(ctx, executor.Request{Code: code})
	if err != nil {
		g.logger.Error("code execution fault", slog.String("error", err.Error()))
		metrics.ExecutionsTotal.WithLabelValues(model.KindRun, metrics.OutcomeFault).Inc()
		g.record(ctx, model.KindRun, false, -1, 0)
		return &model.ExecutionResult{Success: false, Output: "", Errors: msgServerError}
	}

	if res.TimedOut {
		metrics.ExecutionsTotal.WithLabelValues(model.KindRun, metrics.OutcomeTimeout).Inc()
		metrics.ExecutionDuration.WithLabelValues(model.KindRun).Observe(res.Duration.Seconds())
		g.record(ctx, model.KindRun, false, res.ExitCode, res.Duration)
		return &model.ExecutionResult{
			Success: false,
			Output:  "",
			Errors: fmt.Sprintf("Execution timeout: Code took longer than %d seconds to execute",
				int(g.cfg.RunTimeout.Seconds())),
		}
	}

	g.finish(model.KindRun, res)
	g.record(ctx, model.KindRun, res.ExitCode == 0, res.ExitCode, res.Duration)
	return &model.ExecutionResult{
		Success: res.ExitCode == 0,
		Output:  res.Stdout,
		Errors:  res.Stderr,
	}
}

// Install validates a package name and runs pip under the install deadline.
// Like Run, it always returns a complete result.
func (g *Gate) Install(ctx context.Context, pkg string) (result *model.ExecutionResult) {
	defer g.foldPanic(model.KindInstall, &result)

	pkg = strings.TrimSpace(pkg)
	if pkg == "" {
		metrics.ExecutionsTotal.WithLabelValues(model.KindInstall, metrics.OutcomeRejected).Inc()
		return &model.ExecutionResult{Success: false, Output: "", Errors: msgNoPackage}
	}
	if !packageNameRe.MatchString(pkg) {
		metrics.ExecutionsTotal.WithLabelValues(model.KindInstall, metrics.OutcomeRejected).Inc()
		return &model.ExecutionResult{Success: false, Output: "", Errors: msgInvalidPackage}
	}

	ctx = context.WithoutCancel(ctx)

	res, err := g.installer.Install(ctx, pkg)
	if err != nil {
		g.logger.Error("package install fault",
			slog.String("package", pkg),
			slog.String("error", err.Error()),
		)
		metrics.ExecutionsTotal.WithLabelValues(model.KindInstall, metrics.OutcomeFault).Inc()
		g.record(ctx, model.KindInstall, false, -1, 0)
		return &model.ExecutionResult{Success: false, Output: "", Errors: msgServerError}
	}

	if res.TimedOut {
		metrics.ExecutionsTotal.WithLabelValues(model.KindInstall, metrics.OutcomeTimeout).Inc()
		metrics.ExecutionDuration.WithLabelValues(model.KindInstall).Observe(res.Duration.Seconds())
		g.record(ctx, model.KindInstall, false, res.ExitCode, res.Duration)
		return &model.ExecutionResult{
			Success: false,
			Output:  "",
			Errors: fmt.Sprintf("Installation timeout: Package installation took longer than %d seconds",
				int(g.cfg.InstallTimeout.Seconds())),
		}
	}

	g.finish(model.KindInstall, res)
	g.record(ctx, model.KindInstall, res.ExitCode == 0, res.ExitCode, res.Duration)
	return &model.ExecutionResult{
		Success: res.ExitCode == 0,
		Output:  res.Stdout,
		Errors:  res.Stderr,
	}
}

// History lists recorded executions, newest first, with clamped pagination.
func (g *Gate) History(ctx context.Context, limit, offset int) ([]model.Execution, error) {
	if g.history == nil {
		return []model.Execution{}, nil
	}

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	executions, err := g.history.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		g.logger.Error("failed to list executions", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing executions: %w", err)
	}
	return executions, nil
}

// finish updates the completion metrics for a normally exited child.
func (g *Gate) finish(kind string, res *executor.Result) {
	outcome := metrics.OutcomeSuccess
	if res.ExitCode != 0 {
		outcome = metrics.OutcomeNonZero
	}
	metrics.ExecutionsTotal.WithLabelValues(kind, outcome).Inc()
	metrics.ExecutionDuration.WithLabelValues(kind).Observe(res.Duration.Seconds())
}

// record persists an outcome to the history table. A history failure is
// logged and swallowed — the client already has its result.
func (g *Gate) record(ctx context.Context, kind string, success bool, exitCode int, d time.Duration) {
	if g.history == nil {
		return
	}
	ex := &model.Execution{
		Kind:       kind,
		Success:    success,
		ExitCode:   exitCode,
		DurationMs: d.Milliseconds(),
	}
	if err := g.history.Create(ctx, ex); err != nil {
		g.logger.Error("failed to record execution", slog.String("error", err.Error()))
	}
}

// foldPanic is the last line of the error boundary: a panic anywhere below
// the Gate becomes a generic server-error result instead of escaping to the
// transport layer.
func (g *Gate) foldPanic(kind string, result **model.ExecutionResult) {
	if r := recover(); r != nil {
		g.logger.Error("panic in execution gate",
			slog.String("kind", kind),
			slog.Any("panic", r),
		)
		metrics.ExecutionsTotal.WithLabelValues(kind, metrics.OutcomeFault).Inc()
		*result = &model.ExecutionResult{Success: false, Output: "", Errors: msgServerError}
	}
}
