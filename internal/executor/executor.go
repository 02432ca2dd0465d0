package executor

import (
	"context"
	"time"
)

// Request carries untrusted Python source to execute.
type Request struct {
	Code string `json:"code"`
}

// Result is the raw outcome of one child process. Exactly one of three shapes
// occurs: a normal exit (TimedOut false, ExitCode and both streams populated),
// a timeout (TimedOut true, streams discarded), or no Result at all — a spawn
// fault is reported through the error return instead.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

// Runner executes untrusted code in a disposable unit under a hard deadline.
type Runner interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

// Installer installs a single Python package. The package name must already
// have passed lexical validation — implementations pass it straight to the
// subprocess argument vector.
type Installer interface {
	Install(ctx context.Context, pkg string) (*Result, error)
}
