package subprocess

import (
	"time"
)

// Config holds the configuration for subprocess execution.
type Config struct {
	// PythonBin is the interpreter used for both execution and pip installs.
	PythonBin string
	// RunTimeout is the wall-clock deadline for arbitrary code execution.
	RunTimeout time.Duration
	// InstallTimeout is the deadline for package installation. Installs
	// legitimately take longer than runs; the install endpoint compensates
	// with a stricter rate policy instead of a shorter deadline.
	InstallTimeout time.Duration
	// MaxConcurrent caps the number of child processes running at once.
	MaxConcurrent int64
	// WorkDir is where work files are created. Empty means the OS temp dir.
	WorkDir string
	// InheritEnv passes the server's entire environment to the child. This
	// hands the untrusted code every secret the server holds — leave it off
	// unless that is genuinely what you want.
	InheritEnv bool
	// EnvPassthrough lists the variables forwarded to the child when
	// InheritEnv is off. The child sees nothing outside this list.
	EnvPassthrough []string
}

// DefaultConfig provides sensible defaults for a host-side Python runner.
func DefaultConfig() Config {
	return Config{
		PythonBin:      "python3",
		RunTimeout:     30 * time.Second,
		InstallTimeout: 120 * time.Second,
		MaxConcurrent:  8,
		EnvPassthrough: []string{
			"PATH", "HOME", "LANG", "LC_ALL", "TMPDIR",
			"PYTHONPATH", "VIRTUAL_ENV",
		},
	}
}
