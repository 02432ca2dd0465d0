package model

import "time"

// Execution kinds. Each record says which endpoint produced it.
const (
	KindRun     = "run"
	KindInstall = "install"
)

// Execution is a finished run or install, as recorded in the history table.
// It deliberately does not store the submitted code or the captured output —
// both are untrusted and potentially large; the history answers "what ran,
// when, and how did it end", not "what did it print".
type Execution struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Success    bool      `json:"success"`
	ExitCode   int       `json:"exitCode"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}
