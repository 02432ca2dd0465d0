// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

// RunRequest is the JSON body accepted by POST /api/run.
type RunRequest struct {
	Code string `json:"code"`
}

// InstallRequest is the JSON body accepted by POST /api/install.
type InstallRequest struct {
	Package string `json:"package"`
}

// ExecutionResult is the JSON body returned by both the run and install
// endpoints. Every response carries all three fields — a client never has to
// guess whether "errors" is present.
//
// Success is true iff the child process exited with status 0 before its
// deadline. Output and Errors hold the full captured stdout/stderr text;
// on timeout or an internal fault, Output is empty and Errors describes
// what happened.
type ExecutionResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Errors  string `json:"errors"`
}
