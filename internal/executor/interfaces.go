// Package executor runs commands on behalf of the Exec channel.
package executor

import "context"

//go:generate mockgen -source=interfaces.go -destination=../mock/executor_mock.go -package=mock

// Executor runs one command to completion.
type Executor interface {
	// Run starts the command and waits for it. A command that starts and
	// exits non-zero is not an error: its status is in Result.ExitCode.
	Run(ctx context.Context, req Request) (Result, error)
}

// Request describes the command to run. A relative WorkingDir is resolved
// against the executor's base directory.
type Request struct {
	Command    string
	Args       []string
	WorkingDir string
	Env        map[string]string
}

// Result is the captured outcome of a finished command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}
