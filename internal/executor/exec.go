package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tobert/halfremembered-launcher/internal/logger"
)

// DefaultOutputLimit caps each captured stream.
const DefaultOutputLimit = 1 << 20

type processExecutor struct {
	baseDir     string
	outputLimit int
	logger      *logger.Logger
}

// NewProcessExecutor returns an Executor backed by os/exec. Commands run in
// baseDir unless the request names a directory.
func NewProcessExecutor(baseDir string, outputLimit int, log *logger.Logger) Executor {
	if outputLimit <= 0 {
		outputLimit = DefaultOutputLimit
	}
	if log == nil {
		log = logger.Nop()
	}
	return &processExecutor{baseDir: baseDir, outputLimit: outputLimit, logger: log}
}

func (e *processExecutor) Run(ctx context.Context, req Request) (Result, error) {
	if req.Command == "" {
		return Result{}, ErrEmptyCommand
	}

	cmd := exec.CommandContext(ctx, req.Command, req.Args...)
	cmd.Dir = e.resolveDir(req.WorkingDir)
	cmd.Env = mergeEnv(os.Environ(), req.Env)

	stdout := &limitedBuffer{limit: e.outputLimit}
	stderr := &limitedBuffer{limit: e.outputLimit}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()

	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return result, fmt.Errorf("%w: %s: %w", ErrStartFailed, req.Command, err)
	}

	if ctx.Err() != nil {
		return result, fmt.Errorf("command %s interrupted: %w", req.Command, context.Cause(ctx))
	}

	e.logger.Debug().
		Str("command", req.Command).
		Int("exit_code", result.ExitCode).
		Msg("command finished")

	return result, nil
}

func (e *processExecutor) resolveDir(dir string) string {
	switch {
	case dir == "":
		return e.baseDir
	case filepath.IsAbs(dir) || e.baseDir == "":
		return dir
	default:
		return filepath.Join(e.baseDir, dir)
	}
}

// mergeEnv overlays extra on base, keeping the result ordered.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}

	out := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			key = kv[:i]
		}
		if _, overridden := extra[key]; !overridden {
			out = append(out, kv)
		}
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}

	return out
}

// limitedBuffer keeps the first limit bytes and discards the rest.
type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + "\n[output truncated]"
	}
	return b.buf.String()
}
