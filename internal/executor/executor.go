package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/rconsole/internal/logging"
	"github.com/danmuck/rconsole/internal/tools"
	"github.com/rs/zerolog"
)

const (
	DefaultTimeout        = 3 * time.Second
	DefaultMaxOutputBytes = 64 * 1024

	mergeStderr = " 2>&1"

	// shellMeta lists characters that could chain a second program past
	// an allow-list check.
	shellMeta = ";&|`$<>()\\'\"*?{}[]~"
)

// Config controls one Executor.
type Config struct {
	Timeout        time.Duration
	Allow          []string
	MaxOutputBytes int
	Runner         tools.CommandRunner
}

// Executor runs one command at a time with a hard wall-clock deadline.
type Executor struct {
	mu      sync.Mutex
	timeout time.Duration
	maxOut  int
	allow   map[string]struct{}
	runner  tools.CommandRunner
	log     zerolog.Logger
}

func New(cfg Config) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = DefaultMaxOutputBytes
	}
	if cfg.Runner == nil {
		cfg.Runner = tools.ShellRunner{}
	}
	var allow map[string]struct{}
	for _, name := range cfg.Allow {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if allow == nil {
			allow = make(map[string]struct{}, len(cfg.Allow))
		}
		allow[name] = struct{}{}
	}
	return &Executor{
		timeout: cfg.Timeout,
		maxOut:  cfg.MaxOutputBytes,
		allow:   allow,
		runner:  cfg.Runner,
		log:     logging.Component("executor"),
	}
}

// Normalize collapses all whitespace runs to one space and trims the ends.
func Normalize(payload string) string {
	return strings.Join(strings.Fields(payload), " ")
}

// Run executes payload as a shell command line. The deadline belongs to this
// call alone and is released on every return path.
func (e *Executor) Run(ctx context.Context, payload string) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	res := e.run(ctx, Normalize(payload))
	res.Duration = time.Since(start)

	e.log.Debug().
		Str("outcome", string(res.Outcome)).
		Int("exit_code", res.ExitCode).
		Dur("duration", res.Duration).
		Int("output_bytes", len(res.Output)).
		Msg("executor.Run complete")
	return res
}

func (e *Executor) run(ctx context.Context, line string) Result {
	if program, ok := e.allowed(line); !ok {
		e.log.Warn().Str("program", program).Msg("executor.Run command rejected")
		return rejectedResult(program)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out := newCappedBuffer(e.maxOut)
	code, err := e.runner.Run(runCtx, line+mergeStderr, out)
	switch {
	case errors.Is(err, tools.ErrSpawn):
		e.log.Error().Err(err).Msg("executor.Run spawn failed")
		return spawnFailedResult()
	case err != nil && runCtx.Err() != nil:
		// Partial output from a killed command is never surfaced.
		return timedOutResult()
	case code != 0:
		return nonZeroExitResult(out.String(), code)
	}
	return Result{Output: out.String(), Outcome: OutcomeSuccess}
}

// allowed reports whether line may run. An empty allow-list trusts every
// sender on the broadcast domain. A configured allow-list also refuses any
// shell metacharacter, so only plain "program arg..." lines pass.
func (e *Executor) allowed(line string) (string, bool) {
	program, _, _ := strings.Cut(line, " ")
	if e.allow == nil {
		return program, true
	}
	if strings.ContainsAny(line, shellMeta) {
		return program, false
	}
	_, ok := e.allow[program]
	return program, ok
}
