package executor

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/danmuck/rconsole/internal/testutil/testlog"
	"github.com/danmuck/rconsole/internal/tools"
	"github.com/stretchr/testify/require"
)

// flakyRunner fails to spawn on its first call and delegates afterwards.
type flakyRunner struct {
	calls int
	lines []string
	next  tools.CommandRunner
}

func (r *flakyRunner) Run(ctx context.Context, line string, out io.Writer) (int, error) {
	r.calls++
	r.lines = append(r.lines, line)
	if r.calls == 1 {
		return 127, fmt.Errorf("%w: shell unavailable", tools.ErrSpawn)
	}
	return r.next.Run(ctx, line, out)
}

func TestNormalize(t *testing.T) {
	testlog.Start(t)
	require.Equal(t, "echo hi", Normalize("  echo \t  hi \n"))
	require.Equal(t, "ls -la /tmp", Normalize("ls\n-la   /tmp\r\n"))
	require.Equal(t, "", Normalize(" \n\t "))
}

func TestRunSuccess(t *testing.T) {
	testlog.Start(t)
	e := New(Config{})
	res := e.Run(context.Background(), "echo   hi\n")
	require.Equal(t, OutcomeSuccess, res.Outcome)
	require.Equal(t, "hi\n", res.Output)
	require.Equal(t, 0, res.ExitCode)
	require.False(t, res.Failed())
}

func TestRunMergesStderr(t *testing.T) {
	testlog.Start(t)
	e := New(Config{})
	res := e.Run(context.Background(), "echo oops 1>&2")
	require.Equal(t, OutcomeSuccess, res.Outcome)
	require.Equal(t, "oops\n", res.Output)
}

func TestRunNonZeroExitAppendsFailureLine(t *testing.T) {
	testlog.Start(t)
	e := New(Config{})
	res := e.Run(context.Background(), "printf X; exit 3")
	require.Equal(t, OutcomeNonZeroExit, res.Outcome)
	require.Equal(t, 3, res.ExitCode)
	require.Equal(t, "XCommand execution failed with code 3", res.Output)
}

func TestRunTimeoutDiscardsPartialOutput(t *testing.T) {
	testlog.Start(t)
	e := New(Config{Timeout: 200 * time.Millisecond})
	start := time.Now()
	res := e.Run(context.Background(), "echo partial; sleep 5; echo late")
	require.Equal(t, OutcomeTimedOut, res.Outcome)
	require.Equal(t, TimedOutText, res.Output)
	require.Less(t, time.Since(start), 3*time.Second)
}

func TestRunDeadlineDoesNotLeakIntoNextCall(t *testing.T) {
	testlog.Start(t)
	e := New(Config{Timeout: 200 * time.Millisecond})
	res := e.Run(context.Background(), "sleep 2")
	require.Equal(t, OutcomeTimedOut, res.Outcome)

	res = e.Run(context.Background(), "echo ok")
	require.Equal(t, OutcomeSuccess, res.Outcome)
	require.Equal(t, "ok\n", res.Output)
}

func TestRunSpawnFailureThenNormalCommand(t *testing.T) {
	testlog.Start(t)
	runner := &flakyRunner{next: tools.ShellRunner{}}
	e := New(Config{Timeout: time.Second, Runner: runner})

	res := e.Run(context.Background(), "echo first")
	require.Equal(t, OutcomeSpawnFailed, res.Outcome)
	require.Equal(t, SpawnFailedText, res.Output)

	res = e.Run(context.Background(), "echo second")
	require.Equal(t, OutcomeSuccess, res.Outcome)
	require.Equal(t, "second\n", res.Output)
	require.Equal(t, []string{"echo first 2>&1", "echo second 2>&1"}, runner.lines)
}

func TestRunMissingShellIsSpawnFailure(t *testing.T) {
	testlog.Start(t)
	e := New(Config{Runner: tools.ShellRunner{Shell: "/nonexistent/sh"}})
	res := e.Run(context.Background(), "echo hi")
	require.Equal(t, OutcomeSpawnFailed, res.Outcome)
	require.Equal(t, SpawnFailedText, res.Output)
}

func TestRunParentCancelCountsAsTimeout(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	e := New(Config{Timeout: 5 * time.Second})
	res := e.Run(ctx, "sleep 3")
	require.Equal(t, OutcomeTimedOut, res.Outcome)
}

func TestRunAllowList(t *testing.T) {
	testlog.Start(t)
	e := New(Config{Allow: []string{"echo", " "}})

	res := e.Run(context.Background(), "echo hi")
	require.Equal(t, OutcomeSuccess, res.Outcome)

	res = e.Run(context.Background(), "uptime")
	require.Equal(t, OutcomeRejected, res.Outcome)
	require.Equal(t, "Command not allowed: uptime", res.Output)

	res = e.Run(context.Background(), "echo hi; id")
	require.Equal(t, OutcomeRejected, res.Outcome)

	res = e.Run(context.Background(), "echo $(id)")
	require.Equal(t, OutcomeRejected, res.Outcome)
}

func TestRunCapsOutput(t *testing.T) {
	testlog.Start(t)
	e := New(Config{MaxOutputBytes: 4})
	res := e.Run(context.Background(), "printf abcdefgh")
	require.Equal(t, OutcomeSuccess, res.Outcome)
	require.Equal(t, "abcd", res.Output)
}

func TestCappedBufferReportsFullWrites(t *testing.T) {
	b := newCappedBuffer(3)
	n, err := b.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	n, err = b.Write([]byte("world"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hel", b.String())
}

func TestRunBackgroundChildIsSuccess(t *testing.T) {
	testlog.Start(t)
	e := New(Config{Timeout: 2 * time.Second})
	start := time.Now()
	res := e.Run(context.Background(), "sleep 7 & echo hi")
	require.Equal(t, OutcomeSuccess, res.Outcome)
	require.Equal(t, 0, res.ExitCode)
	require.Equal(t, "hi\n", res.Output)
	require.Less(t, time.Since(start), 2*time.Second)
}
