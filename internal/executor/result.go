package executor

import (
	"fmt"
	"time"
)

// Outcome classifies how one command invocation ended.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeNonZeroExit Outcome = "non_zero_exit"
	OutcomeTimedOut    Outcome = "timed_out"
	OutcomeSpawnFailed Outcome = "spawn_failed"
	OutcomeRejected    Outcome = "rejected"
)

const (
	TimedOutText    = "Command execution timed out"
	SpawnFailedText = "popen failed!"

	rejectedExitCode = 126
)

// Result is produced once per executed command and re-encoded immediately
// into a reply envelope.
type Result struct {
	Output   string
	Outcome  Outcome
	ExitCode int
	Duration time.Duration
}

func (r Result) Failed() bool {
	return r.Outcome != OutcomeSuccess
}

func timedOutResult() Result {
	return Result{Output: TimedOutText, Outcome: OutcomeTimedOut, ExitCode: -1}
}

func spawnFailedResult() Result {
	return Result{Output: SpawnFailedText, Outcome: OutcomeSpawnFailed, ExitCode: -1}
}

func rejectedResult(program string) Result {
	return Result{
		Output:   fmt.Sprintf("Command not allowed: %s", program),
		Outcome:  OutcomeRejected,
		ExitCode: rejectedExitCode,
	}
}

// nonZeroExitResult appends the failure line to the captured output.
func nonZeroExitResult(output string, code int) Result {
	return Result{
		Output:   output + fmt.Sprintf("Command execution failed with code %d", code),
		Outcome:  OutcomeNonZeroExit,
		ExitCode: code,
	}
}
