// Package executor turns a received payload into one time-bounded shell
// invocation and reports the combined output as text.
//
// Trust boundary: payloads are handed to a real shell. Whitespace
// normalization is not sanitization. Either every sender on the broadcast
// domain is trusted, or Config.Allow restricts the first word of each
// command line to a fixed set of programs.
//
// Every failure mode (timeout, spawn failure, non-zero exit, refusal) is
// reported as ordinary Result text. Run never returns an error.
package executor
