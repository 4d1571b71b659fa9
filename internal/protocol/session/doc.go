// Package session owns the broadcast session loop shared by both roles.
//
// Ownership boundary:
// - readiness dispatch (socket vs input)
// - decode -> loopback filter -> deliver
// - receiver command execution and reply
// - retryable vs fatal transport error policy
//
// The loop is strictly sequential: one event, including any command
// execution and reply, is fully handled before the next read starts.
package session
