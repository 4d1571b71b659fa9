package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

var (
	ErrWaitFailed = errors.New("transport: wait failed")
	ErrClosed     = errors.New("transport: closed")
)

// SetupError reports a socket creation, option or bind failure. Always fatal.
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// RuntimeError reports a send or receive failure on an open socket.
type RuntimeError struct {
	Op  string
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the loop may continue after this error.
func (e *RuntimeError) Retryable() bool {
	return IsRetryable(e.Err)
}

// IsRetryable classifies transient conditions on a connectionless socket.
// Closed sockets and unknown failures are fatal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, ErrClosed) {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EAGAIN, syscall.EINTR, syscall.ENOBUFS, syscall.ECONNREFUSED,
			syscall.EHOSTUNREACH, syscall.ENETUNREACH, syscall.ENETDOWN, syscall.EMSGSIZE:
			return true
		}
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
