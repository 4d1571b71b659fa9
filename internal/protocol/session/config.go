package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/danmuck/rconsole/internal/executor"
	"github.com/danmuck/rconsole/internal/protocol"
)

var (
	ErrInvalidRole      = errors.New("session: invalid role")
	ErrMissingExecutor  = errors.New("session: receiver requires an executor")
	ErrMissingTransport = errors.New("session: missing transport")
)

// Role selects what the loop does with delivered envelopes.
type Role string

const (
	// RoleSender prints deliveries and broadcasts input lines.
	RoleSender Role = "sender"
	// RoleReceiver executes deliveries and broadcasts the output.
	RoleReceiver Role = "receiver"
)

func (r Role) Validate() error {
	switch r {
	case RoleSender, RoleReceiver:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRole, string(r))
	}
}

// CommandExecutor runs one delivered command line.
type CommandExecutor interface {
	Run(ctx context.Context, payload string) executor.Result
}

// BackoffConfig defines the pause after consecutive retryable errors.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines one session.
type Config struct {
	Role       Role
	Identity   protocol.Identity
	InstanceID string
	Output     io.Writer
	// Input is read line by line in the sender role. Ignored for receivers.
	Input    io.Reader
	Executor CommandExecutor
	Backoff  BackoffConfig
}

func DefaultConfig(role Role) Config {
	return Config{
		Role:     role,
		Identity: protocol.LocalIdentity(),
		Output:   os.Stdout,
		Backoff: BackoffConfig{
			InitialDelay: 10 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     time.Second,
			Jitter:       true,
		},
	}
}

func (c Config) Validate() error {
	if err := c.Role.Validate(); err != nil {
		return err
	}
	if c.Role == RoleReceiver && c.Executor == nil {
		return ErrMissingExecutor
	}
	return nil
}
