package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/danmuck/rconsole/internal/executor"
	"github.com/danmuck/rconsole/internal/logging"
	"github.com/danmuck/rconsole/internal/observability"
	"github.com/danmuck/rconsole/internal/protocol"
	"github.com/danmuck/rconsole/internal/transport"
	"github.com/rs/zerolog"
)

// State is the loop position, logged at trace level.
type State string

const (
	StateIdle        State = "idle"
	StateSocketReady State = "socket_ready"
	StateDiscarded   State = "discarded"
	StateDelivered   State = "delivered"
	StateInputReady  State = "input_ready"
	StateSent        State = "sent"
)

// Session runs one role over one broadcast transport.
type Session struct {
	cfg     Config
	conn    transport.Conn
	log     zerolog.Logger
	backoff *retryBackoff
}

func New(conn transport.Conn, cfg Config) (*Session, error) {
	if conn == nil {
		return nil, ErrMissingTransport
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	return &Session{
		cfg:  cfg,
		conn: conn,
		log: logging.Component("session").With().
			Str("role", string(cfg.Role)).
			Int64("identity", int64(cfg.Identity)).
			Str("instance", cfg.InstanceID).
			Logger(),
		backoff: newRetryBackoff(cfg.Backoff, rand.New(rand.NewSource(time.Now().UnixNano()))),
	}, nil
}

func (s *Session) Identity() protocol.Identity {
	return s.cfg.Identity
}

// Run blocks until ctx is done (returns nil) or the transport becomes
// unusable (returns the fatal error). The transport is closed when ctx is
// done so a blocked receive returns.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.Close()
	})
	defer stop()

	sources := []transport.Source{transport.SocketSource(s.conn)}
	if s.cfg.Role == RoleSender && s.cfg.Input != nil {
		sources = append(sources, transport.LineSource(s.cfg.Input))
	}
	mux := transport.NewMux(ctx, sources...)
	s.log.Info().Int("sources", len(sources)).Msg("session.Run ready")

	for {
		s.enter(StateIdle)
		ev, err := mux.Wait(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info().Msg("session.Run stopped")
				return nil
			}
			return err
		}

		switch ev.Source {
		case transport.SourceSocket:
			err = s.handleSocket(ctx, ev)
		case transport.SourceInput:
			err = s.handleInput(ctx, ev)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (s *Session) handleSocket(ctx context.Context, ev transport.Event) error {
	s.enter(StateSocketReady)
	if ev.Err != nil {
		s.retryPause(ctx, "receive", ev.Err)
		return nil
	}
	s.backoff.reset()

	env, err := protocol.Decode(ev.Data)
	if err != nil {
		s.discard(observability.ResultMalformed, err)
		return nil
	}
	if !protocol.Accept(env, s.cfg.Identity) {
		s.discard(observability.ResultLoopback, nil)
		return nil
	}

	switch s.cfg.Role {
	case RoleReceiver:
		return s.execute(ctx, env)
	default:
		s.deliver(env)
		fmt.Fprintf(s.cfg.Output, "Received from %d:\n%s\n", env.Sender, env.Payload)
		return nil
	}
}

// execute runs the delivered command line and broadcasts its output.
func (s *Session) execute(ctx context.Context, env protocol.Envelope) error {
	line := env.CommandLine()
	if executor.Normalize(line) == "" {
		s.discard(observability.ResultEmpty, nil)
		return nil
	}
	s.deliver(env)
	fmt.Fprintf(s.cfg.Output, "Received from %d: %s\n", env.Sender, line)

	res := s.cfg.Executor.Run(ctx, line)
	observability.RecordCommand(string(res.Outcome), res.Duration)
	s.log.Info().
		Int64("from", int64(env.Sender)).
		Str("outcome", string(res.Outcome)).
		Int("exit_code", res.ExitCode).
		Dur("duration", res.Duration).
		Msg("session.execute complete")

	if ctx.Err() != nil {
		return nil
	}
	return s.send(ctx, protocol.Encode(s.cfg.Identity, res.Output))
}

func (s *Session) handleInput(ctx context.Context, ev transport.Event) error {
	if ev.Err != nil {
		if errors.Is(ev.Err, io.EOF) {
			s.log.Info().Msg("session.handleInput input closed, listening only")
		} else {
			s.log.Warn().Err(ev.Err).Msg("session.handleInput input failed, listening only")
		}
		return nil
	}
	line := string(ev.Data)
	if strings.TrimSpace(line) == "" {
		return nil
	}
	s.enter(StateInputReady)
	if err := s.send(ctx, protocol.Encode(s.cfg.Identity, line)); err != nil {
		return err
	}
	s.enter(StateSent)
	return nil
}

// send broadcasts b. Retryable failures are logged and dropped.
func (s *Session) send(ctx context.Context, b []byte) error {
	err := s.conn.Send(b)
	if err == nil {
		observability.RecordDatagram(string(s.cfg.Role), observability.DirectionOut, observability.ResultSent)
		return nil
	}
	if transport.IsRetryable(err) {
		s.retryPause(ctx, "send", err)
		return nil
	}
	observability.RecordDatagram(string(s.cfg.Role), observability.DirectionOut, observability.ResultError)
	return fmt.Errorf("session: send: %w", err)
}

func (s *Session) retryPause(ctx context.Context, op string, err error) {
	observability.RecordDatagram(string(s.cfg.Role), directionFor(op), observability.ResultError)
	s.log.Warn().Err(err).Str("op", op).Msg("session transient transport error")
	attempt, delay := s.backoff.pause(ctx)
	s.log.Debug().Str("op", op).Int("attempt", attempt).Dur("backoff", delay).Msg("session retry pause")
}

func (s *Session) deliver(env protocol.Envelope) {
	s.enter(StateDelivered)
	observability.RecordDatagram(string(s.cfg.Role), observability.DirectionIn, observability.ResultDelivered)
	s.log.Debug().Int64("from", int64(env.Sender)).Int("payload_bytes", len(env.Payload)).Msg("session deliver")
}

func (s *Session) discard(reason string, err error) {
	s.enter(StateDiscarded)
	observability.RecordDatagram(string(s.cfg.Role), observability.DirectionIn, reason)
	event := s.log.Debug().Str("reason", reason)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("session discard")
}

func (s *Session) enter(state State) {
	s.log.Trace().Str("state", string(state)).Msg("session state")
}

func directionFor(op string) string {
	if op == "send" {
		return observability.DirectionOut
	}
	return observability.DirectionIn
}
