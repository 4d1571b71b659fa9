package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/rconsole/internal/config"
	"github.com/danmuck/rconsole/internal/executor"
	"github.com/danmuck/rconsole/internal/logging"
	"github.com/danmuck/rconsole/internal/observability"
	"github.com/danmuck/rconsole/internal/protocol"
	"github.com/danmuck/rconsole/internal/protocol/session"
	"github.com/danmuck/rconsole/internal/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options carries the process surface a Service runs against.
type Options struct {
	Role   session.Role
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
}

// Service runs one rconsole role as a standalone process.
type Service struct {
	cfg        config.Config
	opts       Options
	identity   protocol.Identity
	instanceID string
	log        zerolog.Logger
}

// New loads the optional config file named by RCONSOLE_CONFIG and applies
// the positional port argument on top of it.
func New(opts Options) (*Service, error) {
	cfg, path, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	svc := NewWithConfig(cfg, opts)
	if path != "" {
		svc.log.Info().Str("path", path).Msg("service.New loaded config")
	}

	port, warn := config.ParsePortArg(opts.Args, svc.cfg.Port)
	if warn != "" {
		svc.log.Warn().Msg(warn)
	}
	svc.cfg.Port = port
	return svc, nil
}

// NewWithConfig builds a Service from an explicit config. Args are ignored.
func NewWithConfig(cfg config.Config, opts Options) *Service {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	instanceID := uuid.NewString()
	return &Service{
		cfg:        cfg,
		opts:       opts,
		identity:   protocol.LocalIdentity(),
		instanceID: instanceID,
		log: logging.Component("service").With().
			Str("role", string(opts.Role)).
			Str("instance", instanceID).
			Logger(),
	}
}

func (s *Service) Config() config.Config {
	return s.cfg
}

// Run blocks until SIGINT/SIGTERM or a fatal transport error.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

func (s *Service) RunContext(ctx context.Context) error {
	if err := s.opts.Role.Validate(); err != nil {
		return err
	}

	conn, err := transport.Open(ctx, s.cfg.Transport())
	if err != nil {
		return err
	}
	defer conn.Close()

	sess, err := session.New(conn, s.sessionConfig())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if addr := strings.TrimSpace(s.cfg.Admin.Addr); addr != "" {
		go s.serveAdmin(ctx, addr)
	}

	s.log.Info().
		Int64("identity", int64(s.identity)).
		Int("port", s.cfg.Port).
		Msg("service.Run ready")
	if err := sess.Run(ctx); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

func (s *Service) sessionConfig() session.Config {
	cfg := session.DefaultConfig(s.opts.Role)
	cfg.Identity = s.identity
	cfg.InstanceID = s.instanceID
	cfg.Output = s.opts.Stdout
	switch s.opts.Role {
	case session.RoleSender:
		cfg.Input = s.opts.Stdin
	case session.RoleReceiver:
		cfg.Executor = executor.New(s.cfg.Executor())
	}
	return cfg
}

// serveAdmin failures are logged; the protocol keeps running without it.
func (s *Service) serveAdmin(ctx context.Context, addr string) {
	admin := observability.NewAdminServer(observability.Status{
		Role:       string(s.opts.Role),
		Identity:   int64(s.identity),
		InstanceID: s.instanceID,
		Port:       s.cfg.Port,
	}, s.cfg.Admin.CorsOrigins)
	if err := admin.Serve(ctx, addr); err != nil {
		s.log.Error().Err(err).Str("addr", addr).Msg("service.serveAdmin stopped")
	}
}
