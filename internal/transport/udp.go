package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"

	"github.com/danmuck/rconsole/internal/logging"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

const (
	DefaultListenHost    = "0.0.0.0"
	DefaultBroadcastHost = "255.255.255.255"
)

// Config describes one broadcast endpoint.
type Config struct {
	ListenHost      string
	BroadcastHost   string
	Port            int
	MaxDatagramSize int
}

// Conn is the datagram transport used by the session loop.
type Conn interface {
	Send(b []byte) error
	Receive() ([]byte, error)
	Close() error
}

// UDP is a broadcast-enabled datagram socket bound to ListenHost:Port.
type UDP struct {
	conn    net.PacketConn
	target  *net.UDPAddr
	maxSize int
	log     zerolog.Logger
}

var _ Conn = (*UDP)(nil)

// Open binds the socket with address reuse and broadcast permission set.
func Open(ctx context.Context, cfg Config) (*UDP, error) {
	if cfg.ListenHost == "" {
		cfg.ListenHost = DefaultListenHost
	}
	if cfg.BroadcastHost == "" {
		cfg.BroadcastHost = DefaultBroadcastHost
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, &SetupError{Op: "Invalid port", Err: fmt.Errorf("port %d out of range", cfg.Port)}
	}
	if cfg.MaxDatagramSize <= 0 {
		cfg.MaxDatagramSize = 1024
	}

	target, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(cfg.BroadcastHost, strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, &SetupError{Op: "Failed to resolve broadcast address", Err: err}
	}

	lc := net.ListenConfig{Control: controlBroadcast}
	conn, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort(cfg.ListenHost, strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, classifyListenErr(err)
	}

	u := &UDP{
		conn:    conn,
		target:  target,
		maxSize: cfg.MaxDatagramSize,
		log:     logging.Component("transport"),
	}
	u.log.Info().
		Str("listen", conn.LocalAddr().String()).
		Str("broadcast", target.String()).
		Int("max_datagram", cfg.MaxDatagramSize).
		Msg("transport.Open ready")
	return u, nil
}

// sockoptError survives the net.OpError wrapping so Open can name the
// option that failed.
type sockoptError struct {
	op  string
	err error
}

func (e *sockoptError) Error() string { return e.op + ": " + e.err.Error() }
func (e *sockoptError) Unwrap() error { return e.err }

func controlBroadcast(_, _ string, rc syscall.RawConn) error {
	var optErr error
	err := rc.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); e != nil {
			optErr = &sockoptError{op: "Failed to set SO_REUSEADDR", err: e}
			return
		}
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1); e != nil {
			optErr = &sockoptError{op: "Failed to enable broadcast", err: e}
		}
	})
	if err != nil {
		return &sockoptError{op: "Socket creation failed", err: err}
	}
	return optErr
}

func classifyListenErr(err error) error {
	var opt *sockoptError
	if errors.As(err, &opt) {
		return &SetupError{Op: opt.op, Err: opt.err}
	}
	return &SetupError{Op: "Error binding socket", Err: err}
}

// Send broadcasts b, truncated to the configured maximum datagram size.
func (u *UDP) Send(b []byte) error {
	if len(b) > u.maxSize {
		u.log.Warn().Int("len", len(b)).Int("max", u.maxSize).Msg("transport.Send truncating datagram")
		b = b[:u.maxSize]
	}
	if _, err := u.conn.WriteTo(b, u.target); err != nil {
		return &RuntimeError{Op: "send", Err: err}
	}
	return nil
}

// Receive blocks for one datagram.
func (u *UDP) Receive() ([]byte, error) {
	buf := make([]byte, u.maxSize)
	n, from, err := u.conn.ReadFrom(buf)
	if err != nil {
		return nil, &RuntimeError{Op: "receive", Err: err}
	}
	u.log.Trace().Stringer("from", from).Int("len", n).Msg("transport.Receive")
	return buf[:n], nil
}

func (u *UDP) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

func (u *UDP) Close() error {
	return u.conn.Close()
}
