package service

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/rconsole/internal/config"
	"github.com/danmuck/rconsole/internal/protocol/session"
	"github.com/danmuck/rconsole/internal/testutil/testlog"
	"github.com/danmuck/rconsole/internal/transport"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func freeUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).Port
}

func loopbackConfig(port int) config.Config {
	cfg := config.Default()
	cfg.ListenHost = "127.0.0.1"
	cfg.BroadcastHost = "127.0.0.1"
	cfg.Port = port
	return cfg
}

func TestNewAppliesPortArgument(t *testing.T) {
	testlog.Start(t)
	t.Setenv(config.EnvConfigPath, "")
	svc, err := New(Options{Role: session.RoleSender, Args: []string{"1777"}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if svc.Config().Port != 1777 {
		t.Fatalf("unexpected port: %d", svc.Config().Port)
	}

	svc, err = New(Options{Role: session.RoleSender, Args: []string{"not-a-port"}})
	if err != nil {
		t.Fatalf("invalid port must not fail: %v", err)
	}
	if svc.Config().Port != config.DefaultPort {
		t.Fatalf("expected default port, got %d", svc.Config().Port)
	}
}

func TestNewPortArgumentOverridesConfigFile(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "rconsole.toml")
	if err := os.WriteFile(path, []byte("port = 1800\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(config.EnvConfigPath, path)

	svc, err := New(Options{Role: session.RoleReceiver})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if svc.Config().Port != 1800 {
		t.Fatalf("expected config file port, got %d", svc.Config().Port)
	}

	svc, err = New(Options{Role: session.RoleReceiver, Args: []string{"1900"}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if svc.Config().Port != 1900 {
		t.Fatalf("expected argument port, got %d", svc.Config().Port)
	}
}

func TestRunContextSetupFailure(t *testing.T) {
	testlog.Start(t)
	blocker, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer blocker.Close()
	port := blocker.LocalAddr().(*net.UDPAddr).Port

	svc := NewWithConfig(loopbackConfig(port), Options{Role: session.RoleReceiver})
	err = svc.RunContext(context.Background())
	var setup *transport.SetupError
	if !errors.As(err, &setup) {
		t.Fatalf("expected SetupError, got %v", err)
	}
	if setup.Op != "Error binding socket" {
		t.Fatalf("unexpected setup op: %q", setup.Op)
	}
}

func TestRunContextReceiverExecutesInboundCommand(t *testing.T) {
	testlog.Start(t)
	port := freeUDPPort(t)
	out := &syncBuffer{}
	svc := NewWithConfig(loopbackConfig(port), Options{Role: session.RoleReceiver, Stdout: out})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.RunContext(ctx) }()

	client, err := net.Dial("udp4", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "Received from 1: echo hi") {
		if time.Now().After(deadline) {
			t.Fatalf("receiver never executed command, output=%q", out.String())
		}
		_, _ = client.Write([]byte("Identity: 1\necho hi"))
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected graceful stop, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("service did not stop")
	}
}

func TestRunContextRejectsInvalidRole(t *testing.T) {
	testlog.Start(t)
	svc := NewWithConfig(config.Default(), Options{Role: session.Role("bogus")})
	if err := svc.RunContext(context.Background()); !errors.Is(err, session.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}
