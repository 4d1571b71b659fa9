package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/rconsole/internal/executor"
	"github.com/danmuck/rconsole/internal/protocol"
	"github.com/danmuck/rconsole/internal/tools"
	"github.com/danmuck/rconsole/internal/transport"
)

const (
	DefaultPort = 1601

	// EnvConfigPath names an optional TOML file layered over the defaults.
	EnvConfigPath = "RCONSOLE_CONFIG"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Config is the resolved runtime configuration for both roles.
type Config struct {
	ListenHost      string
	BroadcastHost   string
	Port            int
	MaxDatagramSize int
	Exec            ExecConfig
	Admin           AdminConfig
}

// ExecConfig configures the receiver's command executor.
type ExecConfig struct {
	Timeout        time.Duration
	Shell          string
	Allow          []string
	MaxOutputBytes int
}

// AdminConfig configures the optional health/metrics listener.
type AdminConfig struct {
	Addr        string
	CorsOrigins []string
}

func Default() Config {
	return Config{
		ListenHost:      transport.DefaultListenHost,
		BroadcastHost:   transport.DefaultBroadcastHost,
		Port:            DefaultPort,
		MaxDatagramSize: protocol.MaxDatagramSize,
		Exec: ExecConfig{
			Timeout:        executor.DefaultTimeout,
			Shell:          tools.DefaultShell,
			Allow:          []string{},
			MaxOutputBytes: executor.DefaultMaxOutputBytes,
		},
		Admin: AdminConfig{
			CorsOrigins: []string{},
		},
	}
}

type fileConfig struct {
	ListenHost      string    `toml:"listen_host"`
	BroadcastHost   string    `toml:"broadcast_host"`
	Port            int       `toml:"port"`
	MaxDatagramSize int       `toml:"max_datagram_size"`
	Exec            fileExec  `toml:"exec"`
	Admin           fileAdmin `toml:"admin"`
}

type fileExec struct {
	Timeout        string   `toml:"timeout"`
	TimeoutMS      int64    `toml:"timeout_ms,omitempty"`
	Shell          string   `toml:"shell"`
	Allow          []string `toml:"allow"`
	MaxOutputBytes int      `toml:"max_output_bytes"`
}

type fileAdmin struct {
	Addr        string   `toml:"addr,omitempty"`
	CorsOrigins []string `toml:"cors_origins"`
}

// Load overlays the keys defined in path onto Default().
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q in %s", ErrInvalidConfig, undecoded[0].String(), path)
	}

	if meta.IsDefined("listen_host") {
		cfg.ListenHost = strings.TrimSpace(raw.ListenHost)
	}
	if meta.IsDefined("broadcast_host") {
		cfg.BroadcastHost = strings.TrimSpace(raw.BroadcastHost)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("max_datagram_size") {
		cfg.MaxDatagramSize = raw.MaxDatagramSize
	}

	if meta.IsDefined("exec", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Exec.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse exec.timeout: %w", err)
		}
		cfg.Exec.Timeout = d
	}
	if meta.IsDefined("exec", "timeout_ms") {
		cfg.Exec.Timeout = time.Duration(raw.Exec.TimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("exec", "shell") {
		cfg.Exec.Shell = strings.TrimSpace(raw.Exec.Shell)
	}
	if meta.IsDefined("exec", "allow") {
		cfg.Exec.Allow = normalizeList(raw.Exec.Allow)
	}
	if meta.IsDefined("exec", "max_output_bytes") {
		cfg.Exec.MaxOutputBytes = raw.Exec.MaxOutputBytes
	}

	if meta.IsDefined("admin", "addr") {
		cfg.Admin.Addr = strings.TrimSpace(raw.Admin.Addr)
	}
	if meta.IsDefined("admin", "cors_origins") {
		cfg.Admin.CorsOrigins = normalizeList(raw.Admin.CorsOrigins)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by RCONSOLE_CONFIG, or returns defaults
// when it is unset.
func LoadFromEnv() (Config, string, error) {
	path := strings.TrimSpace(os.Getenv(EnvConfigPath))
	if path == "" {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.ListenHost) == "" {
		return fmt.Errorf("%w: missing listen_host", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.BroadcastHost) == "" {
		return fmt.Errorf("%w: missing broadcast_host", ErrInvalidConfig)
	}
	if !validPort(cfg.Port) {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, cfg.Port)
	}
	if cfg.MaxDatagramSize <= len(protocol.HeaderPrefix)+1 || cfg.MaxDatagramSize > 65507 {
		return fmt.Errorf("%w: max_datagram_size %d out of range", ErrInvalidConfig, cfg.MaxDatagramSize)
	}
	if cfg.Exec.Timeout <= 0 {
		return fmt.Errorf("%w: exec.timeout must be positive", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Exec.Shell) == "" {
		return fmt.Errorf("%w: missing exec.shell", ErrInvalidConfig)
	}
	if cfg.Exec.MaxOutputBytes <= 0 {
		return fmt.Errorf("%w: exec.max_output_bytes must be positive", ErrInvalidConfig)
	}
	return nil
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
