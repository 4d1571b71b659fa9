package config

import (
	"github.com/danmuck/rconsole/internal/executor"
	"github.com/danmuck/rconsole/internal/tools"
	"github.com/danmuck/rconsole/internal/transport"
)

func (c Config) Transport() transport.Config {
	return transport.Config{
		ListenHost:      c.ListenHost,
		BroadcastHost:   c.BroadcastHost,
		Port:            c.Port,
		MaxDatagramSize: c.MaxDatagramSize,
	}
}

func (c Config) Executor() executor.Config {
	return executor.Config{
		Timeout:        c.Exec.Timeout,
		Allow:          append([]string(nil), c.Exec.Allow...),
		MaxOutputBytes: c.Exec.MaxOutputBytes,
		Runner:         tools.ShellRunner{Shell: c.Exec.Shell},
	}
}
