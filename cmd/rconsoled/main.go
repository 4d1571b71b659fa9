package main

import (
	"fmt"
	"os"

	"github.com/danmuck/rconsole/internal/logging"
	"github.com/danmuck/rconsole/internal/protocol/session"
	"github.com/danmuck/rconsole/internal/service"
)

func main() {
	logging.ConfigureRuntime()
	svc, err := service.New(service.Options{Role: session.RoleReceiver, Args: os.Args[1:]})
	if err != nil {
		fmt.Fprintf(os.Stderr, "rconsoled: %v\n", err)
		os.Exit(1)
	}
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "rconsoled: %v\n", err)
		os.Exit(1)
	}
}
