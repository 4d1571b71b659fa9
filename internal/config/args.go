package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePortArg resolves the single positional port argument. A missing or
// invalid argument never fails: fallback is returned with a warning.
func ParsePortArg(args []string, fallback int) (int, string) {
	if len(args) != 1 {
		return fallback, fmt.Sprintf("Using default port: %d", fallback)
	}
	raw := strings.TrimSpace(args[0])
	port, err := strconv.Atoi(raw)
	if err != nil || !validPort(port) {
		return fallback, fmt.Sprintf("Invalid port %q, using default port: %d", raw, fallback)
	}
	return port, ""
}
