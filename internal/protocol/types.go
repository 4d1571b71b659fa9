package protocol

import (
	"os"
	"strings"
)

const (
	// MaxDatagramSize bounds one datagram including the header line.
	MaxDatagramSize = 1024

	HeaderPrefix = "Identity: "
)

// Identity distinguishes one running instance from another on the broadcast domain.
type Identity int64

// LocalIdentity returns the identity of the current process.
func LocalIdentity() Identity {
	return Identity(os.Getpid())
}

// Envelope is the decoded form of one datagram.
type Envelope struct {
	Sender  Identity
	Payload string
}

// CommandLine returns the first payload line, which is what a receiver executes.
func (e Envelope) CommandLine() string {
	line, _, _ := strings.Cut(e.Payload, "\n")
	return strings.TrimSuffix(line, "\r")
}
