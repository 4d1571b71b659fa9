package protocol

// Accept reports whether env came from another instance. Broadcast delivery
// includes the sender's own socket, so this is the only loopback guard.
func Accept(env Envelope, local Identity) bool {
	return env.Sender != local
}
