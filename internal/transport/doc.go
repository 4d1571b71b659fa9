// Package transport owns the UDP broadcast socket and the readiness
// multiplexer that the session loop blocks on.
//
// Ownership boundary:
// - socket setup (reuse, broadcast permission, bind)
// - datagram send/receive with size bounds
// - retryable vs fatal error classification
// - demand-driven multiplexing of socket and input sources
package transport
