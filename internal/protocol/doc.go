// Package protocol owns the broadcast wire contract.
//
// Ownership boundary:
// - envelope encode/decode
// - local identity
// - loopback suppression
//
// One datagram carries one envelope:
//
//	Identity: <decimal identity>\n<payload>
//
// No fragmentation or reassembly is performed. Payloads that do not fit in
// MaxDatagramSize are truncated by the transport, not here.
package protocol
