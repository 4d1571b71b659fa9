package protocol

import "errors"

var (
	ErrDecode          = errors.New("protocol: malformed datagram")
	ErrMissingPrefix   = errors.New("protocol: missing identity prefix")
	ErrInvalidIdentity = errors.New("protocol: invalid identity")
	ErrMissingNewline  = errors.New("protocol: missing header newline")
)
