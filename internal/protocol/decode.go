package protocol

import (
	"bytes"
	"fmt"
	"strconv"
)

// Decode parses one datagram. Any returned error wraps ErrDecode.
func Decode(b []byte) (Envelope, error) {
	rest, ok := bytes.CutPrefix(b, []byte(HeaderPrefix))
	if !ok {
		return Envelope{}, decodeErr(ErrMissingPrefix, "")
	}

	idx := bytes.IndexByte(rest, '\n')
	if idx < 0 {
		return Envelope{}, decodeErr(ErrMissingNewline, "")
	}

	id, err := parseIdentity(rest[:idx])
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Sender: id, Payload: string(rest[idx+1:])}, nil
}

func parseIdentity(raw []byte) (Identity, error) {
	if len(raw) == 0 {
		return 0, decodeErr(ErrInvalidIdentity, "empty")
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, decodeErr(ErrInvalidIdentity, fmt.Sprintf("%q", raw))
		}
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, decodeErr(ErrInvalidIdentity, err.Error())
	}
	return Identity(v), nil
}

func decodeErr(kind error, detail string) error {
	if detail == "" {
		return fmt.Errorf("%w: %w", ErrDecode, kind)
	}
	return fmt.Errorf("%w: %w: %s", ErrDecode, kind, detail)
}
