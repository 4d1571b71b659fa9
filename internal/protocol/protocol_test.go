package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/rconsole/internal/testutil/testlog"
)

func TestEncodeWireFormat(t *testing.T) {
	testlog.Start(t)
	got := string(Encode(100, "echo hi"))
	if got != "Identity: 100\necho hi" {
		t.Fatalf("unexpected datagram: %q", got)
	}
}

func TestRoundTripEncodeDecode(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		id      Identity
		payload string
	}{
		{0, ""},
		{1, "uptime"},
		{4194304, "ls -la /tmp"},
		{9223372036854775807, "x"},
		{42, strings.Repeat("a", MaxDatagramSize-len("Identity: 42\n"))},
	}
	for _, tc := range cases {
		b := Encode(tc.id, tc.payload)
		if len(b) > MaxDatagramSize {
			t.Fatalf("datagram too large for case id=%d: %d", tc.id, len(b))
		}
		env, err := Decode(b)
		if err != nil {
			t.Fatalf("decode id=%d: %v", tc.id, err)
		}
		if env.Sender != tc.id || env.Payload != tc.payload {
			t.Fatalf("round-trip mismatch: got=%+v want id=%d payload=%q", env, tc.id, tc.payload)
		}
	}
}

func TestDecodePayloadKeepsLaterNewlines(t *testing.T) {
	testlog.Start(t)
	env, err := Decode([]byte("Identity: 200\nhi\nthere\n"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Payload != "hi\nthere\n" {
		t.Fatalf("unexpected payload: %q", env.Payload)
	}
	if env.CommandLine() != "hi" {
		t.Fatalf("unexpected command line: %q", env.CommandLine())
	}
}

func TestDecodeMalformed(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		in   string
		kind error
	}{
		{"missing prefix", "echo hi", ErrMissingPrefix},
		{"legacy prefix", "User ID: 100\necho hi", ErrMissingPrefix},
		{"missing newline", "Identity: 100", ErrMissingNewline},
		{"empty identity", "Identity: \necho", ErrInvalidIdentity},
		{"non-numeric identity", "Identity: abc\necho", ErrInvalidIdentity},
		{"negative identity", "Identity: -5\necho", ErrInvalidIdentity},
		{"trailing garbage", "Identity: 12x\necho", ErrInvalidIdentity},
		{"overflow", "Identity: 99999999999999999999\necho", ErrInvalidIdentity},
		{"empty datagram", "", ErrMissingPrefix},
	}
	for _, tc := range cases {
		_, err := Decode([]byte(tc.in))
		if !errors.Is(err, ErrDecode) {
			t.Fatalf("%s: expected ErrDecode, got %v", tc.name, err)
		}
		if !errors.Is(err, tc.kind) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.kind, err)
		}
	}
}

func TestAcceptSuppressesLoopback(t *testing.T) {
	testlog.Start(t)
	local := Identity(100)
	if Accept(Envelope{Sender: local, Payload: "echo hi"}, local) {
		t.Fatalf("own envelope must be rejected")
	}
	for _, other := range []Identity{0, 99, 101, 200} {
		if !Accept(Envelope{Sender: other}, local) {
			t.Fatalf("envelope from %d should be accepted", other)
		}
	}
}

func TestLocalIdentityStable(t *testing.T) {
	testlog.Start(t)
	if LocalIdentity() != LocalIdentity() {
		t.Fatalf("local identity must not change within a process")
	}
	if LocalIdentity() <= 0 {
		t.Fatalf("unexpected local identity: %d", LocalIdentity())
	}
}

func TestCommandLineStripsCarriageReturn(t *testing.T) {
	testlog.Start(t)
	env := Envelope{Payload: "uptime\r\nignored"}
	if got := env.CommandLine(); got != "uptime" {
		t.Fatalf("unexpected command line: %q", got)
	}
}
