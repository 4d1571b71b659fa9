package protocol

import "strconv"

// Encode builds the datagram for payload sent as id.
func Encode(id Identity, payload string) []byte {
	buf := make([]byte, 0, len(HeaderPrefix)+20+1+len(payload))
	buf = append(buf, HeaderPrefix...)
	buf = strconv.AppendInt(buf, int64(id), 10)
	buf = append(buf, '\n')
	buf = append(buf, payload...)
	return buf
}
