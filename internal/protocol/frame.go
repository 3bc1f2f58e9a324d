// Package protocol implements the wire-level Frame and the message codec
// that sits on top of it. A Frame is transport-agnostic: it is what gets
// chunked into 64-byte packets by internal/transport, and what a
// Transport's Read/Write present as a complete unit to callers above it.
package protocol

import (
	"encoding/binary"
	"fmt"
)

// Magic is the 2-byte frame prefix: 0x23 0x23 ("##").
var Magic = [2]byte{0x23, 0x23}

// HeaderSize is magic(2) + tag(2) + length(4).
const HeaderSize = 2 + 2 + 4

// Frame is one protocol message on the wire.
type Frame struct {
	Tag     uint16
	Payload []byte
}

// Encode serializes a Frame to its exact wire bytes: no trailing padding is
// part of the Frame (padding belongs to the Transport).
func (f Frame) Encode() []byte {
	buf := make([]byte, HeaderSize+len(f.Payload))
	buf[0], buf[1] = Magic[0], Magic[1]
	binary.BigEndian.PutUint16(buf[2:4], f.Tag)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(f.Payload)))
	copy(buf[8:], f.Payload)
	return buf
}

// DecodeFrame reads exactly one Frame from buf. It returns the Frame and the
// number of bytes consumed. An error here is always a protocol desync: magic
// mismatch or a truncated buffer.
func DecodeFrame(buf []byte) (Frame, int, error) {
	if len(buf) < HeaderSize {
		return Frame{}, 0, fmt.Errorf("frame: short header: have %d bytes, need %d", len(buf), HeaderSize)
	}
	if buf[0] != Magic[0] || buf[1] != Magic[1] {
		return Frame{}, 0, fmt.Errorf("frame: bad magic: got %02x%02x", buf[0], buf[1])
	}
	tag := binary.BigEndian.Uint16(buf[2:4])
	length := binary.BigEndian.Uint32(buf[4:8])
	total := HeaderSize + int(length)
	if len(buf) < total {
		return Frame{}, 0, fmt.Errorf("frame: short payload: have %d bytes, need %d", len(buf), total)
	}
	payload := make([]byte, length)
	copy(payload, buf[HeaderSize:total])
	return Frame{Tag: tag, Payload: payload}, total, nil
}
