// Package frame implements the binary wire frame and TLV payload codec used
// by the challenge/verify protocol.
package frame

import (
	"encoding/binary"
	"fmt"
)

// Type identifies the kind of message a frame carries.
type Type uint8

const (
	// TypeTaskReq is a client request for a new challenge.
	TypeTaskReq Type = 1
	// TypeTaskResp is a server response carrying an issued task.
	TypeTaskResp Type = 2
	// TypeVerifyReq is a client submission of a solved challenge.
	TypeVerifyReq Type = 3
	// TypeVerifyResp is a server response confirming a solved challenge.
	TypeVerifyResp Type = 4
	// TypeError carries a human-readable failure message.
	TypeError Type = 5
)

const (
	magicByte0 = 'C'
	magicByte1 = 'W'
	version    = 1

	headerSize = 8 // magic(2) + version(1) + type(1) + length(4)
)

// Frame is a single protocol message: a typed TLV payload plus its header.
type Frame struct {
	Type    Type
	Payload []byte // TLV-encoded
}

// Encode serializes f into its wire form. It never fails: any Type and any
// payload length up to 2^32-1 bytes round-trips through Decode.
func Encode(f Frame) []byte {
	buf := make([]byte, headerSize+len(f.Payload))
	buf[0] = magicByte0
	buf[1] = magicByte1
	buf[2] = version
	buf[3] = byte(f.Type)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(f.Payload)))
	copy(buf[8:], f.Payload)

	return buf
}

// Decode parses the wire form produced by Encode. It rejects short frames,
// bad magic, unsupported versions, and a declared length that does not
// match the actual payload length.
func Decode(b []byte) (Frame, error) {
	if len(b) < headerSize {
		return Frame{}, fmt.Errorf("frame: short frame: got %d bytes, need at least %d", len(b), headerSize)
	}

	if b[0] != magicByte0 || b[1] != magicByte1 {
		return Frame{}, fmt.Errorf("frame: bad magic: got %#x %#x", b[0], b[1])
	}

	if b[2] != version {
		return Frame{}, fmt.Errorf("frame: unsupported version: %d", b[2])
	}

	declared := binary.BigEndian.Uint32(b[4:8])
	actual := uint32(len(b) - headerSize)

	if declared != actual {
		return Frame{}, fmt.Errorf("frame: declared length %d does not match actual payload length %d", declared, actual)
	}

	payload := make([]byte, actual)
	copy(payload, b[headerSize:])

	return Frame{Type: Type(b[3]), Payload: payload}, nil
}
