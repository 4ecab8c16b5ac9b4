package frame

import (
	"encoding/binary"
	"fmt"
)

// Known TLV tags.
const (
	TagRedirect     byte = 0x01
	TagTaskID       byte = 0x02
	TagSeed         byte = 0x03
	TagExp          byte = 0x04 // 8-byte big-endian int64
	TagBits         byte = 0x05 // 2-byte big-endian uint16
	TagScope        byte = 0x06
	TagUAHash       byte = 0x07
	TagIPHash       byte = 0x08
	TagWorkers      byte = 0x09 // 1 byte
	TagNonce        byte = 0x0a
	TagWorkerType   byte = 0x0b
	TagErrorMessage byte = 0x0f
)

const tlvHeaderSize = 3 // tag(1) + len(2)

// TLV is one tag-length-value entry of a frame payload.
type TLV struct {
	Tag   byte
	Value []byte
}

// EncodeTLVs serializes an ordered list of TLVs into a payload buffer.
func EncodeTLVs(tlvs []TLV) []byte {
	size := 0
	for _, t := range tlvs {
		size += tlvHeaderSize + len(t.Value)
	}

	buf := make([]byte, 0, size)
	for _, t := range tlvs {
		var hdr [tlvHeaderSize]byte
		hdr[0] = t.Tag
		binary.BigEndian.PutUint16(hdr[1:3], uint16(len(t.Value)))
		buf = append(buf, hdr[:]...)
		buf = append(buf, t.Value...)
	}

	return buf
}

// DecodeTLVs parses a payload buffer into its TLV entries. It rejects a
// truncated TLV header and a declared value length running past the end of
// the buffer.
func DecodeTLVs(b []byte) ([]TLV, error) {
	var out []TLV

	for i := 0; i < len(b); {
		if i+tlvHeaderSize > len(b) {
			return nil, fmt.Errorf("frame: truncated TLV header at offset %d", i)
		}

		tag := b[i]
		length := int(binary.BigEndian.Uint16(b[i+1 : i+3]))
		start := i + tlvHeaderSize
		end := start + length

		if end > len(b) {
			return nil, fmt.Errorf("frame: TLV value for tag %#x runs past end of payload", tag)
		}

		value := make([]byte, length)
		copy(value, b[start:end])
		out = append(out, TLV{Tag: tag, Value: value})
		i = end
	}

	return out, nil
}

// tlvMap indexes decoded TLVs by tag for single-valued lookups.
type tlvMap map[byte][]byte

func indexTLVs(tlvs []TLV) tlvMap {
	m := make(tlvMap, len(tlvs))
	for _, t := range tlvs {
		m[t.Tag] = t.Value
	}

	return m
}

func (m tlvMap) str(tag byte) string {
	return string(m[tag])
}

func (m tlvMap) strOK(tag byte) (string, bool) {
	v, ok := m[tag]
	return string(v), ok
}

func (m tlvMap) int64(tag byte) (int64, error) {
	v, ok := m[tag]
	if !ok {
		return 0, fmt.Errorf("frame: missing required tag %#x", tag)
	}

	if len(v) != 8 {
		return 0, fmt.Errorf("frame: tag %#x: expected 8-byte int64, got %d bytes", tag, len(v))
	}

	return int64(binary.BigEndian.Uint64(v)), nil
}

func (m tlvMap) uint16(tag byte) (uint16, error) {
	v, ok := m[tag]
	if !ok {
		return 0, fmt.Errorf("frame: missing required tag %#x", tag)
	}

	if len(v) != 2 {
		return 0, fmt.Errorf("frame: tag %#x: expected 2-byte uint16, got %d bytes", tag, len(v))
	}

	return binary.BigEndian.Uint16(v), nil
}

func (m tlvMap) uint8(tag byte) (uint8, error) {
	v, ok := m[tag]
	if !ok {
		return 0, fmt.Errorf("frame: missing required tag %#x", tag)
	}

	if len(v) != 1 {
		return 0, fmt.Errorf("frame: tag %#x: expected 1-byte uint8, got %d bytes", tag, len(v))
	}

	return v[0], nil
}

func putInt64(tag byte, v int64) TLV {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))

	return TLV{Tag: tag, Value: b[:]}
}

func putUint16(tag byte, v uint16) TLV {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)

	return TLV{Tag: tag, Value: b[:]}
}

func putUint8(tag byte, v uint8) TLV {
	return TLV{Tag: tag, Value: []byte{v}}
}

func putStr(tag byte, v string) TLV {
	return TLV{Tag: tag, Value: []byte(v)}
}
