package protocol

import (
	"encoding/binary"
	"io"
)

const lengthPrefixSize = 4

// Limits constrains frame decode memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: 16 * 1024 * 1024}
}

// ReadFrame reads one length-prefixed payload from r. The prefix is a 4-byte
// big-endian count of payload bytes, excluding the prefix itself.
func ReadFrame(r io.Reader, limits Limits) ([]byte, error) {
	var prefix [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(prefix[:])
	if size == 0 {
		return nil, ErrEmptyFrame
	}
	if size > limits.MaxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrTruncated
		}
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes payload to w with its length prefix in a single Write,
// so a serialized writer never interleaves partial frames.
func WriteFrame(w io.Writer, payload []byte) error {
	buf := make([]byte, lengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:lengthPrefixSize], uint32(len(payload)))
	copy(buf[lengthPrefixSize:], payload)
	_, err := w.Write(buf)
	return err
}

// Frame prepends the length prefix to payload.
func Frame(payload []byte) []byte {
	buf := make([]byte, lengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:lengthPrefixSize], uint32(len(payload)))
	copy(buf[lengthPrefixSize:], payload)
	return buf
}
