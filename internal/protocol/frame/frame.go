package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderLen is the size of the big-endian length prefix.
	HeaderLen = 2
	// MaxPayloadLen is the largest payload the length field can carry.
	MaxPayloadLen = 0xFFFF
)

var (
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrShortHeader     = errors.New("frame: short length header")
	ErrShortPayload    = errors.New("frame: short payload")
)

// Encode returns the wire form of one frame: length prefix followed by payload.
func Encode(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), MaxPayloadLen)
	}
	buf := make([]byte, HeaderLen+len(payload))
	binary.BigEndian.PutUint16(buf[:HeaderLen], uint16(len(payload)))
	copy(buf[HeaderLen:], payload)
	return buf, nil
}

// WriteFrame writes one frame with a single Write call so that concurrent
// writers guarded by the same lock never interleave bytes.
func WriteFrame(w io.Writer, payload []byte) error {
	buf, err := Encode(payload)
	if err != nil {
		return err
	}
	n, err := w.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrShortWrite
	}
	return nil
}

// ReadHeader reads the 2-byte length prefix.
func ReadHeader(r io.Reader) (uint16, error) {
	var hdr [HeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, ErrShortHeader
		}
		return 0, err
	}
	return binary.BigEndian.Uint16(hdr[:]), nil
}

// ReadFrame reads one frame and returns its payload. A zero-length frame
// yields an empty, non-nil payload; callers decide whether to surface it.
func ReadFrame(r io.Reader) ([]byte, error) {
	n, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if n == 0 {
		return payload, nil
	}
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrShortPayload
		}
		return nil, err
	}
	return payload, nil
}

// Size returns the wire size of a frame carrying payloadLen bytes.
func Size(payloadLen int) int {
	return HeaderLen + payloadLen
}
