package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/danmuck/meshlink/internal/testutil/testlog"
)

func TestReadWriteFrameRoundTrip(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "empty", payload: []byte{}},
		{name: "single byte", payload: []byte{0x42}},
		{name: "binary", payload: []byte{0x00, 0xFF, 0x7F, 0x80}},
		{name: "mtu sized", payload: bytes.Repeat([]byte("m"), 512)},
		{name: "max size", payload: bytes.Repeat([]byte("y"), MaxPayloadLen)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteFrame(&buf, tt.payload); err != nil {
				t.Fatalf("write frame: %v", err)
			}
			if buf.Len() != Size(len(tt.payload)) {
				t.Fatalf("frame size got=%d want=%d", buf.Len(), Size(len(tt.payload)))
			}
			out, err := ReadFrame(&buf)
			if err != nil {
				t.Fatalf("read frame: %v", err)
			}
			if !bytes.Equal(out, tt.payload) {
				t.Fatalf("payload mismatch: got %d bytes want %d", len(out), len(tt.payload))
			}
			if buf.Len() != 0 {
				t.Fatalf("trailing bytes after frame: %d", buf.Len())
			}
		})
	}
}

func TestEncodeHelloWireBytes(t *testing.T) {
	testlog.Start(t)
	got, err := Encode([]byte("hello"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0x00, 0x05, 0x68, 0x65, 0x6c, 0x6c, 0x6f}
	if !bytes.Equal(got, want) {
		t.Fatalf("wire bytes got=% x want=% x", got, want)
	}
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	err := WriteFrame(&buf, make([]byte, MaxPayloadLen+1))
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("oversized payload reached writer: %d bytes", buf.Len())
	}
}

func TestZeroLengthFramesKeepBoundaries(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	for _, p := range [][]byte{{}, []byte("a"), {}, {}, []byte("bc")} {
		if err := WriteFrame(&buf, p); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	var got []string
	for buf.Len() > 0 {
		p, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if len(p) == 0 {
			continue
		}
		got = append(got, string(p))
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "bc" {
		t.Fatalf("unexpected payloads: %q", got)
	}
}

func TestReadFrameShortInput(t *testing.T) {
	testlog.Start(t)
	if _, err := ReadFrame(bytes.NewReader([]byte{0x00})); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
	if _, err := ReadFrame(bytes.NewReader([]byte{0x00, 0x04, 'a', 'b'})); !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
	if _, err := ReadFrame(bytes.NewReader(nil)); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF on clean end, got %v", err)
	}
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) { return len(p) - 1, nil }

func TestWriteFrameShortWrite(t *testing.T) {
	testlog.Start(t)
	if err := WriteFrame(shortWriter{}, []byte("abc")); !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("expected io.ErrShortWrite, got %v", err)
	}
}
