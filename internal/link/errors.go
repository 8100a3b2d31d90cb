package link

import (
	"errors"
	"fmt"

	"github.com/danmuck/meshlink/internal/protocol/frame"
)

var (
	ErrConnect        = errors.New("link: connect failed")
	ErrStreamFault    = errors.New("link: stream fault")
	ErrProtocol       = errors.New("link: protocol violation")
	ErrDetached       = errors.New("link: interface detached")
	ErrAlreadyStarted = errors.New("link: interface already started")
	ErrOwnerRequired  = errors.New("link: owner required")
	ErrInvalidConfig  = errors.New("link: invalid config")
)

// ConnectError reports one failed dial attempt. The supervisor retries it.
type ConnectError struct {
	Addr    string
	Attempt int
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("link: connect %s attempt=%d: %v", e.Addr, e.Attempt, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

func (e *ConnectError) Is(target error) bool { return target == ErrConnect }

// StreamFault reports a peer close or I/O error on an established connection.
type StreamFault struct {
	Op  string
	Err error
}

func (e *StreamFault) Error() string {
	return fmt.Sprintf("link: %s fault: %v", e.Op, e.Err)
}

func (e *StreamFault) Unwrap() error { return e.Err }

func (e *StreamFault) Is(target error) bool { return target == ErrStreamFault }

// ProtocolError reports a payload the 16-bit length field cannot carry.
type ProtocolError struct {
	Len int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("link: payload length %d exceeds %d", e.Len, frame.MaxPayloadLen)
}

func (e *ProtocolError) Unwrap() error { return frame.ErrPayloadTooLarge }

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }
