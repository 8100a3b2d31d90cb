package link

import (
	"errors"
	"net"
	"sync"
	"time"
)

// linkConn is one connection lifetime. Whichever side faults first closes
// the socket and done; every later fault report is a no-op.
type linkConn struct {
	net.Conn
	id         uint64
	closeOnce  sync.Once
	done       chan struct{}
	readerDone chan struct{}
	err        error
}

func newLinkConn(conn net.Conn, id uint64) *linkConn {
	return &linkConn{
		Conn:       conn,
		id:         id,
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}
}

// fail closes the connection with cause and reports whether this call did it.
func (c *linkConn) fail(cause error) bool {
	first := false
	c.closeOnce.Do(func() {
		first = true
		c.err = cause
		_ = c.Conn.Close()
		close(c.done)
	})
	return first
}

func (c *linkConn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// deadlineReader retries reads that hit the per-attempt deadline so partial
// frames survive; the deadline only bounds how long a read ignores teardown.
type deadlineReader struct {
	conn    *linkConn
	timeout time.Duration
}

func (r *deadlineReader) Read(p []byte) (int, error) {
	for {
		if r.conn.closed() {
			return 0, net.ErrClosed
		}
		if r.timeout > 0 {
			if err := r.conn.SetReadDeadline(time.Now().Add(r.timeout)); err != nil {
				return 0, err
			}
		}
		n, err := r.conn.Read(p)
		if n > 0 {
			if isTimeout(err) {
				err = nil
			}
			return n, err
		}
		if err == nil || isTimeout(err) {
			continue
		}
		return 0, err
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return err != nil && errors.As(err, &netErr) && netErr.Timeout()
}
