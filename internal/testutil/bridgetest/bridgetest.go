// Package bridgetest runs an in-process TCP bridge peer speaking the
// 2-byte length framing, for link and daemon tests.
package bridgetest

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/meshlink/internal/protocol/frame"
)

// Peer accepts bridge connections on 127.0.0.1.
type Peer struct {
	ln       net.Listener
	conns    chan *Conn
	accepted atomic.Int64

	mu     sync.Mutex
	times  []time.Time
	closed bool
	open   []*Conn
}

func NewPeer(t testing.TB) *Peer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	p := &Peer{
		ln:    ln,
		conns: make(chan *Conn, 16),
	}
	go p.acceptLoop()
	t.Cleanup(p.Close)
	return p
}

func (p *Peer) acceptLoop() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		c := &Conn{Conn: conn, r: bufio.NewReader(conn)}
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = conn.Close()
			return
		}
		p.times = append(p.times, time.Now())
		p.open = append(p.open, c)
		p.mu.Unlock()
		p.accepted.Add(1)
		p.conns <- c
	}
}

func (p *Peer) Addr() string { return p.ln.Addr().String() }

func (p *Peer) Host() string {
	host, _, _ := net.SplitHostPort(p.Addr())
	return host
}

func (p *Peer) Port() int {
	_, port, _ := net.SplitHostPort(p.Addr())
	n, _ := strconv.Atoi(port)
	return n
}

// Accepted returns the number of connections accepted so far.
func (p *Peer) Accepted() int { return int(p.accepted.Load()) }

// AcceptTimes returns when each connection was accepted.
func (p *Peer) AcceptTimes() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]time.Time, len(p.times))
	copy(out, p.times)
	return out
}

// Next waits for the next accepted connection.
func (p *Peer) Next(t testing.TB, timeout time.Duration) *Conn {
	t.Helper()
	select {
	case c := <-p.conns:
		return c
	case <-time.After(timeout):
		t.Fatalf("bridge peer: no connection within %v", timeout)
		return nil
	}
}

// Close stops accepting and closes every accepted connection.
func (p *Peer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	open := p.open
	p.open = nil
	p.mu.Unlock()

	_ = p.ln.Close()
	for _, c := range open {
		_ = c.Close()
	}
}

// Conn is the peer side of one bridge connection.
type Conn struct {
	net.Conn
	r *bufio.Reader
}

func (c *Conn) ReadFrame(t testing.TB, timeout time.Duration) []byte {
	t.Helper()
	if err := c.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("bridge peer: set deadline: %v", err)
	}
	payload, err := frame.ReadFrame(c.r)
	if err != nil {
		t.Fatalf("bridge peer: read frame: %v", err)
	}
	return payload
}

// ReadRaw reads exactly n bytes off the wire.
func (c *Conn) ReadRaw(t testing.TB, n int, timeout time.Duration) []byte {
	t.Helper()
	if err := c.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("bridge peer: set deadline: %v", err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		t.Fatalf("bridge peer: read raw: %v", err)
	}
	return buf
}

// ExpectNoData fails if any byte arrives within wait.
func (c *Conn) ExpectNoData(t testing.TB, wait time.Duration) {
	t.Helper()
	if err := c.SetReadDeadline(time.Now().Add(wait)); err != nil {
		t.Fatalf("bridge peer: set deadline: %v", err)
	}
	b, err := c.r.ReadByte()
	if err == nil {
		t.Fatalf("bridge peer: unexpected byte 0x%02x", b)
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("bridge peer: expected timeout, got %v", err)
	}
}

// WaitClosed blocks until the link side closes the connection.
func (c *Conn) WaitClosed(t testing.TB, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		_ = c.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		if _, err := c.r.ReadByte(); err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return
		}
	}
	t.Fatalf("bridge peer: connection still open after %v", timeout)
}

func (c *Conn) WriteFrame(t testing.TB, payload []byte) {
	t.Helper()
	if err := frame.WriteFrame(c.Conn, payload); err != nil {
		t.Fatalf("bridge peer: write frame: %v", err)
	}
}

func (c *Conn) WriteRaw(t testing.TB, b []byte) {
	t.Helper()
	if _, err := c.Conn.Write(b); err != nil {
		t.Fatalf("bridge peer: write raw: %v", err)
	}
}
