package link

import (
	"sync"
	"testing"
	"time"

	"github.com/danmuck/meshlink/internal/protocol/session"
	"github.com/danmuck/meshlink/internal/testutil/bridgetest"
)

type recorder struct {
	mu       sync.Mutex
	payloads [][]byte
	ifaces   []*Interface
	ch       chan []byte
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan []byte, 128)}
}

func (r *recorder) Inbound(payload []byte, iface *Interface) {
	r.mu.Lock()
	r.payloads = append(r.payloads, payload)
	r.ifaces = append(r.ifaces, iface)
	r.mu.Unlock()
	r.ch <- payload
}

func (r *recorder) next(t *testing.T, timeout time.Duration) []byte {
	t.Helper()
	select {
	case p := <-r.ch:
		return p
	case <-time.After(timeout):
		t.Fatalf("no inbound payload within %v", timeout)
		return nil
	}
}

func (r *recorder) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case p := <-r.ch:
		t.Fatalf("unexpected inbound payload %q", p)
	case <-time.After(wait):
	}
}

func testSessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.ConnectTimeout = 500 * time.Millisecond
	cfg.ReadTimeout = 50 * time.Millisecond
	cfg.Backoff.InitialDelay = 150 * time.Millisecond
	return cfg
}

func peerConfig(p *bridgetest.Peer) Config {
	return Config{
		Name:    "test-bridge",
		Host:    p.Host(),
		Port:    p.Port(),
		Session: testSessionConfig(),
	}
}

func startInterface(t *testing.T, cfg Config, owner Owner, opts ...Option) *Interface {
	t.Helper()
	iface, err := New(cfg, owner, opts...)
	if err != nil {
		t.Fatalf("new interface: %v", err)
	}
	if err := iface.Start(); err != nil {
		t.Fatalf("start interface: %v", err)
	}
	t.Cleanup(iface.Detach)
	return iface
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out after %v waiting for %s", timeout, what)
}
