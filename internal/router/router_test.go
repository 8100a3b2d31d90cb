package router

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/meshlink/internal/link"
	"github.com/danmuck/meshlink/internal/protocol/session"
	"github.com/danmuck/meshlink/internal/testutil/bridgetest"
	"github.com/danmuck/meshlink/internal/testutil/testlog"
	"github.com/rs/zerolog"
)

func newInterface(t *testing.T, r *Router, name string, peer *bridgetest.Peer) *link.Interface {
	t.Helper()
	sess := session.DefaultConfig()
	sess.ConnectTimeout = 500 * time.Millisecond
	sess.ReadTimeout = 50 * time.Millisecond
	sess.Backoff.InitialDelay = 100 * time.Millisecond
	cfg := link.Config{Name: name, Session: sess}
	if peer != nil {
		cfg.Host = peer.Host()
		cfg.Port = peer.Port()
	}
	iface, err := link.New(cfg, r)
	if err != nil {
		t.Fatalf("new interface %s: %v", name, err)
	}
	if err := r.Register(iface); err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	t.Cleanup(iface.Detach)
	return iface
}

func waitOnline(t *testing.T, iface *link.Interface) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if iface.Online() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%s never came online", iface)
}

func TestRegisterRejectsDuplicatesAndNil(t *testing.T) {
	testlog.Start(t)
	r := New(zerolog.Nop())
	newInterface(t, r, "alpha", nil)

	dup, err := link.New(link.Config{Name: "alpha"}, r)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := r.Register(dup); !errors.Is(err, ErrInterfaceExists) {
		t.Fatalf("expected ErrInterfaceExists, got %v", err)
	}
	if err := r.Register(nil); !errors.Is(err, ErrInterfaceNil) {
		t.Fatalf("expected ErrInterfaceNil, got %v", err)
	}
}

func TestGetAllUnregister(t *testing.T) {
	testlog.Start(t)
	r := New(zerolog.Nop())
	newInterface(t, r, "zulu", nil)
	newInterface(t, r, "alpha", nil)

	all := r.All()
	if len(all) != 2 || all[0].Name() != "alpha" || all[1].Name() != "zulu" {
		t.Fatalf("unexpected order: %v", all)
	}
	if _, ok := r.Get("zulu"); !ok {
		t.Fatalf("zulu missing")
	}
	if _, ok := r.Unregister("zulu"); !ok {
		t.Fatalf("unregister zulu failed")
	}
	if _, ok := r.Get("zulu"); ok {
		t.Fatalf("zulu still registered")
	}
	statuses := r.Statuses()
	if len(statuses) != 1 || statuses[0].Name != "alpha" {
		t.Fatalf("unexpected statuses: %+v", statuses)
	}
}

func TestTransmitUnknownInterface(t *testing.T) {
	testlog.Start(t)
	r := New(zerolog.Nop())
	if err := r.Transmit("ghost", []byte("x")); !errors.Is(err, ErrUnknownInterface) {
		t.Fatalf("expected ErrUnknownInterface, got %v", err)
	}
}

func TestTransmitAndHandlersInOrder(t *testing.T) {
	testlog.Start(t)
	peer := bridgetest.NewPeer(t)
	r := New(zerolog.Nop())
	iface := newInterface(t, r, "bridge", peer)

	var mu sync.Mutex
	var calls []string
	done := make(chan struct{})
	r.Handle(func(payload []byte, from *link.Interface) {
		mu.Lock()
		calls = append(calls, "first:"+string(payload))
		mu.Unlock()
	})
	r.Handle(func(payload []byte, from *link.Interface) {
		mu.Lock()
		calls = append(calls, "second:"+from.Name())
		mu.Unlock()
		close(done)
	})

	if err := r.StartAll(); err != nil {
		t.Fatalf("start all: %v", err)
	}
	conn := peer.Next(t, 2*time.Second)
	waitOnline(t, iface)

	if err := r.Transmit("bridge", []byte("out")); err != nil {
		t.Fatalf("transmit: %v", err)
	}
	if got := conn.ReadFrame(t, time.Second); string(got) != "out" {
		t.Fatalf("peer got=%q", got)
	}

	conn.WriteFrame(t, []byte("in"))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("handlers not invoked")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 2 || calls[0] != "first:in" || calls[1] != "second:bridge" {
		t.Fatalf("unexpected handler calls: %v", calls)
	}
	in, out, _ := r.Counters()
	if in != 1 || out != 1 {
		t.Fatalf("counters in=%d out=%d", in, out)
	}
}

func TestLoopbackEchoes(t *testing.T) {
	testlog.Start(t)
	peer := bridgetest.NewPeer(t)
	r := New(zerolog.Nop())
	iface := newInterface(t, r, "echo", peer)
	r.Handle(r.Loopback())
	if err := r.StartAll(); err != nil {
		t.Fatalf("start all: %v", err)
	}
	conn := peer.Next(t, 2*time.Second)
	waitOnline(t, iface)

	conn.WriteFrame(t, []byte("ping"))
	if got := conn.ReadFrame(t, 2*time.Second); string(got) != "ping" {
		t.Fatalf("echo got=%q", got)
	}
}

func TestBroadcastSkipsExceptAndOffline(t *testing.T) {
	testlog.Start(t)
	peerA := bridgetest.NewPeer(t)
	peerB := bridgetest.NewPeer(t)
	r := New(zerolog.Nop())
	a := newInterface(t, r, "a", peerA)
	b := newInterface(t, r, "b", peerB)
	newInterface(t, r, "offline", nil)

	if err := a.Start(); err != nil {
		t.Fatalf("start a: %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("start b: %v", err)
	}
	connA := peerA.Next(t, 2*time.Second)
	connB := peerB.Next(t, 2*time.Second)
	waitOnline(t, a)
	waitOnline(t, b)
	if r.Online() != 2 {
		t.Fatalf("online got=%d", r.Online())
	}

	sent, err := r.Broadcast([]byte("all"), "")
	if err != nil || sent != 2 {
		t.Fatalf("broadcast sent=%d err=%v", sent, err)
	}
	if got := connA.ReadFrame(t, time.Second); string(got) != "all" {
		t.Fatalf("a got=%q", got)
	}
	if got := connB.ReadFrame(t, time.Second); string(got) != "all" {
		t.Fatalf("b got=%q", got)
	}

	sent, err = r.Broadcast([]byte("not-a"), "a")
	if err != nil || sent != 1 {
		t.Fatalf("broadcast sent=%d err=%v", sent, err)
	}
	if got := connB.ReadFrame(t, time.Second); string(got) != "not-a" {
		t.Fatalf("b got=%q", got)
	}
	connA.ExpectNoData(t, 100*time.Millisecond)
}

func TestDetachAll(t *testing.T) {
	testlog.Start(t)
	peer := bridgetest.NewPeer(t)
	r := New(zerolog.Nop())
	iface := newInterface(t, r, "bridge", peer)
	if err := r.StartAll(); err != nil {
		t.Fatalf("start all: %v", err)
	}
	peer.Next(t, 2*time.Second)
	waitOnline(t, iface)

	r.DetachAll()
	select {
	case <-iface.Done():
	default:
		t.Fatalf("interface not detached")
	}
	if r.Online() != 0 {
		t.Fatalf("online after detach: %d", r.Online())
	}
}
