package link

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/meshlink/internal/protocol/frame"
	"github.com/danmuck/meshlink/internal/testutil/bridgetest"
	"github.com/danmuck/meshlink/internal/testutil/testlog"
)

func TestNewRequiresOwner(t *testing.T) {
	testlog.Start(t)
	if _, err := New(DefaultConfig(), nil); !errors.Is(err, ErrOwnerRequired) {
		t.Fatalf("expected ErrOwnerRequired, got %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.Port = 70000
	if _, err := New(cfg, newRecorder()); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	testlog.Start(t)
	cfg := Config{}.WithDefaults()
	if cfg.Address() != "127.0.0.1:9000" {
		t.Fatalf("unexpected address: %q", cfg.Address())
	}
	if cfg.Session.ConnectTimeout != 8*time.Second || cfg.Session.ReconnectDelay() != 3*time.Second {
		t.Fatalf("unexpected session defaults: %+v", cfg.Session)
	}
	if cfg.Session.MTU != 512 || cfg.Session.Bitrate != 2000 {
		t.Fatalf("unexpected advisory defaults: mtu=%d bitrate=%d", cfg.Session.MTU, cfg.Session.Bitrate)
	}
}

func TestInterfaceMetadata(t *testing.T) {
	testlog.Start(t)
	iface, err := New(Config{Name: "MeshCore Interface"}, newRecorder())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := iface.String(); got != "MeshCoreInterface[MeshCore Interface]" {
		t.Fatalf("unexpected string: %q", got)
	}
	if iface.ShouldIngressLimit() {
		t.Fatalf("ingress limiting must be off")
	}
	if iface.MTU() != 512 || iface.Bitrate() != 2000 || iface.IFACSize() != 8 {
		t.Fatalf("unexpected metadata mtu=%d bitrate=%d ifac=%d", iface.MTU(), iface.Bitrate(), iface.IFACSize())
	}
	if iface.Online() || iface.State() != StateDisconnected {
		t.Fatalf("new interface must start offline, state=%s", iface.State())
	}
}

func TestHelloEndToEnd(t *testing.T) {
	testlog.Start(t)
	peer := bridgetest.NewPeer(t)
	rec := newRecorder()
	iface := startInterface(t, peerConfig(peer), rec)

	conn := peer.Next(t, 2*time.Second)
	waitFor(t, time.Second, "online", iface.Online)

	if err := iface.Outgoing([]byte("hello")); err != nil {
		t.Fatalf("outgoing: %v", err)
	}
	wire := conn.ReadRaw(t, 7, time.Second)
	want := []byte{0x00, 0x05, 0x68, 0x65, 0x6c, 0x6c, 0x6f}
	if !bytes.Equal(wire, want) {
		t.Fatalf("wire bytes got=% x want=% x", wire, want)
	}
	if iface.TxBytes() != 5 {
		t.Fatalf("tx bytes got=%d want=5", iface.TxBytes())
	}

	conn.WriteRaw(t, want)
	got := rec.next(t, time.Second)
	if string(got) != "hello" {
		t.Fatalf("inbound got=%q", got)
	}
	if iface.RxBytes() != 5 {
		t.Fatalf("rx bytes got=%d want=5", iface.RxBytes())
	}
	rec.mu.Lock()
	owner := rec.ifaces[0]
	rec.mu.Unlock()
	if owner != iface {
		t.Fatalf("inbound delivered with wrong interface handle")
	}
}

func TestZeroLengthFramesAreConsumed(t *testing.T) {
	testlog.Start(t)
	peer := bridgetest.NewPeer(t)
	rec := newRecorder()
	iface := startInterface(t, peerConfig(peer), rec)
	conn := peer.Next(t, 2*time.Second)

	conn.WriteFrame(t, nil)
	conn.WriteFrame(t, []byte("a"))
	conn.WriteFrame(t, []byte{})
	conn.WriteFrame(t, []byte{})
	conn.WriteFrame(t, []byte("bc"))

	if got := rec.next(t, time.Second); string(got) != "a" {
		t.Fatalf("first payload got=%q", got)
	}
	if got := rec.next(t, time.Second); string(got) != "bc" {
		t.Fatalf("second payload got=%q", got)
	}
	rec.expectNone(t, 100*time.Millisecond)

	st := iface.Status()
	if st.Keepalives != 3 || st.RxFrames != 2 || st.RxBytes != 3 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestInboundOrdering(t *testing.T) {
	testlog.Start(t)
	peer := bridgetest.NewPeer(t)
	rec := newRecorder()
	startInterface(t, peerConfig(peer), rec)
	conn := peer.Next(t, 2*time.Second)

	// One write carrying three frames exercises reassembly across a single segment.
	var buf bytes.Buffer
	for _, p := range []string{"p1", "p2", "p3"} {
		if err := frame.WriteFrame(&buf, []byte(p)); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	conn.WriteRaw(t, buf.Bytes())

	for _, want := range []string{"p1", "p2", "p3"} {
		if got := rec.next(t, time.Second); string(got) != want {
			t.Fatalf("got=%q want=%q", got, want)
		}
	}
}

func TestInboundFrameSplitAcrossReadTimeouts(t *testing.T) {
	testlog.Start(t)
	peer := bridgetest.NewPeer(t)
	rec := newRecorder()
	startInterface(t, peerConfig(peer), rec)
	conn := peer.Next(t, 2*time.Second)

	wire, err := frame.Encode([]byte("slow"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, b := range wire {
		conn.WriteRaw(t, []byte{b})
		time.Sleep(80 * time.Millisecond)
	}
	if got := rec.next(t, time.Second); string(got) != "slow" {
		t.Fatalf("got=%q", got)
	}
}

func TestOutgoingOrdering(t *testing.T) {
	testlog.Start(t)
	peer := bridgetest.NewPeer(t)
	iface := startInterface(t, peerConfig(peer), newRecorder())
	conn := peer.Next(t, 2*time.Second)
	waitFor(t, time.Second, "online", iface.Online)

	for _, p := range []string{"p1", "p2", "p3"} {
		if err := iface.Outgoing([]byte(p)); err != nil {
			t.Fatalf("outgoing %s: %v", p, err)
		}
	}
	for _, want := range []string{"p1", "p2", "p3"} {
		if got := conn.ReadFrame(t, time.Second); string(got) != want {
			t.Fatalf("got=%q want=%q", got, want)
		}
	}
}

func TestStartTwiceAndAfterDetach(t *testing.T) {
	testlog.Start(t)
	peer := bridgetest.NewPeer(t)
	iface := startInterface(t, peerConfig(peer), newRecorder())
	if err := iface.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
	iface.Detach()
	if err := iface.Start(); !errors.Is(err, ErrDetached) {
		t.Fatalf("expected ErrDetached, got %v", err)
	}
}

func TestOwnerFunc(t *testing.T) {
	testlog.Start(t)
	var got []byte
	owner := OwnerFunc(func(p []byte, _ *Interface) { got = p })
	owner.Inbound([]byte("x"), nil)
	if string(got) != "x" {
		t.Fatalf("owner func not invoked")
	}
}
