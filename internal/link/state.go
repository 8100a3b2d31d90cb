package link

import (
	"sync/atomic"
	"time"
)

// State is the supervisor's view of the connection lifecycle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// counters are advisory; exact values may race with in-flight I/O.
type counters struct {
	rxBytes         atomic.Uint64
	txBytes         atomic.Uint64
	rxFrames        atomic.Uint64
	txFrames        atomic.Uint64
	keepalives      atomic.Uint64
	dropped         atomic.Uint64
	reconnects      atomic.Uint64
	connectFailures atomic.Uint64
}

// Status is a point-in-time snapshot of one interface.
type Status struct {
	Name            string     `json:"name"`
	Address         string     `json:"address"`
	State           string     `json:"state"`
	Online          bool       `json:"online"`
	RxBytes         uint64     `json:"rx_bytes"`
	TxBytes         uint64     `json:"tx_bytes"`
	RxFrames        uint64     `json:"rx_frames"`
	TxFrames        uint64     `json:"tx_frames"`
	Keepalives      uint64     `json:"keepalives"`
	Dropped         uint64     `json:"dropped"`
	Reconnects      uint64     `json:"reconnects"`
	ConnectFailures uint64     `json:"connect_failures"`
	MTU             int        `json:"mtu"`
	Bitrate         int        `json:"bitrate"`
	ConnectedAt     *time.Time `json:"connected_at,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
}

func (i *Interface) Online() bool {
	return i.online.Load()
}

func (i *Interface) State() State {
	return State(i.state.Load())
}

func (i *Interface) RxBytes() uint64 { return i.stats.rxBytes.Load() }

func (i *Interface) TxBytes() uint64 { return i.stats.txBytes.Load() }

func (i *Interface) Status() Status {
	st := Status{
		Name:            i.cfg.Name,
		Address:         i.cfg.Address(),
		State:           i.State().String(),
		Online:          i.Online(),
		RxBytes:         i.stats.rxBytes.Load(),
		TxBytes:         i.stats.txBytes.Load(),
		RxFrames:        i.stats.rxFrames.Load(),
		TxFrames:        i.stats.txFrames.Load(),
		Keepalives:      i.stats.keepalives.Load(),
		Dropped:         i.stats.dropped.Load(),
		Reconnects:      i.stats.reconnects.Load(),
		ConnectFailures: i.stats.connectFailures.Load(),
		MTU:             i.cfg.Session.MTU,
		Bitrate:         i.cfg.Session.Bitrate,
	}
	i.statusMu.Lock()
	if !i.connectedAt.IsZero() {
		at := i.connectedAt
		st.ConnectedAt = &at
	}
	st.LastError = i.lastErr
	i.statusMu.Unlock()
	return st
}

func (i *Interface) setOnline(online bool) {
	i.online.Store(online)
	i.metrics.SetOnline(online)
}

func (i *Interface) setState(s State) {
	i.state.Store(int32(s))
}

func (i *Interface) recordConnected(at time.Time) {
	i.statusMu.Lock()
	i.connectedAt = at
	i.statusMu.Unlock()
}

func (i *Interface) recordError(err error) {
	if err == nil {
		return
	}
	i.statusMu.Lock()
	i.lastErr = err.Error()
	i.statusMu.Unlock()
}
