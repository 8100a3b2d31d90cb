package link

import (
	"time"

	"github.com/danmuck/meshlink/internal/protocol/frame"
)

// Outgoing frames payload and writes it to the live connection.
//
// Oversized payloads fail with *ProtocolError before anything is written.
// Every other outcome returns nil: with no connection the payload is dropped,
// and a failed write drops it and tears the connection down for the
// supervisor to replace.
func (i *Interface) Outgoing(payload []byte) error {
	if len(payload) > frame.MaxPayloadLen {
		return &ProtocolError{Len: len(payload)}
	}
	if i.writeFrame(payload) {
		i.stats.txBytes.Add(uint64(len(payload)))
		i.stats.txFrames.Add(1)
		i.metrics.Sent(len(payload))
	}
	return nil
}

// SendKeepalive writes a zero-length frame. Keepalives carry no payload bytes.
func (i *Interface) SendKeepalive() {
	i.writeFrame(nil)
}

// writeFrame frames payload onto the live connection under the write lock
// and reports whether the whole frame reached the socket.
func (i *Interface) writeFrame(payload []byte) bool {
	i.writeMu.Lock()
	defer i.writeMu.Unlock()

	c := i.current()
	if c == nil || c.closed() {
		i.drop()
		i.logger.Debug().Int("len", len(payload)).Msg("offline, outbound frame dropped")
		return false
	}

	var err error
	if wt := i.cfg.Session.WriteTimeout; wt > 0 {
		err = c.SetWriteDeadline(time.Now().Add(wt))
	}
	if err == nil {
		err = frame.WriteFrame(c, payload)
	}
	if err != nil {
		i.drop()
		fault := &StreamFault{Op: "write", Err: err}
		if i.teardown(c, fault) && !i.isShutdown() {
			i.logger.Warn().
				Uint64("conn", c.id).
				Int("wire_len", frame.Size(len(payload))).
				Err(fault).
				Msg("write failed, reconnecting")
		}
		return false
	}
	return true
}

func (i *Interface) drop() {
	i.stats.dropped.Add(1)
	i.metrics.Dropped()
}
