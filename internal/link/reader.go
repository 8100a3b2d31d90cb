package link

import (
	"github.com/danmuck/meshlink/internal/protocol/frame"
)

// readLoop parses frames off c until it faults and delivers each non-empty
// payload synchronously. It never reconnects.
func (i *Interface) readLoop(c *linkConn) {
	defer close(c.readerDone)

	r := &deadlineReader{conn: c, timeout: i.cfg.Session.ReadTimeout}
	for {
		payload, err := frame.ReadFrame(r)
		if err != nil {
			fault := &StreamFault{Op: "read", Err: err}
			if i.teardown(c, fault) && !i.isShutdown() {
				i.logger.Warn().Uint64("conn", c.id).Err(fault).Msg("reader stopped")
			}
			return
		}
		if len(payload) == 0 {
			i.stats.keepalives.Add(1)
			i.metrics.Keepalive()
			continue
		}

		i.stats.rxBytes.Add(uint64(len(payload)))
		i.stats.rxFrames.Add(1)
		i.metrics.Received(len(payload))
		i.delivering.Store(true)
		i.owner.Inbound(payload, i)
		i.delivering.Store(false)
	}
}
