package link

import (
	"context"
	"net"
	"time"

	"github.com/danmuck/meshlink/internal/observability"
	"github.com/danmuck/meshlink/internal/protocol/session"
)

// supervise is the connect/retry loop. It is the only code that creates a
// connection, and it never dials while a previous reader is still running.
func (i *Interface) supervise() {
	defer i.wg.Done()

	attempt := 0
	connectedOnce := false
	for {
		if i.isShutdown() {
			return
		}

		attempt++
		i.setState(StateConnecting)
		c, err := i.open(i.ctx, attempt)
		if err != nil {
			if i.isShutdown() {
				return
			}
			i.setState(StateDisconnected)
			i.stats.connectFailures.Add(1)
			i.recordError(err)
			delay := session.NextBackoffDelay(i.cfg.Session.Backoff, attempt, i.rng)
			i.logger.Warn().
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(err).
				Msg("connect failed, retrying")
			if session.Wait(i.ctx, delay) != nil {
				return
			}
			continue
		}

		attempt = 0
		if connectedOnce {
			i.stats.reconnects.Add(1)
		}
		connectedOnce = true
		i.bind(c)

		select {
		case <-c.done:
		case <-i.shutdown:
			i.teardown(c, ErrDetached)
		}
		<-c.readerDone
		i.setState(StateDisconnected)

		if i.isShutdown() {
			return
		}
		delay := i.cfg.Session.ReconnectDelay()
		i.logger.Warn().
			Uint64("conn", c.id).
			Dur("delay", delay).
			Err(c.err).
			Msg("connection lost, reconnecting")
		if session.Wait(i.ctx, delay) != nil {
			return
		}
	}
}

// open dials the bridge once within ConnectTimeout.
func (i *Interface) open(ctx context.Context, attempt int) (*linkConn, error) {
	addr := i.cfg.Address()
	ctx, span := observability.StartConnectSpan(ctx, i.tracer, i.cfg.Name, addr, attempt)

	dialCtx, cancel := context.WithTimeout(ctx, i.cfg.Session.ConnectTimeout)
	defer cancel()

	conn, err := i.dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		err = &ConnectError{Addr: addr, Attempt: attempt, Err: err}
		observability.EndSpan(span, err)
		i.metrics.ConnectResult(err)
		return nil, err
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(i.cfg.Session.NoDelay); err != nil {
			i.logger.Debug().Err(err).Msg("set TCP_NODELAY failed")
		}
	}
	observability.EndSpan(span, nil)
	i.metrics.ConnectResult(nil)
	return newLinkConn(conn, i.connID.Add(1)), nil
}

// bind publishes c as the live connection and starts its reader. A Detach
// that raced the dial is honored here.
func (i *Interface) bind(c *linkConn) {
	i.connMu.Lock()
	i.conn = c
	i.setOnline(true)
	i.connMu.Unlock()

	i.setState(StateConnected)
	i.recordConnected(time.Now())
	i.logger.Info().Uint64("conn", c.id).Msg("connected")

	go i.readLoop(c)

	if i.isShutdown() {
		i.teardown(c, ErrDetached)
	}
}
