package config

import (
	"github.com/danmuck/meshlink/internal/link"
	"github.com/danmuck/meshlink/internal/protocol/session"
)

// LinkConfig converts a file entry into the runtime link configuration.
func (c InterfaceConfig) LinkConfig() link.Config {
	sess := session.DefaultConfig()
	if c.ConnectTimeout > 0 {
		sess.ConnectTimeout = session.Seconds(c.ConnectTimeout)
	}
	if c.ReadTimeout > 0 {
		sess.ReadTimeout = session.Seconds(c.ReadTimeout)
	}
	if c.ReconnectDelay > 0 {
		sess.Backoff.InitialDelay = session.Seconds(c.ReconnectDelay)
	}
	if c.MTU > 0 {
		sess.MTU = c.MTU
	}
	if c.Bitrate > 0 {
		sess.Bitrate = c.Bitrate
	}
	return link.Config{
		Name:    c.Name,
		Host:    c.Host,
		Port:    c.Port,
		Session: sess,
	}
}
