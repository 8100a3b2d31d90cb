package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidTimeout = errors.New("session: invalid timeout")
	ErrInvalidBackoff = errors.New("session: invalid backoff")
	ErrInvalidMTU     = errors.New("session: invalid mtu")
	ErrInvalidBitrate = errors.New("session: invalid bitrate")
)

const (
	DefaultMTU      = 512
	DefaultBitrate  = 2000
	DefaultIFACSize = 8
	maxMTU          = 0xFFFF
)

// BackoffConfig defines the delay between reconnect attempts.
// Multiplier 1.0 without jitter yields a fixed InitialDelay.
// A zero InitialDelay is unset and WithDefaults replaces it with 3s.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines link timing and advisory metadata for the owning router.
type Config struct {
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	KeepAlivePeriod time.Duration
	NoDelay         bool
	Backoff         BackoffConfig

	// Advisory only; the framing engine does not enforce these.
	MTU      int
	Bitrate  int
	IFACSize int
}

// DefaultConfig returns the bridge interface defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:  8 * time.Second,
		ReadTimeout:     time.Second,
		WriteTimeout:    0,
		KeepAlivePeriod: 30 * time.Second,
		NoDelay:         true,
		Backoff: BackoffConfig{
			InitialDelay: 3 * time.Second,
			Multiplier:   1.0,
			MaxDelay:     0,
			Jitter:       false,
		},
		MTU:      DefaultMTU,
		Bitrate:  DefaultBitrate,
		IFACSize: DefaultIFACSize,
	}
}

// WithDefaults fills zero-valued fields from DefaultConfig.
// NoDelay and WriteTimeout are kept as given.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.KeepAlivePeriod == 0 {
		c.KeepAlivePeriod = def.KeepAlivePeriod
	}
	if c.Backoff.InitialDelay == 0 {
		c.Backoff.InitialDelay = def.Backoff.InitialDelay
	}
	if c.Backoff.Multiplier == 0 {
		c.Backoff.Multiplier = def.Backoff.Multiplier
	}
	if c.MTU == 0 {
		c.MTU = def.MTU
	}
	if c.Bitrate == 0 {
		c.Bitrate = def.Bitrate
	}
	if c.IFACSize == 0 {
		c.IFACSize = def.IFACSize
	}
	return c
}

// ReconnectDelay is the wait before the first reconnect attempt.
func (c Config) ReconnectDelay() time.Duration {
	return c.Backoff.InitialDelay
}

func (c Config) Validate() error {
	if c.ConnectTimeout < 0 {
		return fmt.Errorf("%w: connect_timeout=%v", ErrInvalidTimeout, c.ConnectTimeout)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("%w: read_timeout=%v", ErrInvalidTimeout, c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("%w: write_timeout=%v", ErrInvalidTimeout, c.WriteTimeout)
	}
	if c.KeepAlivePeriod < 0 {
		return fmt.Errorf("%w: keepalive_period=%v", ErrInvalidTimeout, c.KeepAlivePeriod)
	}
	if c.Backoff.InitialDelay < 0 || c.Backoff.MaxDelay < 0 {
		return fmt.Errorf("%w: negative delay", ErrInvalidBackoff)
	}
	if c.Backoff.Multiplier < 0 {
		return fmt.Errorf("%w: multiplier=%v", ErrInvalidBackoff, c.Backoff.Multiplier)
	}
	if c.MTU < 1 || c.MTU > maxMTU {
		return fmt.Errorf("%w: %d", ErrInvalidMTU, c.MTU)
	}
	if c.Bitrate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBitrate, c.Bitrate)
	}
	return nil
}

// Seconds converts a fractional seconds value from config files.
func Seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
