package link

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/danmuck/meshlink/internal/protocol/session"
)

const (
	DefaultName = "MeshCore Interface"
	DefaultHost = "127.0.0.1"
	DefaultPort = 9000
)

// Config is immutable once handed to New.
type Config struct {
	Name    string
	Host    string
	Port    int
	Session session.Config
}

func DefaultConfig() Config {
	return Config{
		Name:    DefaultName,
		Host:    DefaultHost,
		Port:    DefaultPort,
		Session: session.DefaultConfig(),
	}
}

func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = DefaultName
	}
	if strings.TrimSpace(c.Host) == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	c.Session = c.Session.WithDefaults()
	return c
}

func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidConfig)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
