package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultName           = "meshlink"
	DefaultStatusAddr     = "127.0.0.1:7080"
	DefaultInterfaceName  = "MeshCore Interface"
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 9000
	DefaultConnectTimeout = 8.0
	DefaultReconnectDelay = 3.0
	DefaultReadTimeout    = 1.0
	DefaultMTU            = 512
	DefaultBitrate        = 2000
)

var ErrInvalidConfig = errors.New("config: invalid")

// DaemonConfig is the meshlinkctl configuration file.
type DaemonConfig struct {
	Name        string            `toml:"name"`
	StatusAddr  string            `toml:"status_addr"`
	CorsOrigins []string          `toml:"cors_origins"`
	Loopback    bool              `toml:"loopback"`
	Interfaces  []InterfaceConfig `toml:"interfaces"`
}

// InterfaceConfig is one [[interfaces]] entry. Durations are in seconds and
// a zero duration selects the default, so reconnect_delay = 0 means 3s.
// Enabled is a pointer so an omitted key can default to true.
type InterfaceConfig struct {
	Name           string  `toml:"name"`
	Enabled        *bool   `toml:"enabled"`
	Host           string  `toml:"host"`
	Port           int     `toml:"port"`
	ConnectTimeout float64 `toml:"connect_timeout"`
	ReconnectDelay float64 `toml:"reconnect_delay"`
	ReadTimeout    float64 `toml:"read_timeout"`
	MTU            int     `toml:"mtu"`
	Bitrate        int     `toml:"bitrate"`
}

// DefaultInterface returns an enabled entry pointed at the local bridge.
func DefaultInterface() InterfaceConfig {
	enabled := true
	return InterfaceConfig{
		Name:           DefaultInterfaceName,
		Enabled:        &enabled,
		Host:           DefaultHost,
		Port:           DefaultPort,
		ConnectTimeout: DefaultConnectTimeout,
		ReconnectDelay: DefaultReconnectDelay,
		ReadTimeout:    DefaultReadTimeout,
		MTU:            DefaultMTU,
		Bitrate:        DefaultBitrate,
	}
}

// DefaultDaemonConfig returns a daemon with one default interface.
func DefaultDaemonConfig() DaemonConfig {
	return DaemonConfig{
		Name:       DefaultName,
		StatusAddr: DefaultStatusAddr,
		Interfaces: []InterfaceConfig{DefaultInterface()},
	}
}

func LoadDaemonConfig(path string) (DaemonConfig, error) {
	var cfg DaemonConfig
	if err := loadToml(path, &cfg); err != nil {
		return DaemonConfig{}, err
	}
	cfg = cfg.WithDefaults()
	if err := ValidateDaemonConfig(cfg); err != nil {
		return DaemonConfig{}, err
	}
	return cfg, nil
}

// WithDefaults fills unset daemon and interface fields. A file with no
// [[interfaces]] gets none; the CLI decides whether that is an error.
func (c DaemonConfig) WithDefaults() DaemonConfig {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = DefaultName
	}
	ifaces := make([]InterfaceConfig, len(c.Interfaces))
	for i, iface := range c.Interfaces {
		ifaces[i] = iface.WithDefaults()
	}
	c.Interfaces = ifaces
	return c
}

func (c InterfaceConfig) WithDefaults() InterfaceConfig {
	def := DefaultInterface()
	if strings.TrimSpace(c.Name) == "" {
		c.Name = def.Name
	}
	if c.Enabled == nil {
		c.Enabled = def.Enabled
	}
	if strings.TrimSpace(c.Host) == "" {
		c.Host = def.Host
	}
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = def.ReconnectDelay
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.MTU == 0 {
		c.MTU = def.MTU
	}
	if c.Bitrate == 0 {
		c.Bitrate = def.Bitrate
	}
	return c
}

// IsEnabled treats a missing enabled key as true.
func (c InterfaceConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// EnabledInterfaces returns the entries the daemon should run.
func (c DaemonConfig) EnabledInterfaces() []InterfaceConfig {
	out := make([]InterfaceConfig, 0, len(c.Interfaces))
	for _, iface := range c.Interfaces {
		if iface.IsEnabled() {
			out = append(out, iface)
		}
	}
	return out
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateDaemonConfig(cfg DaemonConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("%w: daemon config missing name", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(cfg.Interfaces))
	for i, iface := range cfg.Interfaces {
		if err := ValidateInterface(iface); err != nil {
			return fmt.Errorf("interfaces[%d] invalid: %w", i, err)
		}
		if _, ok := seen[iface.Name]; ok {
			return fmt.Errorf("%w: interfaces[%d] duplicate name %q", ErrInvalidConfig, i, iface.Name)
		}
		seen[iface.Name] = struct{}{}
	}
	return nil
}

func ValidateInterface(cfg InterfaceConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, cfg.Port)
	}
	if cfg.ConnectTimeout < 0 || cfg.ReconnectDelay < 0 || cfg.ReadTimeout < 0 {
		return fmt.Errorf("%w: timeouts must be non-negative", ErrInvalidConfig)
	}
	if cfg.MTU < 0 || cfg.Bitrate < 0 {
		return fmt.Errorf("%w: mtu and bitrate must be non-negative", ErrInvalidConfig)
	}
	return nil
}
