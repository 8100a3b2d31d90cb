package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/meshlink/internal/config"
)

type fileConfig struct {
	Name        string                   `toml:"name"`
	StatusAddr  string                   `toml:"status_addr"`
	CorsOrigins []string                 `toml:"cors_origins"`
	Loopback    bool                     `toml:"loopback"`
	Interfaces  []config.InterfaceConfig `toml:"interfaces"`
}

// flagOverrides holds command-line values; only flags the user changed apply.
type flagOverrides struct {
	Host       string
	Port       int
	StatusAddr string
	Loopback   bool
}

// loadRunConfig overlays the keys defined in path onto the daemon defaults.
func loadRunConfig(path string) (config.DaemonConfig, error) {
	cfg := config.DefaultDaemonConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.DaemonConfig{}, fmt.Errorf("load meshlink config: %w", err)
	}

	if meta.IsDefined("name") {
		if name := strings.TrimSpace(raw.Name); name != "" {
			cfg.Name = name
		}
	}
	if meta.IsDefined("status_addr") {
		cfg.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}
	if meta.IsDefined("loopback") {
		cfg.Loopback = raw.Loopback
	}
	if meta.IsDefined("interfaces") {
		cfg.Interfaces = raw.Interfaces
	}

	cfg = cfg.WithDefaults()
	if err := config.ValidateDaemonConfig(cfg); err != nil {
		return config.DaemonConfig{}, err
	}
	return cfg, nil
}

// applyFlags overlays changed flags. --host and --port target the single
// enabled interface and are rejected when there is more than one.
func applyFlags(cfg *config.DaemonConfig, flags flagOverrides, changed map[string]bool) error {
	if changed["status-addr"] {
		cfg.StatusAddr = strings.TrimSpace(flags.StatusAddr)
	}
	if changed["loopback"] {
		cfg.Loopback = flags.Loopback
	}
	if !changed["host"] && !changed["port"] {
		return nil
	}

	target := -1
	for i, iface := range cfg.Interfaces {
		if !iface.IsEnabled() {
			continue
		}
		if target >= 0 {
			return fmt.Errorf("--host/--port need exactly one enabled interface, config has several")
		}
		target = i
	}
	if target < 0 {
		cfg.Interfaces = append(cfg.Interfaces, config.DefaultInterface())
		target = len(cfg.Interfaces) - 1
	}
	if changed["host"] {
		cfg.Interfaces[target].Host = strings.TrimSpace(flags.Host)
	}
	if changed["port"] {
		cfg.Interfaces[target].Port = flags.Port
	}
	return config.ValidateDaemonConfig(*cfg)
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		if v := strings.TrimSpace(origin); v != "" {
			out = append(out, v)
		}
	}
	return out
}
