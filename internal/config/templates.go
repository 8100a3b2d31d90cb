package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "daemon":
		return daemonTemplate, nil
	case "bridge":
		return bridgeTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const daemonTemplate = `name = "meshlink"
status_addr = "127.0.0.1:7080"
cors_origins = ["http://localhost:3000"]
loopback = false

[[interfaces]]
name = "MeshCore Interface"
enabled = true
host = "127.0.0.1"
port = 9000
# Durations are seconds. 0 or an omitted key means the default
# (connect 8.0, reconnect 3.0, read 1.0); there is no zero-delay reconnect.
connect_timeout = 8.0
reconnect_delay = 3.0
read_timeout = 1.0
mtu = 512
bitrate = 2000

[[interfaces]]
name = "Field Bridge"
enabled = false
host = "192.168.1.40"
port = 9000
connect_timeout = 8.0
reconnect_delay = 5.0
read_timeout = 1.0
mtu = 512
bitrate = 2000
`

const bridgeTemplate = `name = "meshlink"
status_addr = ""

[[interfaces]]
name = "MeshCore Interface"
host = "127.0.0.1"
port = 9000
`
