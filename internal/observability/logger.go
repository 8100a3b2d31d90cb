package observability

import (
	"github.com/danmuck/meshlink/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger applies the runtime logging profile and tags the global logger
// with app.
func InitLogger(app string) zerolog.Logger {
	logging.ConfigureRuntime()
	logger := log.Logger.With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

// InterfaceLogger derives a logger scoped to one bridge interface.
func InterfaceLogger(base zerolog.Logger, name, addr string) zerolog.Logger {
	return base.With().Str("iface", name).Str("addr", addr).Logger()
}
