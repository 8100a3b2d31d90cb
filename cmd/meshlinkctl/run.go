package main

import (
	"context"
	"fmt"

	"github.com/danmuck/meshlink/internal/config"
	"github.com/danmuck/meshlink/internal/link"
	"github.com/danmuck/meshlink/internal/observability"
	"github.com/danmuck/meshlink/internal/router"
	"github.com/danmuck/meshlink/internal/status"
	"github.com/rs/zerolog"
)

// daemon is one running meshlink process: a router, its links and the
// optional status server.
type daemon struct {
	cfg    config.DaemonConfig
	logger zerolog.Logger
	links  *router.Router
	status *status.Server
}

func newDaemon(cfg config.DaemonConfig, logger zerolog.Logger) (*daemon, error) {
	observability.RegisterMetrics()
	links := router.New(logger)
	if cfg.Loopback {
		links.Handle(links.Loopback())
	}

	enabled := cfg.EnabledInterfaces()
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no enabled interfaces configured")
	}
	for _, entry := range enabled {
		lc := entry.LinkConfig()
		iface, err := link.New(lc, links,
			link.WithLogger(observability.InterfaceLogger(logger, lc.Name, lc.Address())),
			link.WithMetrics(observability.NewLinkMetrics(lc.Name)),
		)
		if err != nil {
			return nil, fmt.Errorf("interface %q: %w", entry.Name, err)
		}
		if err := links.Register(iface); err != nil {
			return nil, err
		}
	}

	d := &daemon{cfg: cfg, logger: logger, links: links}
	if cfg.StatusAddr != "" {
		d.status = status.New(cfg.Name, links, cfg.CorsOrigins)
	}
	return d, nil
}

// run starts every link and blocks until ctx is done, then detaches them.
func (d *daemon) run(ctx context.Context) error {
	if err := d.links.StartAll(); err != nil {
		d.links.DetachAll()
		return err
	}

	var statusErr chan error
	if d.status != nil {
		statusErr = make(chan error, 1)
		go func() {
			statusErr <- d.status.Serve(ctx, d.cfg.StatusAddr)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-statusErr:
		if err != nil {
			err = fmt.Errorf("status server: %w", err)
		}
	}

	d.logger.Info().Msg("shutting down interfaces")
	d.links.DetachAll()
	if statusErr != nil && ctx.Err() != nil {
		err = <-statusErr
	}
	in, out, _ := d.links.Counters()
	d.logger.Info().Uint64("inbound", in).Uint64("outbound", out).Msg("meshlink stopped")
	return err
}
