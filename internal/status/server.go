// Package status serves interface health and metrics over HTTP.
package status

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/danmuck/meshlink/internal/link"
	"github.com/danmuck/meshlink/internal/node"
	"github.com/danmuck/meshlink/internal/observability"
	"github.com/danmuck/meshlink/internal/protocol/frame"
	"github.com/danmuck/meshlink/internal/router"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const Version = "0.1.0"

// Server is the read-mostly HTTP view over a router.
type Server struct {
	ID       string
	Appeared time.Time

	links  *router.Router
	engine *gin.Engine
}

var _ node.Node = (*Server)(nil)

// New builds the gin engine with logging, metrics and CORS middleware and
// registers every route.
func New(id string, links *router.Router, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		ID:       id,
		Appeared: time.Now(),
		links:    links,
		engine:   r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) NodeID() string { return s.ID }

func (s *Server) Kind() string { return "meshlink" }

func (s *Server) HTTPRouter() *gin.Engine { return s.engine }

// Ready reports whether at least one interface holds a connection.
func (s *Server) Ready() bool { return s.links.Online() > 0 }

func (s *Server) registerRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"node":    s.ID,
			"version": Version,
		})
	})

	s.engine.GET("/ready", func(c *gin.Context) {
		code := http.StatusOK
		if !s.Ready() {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"ready":  code == http.StatusOK,
			"online": s.links.Online(),
			"total":  len(s.links.All()),
			"node":   s.ID,
		})
	})

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine.GET("/interfaces", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"interfaces": s.links.Statuses()})
	})

	s.engine.GET("/interfaces/:name", func(c *gin.Context) {
		iface, ok := s.links.Get(c.Param("name"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": router.ErrUnknownInterface.Error()})
			return
		}
		c.JSON(http.StatusOK, iface.Status())
	})

	s.engine.POST("/interfaces/:name/transmit", func(c *gin.Context) {
		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, frame.MaxPayloadLen+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		name := c.Param("name")
		if err := s.links.Transmit(name, payload); err != nil {
			code := http.StatusInternalServerError
			switch {
			case errors.Is(err, router.ErrUnknownInterface):
				code = http.StatusNotFound
			case errors.Is(err, link.ErrProtocol):
				code = http.StatusRequestEntityTooLarge
			}
			c.JSON(code, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued", "interface": name, "len": len(payload)})
	})
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Info().Str("node", s.ID).Str("addr", ln.Addr().String()).Msg("status server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
