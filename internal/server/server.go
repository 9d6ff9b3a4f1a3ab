// Package server exposes the published prayer state over a small read-mostly
// HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/salah-times/internal/cache"
	"github.com/smokyabdulrahman/salah-times/internal/clock"
	"github.com/smokyabdulrahman/salah-times/internal/geo"
	"github.com/smokyabdulrahman/salah-times/internal/prayer"
	"github.com/smokyabdulrahman/salah-times/internal/refresh"
)

// Coordinator is the part of refresh.Coordinator the API drives.
type Coordinator interface {
	Snapshot() refresh.Snapshot
	Phase() refresh.Phase
	SetLocation(ctx context.Context, loc geo.Location) cache.Verdict
}

// Clock is the part of clock.Clock the API reads and configures.
type Clock interface {
	Latest() (clock.State, bool)
	Tick() clock.State
	IqamaDelays() prayer.IqamaDelays
	SetIqamaDelays(d prayer.IqamaDelays)
}

// Server bundles router and dependencies for the state API.
type Server struct {
	addr   string
	coord  Coordinator
	clock  Clock
	logger zerolog.Logger
	engine *gin.Engine

	// bg outlives requests; refreshes started by a location change run on it.
	bg context.Context
}

// New constructs a server with routes and middleware. bg scopes the
// background refreshes started through the API.
func New(bg context.Context, addr string, coord Coordinator, clk Clock, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	s := &Server{addr: addr, coord: coord, clock: clk, logger: logger, engine: engine, bg: bg}
	s.registerRoutes()
	return s
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("state API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	v1 := s.engine.Group("/v1")
	v1.GET("/today", s.handleToday)
	v1.GET("/state", s.handleState)
	v1.GET("/locations", s.handleLocations)
	v1.PUT("/location/:key", s.handleSetLocation)
	v1.GET("/iqama", s.handleGetIqama)
	v1.PUT("/iqama", s.handleSetIqama)
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}
