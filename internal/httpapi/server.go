// Package httpapi serves the read-mostly tracker status API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/stepamak/pump-tracker/internal/domain"
	"github.com/stepamak/pump-tracker/internal/feed"
	"github.com/stepamak/pump-tracker/internal/health"
	"github.com/stepamak/pump-tracker/internal/observability"
	"github.com/stepamak/pump-tracker/internal/tracker"
)

// Tracker is the part of *tracker.Tracker the API uses.
type Tracker interface {
	Snapshot() tracker.Snapshot
	Clear() error
	Reconnect(ctx context.Context) error
	AddDev(ctx context.Context, kind domain.ListKind, address, note string) (string, error)
}

// PingSource reports the latest health probe. *health.Pinger implements it.
type PingSource interface {
	Last() health.Result
}

// Server provides the HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	tracker Tracker
	ping    PingSource
	logger  *zap.Logger
	addr    string
}

// NewServer creates a server listening on addr. ping may be nil.
func NewServer(t Tracker, ping PingSource, logger *zap.Logger, addr string) (*Server, error) {
	if t == nil {
		return nil, errors.New("tracker cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Debug("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{echo: e, tracker: t, ping: ping, logger: logger, addr: addr}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(observability.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/tokens", s.handleTokens)
	v1.DELETE("/tokens", s.handleClear)
	v1.GET("/stats", s.handleStats)
	v1.POST("/devlists/:kind", s.handleAddDev)
	v1.POST("/reconnect", s.handleReconnect)
}

// ServeHTTP lets the server be mounted or tested without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleTokens(c echo.Context) error {
	snap := s.tracker.Snapshot()
	now := time.Now()
	resp := TokensResponse{
		Seq:      snap.Seq,
		MaxItems: snap.MaxItems,
		Tokens:   make([]TokenView, len(snap.Tokens)),
	}
	for i, tok := range snap.Tokens {
		resp.Tokens[i] = NewTokenView(tok, now)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleClear(c echo.Context) error {
	if err := s.tracker.Clear(); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleStats(c echo.Context) error {
	snap := s.tracker.Snapshot()
	resp := StatsResponse{
		Received:       snap.Stats.Received,
		Parsed:         snap.Stats.Parsed,
		Errors:         snap.Stats.Errors,
		HistoryDropped: snap.Stats.HistoryDropped,
		Rejected:       snap.Stats.Rejected,
		Connected:      snap.Connection.Connected,
		Status:         snap.Connection.Status(),
		SessionID:      snap.Connection.SessionID,
		Buffered:       len(snap.Tokens),
		MaxItems:       snap.MaxItems,
		LastMessage:    snap.LastMessage,
		Ping:           health.Result{}.String(),
	}
	if !snap.Connection.StartedAt.IsZero() {
		started := snap.Connection.StartedAt
		resp.StartedAt = &started
	}
	if s.ping != nil {
		resp.Ping = s.ping.Last().String()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAddDev(c echo.Context) error {
	kind, ok := domain.ParseListKind(strings.ToLower(c.Param("kind")))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "kind must be allow or deny")
	}

	var req AddDevRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid dev list request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "address field is required")
	}

	path, err := s.tracker.AddDev(c.Request().Context(), kind, address, req.Note)
	if err != nil {
		s.logger.Error("add dev failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, AddDevResponse{Kind: kind.String(), Address: address, Path: path})
}

func (s *Server) handleReconnect(c echo.Context) error {
	err := s.tracker.Reconnect(c.Request().Context())
	switch {
	case err == nil:
		return c.NoContent(http.StatusAccepted)
	case errors.Is(err, feed.ErrConfiguration):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
}

// Start serves until Shutdown is called. It returns nil on a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
