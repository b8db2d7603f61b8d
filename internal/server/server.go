// Package server exposes harvests over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/isometry/ldap-collector/internal/harvest"
	"github.com/isometry/ldap-collector/internal/logging"
)

const subsystem = logging.HTTPSubsystem

const (
	// HarvestPath serves the harvest document.
	HarvestPath = "/ldap.json"
	// HealthPath reports liveness without touching the directory.
	HealthPath = "/healthz"
)

// Harvester runs one harvest per call.
type Harvester interface {
	Harvest(ctx context.Context) (*harvest.Result, error)
}

// Server is the HTTP surface of the collector.
type Server struct {
	echo      *echo.Echo
	harvester Harvester
	addr      string
	logCtx    context.Context
}

// New builds a Server listening on addr. Request contexts derive from logCtx so
// that handlers log through its subsystems.
func New(logCtx context.Context, harvester Harvester, addr string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.BaseContext = func(net.Listener) context.Context { return logCtx }
	e.Server.ReadHeaderTimeout = 10 * time.Second

	s := &Server{
		echo:      e,
		harvester: harvester,
		addr:      addr,
		logCtx:    logCtx,
	}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			tflog.SubsystemError(c.Request().Context(), subsystem, "Recovered from panic", map[string]any{
				"method": c.Request().Method,
				"uri":    c.Request().RequestURI,
				"error":  err.Error(),
				"stack":  string(stack),
			})
			return err
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			tflog.SubsystemDebug(c.Request().Context(), subsystem, "Request handled", map[string]any{
				"method":      v.Method,
				"uri":         v.URI,
				"status":      v.Status,
				"request_id":  v.RequestID,
				"duration_ms": v.Latency.Milliseconds(),
			})
			return nil
		},
	}))

	e.GET(HarvestPath, s.handleHarvest)
	e.GET(HealthPath, s.handleHealth)

	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	tflog.SubsystemInfo(s.logCtx, subsystem, "Listening", map[string]any{
		"addr": s.addr,
	})
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHarvest(c echo.Context) error {
	ctx := tflog.SubsystemSetField(c.Request().Context(), subsystem, "request_id",
		c.Response().Header().Get(echo.HeaderXRequestID))

	result, err := s.harvester.Harvest(ctx)
	if err != nil {
		status, body := errorResponse(err)
		tflog.SubsystemWarn(ctx, subsystem, "Harvest request failed", map[string]any{
			"status":     status,
			"error_kind": body.Error,
		})
		return c.JSON(status, body)
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
