// Package gateway serves the statistics queries over HTTP.
//
// The gateway parses and validates query parameters at the boundary, runs the
// matching aggregator operation and writes the rows as a JSON array. Caller
// mistakes are 400s; every data access failure is a generic 500 whose cause
// is only logged.
package gateway

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/seguridad-santander/crimestats/internal/observability"
	"github.com/seguridad-santander/crimestats/internal/stats"
	"github.com/seguridad-santander/crimestats/internal/status"
	"github.com/seguridad-santander/crimestats/pkg/api"
)

// Config configures the gateway.
type Config struct {
	// Version is reported by the root and health endpoints.
	Version string

	// CORSOrigins lists the allowed origins. Empty allows every origin.
	CORSOrigins []string

	// Logger receives request and failure logs.
	Logger zerolog.Logger
}

// Gateway is the HTTP front of the aggregator.
type Gateway struct {
	echo     *echo.Echo
	agg      *stats.Aggregator
	checker  status.StatusChecker
	recorder *observability.Recorder
	driver   string
	cfg      Config
}

// NewGateway creates a gateway. The aggregator and status checker are
// mandatory; recorder may be nil.
func NewGateway(agg *stats.Aggregator, checker status.StatusChecker, recorder *observability.Recorder, driver string, cfg Config) (*Gateway, error) {
	if agg == nil {
		return nil, stderrors.New("gateway: aggregator is required")
	}
	if checker == nil {
		return nil, stderrors.New("gateway: status checker is required")
	}
	if cfg.Version == "" {
		cfg.Version = api.Version
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	g := &Gateway{
		echo:     echo.New(),
		agg:      agg,
		checker:  checker,
		recorder: recorder,
		driver:   driver,
		cfg:      cfg,
	}
	g.echo.HideBanner = true
	g.echo.HidePort = true
	g.echo.HTTPErrorHandler = g.handleHTTPError

	g.echo.Use(middleware.RequestID())
	g.echo.Use(middleware.Recover())
	g.echo.Use(g.requestLogger())
	g.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
	}))

	g.routes()
	return g, nil
}

func (g *Gateway) routes() {
	e := g.echo
	e.GET(api.EndpointRoot, g.handleRoot)
	e.GET(api.EndpointMunicipalities, g.handleMunicipalities)
	e.GET(api.EndpointCrimes, g.handleCrimes)
	e.GET(api.EndpointRisk, g.handleRisk)
	e.GET(api.EndpointSummary, g.handleSummary)
	e.GET(api.EndpointHeatmap, g.handleHeatmap)

	e.GET(api.EndpointHealth, g.handleHealth)
	e.GET(api.EndpointReady, g.handleReady)
	e.GET(api.EndpointStatus, g.handleStatus)
	if g.recorder != nil && g.recorder.Metrics != nil {
		e.GET(api.EndpointMetrics, echo.WrapHandler(g.recorder.Metrics.Handler()))
	}
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.echo.ServeHTTP(w, r)
}

func (g *Gateway) requestLogger() echo.MiddlewareFunc {
	logger := g.cfg.Logger
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Info()
			if v.Status >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

// ServerConfig holds the HTTP server timeouts.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (g *Gateway) ListenAndServe(ctx context.Context, sc ServerConfig) error {
	server := &http.Server{
		Addr:         sc.Addr,
		Handler:      g,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		g.cfg.Logger.Info().
			Str("addr", sc.Addr).
			Str("version", g.cfg.Version).
			Str("driver", g.driver).
			Msg("crimestats gateway starting")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	timeout := sc.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g.cfg.Logger.Info().Msg("shutting down gateway")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}
