package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"FinCast/pkg/http/middleware"
	applogger "FinCast/pkg/logger"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler registers its routes on the server.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// HealthFunc reports the health of one dependency.
type HealthFunc func(ctx context.Context) error

// ServerOption configures Server.
type ServerOption func(*ServerConfig)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowOrigins    []string
	MetricsPath     string
	Registry        *prometheus.Registry
	Logger          *applogger.Logger
	Health          map[string]HealthFunc
}

// Server wraps Echo HTTP server.
type Server struct {
	echo   *echo.Echo
	config *ServerConfig
	l      *applogger.Logger
}

// NewServer creates the echo server, installs the middleware chain and
// registers every handler plus /healthz and the metrics endpoint.
func NewServer(handlers []Handler, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    15 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
		AllowOrigins:    []string{"*"},
		MetricsPath:     "/metrics",
		Logger:          applogger.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	l := cfg.Logger.Component("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if cfg.Registry != nil {
		reg, gatherer = cfg.Registry, cfg.Registry
	}

	e.Use(middleware.Recover(l))
	e.Use(middleware.RequestLogging(l))
	e.Use(middleware.Metrics(reg, l, 10*time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
	}))

	for _, h := range handlers {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}

	e.GET("/healthz", healthHandler(cfg.Health))
	if cfg.MetricsPath != "" {
		e.GET(cfg.MetricsPath, echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return &Server{
		echo:   e,
		config: cfg,
		l:      l,
	}
}

func healthHandler(checks map[string]HealthFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		out := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				out[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			out[name] = "ok"
		}
		return DataResponse(c, status, out)
	}
}

// Start listens in the background.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	go func() {
		s.l.Info("listening", applogger.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.Error("server error", applogger.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.l.Info("stopped gracefully")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ShutdownTimeout is the budget given to Stop by the application.
func (s *Server) ShutdownTimeout() time.Duration {
	return s.config.ShutdownTimeout
}

func WithHost(host string) ServerOption {
	return func(c *ServerConfig) {
		c.Host = host
	}
}

func WithPort(port int) ServerOption {
	return func(c *ServerConfig) {
		c.Port = port
	}
}

// WithTimeouts sets read/write timeouts.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.ReadTimeout = read
		c.WriteTimeout = write
		c.ShutdownTimeout = shutdown
	}
}

// WithAllowOrigins restricts CORS; an empty list keeps "*".
func WithAllowOrigins(origins []string) ServerOption {
	return func(c *ServerConfig) {
		if len(origins) > 0 {
			c.AllowOrigins = origins
		}
	}
}

// WithMetrics sets the scrape path (empty disables it) and the registry the
// endpoint and the HTTP middleware use.
func WithMetrics(path string, reg *prometheus.Registry) ServerOption {
	return func(c *ServerConfig) {
		c.MetricsPath = path
		c.Registry = reg
	}
}

func WithLogger(l *applogger.Logger) ServerOption {
	return func(c *ServerConfig) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithHealthCheck adds a named check to /healthz.
func WithHealthCheck(name string, fn HealthFunc) ServerOption {
	return func(c *ServerConfig) {
		if c.Health == nil {
			c.Health = make(map[string]HealthFunc)
		}
		c.Health[name] = fn
	}
}
