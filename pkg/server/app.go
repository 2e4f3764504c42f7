package server

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	xhttp "FinCast/pkg/http"
	applogger "FinCast/pkg/logger"
)

// Service is a background component started after the HTTP server and
// stopped before it.
type Service interface {
	Start() error
	Stop(ctx context.Context) error
}

type namedService struct {
	name string
	svc  Service
}

// App encapsulates the entire application lifecycle.
type App struct {
	l        *applogger.Logger
	http     *xhttp.Server
	services []namedService
	cleanup  func()
}

type Option func(*App)

// WithService registers a background service; nil is ignored.
func WithService(name string, s Service) Option {
	return func(a *App) {
		if s != nil {
			a.services = append(a.services, namedService{name: name, svc: s})
		}
	}
}

// WithCleanup runs fn after every service has stopped.
func WithCleanup(fn func()) Option {
	return func(a *App) { a.cleanup = fn }
}

func New(l *applogger.Logger, srv *xhttp.Server, opts ...Option) *App {
	a := &App{l: l.Component("app"), http: srv}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Run starts everything and blocks until ctx is done or SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	started := make([]namedService, 0, len(a.services))
	for _, s := range a.services {
		if err := s.svc.Start(); err != nil {
			a.l.Error("service start failed", applogger.String("service", s.name), applogger.Error(err))
			a.stop(started)
			return err
		}
		a.l.Info("service started", applogger.String("service", s.name))
		started = append(started, s)
	}

	if err := a.http.Start(); err != nil {
		a.stop(started)
		return err
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown(started)
}

func (a *App) shutdown(started []namedService) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.http.ShutdownTimeout())
	defer cancel()

	var errs []error
	if err := a.http.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	errs = append(errs, a.stopWith(ctx, started)...)
	if a.cleanup != nil {
		a.cleanup()
	}
	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) stop(started []namedService) {
	ctx, cancel := context.WithTimeout(context.Background(), a.http.ShutdownTimeout())
	defer cancel()
	a.stopWith(ctx, started)
	if a.cleanup != nil {
		a.cleanup()
	}
}

// stopWith stops services in reverse start order.
func (a *App) stopWith(ctx context.Context, started []namedService) []error {
	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		s := started[i]
		if err := s.svc.Stop(ctx); err != nil {
			a.l.Warn("service stop error", applogger.String("service", s.name), applogger.Error(err))
			errs = append(errs, err)
		}
	}
	return errs
}
