package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/component"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/componentregistry"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/config"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/log"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/metrics"
)

const shutdownTimeout = 5 * time.Second

// App wires the configured components to the process logger, the protocol
// capture and the metrics endpoint.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Registry
	capture *log.FileLogger
	rt      *component.Runtime

	mu          sync.Mutex
	metricsAddr net.Addr
}

// NewApp loads every configured component. Nothing runs until Run.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	reg, err := componentregistry.New()
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewRegistry(),
	}

	sinks := []log.Logger{log.NewSlogAdapter(logger)}
	if cfg.ProtocolLog.Path != "" {
		a.capture, err = log.NewFileLogger(cfg.ProtocolLog.Path)
		if err != nil {
			return nil, fmt.Errorf("protocol log: %w", err)
		}
		sinks = append(sinks, a.capture)
		logger.Info("protocol logging enabled", "path", cfg.ProtocolLog.Path)
	}

	a.rt = component.NewRuntime(reg,
		component.WithLogger(logger),
		component.WithProtocolLogger(log.NewMultiLogger(sinks...)),
		component.WithMetrics(a.metrics),
	)
	if err := a.rt.Load(cfg.Components); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Runtime returns the component runtime.
func (a *App) Runtime() *component.Runtime { return a.rt }

// MetricsAddr returns the bound metrics address, or nil when the endpoint
// is disabled or not yet listening.
func (a *App) MetricsAddr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.metricsAddr
}

// Run starts the components and the metrics endpoint and blocks until ctx
// is done or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if addr := a.cfg.Metrics.Address; addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("metrics listen %s: %w", addr, err)
		}
		a.mu.Lock()
		a.metricsAddr = ln.Addr()
		a.mu.Unlock()

		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler())
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			a.logger.Info("metrics endpoint listening", "addr", ln.Addr().String())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		return a.rt.Run(ctx)
	})

	return g.Wait()
}

// Close flushes and closes the protocol capture.
func (a *App) Close() error {
	if a.capture == nil {
		return nil
	}
	return a.capture.Close()
}
