package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FinInfluence/pkg/config"
	xhttp "FinInfluence/pkg/http"
	pkgkafka "FinInfluence/pkg/kafka"
	applogger "FinInfluence/pkg/logger"
)

// App encapsulates the service lifecycle: HTTP server, optional request
// consumer and the infrastructure clients closed on shutdown.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	handler    pkgkafka.MessageHandler
	closers    []closer
}

type closer struct {
	name string
	fn   func() error
}

// New creates a new App. consumer and handler may be nil when Kafka is off.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	handler pkgkafka.MessageHandler,
) *App {
	return &App{
		cfg:        cfg,
		logger:     log,
		httpServer: httpServer,
		consumer:   consumer,
		handler:    handler,
	}
}

// OnClose registers fn to run at shutdown. Closers run in reverse order of
// registration, after the server and consumer have stopped.
func (a *App) OnClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// HTTP returns the application's HTTP server.
func (a *App) HTTP() *xhttp.Server { return a.httpServer }

// Run starts the application and blocks until ctx is done or a termination
// signal arrives.
func (a *App) Run(ctx context.Context) error {
	if a.consumer != nil && a.handler != nil {
		a.consumer.RegisterHandler(a.handler)
		if err := a.consumer.Start(); err != nil {
			a.logger.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.logger.Info("kafka consumer started", applogger.String("topic", a.handler.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	a.logger.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Shutdown gracefully stops all services.
func (a *App) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	a.logger.Info("shutting down...")

	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
