// Package app is the application kernel: it loads the configuration, builds
// the logger and the deployment context, registers the builtin extensions
// and exposes the deployed container over the inspection API.
package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/config"
	"github.com/km-arc/go-webbeans/framework/container"
	"github.com/km-arc/go-webbeans/framework/deployer"
	"github.com/km-arc/go-webbeans/framework/deployment"
	"github.com/km-arc/go-webbeans/framework/logger"
	"github.com/km-arc/go-webbeans/framework/portable"
	"github.com/km-arc/go-webbeans/framework/providers"
	"github.com/km-arc/go-webbeans/routing"
)

const shutdownTimeout = 5 * time.Second

// Application owns one deployment.
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	deployer *deployer.Deployer
	failure  error

	routesOnce sync.Once
	router     *routing.Router
}

// New loads the configuration from envFiles (".env" by default) and creates
// the application.
func New(envFiles ...string) (*Application, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, nil)
}

// NewWithConfig creates the application for cfg. A nil log is built from
// cfg.Log.
func NewWithConfig(cfg *config.Config, log *zap.Logger) (*Application, error) {
	if log == nil {
		var err error
		if log, err = logger.New(cfg.Log); err != nil {
			return nil, err
		}
	}
	log = log.With(zap.String("app", cfg.App.Name))

	ctx := deployment.New(cfg, deployment.WithLogger(log))
	a := &Application{
		config:   cfg,
		logger:   log,
		deployer: deployer.New(ctx),
	}

	// builtin extensions come first
	if err := a.Register(
		&providers.ConfigExtension{Config: cfg},
		&providers.LoggerExtension{Logger: log},
		&providers.MetricsExtension{Registry: ctx.Metrics.Registry()},
	); err != nil {
		return nil, err
	}
	return a, nil
}

// Register adds extensions. It fails once Deploy has started.
func (a *Application) Register(exts ...portable.Extension) error {
	for _, ext := range exts {
		if err := a.Context().Extensions.Register(ext); err != nil {
			return err
		}
	}
	return nil
}

// Deploy runs the deployment of types. A failure is kept for the
// inspection API.
func (a *Application) Deploy(types ...*annotated.Type) error {
	err := a.deployer.Deploy(types...)
	if err != nil && a.failure == nil {
		a.failure = err
	}
	return err
}

// Shutdown destroys every contextual instance and flushes the logger.
func (a *Application) Shutdown() {
	a.deployer.Shutdown()
	_ = a.logger.Sync()
}

// Run serves the inspection API on APP_PORT until ctx is cancelled, then
// shuts the server down gracefully.
func (a *Application) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.config.App.Port,
		Handler:           a.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("inspection API listening",
			zap.String("addr", srv.Addr),
			zap.String("env", a.config.App.Env),
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ── Accessors ─────────────────────────────────────────────────────────────────

func (a *Application) Config() *config.Config          { return a.config }
func (a *Application) Logger() *zap.Logger             { return a.logger }
func (a *Application) Deployer() *deployer.Deployer    { return a.deployer }
func (a *Application) Context() *deployment.Context    { return a.deployer.Context() }
func (a *Application) Manager() *container.BeanManager { return a.Context().Manager }
func (a *Application) Report() deployer.Report         { return a.deployer.Report() }

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.config.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.config.App.Debug }
func (a *Application) Version() string     { return "0.1.0" }
