// Package deployment holds the state of one deployment. A Context is created
// at deployment start and passed by reference through the whole definition
// pipeline; nothing in it is process-global.
package deployment

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/config"
	"github.com/km-arc/go-webbeans/framework/container"
	"github.com/km-arc/go-webbeans/framework/decorator"
	"github.com/km-arc/go-webbeans/framework/errors"
	"github.com/km-arc/go-webbeans/framework/inject"
	"github.com/km-arc/go-webbeans/framework/interceptor"
	"github.com/km-arc/go-webbeans/framework/metadata"
	"github.com/km-arc/go-webbeans/framework/portable"
)

// Context owns the error stack and the registry handles of one deployment.
type Context struct {
	ID     uuid.UUID
	Config *config.Config
	Logger *zap.Logger

	// Errors collects definition errors. It is never cleared.
	Errors *errors.Stack

	Annotations  *metadata.AnnotationManager
	Alternatives *metadata.AlternativesManager
	Extractor    *metadata.Extractor
	Manager      *container.BeanManager
	Dispatcher   *portable.Dispatcher
	Extensions   *portable.ExtensionRegistry
	Decorators   *decorator.Manager
	Interceptors *interceptor.Manager
	Resolver     inject.Resolver
	ProxyFactory decorator.ProxyFactory
	Metrics      *Metrics
}

// Option configures a Context.
type Option func(*Context)

func WithLogger(l *zap.Logger) Option {
	return func(c *Context) { c.Logger = l }
}

// WithResolver replaces the default injection point resolver.
func WithResolver(r inject.Resolver) Option {
	return func(c *Context) { c.Resolver = r }
}

// WithProxyFactory replaces the default abstract decorator proxy factory.
func WithProxyFactory(f decorator.ProxyFactory) Option {
	return func(c *Context) { c.ProxyFactory = f }
}

// New creates the context of a fresh deployment. A nil cfg means an empty
// descriptor: no alternatives, decorators or interceptors enabled.
//
//	ctx := deployment.New(cfg, deployment.WithLogger(log))
func New(cfg *config.Config, opts ...Option) *Context {
	if cfg == nil {
		cfg = &config.Config{}
	}
	c := &Context{
		ID:     uuid.New(),
		Config: cfg,
		Logger: zap.NewNop(),
		Errors: errors.NewStack(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Logger = c.Logger.With(zap.String("deployment", c.ID.String()))

	d := cfg.Deployment.Descriptor
	c.Metrics = NewMetrics()
	c.Annotations = metadata.NewAnnotationManager()
	c.Alternatives = metadata.NewAlternativesManager(d.Alternatives, d.Stereotypes)
	c.Extractor = metadata.NewExtractor(c.Annotations, c.Alternatives)
	c.Manager = container.New(c.Logger)
	c.Manager.OnRegister(func(b *bean.Bean) { c.Metrics.BeanRegistered(b.Kind()) })
	c.Dispatcher = portable.NewDispatcher(c.Errors,
		portable.WithLogger(c.Logger),
		portable.OnFire(c.Metrics.EventFired),
	)
	c.Extensions = portable.NewExtensionRegistry(c.Dispatcher)
	c.Decorators = decorator.NewManager(d.Decorators, c.Logger)
	c.Interceptors = interceptor.NewManager(d.Interceptors, c.Annotations, c.Logger)
	if c.Resolver == nil {
		c.Resolver = inject.NewResolver(c.Annotations)
	}
	if c.ProxyFactory == nil {
		c.ProxyFactory = decorator.NewSynthesizingProxyFactory()
	}
	return c
}

// Checkpoint counts the definition errors pushed since the previous
// checkpoint and records them against phase.
func (c *Context) Checkpoint(phase string) int {
	n := c.Errors.Checkpoint()
	if n > 0 {
		c.Metrics.DefinitionErrors(phase, n)
		c.Logger.Warn("definition errors recorded",
			zap.String("phase", phase),
			zap.Int("count", n),
		)
	}
	return n
}

// Inspect returns the aggregate of every accumulated definition error, nil
// when there is none.
func (c *Context) Inspect(message string) error {
	err := c.Errors.Inspect(message)
	if err != nil {
		c.Logger.Error("deployment aborted",
			zap.Int("errors", c.Errors.Len()),
			zap.Error(err),
		)
	}
	return err
}
