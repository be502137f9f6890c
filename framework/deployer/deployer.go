// Package deployer runs a complete deployment: container lifecycle events,
// builtin beans, the definition of every archive type and validation.
//
//	ctx := deployment.New(cfg, deployment.WithLogger(log))
//	d := deployer.New(ctx)
//	_ = ctx.Extensions.Register(&auditExtension{})
//	if err := d.Deploy(archive...); err != nil {
//	    log.Fatal("deployment failed", zap.Error(err))
//	}
//	defer d.Shutdown()
package deployer

import (
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/container"
	"github.com/km-arc/go-webbeans/framework/creation"
	"github.com/km-arc/go-webbeans/framework/deployment"
	"github.com/km-arc/go-webbeans/framework/errors"
	"github.com/km-arc/go-webbeans/framework/portable"
)

// Report summarises a finished deployment.
type Report struct {
	Types        int
	Beans        int
	Decorators   int
	Interceptors int
	Observers    int
	// Skipped lists decorator and interceptor classes not enabled by the
	// descriptor.
	Skipped  []string
	Failed   []string
	Duration time.Duration
}

// Deployer drives one deployment context. It is single use.
type Deployer struct {
	ctx      *deployment.Context
	opts     []creation.Option
	deployed bool
	shutdown bool
	report   Report
}

// New creates a deployer for ctx. opts are passed to every bean builder.
func New(ctx *deployment.Context, opts ...creation.Option) *Deployer {
	return &Deployer{ctx: ctx, opts: opts}
}

// Context returns the deployment context.
func (d *Deployer) Context() *deployment.Context { return d.ctx }

// Report returns the summary of the last Deploy call.
func (d *Deployer) Report() Report { return d.report }

// Deploy defines every type in order and validates the result.
//
// A structural error aborts the definition of its type only; the remaining
// types are still defined. Definition errors added by extensions abort the
// deployment at the next inspection. The returned error is one aggregate
// DeploymentError listing every failure.
func (d *Deployer) Deploy(types ...*annotated.Type) error {
	if d.deployed {
		return errors.IllegalState("deployment %s already ran", d.ctx.ID)
	}
	d.deployed = true

	ctx := d.ctx
	start := time.Now()
	defer func() {
		d.report.Duration = time.Since(start)
		ctx.Metrics.ObserveDeployment(d.report.Duration)
	}()

	ctx.Logger.Info("deployment started",
		zap.Int("types", len(types)),
		zap.Int("extensions", len(ctx.Extensions.Extensions())),
	)

	ctx.Extensions.Seal()
	ctx.Dispatcher.Fire(portable.NewBeforeBeanDiscovery(ctx.Annotations))
	ctx.Checkpoint("BeforeBeanDiscovery")
	if err := ctx.Inspect("definition errors were added by BeforeBeanDiscovery observers"); err != nil {
		return err
	}

	var structural []error
	if err := d.addBuiltinBeans(); err != nil {
		structural = append(structural, err)
	}

	for _, at := range types {
		d.report.Types++
		err := d.define(at)
		if err == nil {
			continue
		}
		d.report.Failed = append(d.report.Failed, at.Name())
		if errors.IsAggregate(err) {
			return d.fail("deployment aborted while defining "+at.Name(), structural)
		}
		ctx.Logger.Warn("bean definition failed",
			zap.String("type", at.Name()),
			zap.Error(err),
		)
		structural = append(structural, err)
	}

	ctx.Dispatcher.Fire(portable.NewAfterBeanDiscovery(ctx.Manager))
	ctx.Checkpoint("AfterBeanDiscovery")
	if ctx.Errors.Len() > 0 {
		return d.fail("definition errors were added by AfterBeanDiscovery observers", structural)
	}
	if len(structural) > 0 {
		return d.fail("bean definition failed", structural)
	}

	if err := ctx.Manager.Validate(); err != nil {
		var de *errors.DeploymentError
		if errors.As(err, &de) && len(de.Causes) > 0 {
			return d.fail(de.Message, de.Causes)
		}
		return d.fail("deployment validation failed", []error{err})
	}

	ctx.Dispatcher.Fire(portable.NewAfterDeploymentValidation())
	ctx.Checkpoint("AfterDeploymentValidation")
	if err := ctx.Inspect("deployment problems were added by AfterDeploymentValidation observers"); err != nil {
		return err
	}

	d.report.Beans = len(ctx.Manager.All())
	d.report.Observers = len(ctx.Manager.Observers().All())
	ctx.Logger.Info("deployment finished",
		zap.Int("beans", d.report.Beans),
		zap.Int("decorators", d.report.Decorators),
		zap.Int("interceptors", d.report.Interceptors),
		zap.Int("observers", d.report.Observers),
		zap.Strings("skipped", d.report.Skipped),
	)
	return nil
}

// Shutdown fires BeforeShutdown and destroys every context. Only the first
// call after a deployment has an effect.
func (d *Deployer) Shutdown() {
	if !d.deployed || d.shutdown {
		return
	}
	d.shutdown = true
	d.ctx.Dispatcher.Fire(portable.NewBeforeShutdown())
	d.ctx.Manager.Shutdown()
	d.ctx.Logger.Info("deployment shut down")
}

// define prepares at, fires ProcessInjectionTarget and hands it to the
// builder method matching its kind.
func (d *Deployer) define(at *annotated.Type) error {
	b := creation.NewBuilder(d.ctx, at, d.opts...)
	if !b.Applicable() {
		d.report.Skipped = append(d.report.Skipped, at.Name())
		d.ctx.Logger.Debug("type not enabled",
			zap.String("type", at.Name()),
			zap.Stringer("kind", b.Kind()),
		)
		return nil
	}
	if err := b.Prepare(); err != nil {
		return err
	}

	pit := portable.NewProcessInjectionTarget(at, b.DefaultInjectionTarget())
	d.ctx.Dispatcher.Fire(pit)
	d.ctx.Checkpoint(pit.Phase())

	switch b.Kind() {
	case creation.DecoratorBean:
		dec, err := b.DefineDecorator(pit)
		if dec != nil {
			d.report.Decorators++
		}
		return err
	case creation.InterceptorBean:
		i, err := b.DefineInterceptor(pit)
		if i != nil {
			d.report.Interceptors++
		}
		return err
	default:
		_, err := b.DefineManagedBean(pit)
		return err
	}
}

// addBuiltinBeans registers the EventMetadata bean and one bean per
// registered extension.
func (d *Deployer) addBuiltinBeans() error {
	var errs []error
	metadata := container.NewSyntheticBean(bean.Builtin, reflect.TypeOf(&bean.EventMetadata{}),
		annotated.Dependent, portable.EventMetadataProducer{})
	if err := d.ctx.Manager.AddBean(metadata); err != nil {
		errs = append(errs, err)
	}
	for _, ext := range d.ctx.Extensions.Extensions() {
		if err := d.ctx.Manager.AddBean(extensionBean(ext)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func extensionBean(ext portable.Extension) *bean.Bean {
	return container.NewSyntheticBean(bean.Extension, reflect.TypeOf(ext), annotated.Singleton,
		bean.ProducerFunc(func(bean.CreationalContext) (any, error) { return ext, nil }))
}

// fail builds the aggregate of the structural errors and every error on the
// stack.
func (d *Deployer) fail(message string, structural []error) error {
	causes := append(append([]error(nil), structural...), d.ctx.Errors.Errors()...)
	err := errors.Aggregate(message, causes)
	d.ctx.Logger.Error("deployment failed",
		zap.Int("errors", len(causes)),
		zap.Error(err),
	)
	return err
}
