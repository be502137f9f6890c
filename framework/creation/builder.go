// Package creation drives one annotated type through bean definition: it
// derives the primary bean, its producer beans and observer methods, fires
// the process events extensions use to observe and alter them, and registers
// the result.
//
//	b := creation.NewBuilder(ctx, greeterType)
//	if err := b.Prepare(); err != nil { ... }      // structural, no events
//	pit := portable.NewProcessInjectionTarget(greeterType, b.DefaultInjectionTarget())
//	ctx.Dispatcher.Fire(pit)
//	managed, err := b.DefineManagedBean(pit)
package creation

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/container"
	"github.com/km-arc/go-webbeans/framework/decorator"
	"github.com/km-arc/go-webbeans/framework/deployment"
	"github.com/km-arc/go-webbeans/framework/errors"
	"github.com/km-arc/go-webbeans/framework/event"
	"github.com/km-arc/go-webbeans/framework/inject"
	"github.com/km-arc/go-webbeans/framework/interceptor"
	"github.com/km-arc/go-webbeans/framework/metadata"
	"github.com/km-arc/go-webbeans/framework/portable"
)

// Kind is the variant of bean a Builder defines.
type Kind int

const (
	ManagedBean Kind = iota
	DecoratorBean
	InterceptorBean
)

func (k Kind) String() string {
	switch k {
	case DecoratorBean:
		return "decorator"
	case InterceptorBean:
		return "interceptor"
	}
	return "managed"
}

// KindOf classifies at by its Decorator or Interceptor annotation.
func KindOf(at *annotated.Type) Kind {
	switch {
	case at.IsAnnotationPresent(annotated.Decorator):
		return DecoratorBean
	case at.IsAnnotationPresent(annotated.Interceptor):
		return InterceptorBean
	}
	return ManagedBean
}

func (k Kind) beanKind() bean.Kind {
	switch k {
	case DecoratorBean:
		return bean.Decorator
	case InterceptorBean:
		return bean.Interceptor
	}
	return bean.Managed
}

// producerMember is a producer bean with its member and disposal method.
type producerMember struct {
	bean        *bean.Bean
	method      *annotated.Method
	field       *annotated.Field
	disposal    *annotated.Method
	disposalIPs []*bean.InjectionPoint
}

func (p *producerMember) member() annotated.Member {
	if p.method != nil {
		return p.method
	}
	return p.field
}

// ── Builder ───────────────────────────────────────────────────────────────────

// Builder defines the beans of one annotated type. A Builder is single use:
// defining twice is rejected, and a new Builder for the same type yields a
// bean with a new identity.
type Builder struct {
	ctx       *deployment.Context
	kind      Kind
	annotated *annotated.Type
	bean      *bean.Bean

	constructors ConstructorResolver
	injection    inject.Resolver
	producers    ProducerAdapter

	prepared   bool
	prepareErr error
	defined    bool

	producerMethods []*producerMember
	producerFields  []*producerMember
	observers       []*event.ObserverMethod
}

// Option configures a Builder.
type Option func(*Builder)

func WithConstructorResolver(r ConstructorResolver) Option {
	return func(b *Builder) { b.constructors = r }
}

func WithInjectionResolver(r inject.Resolver) Option {
	return func(b *Builder) { b.injection = r }
}

func WithProducerAdapter(a ProducerAdapter) Option {
	return func(b *Builder) { b.producers = a }
}

// NewBuilder creates the builder of at. Its kind follows the type's
// annotations.
func NewBuilder(ctx *deployment.Context, at *annotated.Type, opts ...Option) *Builder {
	kind := KindOf(at)
	b := &Builder{
		ctx:          ctx,
		kind:         kind,
		annotated:    at,
		bean:         bean.New(kind.beanKind(), at.GoType(), at),
		constructors: DefaultConstructorResolver{},
		injection:    ctx.Resolver,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.producers == nil {
		b.producers = NewProducerAdapter(ctx)
	}
	return b
}

func (b *Builder) Kind() Kind                      { return b.kind }
func (b *Builder) AnnotatedType() *annotated.Type { return b.annotated }

// Bean returns the primary bean, complete only once defined.
func (b *Builder) Bean() *bean.Bean { return b.bean }

// ProducerBeans returns the producer method beans, then the producer field
// beans, in declaration order.
func (b *Builder) ProducerBeans() []*bean.Bean {
	out := make([]*bean.Bean, 0, len(b.producerMethods)+len(b.producerFields))
	for _, p := range b.producerMethods {
		out = append(out, p.bean)
	}
	for _, p := range b.producerFields {
		out = append(out, p.bean)
	}
	return out
}

// ObserverMethods returns the observer methods discovered on the type.
func (b *Builder) ObserverMethods() []*event.ObserverMethod { return b.observers }

// Applicable reports whether the type takes part in the deployment:
// decorators and interceptors must be enabled.
func (b *Builder) Applicable() bool {
	switch b.kind {
	case DecoratorBean:
		return b.ctx.Decorators.IsEnabled(b.annotated)
	case InterceptorBean:
		return b.ctx.Interceptors.IsEnabled(b.annotated)
	}
	return true
}

// DefaultInjectionTarget returns the injection target offered to
// ProcessInjectionTarget listeners.
func (b *Builder) DefaultInjectionTarget() bean.InjectionTarget {
	return container.NewInjectionTarget(b.bean, b.ctx.Manager)
}

// ── Preparation ───────────────────────────────────────────────────────────────

// Prepare validates the creation conditions and derives API types,
// stereotypes, scope, serializability, enablement, name and qualifiers. It
// fires no event. The result is memoized.
func (b *Builder) Prepare() error {
	if !b.prepared {
		b.prepared = true
		b.prepareErr = b.prepare()
	}
	return b.prepareErr
}

func (b *Builder) prepare() error {
	x := b.ctx.Extractor
	at, mb := b.annotated, b.bean

	if err := x.CheckManagedBeanCondition(at); err != nil {
		return err
	}

	x.DefineAPITypes(mb, at.TypeClosure())
	x.DefineStereotypes(mb, at)
	if err := x.DefineScope(mb, at, fmt.Sprintf("managed bean %s declares more than one scope", at.Name())); err != nil {
		return err
	}
	x.DefineSerializable(mb, at)
	x.DefineEnabled(mb)

	if err := x.CheckGenericType(mb); err != nil {
		return err
	}
	if err := x.CheckUnproxiableAPIType(mb); err != nil {
		return err
	}

	x.DefineName(mb, at, metadata.DefaultManagedBeanName(at))
	x.DefineQualifiers(mb, at)

	b.ctx.Logger.Debug("bean prepared",
		zap.String("type", at.Name()),
		zap.Stringer("kind", b.kind),
		zap.String("scope", mb.Scope()),
		zap.Bool("enabled", mb.IsEnabled()),
	)
	return nil
}

// ── Definition ────────────────────────────────────────────────────────────────

// DefineManagedBean completes the definition of the primary bean with the
// injection target carried by pit, fires the process events and, for managed
// beans only, registers the primary bean, its producer beans and its
// observers.
//
// Structural errors are returned as a DeploymentError and abort only this
// type. Definition errors added by extensions are returned as the aggregate
// of the whole error stack; the deployment must stop.
func (b *Builder) DefineManagedBean(pit *portable.ProcessInjectionTarget) (*bean.Bean, error) {
	if b.defined {
		return nil, errors.IllegalState("%s was already defined by this builder", b.annotated)
	}
	b.defined = true
	if err := b.Prepare(); err != nil {
		return nil, err
	}
	mb := b.bean

	// constructor, fields and initializers
	if err := b.defineConstructor(); err != nil {
		return nil, err
	}
	b.defineInjectedFields()
	b.defineInjectedMethods()
	if err := b.ctx.Extractor.CheckPassivation(mb); err != nil {
		return nil, err
	}

	// observers, producers and disposal methods
	if mb.IsEnabled() {
		if err := b.defineObserverMethods(); err != nil {
			return nil, err
		}
	}
	if err := b.defineProducerMethods(); err != nil {
		return nil, err
	}
	if err := b.defineProducerFields(); err != nil {
		return nil, err
	}
	if err := b.defineDisposalMethods(); err != nil {
		return nil, err
	}

	mb.SetProducer(pit.InjectionTarget())

	// a cleared producer fails before any bean event fires
	for _, p := range b.producerMethods {
		if err := b.processProducer(p); err != nil {
			return nil, err
		}
	}
	for _, p := range b.producerFields {
		if err := b.processProducer(p); err != nil {
			return nil, err
		}
	}
	b.ctx.Checkpoint("ProcessProducer")

	// every phase fires; the stack is inspected once afterwards
	b.fireProcessBean()
	for _, p := range b.producerMethods {
		b.ctx.Dispatcher.Fire(portable.NewProcessProducerMethod(p.bean, p.method, p.disposal))
	}
	b.ctx.Checkpoint("ProcessProducerMethod")
	for _, p := range b.producerFields {
		b.ctx.Dispatcher.Fire(portable.NewProcessProducerField(p.bean, p.field))
	}
	b.ctx.Checkpoint("ProcessProducerField")
	for _, o := range b.observers {
		b.ctx.Dispatcher.Fire(portable.NewProcessObserverMethod(o))
	}
	b.ctx.Checkpoint("ProcessObserverMethod")

	// any definition error stops the deployment
	if err := b.ctx.Inspect(fmt.Sprintf("definition errors were added while defining %s", b.annotated)); err != nil {
		return nil, err
	}

	// only managed beans are registered
	if b.kind == ManagedBean {
		if err := b.register(); err != nil {
			return nil, err
		}
	}

	b.ctx.Logger.Debug("bean defined",
		zap.String("type", b.annotated.Name()),
		zap.Stringer("kind", b.kind),
		zap.Int("producers", len(b.producerMethods)+len(b.producerFields)),
		zap.Int("observers", len(b.observers)),
	)
	return mb, nil
}

func (b *Builder) defineConstructor() error {
	c, err := b.constructors.Resolve(b.annotated)
	if err != nil || c == nil {
		return err
	}
	for _, ip := range b.injection.ConstructorInjectionPoints(b.bean, c) {
		b.bean.AddInjectionPoint(ip)
	}
	b.bean.SetConstructor(c)
	return nil
}

func (b *Builder) defineInjectedFields() {
	for _, f := range b.annotated.Fields() {
		if f.IsAnnotationPresent(annotated.Inject) && !f.IsAnnotationPresent(annotated.Produces) {
			b.bean.AddInjectionPoint(b.injection.FieldInjectionPoint(b.bean, f))
		}
	}
}

func (b *Builder) defineInjectedMethods() {
	for _, m := range b.annotated.Methods() {
		if m.IsAnnotationPresent(annotated.Inject) {
			for _, ip := range b.injection.MethodInjectionPoints(b.bean, m) {
				b.bean.AddInjectionPoint(ip)
			}
		}
	}
}

func (b *Builder) defineObserverMethods() error {
	for _, m := range b.annotated.Methods() {
		if !hasParameter(m, annotated.Observes) {
			continue
		}
		o, err := b.producers.ObserverMethod(b.bean, m)
		if err != nil {
			return err
		}
		b.observers = append(b.observers, o)
	}
	return nil
}

func (b *Builder) defineProducerMethods() error {
	for _, m := range b.annotated.Methods() {
		if !m.IsAnnotationPresent(annotated.Produces) {
			continue
		}
		pb, err := b.producers.ProducerMethod(b.bean, m)
		if err != nil {
			return err
		}
		b.producerMethods = append(b.producerMethods, &producerMember{bean: pb, method: m})
	}
	return nil
}

func (b *Builder) defineProducerFields() error {
	for _, f := range b.annotated.Fields() {
		if !f.IsAnnotationPresent(annotated.Produces) {
			continue
		}
		pb, err := b.producers.ProducerField(b.bean, f)
		if err != nil {
			return err
		}
		b.producerFields = append(b.producerFields, &producerMember{bean: pb, field: f})
	}
	return nil
}

// defineDisposalMethods pairs every disposal method with the producer of the
// same class whose type and qualifiers it matches.
func (b *Builder) defineDisposalMethods() error {
	all := append(append([]*producerMember(nil), b.producerMethods...), b.producerFields...)
	for _, m := range b.annotated.Methods() {
		disposed := parameter(m, annotated.Disposes)
		if disposed == nil {
			continue
		}
		qualifiers := b.ctx.Annotations.Qualifiers(disposed.Annotations())
		if len(qualifiers) == 0 {
			qualifiers = annotated.Annotations{annotated.Of(annotated.Default)}
		}

		var match *producerMember
		for _, p := range all {
			if p.bean.Types()[0] != disposed.BaseType() || !hasQualifiers(p.bean, qualifiers) {
				continue
			}
			if match != nil {
				return errors.Deployment(errors.CodeDeployment, memberName(m),
					"disposal method matches more than one producer")
			}
			match = p
		}
		if match == nil {
			return errors.Deployment(errors.CodeDeployment, memberName(m),
				"no producer for disposal method parameter %s %v", disposed.BaseType(), qualifiers)
		}
		if match.disposal != nil {
			return errors.Deployment(errors.CodeDeployment, memberName(m),
				"producer %s already has disposal method %s", memberName(match.member()), match.disposal.MemberName())
		}
		match.disposal = m
		match.disposalIPs = b.injection.MethodInjectionPoints(match.bean, m)
	}
	return nil
}

// processProducer fires ProcessProducer for p. A producer cleared by an
// extension fails the definition.
func (b *Builder) processProducer(p *producerMember) error {
	e := portable.NewProcessProducer(p.member(), p.bean.Producer())
	b.ctx.Dispatcher.Fire(e)
	if e.Producer() == nil {
		return errors.Deployment(errors.CodeProducerNotSet, memberName(p.member()), "producer not set")
	}
	if e.IsProducerSet() {
		p.bean.SetProducer(e.Producer())
	}
	return nil
}

func (b *Builder) fireProcessBean() {
	var e portable.Event
	switch b.kind {
	case DecoratorBean:
		e = portable.NewProcessDecorator(b.bean, b.annotated)
	case InterceptorBean:
		e = portable.NewProcessInterceptor(b.bean, b.annotated)
	default:
		e = portable.NewProcessManagedBean(b.bean, b.annotated)
	}
	b.ctx.Dispatcher.Fire(e)
	b.ctx.Checkpoint(e.Phase())
}

// register adds the primary bean, the producer method beans, wires disposal
// methods, then adds the producer field beans and the observers.
func (b *Builder) register() error {
	m := b.ctx.Manager
	if err := m.AddBean(b.bean); err != nil {
		return err
	}
	for _, p := range b.producerMethods {
		if err := m.AddBean(p.bean); err != nil {
			return err
		}
	}
	for _, p := range append(append([]*producerMember(nil), b.producerMethods...), b.producerFields...) {
		b.wireDisposalMethod(p)
	}
	for _, p := range b.producerFields {
		if err := m.AddBean(p.bean); err != nil {
			return err
		}
	}
	for _, o := range b.observers {
		m.Observers().AddObserver(o)
	}
	return nil
}

func (b *Builder) wireDisposalMethod(p *producerMember) {
	if p.disposal == nil {
		return
	}
	da, ok := p.bean.Producer().(bean.DisposalAware)
	if !ok {
		b.ctx.Logger.Debug("producer replaced by an extension ignores its disposal method",
			zap.String("type", b.annotated.Name()),
			zap.String("method", p.disposal.MemberName()),
		)
		return
	}
	da.SetDisposalMethod(p.disposal, p.disposalIPs)
}

// ── Decorators and interceptors ───────────────────────────────────────────────

// DefineDecorator defines an enabled decorator class through
// DefineManagedBean and configures it. An abstract class gets a synthesized
// concrete subtype whose constructor becomes the delegate's constructor.
// A decorator that is not enabled yields (nil, nil).
func (b *Builder) DefineDecorator(pit *portable.ProcessInjectionTarget) (*decorator.Decorator, error) {
	if b.kind != DecoratorBean {
		return nil, errors.IllegalState("%s is not a decorator", b.annotated)
	}
	dm := b.ctx.Decorators
	if !dm.IsEnabled(b.annotated) {
		return nil, nil
	}
	if err := dm.CheckConditions(b.annotated); err != nil {
		return nil, err
	}
	delegate, err := b.DefineManagedBean(pit)
	if err != nil {
		return nil, err
	}
	if delegate == nil {
		return nil, errors.Deployment(errors.CodeDecorator, b.annotated.Name(),
			"cannot create decorator for class %s", b.annotated.Name())
	}
	if b.annotated.IsAbstract() {
		sub, err := b.ctx.ProxyFactory.AbstractDecoratorSubtype(b.annotated)
		if err != nil {
			return nil, err
		}
		delegate.SetConstructor(sub.Constructors()[0])
		delegate.SetAbstractDecorator(true)
	}
	return dm.Configure(delegate)
}

// DefineInterceptor defines an enabled interceptor class through
// DefineManagedBean and configures it with the class's interceptor bindings.
// An interceptor that is not enabled yields (nil, nil).
func (b *Builder) DefineInterceptor(pit *portable.ProcessInjectionTarget) (*interceptor.Interceptor, error) {
	if b.kind != InterceptorBean {
		return nil, errors.IllegalState("%s is not an interceptor", b.annotated)
	}
	im := b.ctx.Interceptors
	if !im.IsEnabled(b.annotated) {
		return nil, nil
	}
	if err := im.CheckConditions(b.annotated); err != nil {
		return nil, err
	}
	delegate, err := b.DefineManagedBean(pit)
	if err != nil {
		return nil, err
	}
	if delegate == nil {
		return nil, errors.Deployment(errors.CodeInterceptor, b.annotated.Name(),
			"cannot create interceptor for class %s", b.annotated.Name())
	}
	return im.Configure(delegate, im.Bindings(b.annotated))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func parameter(m *annotated.Method, name string) *annotated.Parameter {
	for _, p := range m.Parameters() {
		if p.IsAnnotationPresent(name) {
			return p
		}
	}
	return nil
}

func hasParameter(m *annotated.Method, name string) bool { return parameter(m, name) != nil }

func hasQualifiers(b *bean.Bean, qualifiers annotated.Annotations) bool {
	for _, q := range qualifiers {
		if !b.HasQualifier(q) {
			return false
		}
	}
	return true
}
