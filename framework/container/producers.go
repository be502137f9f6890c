package container

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/errors"
	"github.com/km-arc/go-webbeans/framework/event"
)

// PostConstructor is implemented by instances needing initialization after
// injection.
type PostConstructor interface {
	PostConstruct() error
}

// PreDestroyer is implemented by instances needing cleanup before they are
// discarded.
type PreDestroyer interface {
	PreDestroy()
}

// ── InjectionTarget ───────────────────────────────────────────────────────────

// InjectionTarget is the default producer of a managed bean: constructor
// injection, field injection, initializer methods and lifecycle callbacks.
// It reads the injection points of its bean when an instance is created, so
// it can be attached before they are resolved.
type InjectionTarget struct {
	bean    *bean.Bean
	manager *BeanManager
}

var _ bean.InjectionTarget = (*InjectionTarget)(nil)

func NewInjectionTarget(b *bean.Bean, m *BeanManager) *InjectionTarget {
	return &InjectionTarget{bean: b, manager: m}
}

func (t *InjectionTarget) InjectionPoints() []*bean.InjectionPoint {
	return t.bean.InjectionPoints()
}

// Produce calls the bean constructor. Without one, the zero value of the
// bean class is allocated.
func (t *InjectionTarget) Produce(cc bean.CreationalContext) (any, error) {
	c := t.bean.Constructor()
	if c == nil {
		if at, ok := t.bean.Annotated().(*annotated.Type); ok && at.IsAbstract() {
			return nil, errors.IllegalState("cannot instantiate abstract %s", at)
		}
		return reflect.New(t.bean.BeanClass()).Interface(), nil
	}
	args, err := arguments(t.manager, c, t.bean.InjectionPoints(), cc)
	if err != nil {
		return nil, err
	}
	return c.Invoke(args)
}

// Inject sets injected fields, then calls initializer methods.
func (t *InjectionTarget) Inject(instance any, cc bean.CreationalContext) error {
	for _, ip := range t.bean.InjectionPoints() {
		f, ok := ip.Member.(*annotated.Field)
		if !ok || ip.Delegate {
			continue
		}
		v, err := t.manager.InjectableReference(ip, cc)
		if err != nil {
			return err
		}
		f.Set(instance, v)
	}

	at, ok := t.bean.Annotated().(*annotated.Type)
	if !ok {
		return nil
	}
	for _, m := range at.Methods() {
		if !m.IsAnnotationPresent(annotated.Inject) {
			continue
		}
		args, err := arguments(t.manager, m, t.bean.InjectionPoints(), cc)
		if err != nil {
			return err
		}
		if _, err := m.Invoke(instance, args); err != nil {
			return err
		}
	}
	return nil
}

func (t *InjectionTarget) PostConstruct(instance any) error {
	if pc, ok := instance.(PostConstructor); ok {
		return pc.PostConstruct()
	}
	return nil
}

func (t *InjectionTarget) PreDestroy(instance any) {
	if pd, ok := instance.(PreDestroyer); ok {
		pd.PreDestroy()
	}
}

// Dispose runs the pre destroy callback.
func (t *InjectionTarget) Dispose(instance any) { t.PreDestroy(instance) }

// ── Producer methods and fields ───────────────────────────────────────────────

// disposer invokes the disposal method wired to a producer bean.
type disposer struct {
	bean     *bean.Bean
	manager  *BeanManager
	disposal *annotated.Method
	ips      []*bean.InjectionPoint
}

func (d *disposer) SetDisposalMethod(m *annotated.Method, ips []*bean.InjectionPoint) {
	d.disposal = m
	d.ips = ips
}

// DisposalMethod returns the wired disposal method, nil if none.
func (d *disposer) DisposalMethod() *annotated.Method { return d.disposal }

func (d *disposer) InjectionPoints() []*bean.InjectionPoint { return d.bean.InjectionPoints() }

func (d *disposer) Dispose(instance any) {
	if d.disposal == nil {
		return
	}
	err := func() error {
		receiver, release, err := declaringInstance(d.manager, d.bean.Parent())
		if err != nil {
			return err
		}
		defer release()

		cc := bean.NewCreationalContext(d.bean)
		defer cc.Release()
		args, err := arguments(d.manager, d.disposal, d.ips, cc)
		if err != nil {
			return err
		}
		for i, p := range d.disposal.Parameters() {
			if p.IsAnnotationPresent(annotated.Disposes) {
				args[i] = event.Value(instance, p.BaseType())
			}
		}
		_, err = d.disposal.Invoke(receiver, args)
		return err
	}()
	if err != nil {
		d.manager.logger.Warn("disposal method failed",
			zap.String("bean", d.bean.Key()),
			zap.String("method", d.disposal.MemberName()),
			zap.Error(err),
		)
	}
}

// ProducerMethodProducer creates instances by calling a producer method on
// the declaring bean.
type ProducerMethodProducer struct {
	disposer
	method *annotated.Method
}

var _ bean.DisposalAware = (*ProducerMethodProducer)(nil)

func NewProducerMethodProducer(b *bean.Bean, m *annotated.Method, manager *BeanManager) *ProducerMethodProducer {
	return &ProducerMethodProducer{disposer: disposer{bean: b, manager: manager}, method: m}
}

func (p *ProducerMethodProducer) Produce(cc bean.CreationalContext) (any, error) {
	receiver, release, err := declaringInstance(p.manager, p.bean.Parent())
	if err != nil {
		return nil, err
	}
	defer release()
	args, err := arguments(p.manager, p.method, p.bean.InjectionPoints(), cc)
	if err != nil {
		return nil, err
	}
	return p.method.Invoke(receiver, args)
}

// ProducerFieldProducer creates instances by reading a producer field of the
// declaring bean.
type ProducerFieldProducer struct {
	disposer
	field *annotated.Field
}

var _ bean.DisposalAware = (*ProducerFieldProducer)(nil)

func NewProducerFieldProducer(b *bean.Bean, f *annotated.Field, manager *BeanManager) *ProducerFieldProducer {
	return &ProducerFieldProducer{disposer: disposer{bean: b, manager: manager}, field: f}
}

func (p *ProducerFieldProducer) Produce(cc bean.CreationalContext) (any, error) {
	receiver, release, err := declaringInstance(p.manager, p.bean.Parent())
	if err != nil {
		return nil, err
	}
	defer release()
	return p.field.Get(receiver), nil
}

// ── Synthetic beans ───────────────────────────────────────────────────────────

// NewSyntheticBean creates a bean of type t backed by p. It is not derived
// from an annotated type. Without qualifiers it gets Default; Any is always
// added.
//
//	b := container.NewSyntheticBean(bean.Builtin, reflect.TypeOf(clock), annotated.Singleton,
//	    bean.ProducerFunc(func(bean.CreationalContext) (any, error) { return clock, nil }))
func NewSyntheticBean(kind bean.Kind, t reflect.Type, scope string, p bean.Producer, qualifiers ...annotated.Annotation) *bean.Bean {
	b := bean.New(kind, t, nil)
	b.SetTypes([]reflect.Type{t, annotated.TypeOf[any]()})
	b.SetScope(scope)
	if len(qualifiers) == 0 {
		qualifiers = []annotated.Annotation{annotated.Of(annotated.Default)}
	}
	for _, q := range qualifiers {
		b.AddQualifier(q)
	}
	b.AddQualifier(annotated.Of(annotated.Any))
	b.SetProducer(p)
	return b
}

// ── helpers ───────────────────────────────────────────────────────────────────

// declaringInstance returns the receiver of a producer or disposal member.
// Dependent receivers are destroyed by release.
func declaringInstance(m *BeanManager, parent *bean.Bean) (any, func(), error) {
	cc := bean.NewCreationalContext(parent)
	instance, err := m.Reference(parent, cc)
	if err != nil {
		return nil, func() {}, err
	}
	if parent.Scope() != annotated.Dependent {
		return instance, func() {}, nil
	}
	return instance, func() { Destroy(parent, instance, cc) }, nil
}

// arguments resolves the parameters of c from the injection points declared
// on it. Parameters without one are left zero.
func arguments(m *BeanManager, c annotated.Callable, ips []*bean.InjectionPoint, cc bean.CreationalContext) ([]reflect.Value, error) {
	params := c.Parameters()
	args := make([]reflect.Value, len(params))
	for _, ip := range ips {
		if ip.Parameter == nil || ip.Parameter.Callable() != c || ip.Delegate {
			continue
		}
		v, err := m.InjectableReference(ip, cc)
		if err != nil {
			return nil, err
		}
		args[ip.Parameter.Position()] = event.Value(v, ip.Parameter.BaseType())
	}
	for i, a := range args {
		if !a.IsValid() {
			args[i] = reflect.Zero(params[i].BaseType())
		}
	}
	return args, nil
}
