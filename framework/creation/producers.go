package creation

import (
	"strconv"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/container"
	"github.com/km-arc/go-webbeans/framework/deployment"
	"github.com/km-arc/go-webbeans/framework/errors"
	"github.com/km-arc/go-webbeans/framework/event"
	"github.com/km-arc/go-webbeans/framework/metadata"
)

// ProducerAdapter turns producer members and observer methods of a declaring
// bean into secondary beans and observer methods. Nothing is instantiated.
type ProducerAdapter interface {
	ProducerMethod(parent *bean.Bean, m *annotated.Method) (*bean.Bean, error)
	ProducerField(parent *bean.Bean, f *annotated.Field) (*bean.Bean, error)
	ObserverMethod(parent *bean.Bean, m *annotated.Method) (*event.ObserverMethod, error)
}

// NewProducerAdapter returns the default adapter of a deployment.
func NewProducerAdapter(ctx *deployment.Context) ProducerAdapter {
	return &producerAdapter{ctx: ctx}
}

type producerAdapter struct {
	ctx *deployment.Context
}

func (a *producerAdapter) ProducerMethod(parent *bean.Bean, m *annotated.Method) (*bean.Bean, error) {
	if m.BaseType() == nil {
		return nil, errors.Deployment(errors.CodeDeployment, memberName(m),
			"producer method must return a value")
	}
	b := bean.New(bean.ProducerMethod, parent.BeanClass(), m)
	b.SetParent(parent, m)
	if err := a.define(parent, b, m); err != nil {
		return nil, err
	}
	for _, ip := range a.ctx.Resolver.MethodInjectionPoints(b, m) {
		b.AddInjectionPoint(ip)
	}
	if err := a.ctx.Extractor.CheckPassivation(b); err != nil {
		return nil, err
	}
	b.SetProducer(container.NewProducerMethodProducer(b, m, a.ctx.Manager))
	return b, nil
}

func (a *producerAdapter) ProducerField(parent *bean.Bean, f *annotated.Field) (*bean.Bean, error) {
	b := bean.New(bean.ProducerField, parent.BeanClass(), f)
	b.SetParent(parent, f)
	if err := a.define(parent, b, f); err != nil {
		return nil, err
	}
	if err := a.ctx.Extractor.CheckPassivation(b); err != nil {
		return nil, err
	}
	b.SetProducer(container.NewProducerFieldProducer(b, f, a.ctx.Manager))
	return b, nil
}

// define derives the metadata shared by producer methods and fields. A
// producer of a disabled bean is disabled.
func (a *producerAdapter) define(parent, b *bean.Bean, member annotated.Member) error {
	x := a.ctx.Extractor
	x.DefineAPITypes(b, metadata.ProducerTypes(member.BaseType()))
	x.DefineStereotypes(b, member)
	if err := x.DefineScope(b, member, "producer "+memberName(member)+" declares more than one scope"); err != nil {
		return err
	}
	x.DefineSerializable(b, member)
	if parent.IsEnabled() {
		x.DefineEnabled(b)
	} else {
		b.SetEnabled(false)
	}
	if err := x.CheckUnproxiableAPIType(b); err != nil {
		return err
	}
	x.DefineName(b, member, metadata.DefaultProducerName(member))
	x.DefineQualifiers(b, member)
	return nil
}

// ObserverMethod reads the observed type and qualifiers from the Observes
// parameter. An Observes annotation with notifyObserver=IF_EXISTS makes the
// observer conditional; Priority on the method orders it.
func (a *producerAdapter) ObserverMethod(parent *bean.Bean, m *annotated.Method) (*event.ObserverMethod, error) {
	var observed *annotated.Parameter
	for _, p := range m.Parameters() {
		if !p.IsAnnotationPresent(annotated.Observes) {
			continue
		}
		if observed != nil {
			return nil, errors.Deployment(errors.CodeDeployment, memberName(m),
				"observer method has more than one @Observes parameter")
		}
		observed = p
	}
	if observed == nil {
		return nil, errors.IllegalState("%s has no @Observes parameter", memberName(m))
	}

	o := &event.ObserverMethod{
		Bean:            parent,
		Method:          m,
		ObservedType:    observed.BaseType(),
		Qualifiers:      a.ctx.Annotations.Qualifiers(observed.Annotations()),
		InjectionPoints: a.ctx.Resolver.MethodInjectionPoints(parent, m),
	}
	for _, anno := range observed.Annotations() {
		if anno.Name == annotated.Observes && anno.Value("notifyObserver") == "IF_EXISTS" {
			o.Reception = event.IfExists
		}
	}
	if o.Reception == event.IfExists && parent.Scope() == annotated.Dependent {
		return nil, errors.Deployment(errors.CodeDeployment, memberName(m),
			"conditional observer may not be declared by a @Dependent bean")
	}
	if p, ok := m.Annotation(annotated.Priority); ok {
		n, err := strconv.Atoi(p.Value("value"))
		if err != nil {
			return nil, errors.Deployment(errors.CodeDeployment, memberName(m),
				"invalid @Priority %q", p.Value("value"))
		}
		o.Priority = n
	}
	return o, nil
}

func memberName(m annotated.Member) string {
	return m.DeclaringType().Name() + "." + m.MemberName()
}
