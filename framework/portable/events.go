package portable

import (
	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/container"
	"github.com/km-arc/go-webbeans/framework/errors"
	"github.com/km-arc/go-webbeans/framework/event"
	"github.com/km-arc/go-webbeans/framework/metadata"
)

// ── BeforeBeanDiscovery ───────────────────────────────────────────────────────

// BeforeBeanDiscovery lets extensions declare annotations before any type is
// processed.
type BeforeBeanDiscovery struct {
	phase
	annotations *metadata.AnnotationManager
}

func NewBeforeBeanDiscovery(annotations *metadata.AnnotationManager) *BeforeBeanDiscovery {
	return &BeforeBeanDiscovery{phase: phase{name: "BeforeBeanDiscovery"}, annotations: annotations}
}

func (e *BeforeBeanDiscovery) AddQualifier(name string) {
	e.guard("AddQualifier")
	e.annotations.AddQualifier(name)
}

func (e *BeforeBeanDiscovery) AddScope(name string, normal, passivating bool) {
	e.guard("AddScope")
	e.annotations.AddScope(name, normal, passivating)
}

func (e *BeforeBeanDiscovery) AddStereotype(name string, metas ...annotated.Annotation) {
	e.guard("AddStereotype")
	e.annotations.AddStereotype(name, metas...)
}

func (e *BeforeBeanDiscovery) AddInterceptorBinding(name string) {
	e.guard("AddInterceptorBinding")
	e.annotations.AddInterceptorBinding(name)
}

// ── ProcessInjectionTarget ────────────────────────────────────────────────────

// ProcessInjectionTarget carries the default injection target of a type.
// Extensions may wrap or replace it.
type ProcessInjectionTarget struct {
	phase
	annotatedType *annotated.Type
	target        bean.InjectionTarget
}

func NewProcessInjectionTarget(at *annotated.Type, target bean.InjectionTarget) *ProcessInjectionTarget {
	return &ProcessInjectionTarget{
		phase:         phase{name: "ProcessInjectionTarget"},
		annotatedType: at,
		target:        target,
	}
}

func (e *ProcessInjectionTarget) AnnotatedType() *annotated.Type { return e.annotatedType }

// InjectionTarget returns the current target. It may be read after delivery.
func (e *ProcessInjectionTarget) InjectionTarget() bean.InjectionTarget { return e.target }

func (e *ProcessInjectionTarget) SetInjectionTarget(it bean.InjectionTarget) {
	e.guard("SetInjectionTarget")
	if it == nil {
		panic(errors.IllegalState("nil injection target for %s", e.annotatedType))
	}
	e.target = it
}

// ── ProcessProducer ───────────────────────────────────────────────────────────

// ProcessProducer is fired once per producer method or field before the
// declaring bean's own process event.
type ProcessProducer struct {
	phase
	member   annotated.Member
	producer bean.Producer
	set      bool
}

func NewProcessProducer(member annotated.Member, producer bean.Producer) *ProcessProducer {
	return &ProcessProducer{phase: phase{name: "ProcessProducer"}, member: member, producer: producer}
}

func (e *ProcessProducer) AnnotatedMember() annotated.Member { return e.member }

// Producer returns the current producer, nil if an extension cleared it.
func (e *ProcessProducer) Producer() bean.Producer { return e.producer }

func (e *ProcessProducer) SetProducer(p bean.Producer) {
	e.guard("SetProducer")
	e.producer = p
	e.set = true
}

// IsProducerSet reports whether an extension called SetProducer.
func (e *ProcessProducer) IsProducerSet() bool { return e.set }

// ── Process bean events ───────────────────────────────────────────────────────

type processBean struct {
	phase
	bean          *bean.Bean
	annotatedType *annotated.Type
}

func (e *processBean) Bean() *bean.Bean                    { return e.bean }
func (e *processBean) AnnotatedBeanClass() *annotated.Type { return e.annotatedType }

// ProcessManagedBean is fired for a managed bean once its metadata and
// producers are finalized.
type ProcessManagedBean struct{ processBean }

func NewProcessManagedBean(b *bean.Bean, at *annotated.Type) *ProcessManagedBean {
	return &ProcessManagedBean{processBean{phase: phase{name: "ProcessManagedBean"}, bean: b, annotatedType: at}}
}

// ProcessDecorator replaces ProcessManagedBean for decorators.
type ProcessDecorator struct{ processBean }

func NewProcessDecorator(b *bean.Bean, at *annotated.Type) *ProcessDecorator {
	return &ProcessDecorator{processBean{phase: phase{name: "ProcessDecorator"}, bean: b, annotatedType: at}}
}

// ProcessInterceptor replaces ProcessManagedBean for interceptors.
type ProcessInterceptor struct{ processBean }

func NewProcessInterceptor(b *bean.Bean, at *annotated.Type) *ProcessInterceptor {
	return &ProcessInterceptor{processBean{phase: phase{name: "ProcessInterceptor"}, bean: b, annotatedType: at}}
}

// ProcessProducerMethod is fired per producer method bean after the declaring
// bean passed inspection.
type ProcessProducerMethod struct {
	phase
	bean     *bean.Bean
	method   *annotated.Method
	disposal *annotated.Method
}

func NewProcessProducerMethod(b *bean.Bean, m, disposal *annotated.Method) *ProcessProducerMethod {
	return &ProcessProducerMethod{phase: phase{name: "ProcessProducerMethod"}, bean: b, method: m, disposal: disposal}
}

func (e *ProcessProducerMethod) Bean() *bean.Bean                           { return e.bean }
func (e *ProcessProducerMethod) AnnotatedProducerMethod() *annotated.Method { return e.method }

// AnnotatedDisposedParameter returns the disposal method, nil if none.
func (e *ProcessProducerMethod) AnnotatedDisposedParameter() *annotated.Method { return e.disposal }

// ProcessProducerField is fired per producer field bean.
type ProcessProducerField struct {
	phase
	bean  *bean.Bean
	field *annotated.Field
}

func NewProcessProducerField(b *bean.Bean, f *annotated.Field) *ProcessProducerField {
	return &ProcessProducerField{phase: phase{name: "ProcessProducerField"}, bean: b, field: f}
}

func (e *ProcessProducerField) Bean() *bean.Bean                         { return e.bean }
func (e *ProcessProducerField) AnnotatedProducerField() *annotated.Field { return e.field }

// ProcessObserverMethod is fired per observer method of a bean.
type ProcessObserverMethod struct {
	phase
	observer *event.ObserverMethod
}

func NewProcessObserverMethod(o *event.ObserverMethod) *ProcessObserverMethod {
	return &ProcessObserverMethod{phase: phase{name: "ProcessObserverMethod"}, observer: o}
}

func (e *ProcessObserverMethod) ObserverMethod() *event.ObserverMethod { return e.observer }
func (e *ProcessObserverMethod) AnnotatedMethod() *annotated.Method    { return e.observer.Method }

// ── AfterBeanDiscovery ────────────────────────────────────────────────────────

// AfterBeanDiscovery forwards additions to the bean manager, its contexts
// and its observer index.
type AfterBeanDiscovery struct {
	phase
	manager *container.BeanManager
}

func NewAfterBeanDiscovery(manager *container.BeanManager) *AfterBeanDiscovery {
	return &AfterBeanDiscovery{phase: phase{name: "AfterBeanDiscovery"}, manager: manager}
}

// AddBean registers a bean. A rejected bean becomes a definition error.
// Once this phase recorded a definition error no further bean is
// registered.
func (e *AfterBeanDiscovery) AddBean(b *bean.Bean) {
	e.guard("AddBean")
	if b != nil && e.failed() {
		e.errs.Push(e.name, errors.Deployment(errors.CodeDefinition, b.Key(),
			"bean rejected: %s has definition errors", e.name))
		return
	}
	if err := e.manager.AddBean(b); err != nil {
		e.errs.Push(e.name, err)
	}
}

func (e *AfterBeanDiscovery) AddContext(c container.Context) {
	e.guard("AddContext")
	e.manager.AddContext(c)
}

// AddObserverMethod indexes an observer. It needs an observed type and
// either a Func or a Method declared by a Bean; anything else is a
// definition error.
func (e *AfterBeanDiscovery) AddObserverMethod(o *event.ObserverMethod) {
	e.guard("AddObserverMethod")
	switch {
	case o == nil:
		e.errs.Push(e.name, errors.Deployment(errors.CodeDefinition, "", "nil observer method"))
	case o.ObservedType == nil:
		e.errs.Push(e.name, errors.Deployment(errors.CodeDefinition, "", "%s has no observed type", o))
	case o.Func == nil && (o.Method == nil || o.Bean == nil):
		e.errs.Push(e.name, errors.Deployment(errors.CodeDefinition, "", "%s has neither a func nor a bean method", o))
	default:
		e.manager.Observers().AddObserver(o)
	}
}

// ── AfterDeploymentValidation / BeforeShutdown ────────────────────────────────

// AfterDeploymentValidation is fired once the bean manager validated every
// injection point.
type AfterDeploymentValidation struct {
	phase
}

func NewAfterDeploymentValidation() *AfterDeploymentValidation {
	return &AfterDeploymentValidation{phase: phase{name: "AfterDeploymentValidation"}}
}

// AddDeploymentProblem fails the deployment at the next inspection.
func (e *AfterDeploymentValidation) AddDeploymentProblem(err error) {
	e.guard("AddDeploymentProblem")
	e.errs.Push(e.name, err)
}

// BeforeShutdown is fired before contexts are destroyed.
type BeforeShutdown struct {
	phase
}

func NewBeforeShutdown() *BeforeShutdown {
	return &BeforeShutdown{phase: phase{name: "BeforeShutdown"}}
}
