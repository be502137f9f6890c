package container

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/errors"
	"github.com/km-arc/go-webbeans/framework/event"
)

// ── BeanManager ───────────────────────────────────────────────────────────────

// BeanManager is the bean registry of one deployment.
//
// It supports:
//   - AddBean (terminal step of bean definition; seals the bean)
//   - Beans / BeansByName / Resolve (typesafe and name based lookup)
//   - Reference / InjectableReference (contextual instances)
//   - AddContext / Context (scope contexts)
//   - Observers / FireEvent (observer index)
//   - Validate (every injection point resolves to exactly one bean)
//   - AfterResolving / OnRegister callbacks
type BeanManager struct {
	mu sync.RWMutex

	// registration order
	beans []*bean.Bean

	// identity → registered
	ids map[uuid.UUID]bool

	// EL name → beans
	names map[string][]*bean.Bean

	// scope → context
	contexts map[string]Context

	observers *event.NotificationManager

	// callbacks fired after a contextual instance is created
	afterResolving []func(*bean.Bean, any)

	// callbacks fired after a bean is registered
	onRegister []func(*bean.Bean)

	logger *zap.Logger
}

// New creates an empty manager with Dependent, Singleton and
// ApplicationScoped contexts.
func New(logger *zap.Logger) *BeanManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &BeanManager{
		ids:      make(map[uuid.UUID]bool),
		names:    make(map[string][]*bean.Bean),
		contexts: make(map[string]Context),
		logger:   logger,
	}
	m.observers = event.NewNotificationManager(m, logger)
	m.AddContext(dependentContext{})
	m.AddContext(NewCachedContext(annotated.Singleton))
	m.AddContext(NewCachedContext(annotated.ApplicationScoped))
	return m
}

// ── Registration ──────────────────────────────────────────────────────────────

// AddBean registers b and seals it. The same bean instance cannot be added
// twice; distinct definitions of one class coexist under their own ids.
func (m *BeanManager) AddBean(b *bean.Bean) error {
	if b == nil {
		return errors.IllegalState("nil bean")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids[b.ID()] {
		return errors.Deployment(errors.CodeDuplicateBean, b.Key(), "bean %s is already registered", b.ID())
	}
	b.Seal()
	m.ids[b.ID()] = true
	m.beans = append(m.beans, b)
	if b.Name() != "" {
		m.names[b.Name()] = append(m.names[b.Name()], b)
	}
	m.logger.Debug("bean registered",
		zap.String("bean", b.Key()),
		zap.Stringer("kind", b.Kind()),
		zap.Bool("enabled", b.IsEnabled()),
	)
	for _, cb := range m.onRegister {
		cb(b)
	}
	return nil
}

// AddContext registers c for its scope, replacing any previous one.
func (m *BeanManager) AddContext(c Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contexts[c.Scope()] = c
}

// ── Lookup ────────────────────────────────────────────────────────────────────

// All returns every registered bean, enabled or not, in registration order.
func (m *BeanManager) All() []*bean.Bean {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*bean.Bean(nil), m.beans...)
}

// Beans returns the enabled beans having type t and every qualifier given.
// Without qualifiers, Default is required.
//
//	beans := m.Beans(reflect.TypeOf((*Greeting)(nil)).Elem(), annotated.Name("polite"))
func (m *BeanManager) Beans(t reflect.Type, qualifiers ...annotated.Annotation) []*bean.Bean {
	if len(qualifiers) == 0 {
		qualifiers = []annotated.Annotation{annotated.Of(annotated.Default)}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*bean.Bean
	for _, b := range m.beans {
		if b.IsEnabled() && b.HasType(t) && hasAll(b, qualifiers) {
			out = append(out, b)
		}
	}
	return out
}

// BeansByName returns the enabled beans called name.
func (m *BeanManager) BeansByName(name string) []*bean.Bean {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*bean.Bean
	for _, b := range m.names[name] {
		if b.IsEnabled() {
			out = append(out, b)
		}
	}
	return out
}

// Resolve picks the single bean among candidates. Selected alternatives win
// over other beans.
func (m *BeanManager) Resolve(candidates []*bean.Bean) (*bean.Bean, error) {
	if len(candidates) > 1 {
		var alternatives []*bean.Bean
		for _, b := range candidates {
			if b.IsAlternative() {
				alternatives = append(alternatives, b)
			}
		}
		if len(alternatives) > 0 {
			candidates = alternatives
		}
	}
	switch len(candidates) {
	case 0:
		return nil, errors.Deployment(errors.CodeUnsatisfied, "", "unsatisfied dependency")
	case 1:
		return candidates[0], nil
	}
	return nil, errors.Deployment(errors.CodeAmbiguous, "", "ambiguous dependency: %d beans", len(candidates))
}

// Lookup resolves the single bean of type t with qualifiers.
func (m *BeanManager) Lookup(t reflect.Type, qualifiers ...annotated.Annotation) (*bean.Bean, error) {
	b, err := m.Resolve(m.Beans(t, qualifiers...))
	if err != nil {
		return nil, errors.Deployment(codeOf(err), t.String(), "%v with qualifiers %v", err, qualifiers)
	}
	return b, nil
}

// ── Instances ─────────────────────────────────────────────────────────────────

// CreateCreationalContext returns a fresh context for creating b.
func (m *BeanManager) CreateCreationalContext(b *bean.Bean) *bean.DefaultCreationalContext {
	return bean.NewCreationalContext(b)
}

// Context returns the context of scope, CONTEXT_NOT_ACTIVE if none.
func (m *BeanManager) Context(scope string) (Context, error) {
	m.mu.RLock()
	c, ok := m.contexts[scope]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.Deployment(errors.CodeContextNotActive, scope, "no active context for scope @%s", scope)
	}
	return c, nil
}

// Reference returns the contextual instance of b.
func (m *BeanManager) Reference(b *bean.Bean, cc bean.CreationalContext) (any, error) {
	c, err := m.Context(b.Scope())
	if err != nil {
		return nil, err
	}
	_, existed := c.GetExisting(b)
	instance, err := c.Get(b, cc)
	if err != nil {
		return nil, err
	}
	if !existed {
		m.fireAfterResolving(b, instance)
	}
	return instance, nil
}

// InjectableReference resolves ip and returns the instance to inject.
// Dependent instances are attached to cc and destroyed with it.
func (m *BeanManager) InjectableReference(ip *bean.InjectionPoint, cc bean.CreationalContext) (any, error) {
	b, err := m.Resolve(m.Beans(ip.Type, ip.Qualifiers...))
	if err != nil {
		return nil, errors.Deployment(codeOf(err), ip.Type.String(), "%v for injection point %s", err, ip)
	}

	var child bean.CreationalContext
	if dcc, ok := cc.(*bean.DefaultCreationalContext); ok {
		if dcc.Creating(b) {
			return nil, errors.Deployment(errors.CodeDeployment, b.Key(), "circular dependency at %s", ip)
		}
		child = dcc.Child(b)
	} else {
		child = bean.NewCreationalContext(b)
	}

	instance, err := m.Reference(b, child)
	if err != nil {
		return nil, err
	}
	if cc != nil && b.Scope() == annotated.Dependent {
		cc.AddDependent(b, instance)
	}
	return instance, nil
}

// Instance implements event.Resolver.
func (m *BeanManager) Instance(b *bean.Bean, create bool, cc bean.CreationalContext) (any, bool, error) {
	if !create {
		c, err := m.Context(b.Scope())
		if err != nil {
			return nil, false, nil
		}
		instance, ok := c.GetExisting(b)
		return instance, ok, nil
	}
	if b.Scope() != annotated.Dependent {
		// the context keeps the creational context of cached instances
		cc = m.CreateCreationalContext(b)
	}
	instance, err := m.Reference(b, cc)
	if err != nil {
		return nil, false, err
	}
	if cc != nil && b.Scope() == annotated.Dependent {
		cc.AddDependent(b, instance)
	}
	return instance, true, nil
}

// ── Events ────────────────────────────────────────────────────────────────────

// Observers returns the observer index.
func (m *BeanManager) Observers() *event.NotificationManager { return m.observers }

// FireEvent notifies the observers of evt.
func (m *BeanManager) FireEvent(evt any, qualifiers ...annotated.Annotation) error {
	return m.observers.Fire(evt, qualifiers...)
}

// ── Validation ────────────────────────────────────────────────────────────────

// Validate checks that every injection point of every enabled bean and
// observer resolves to exactly one bean. All failures are reported.
func (m *BeanManager) Validate() error {
	var errs []error
	check := func(ip *bean.InjectionPoint) {
		if ip.Delegate {
			return
		}
		if _, err := m.Resolve(m.Beans(ip.Type, ip.Qualifiers...)); err != nil {
			errs = append(errs, errors.Deployment(codeOf(err), ip.Type.String(), "%v for injection point %s", err, ip))
		}
	}
	for _, b := range m.All() {
		if !b.IsEnabled() {
			continue
		}
		for _, ip := range b.InjectionPoints() {
			check(ip)
		}
	}
	for _, o := range m.observers.All() {
		for _, ip := range o.InjectionPoints {
			check(ip)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Aggregate("deployment validation failed", errs)
}

// Shutdown destroys every context. The manager must not be used afterwards.
func (m *BeanManager) Shutdown() {
	m.mu.Lock()
	contexts := m.contexts
	m.contexts = make(map[string]Context)
	m.mu.Unlock()
	for scope, c := range contexts {
		c.Destroy()
		m.logger.Debug("context destroyed", zap.String("scope", scope))
	}
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// AfterResolving registers a callback fired after a contextual instance is
// created.
func (m *BeanManager) AfterResolving(cb func(b *bean.Bean, instance any)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.afterResolving = append(m.afterResolving, cb)
}

// OnRegister registers a callback fired after each AddBean. Callbacks run
// under the registry lock and must not call back into the manager.
func (m *BeanManager) OnRegister(cb func(b *bean.Bean)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRegister = append(m.onRegister, cb)
}

func (m *BeanManager) fireAfterResolving(b *bean.Bean, instance any) {
	m.mu.RLock()
	cbs := m.afterResolving
	m.mu.RUnlock()
	for _, cb := range cbs {
		cb(b, instance)
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func hasAll(b *bean.Bean, qualifiers []annotated.Annotation) bool {
	for _, q := range qualifiers {
		if !b.HasQualifier(q) {
			return false
		}
	}
	return true
}

func codeOf(err error) string {
	var de *errors.DeploymentError
	if errors.As(err, &de) {
		return de.Code
	}
	return errors.CodeDeployment
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve looks up the single bean of type T and returns its contextual
// instance.
//
//	greeter, err := container.Resolve[Greeting](m)
//	polite, err := container.Resolve[Greeting](m, annotated.Name("polite"))
func Resolve[T any](m *BeanManager, qualifiers ...annotated.Annotation) (T, error) {
	var zero T
	b, err := m.Lookup(annotated.TypeOf[T](), qualifiers...)
	if err != nil {
		return zero, err
	}
	instance, err := m.Reference(b, m.CreateCreationalContext(b))
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("container: Resolve[%s]: %s produced %T", annotated.TypeOf[T](), b, instance)
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on failure.
func MustResolve[T any](m *BeanManager, qualifiers ...annotated.Annotation) T {
	v, err := Resolve[T](m, qualifiers...)
	if err != nil {
		panic(err)
	}
	return v
}
