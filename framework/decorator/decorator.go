// Package decorator holds decorator enablement, validation and
// configuration, and the proxy factory used for abstract decorators.
package decorator

import (
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/errors"
	"github.com/km-arc/go-webbeans/framework/metadata"
)

var anyType = annotated.TypeOf[any]()

// Decorator is the decorator configuration attached to a delegate bean.
type Decorator struct {
	Bean               *bean.Bean
	DecoratedTypes     []reflect.Type
	DelegateType       reflect.Type
	DelegateQualifiers annotated.Annotations
}

// Decorates reports whether d applies to a bean with types and qualifiers.
func (d *Decorator) Decorates(types []reflect.Type, qualifiers annotated.Annotations) bool {
	for _, q := range d.DelegateQualifiers {
		if !qualifiers.Contains(q) {
			return false
		}
	}
	for _, dt := range d.DecoratedTypes {
		for _, t := range types {
			if t == dt {
				return true
			}
		}
	}
	return false
}

// Manager tracks the enabled decorators. Enablement order is the order in
// which decorators wrap a bean, outermost first.
type Manager struct {
	mu         sync.RWMutex
	order      map[string]int
	decorators []*Decorator
	logger     *zap.Logger
}

// NewManager enables the decorator classes listed by type key.
func NewManager(enabled []string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{order: make(map[string]int, len(enabled)), logger: logger}
	for i, key := range enabled {
		if _, dup := m.order[key]; !dup {
			m.order[key] = i
		}
	}
	return m
}

// IsEnabled reports whether the decorator class is in the enablement list.
func (m *Manager) IsEnabled(at *annotated.Type) bool {
	_, ok := m.order[annotated.TypeKey(at.GoType())]
	return ok
}

// CheckConditions validates a decorator class: exactly one delegate
// injection point, at least one decorated interface the delegate type
// satisfies, and no producer or observer methods.
func (m *Manager) CheckConditions(at *annotated.Type) error {
	delegates := delegateTypes(at)
	if len(delegates) != 1 {
		return errors.Deployment(errors.CodeDecorator, at.Name(),
			"decorator must have exactly one delegate injection point, found %d", len(delegates))
	}
	decorated := decoratedTypes(at.TypeClosure())
	if len(decorated) == 0 {
		return errors.Deployment(errors.CodeDecorator, at.Name(), "decorator does not decorate any interface")
	}
	for _, it := range decorated {
		if !delegates[0].Implements(it) {
			return errors.Deployment(errors.CodeDecorator, at.Name(),
				"delegate type %s does not implement decorated type %s", delegates[0], it)
		}
	}
	return metadata.CheckNoProducersOrObservers(at, errors.CodeDecorator, "decorator")
}

// Configure builds the decorator configuration for the delegate bean b and
// adds it to the enabled decorators.
func (m *Manager) Configure(b *bean.Bean) (*Decorator, error) {
	var delegate *bean.InjectionPoint
	for _, ip := range b.InjectionPoints() {
		if ip.Delegate {
			delegate = ip
			break
		}
	}
	if delegate == nil {
		return nil, errors.Deployment(errors.CodeDecorator, annotated.TypeKey(b.BeanClass()),
			"decorator has no delegate injection point")
	}
	d := &Decorator{
		Bean:               b,
		DecoratedTypes:     decoratedTypes(b.Types()),
		DelegateType:       delegate.Type,
		DelegateQualifiers: delegate.Qualifiers,
	}

	m.mu.Lock()
	m.decorators = append(m.decorators, d)
	m.mu.Unlock()

	m.logger.Debug("decorator configured",
		zap.String("type", annotated.TypeKey(b.BeanClass())),
		zap.Stringer("delegate", d.DelegateType),
	)
	return d, nil
}

// Decorators returns the configured decorators in enablement order.
func (m *Manager) Decorators() []*Decorator {
	m.mu.RLock()
	out := append([]*Decorator(nil), m.decorators...)
	m.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return m.order[annotated.TypeKey(out[i].Bean.BeanClass())] < m.order[annotated.TypeKey(out[j].Bean.BeanClass())]
	})
	return out
}

// Resolve returns the decorators applying to a bean with types and
// qualifiers, in enablement order.
func (m *Manager) Resolve(types []reflect.Type, qualifiers annotated.Annotations) []*Decorator {
	var out []*Decorator
	for _, d := range m.Decorators() {
		if d.Decorates(types, qualifiers) {
			out = append(out, d)
		}
	}
	return out
}

// ── helpers ───────────────────────────────────────────────────────────────────

func delegateTypes(at *annotated.Type) []reflect.Type {
	var out []reflect.Type
	for _, f := range at.Fields() {
		if f.IsAnnotationPresent(annotated.Delegate) {
			out = append(out, f.BaseType())
		}
	}
	for _, c := range at.Constructors() {
		for _, p := range c.Parameters() {
			if p.IsAnnotationPresent(annotated.Delegate) {
				out = append(out, p.BaseType())
			}
		}
	}
	for _, m := range at.Methods() {
		for _, p := range m.Parameters() {
			if p.IsAnnotationPresent(annotated.Delegate) {
				out = append(out, p.BaseType())
			}
		}
	}
	return out
}

// decoratedTypes are the interface types among types, except the empty one.
func decoratedTypes(types []reflect.Type) []reflect.Type {
	var out []reflect.Type
	for _, t := range types {
		if t.Kind() == reflect.Interface && t != anyType {
			out = append(out, t)
		}
	}
	return out
}
