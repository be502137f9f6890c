// Package interceptor holds interceptor enablement, validation and
// configuration. Invocation weaving is not performed.
package interceptor

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/errors"
	"github.com/km-arc/go-webbeans/framework/metadata"
)

// Interceptor is the interceptor configuration attached to a delegate bean.
type Interceptor struct {
	Bean         *bean.Bean
	Bindings     annotated.Annotations
	AroundInvoke *annotated.Method
}

// Intercepts reports whether every binding of i is among bindings.
func (i *Interceptor) Intercepts(bindings annotated.Annotations) bool {
	for _, b := range i.Bindings {
		if !bindings.Contains(b) {
			return false
		}
	}
	return true
}

// Manager tracks the enabled interceptors in enablement order.
type Manager struct {
	mu           sync.RWMutex
	order        map[string]int
	annotations  *metadata.AnnotationManager
	interceptors []*Interceptor
	logger       *zap.Logger
}

// NewManager enables the interceptor classes listed by type key. Bindings
// are classified with annotations.
func NewManager(enabled []string, annotations *metadata.AnnotationManager, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{order: make(map[string]int, len(enabled)), annotations: annotations, logger: logger}
	for i, key := range enabled {
		if _, dup := m.order[key]; !dup {
			m.order[key] = i
		}
	}
	return m
}

func (m *Manager) IsEnabled(at *annotated.Type) bool {
	_, ok := m.order[annotated.TypeKey(at.GoType())]
	return ok
}

// Bindings returns the interceptor bindings of at, including those inherited
// from stereotypes.
func (m *Manager) Bindings(at *annotated.Type) annotated.Annotations {
	return m.annotations.InterceptorBindings(at.Annotations())
}

// CheckConditions validates an interceptor class: at least one interceptor
// binding, exactly one AroundInvoke method, and no producer or observer
// methods.
func (m *Manager) CheckConditions(at *annotated.Type) error {
	if len(m.Bindings(at)) == 0 {
		return errors.Deployment(errors.CodeInterceptor, at.Name(), "interceptor has no interceptor binding")
	}
	if _, err := aroundInvoke(at); err != nil {
		return err
	}
	return metadata.CheckNoProducersOrObservers(at, errors.CodeInterceptor, "interceptor")
}

// Configure builds the interceptor configuration for the delegate bean b and
// adds it to the enabled interceptors.
func (m *Manager) Configure(b *bean.Bean, bindings annotated.Annotations) (*Interceptor, error) {
	at, ok := b.Annotated().(*annotated.Type)
	if !ok {
		return nil, errors.Deployment(errors.CodeInterceptor, annotated.TypeKey(b.BeanClass()),
			"interceptor bean is not derived from a class")
	}
	method, err := aroundInvoke(at)
	if err != nil {
		return nil, err
	}
	i := &Interceptor{Bean: b, Bindings: bindings, AroundInvoke: method}

	m.mu.Lock()
	m.interceptors = append(m.interceptors, i)
	m.mu.Unlock()

	m.logger.Debug("interceptor configured",
		zap.String("type", at.Name()),
		zap.Stringers("bindings", bindings),
	)
	return i, nil
}

// Interceptors returns the configured interceptors in enablement order.
func (m *Manager) Interceptors() []*Interceptor {
	m.mu.RLock()
	out := append([]*Interceptor(nil), m.interceptors...)
	m.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return m.order[annotated.TypeKey(out[i].Bean.BeanClass())] < m.order[annotated.TypeKey(out[j].Bean.BeanClass())]
	})
	return out
}

// Resolve returns the interceptors bound by bindings, in enablement order.
func (m *Manager) Resolve(bindings annotated.Annotations) []*Interceptor {
	var out []*Interceptor
	for _, i := range m.Interceptors() {
		if i.Intercepts(bindings) {
			out = append(out, i)
		}
	}
	return out
}

func aroundInvoke(at *annotated.Type) (*annotated.Method, error) {
	var found *annotated.Method
	for _, method := range at.Methods() {
		if !method.IsAnnotationPresent(annotated.AroundInvoke) {
			continue
		}
		if found != nil {
			return nil, errors.Deployment(errors.CodeInterceptor, at.Name(),
				"interceptor declares more than one @AroundInvoke method: %s, %s", found.MemberName(), method.MemberName())
		}
		found = method
	}
	if found == nil {
		return nil, errors.Deployment(errors.CodeInterceptor, at.Name(), "interceptor has no @AroundInvoke method")
	}
	return found, nil
}
