// Package metadata derives bean metadata (scope, qualifiers, name,
// stereotypes, serializability, enablement) from annotated types and members.
package metadata

import (
	"sync"

	"github.com/km-arc/go-webbeans/framework/annotated"
)

// ScopeInfo describes a registered scope annotation.
type ScopeInfo struct {
	Name        string
	Normal      bool // instances are shared and reached through a client proxy
	Passivating bool // instances may be serialized
}

// AnnotationManager knows which annotation names are scopes, qualifiers,
// stereotypes and interceptor bindings. Extensions extend it during
// BeforeBeanDiscovery.
type AnnotationManager struct {
	mu          sync.RWMutex
	scopes      map[string]ScopeInfo
	qualifiers  map[string]bool
	stereotypes map[string]annotated.Annotations
	bindings    map[string]bool
}

// NewAnnotationManager creates a manager preloaded with the built-in scopes,
// qualifiers and the Model stereotype.
func NewAnnotationManager() *AnnotationManager {
	m := &AnnotationManager{
		scopes:      make(map[string]ScopeInfo),
		qualifiers:  make(map[string]bool),
		stereotypes: make(map[string]annotated.Annotations),
		bindings:    make(map[string]bool),
	}
	m.AddScope(annotated.Dependent, false, false)
	m.AddScope(annotated.Singleton, false, false)
	m.AddScope(annotated.ApplicationScoped, true, false)
	m.AddScope(annotated.RequestScoped, true, false)
	m.AddScope(annotated.SessionScoped, true, true)
	m.AddScope(annotated.ConversationScoped, true, true)
	for _, q := range []string{annotated.Default, annotated.Any, annotated.Named, annotated.New} {
		m.AddQualifier(q)
	}
	m.AddStereotype("Model", annotated.Of(annotated.RequestScoped), annotated.Of(annotated.Named))
	return m
}

// ── Registration ──────────────────────────────────────────────────────────────

func (m *AnnotationManager) AddScope(name string, normal, passivating bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scopes[name] = ScopeInfo{Name: name, Normal: normal, Passivating: passivating}
}

func (m *AnnotationManager) AddQualifier(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.qualifiers[name] = true
}

// AddStereotype registers a stereotype and the annotations it contributes
// (a default scope, Named, Alternative, interceptor bindings).
func (m *AnnotationManager) AddStereotype(name string, metas ...annotated.Annotation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stereotypes[name] = append(annotated.Annotations(nil), metas...)
}

func (m *AnnotationManager) AddInterceptorBinding(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings[name] = true
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (m *AnnotationManager) Scope(name string) (ScopeInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scopes[name]
	return s, ok
}

func (m *AnnotationManager) IsScope(name string) bool {
	_, ok := m.Scope(name)
	return ok
}

func (m *AnnotationManager) IsNormalScope(name string) bool {
	s, ok := m.Scope(name)
	return ok && s.Normal
}

func (m *AnnotationManager) IsPassivatingScope(name string) bool {
	s, ok := m.Scope(name)
	return ok && s.Passivating
}

func (m *AnnotationManager) IsQualifier(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.qualifiers[name]
}

func (m *AnnotationManager) IsStereotype(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.stereotypes[name]
	return ok
}

// StereotypeAnnotations returns the meta annotations of a stereotype.
func (m *AnnotationManager) StereotypeAnnotations(name string) annotated.Annotations {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stereotypes[name]
}

func (m *AnnotationManager) IsInterceptorBinding(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bindings[name]
}

// Qualifiers filters as down to qualifier annotations.
func (m *AnnotationManager) Qualifiers(as annotated.Annotations) annotated.Annotations {
	return m.filter(as, m.IsQualifier)
}

// Scopes filters as down to scope annotations.
func (m *AnnotationManager) Scopes(as annotated.Annotations) annotated.Annotations {
	return m.filter(as, m.IsScope)
}

// Stereotypes returns the names of the stereotypes in as.
func (m *AnnotationManager) Stereotypes(as annotated.Annotations) []string {
	var out []string
	for _, a := range m.filter(as, m.IsStereotype) {
		out = append(out, a.Name)
	}
	return out
}

// InterceptorBindings returns the bindings in as, including those inherited
// from stereotypes.
func (m *AnnotationManager) InterceptorBindings(as annotated.Annotations) annotated.Annotations {
	out := m.filter(as, m.IsInterceptorBinding)
	for _, st := range m.Stereotypes(as) {
		for _, b := range m.filter(m.StereotypeAnnotations(st), m.IsInterceptorBinding) {
			if !out.Contains(b) {
				out = append(out, b)
			}
		}
	}
	return out
}

func (m *AnnotationManager) filter(as annotated.Annotations, keep func(string) bool) annotated.Annotations {
	var out annotated.Annotations
	for _, a := range as {
		if keep(a.Name) {
			out = append(out, a)
		}
	}
	return out
}

// ── Alternatives ──────────────────────────────────────────────────────────────

// AlternativesManager holds the externally supplied alternative selection:
// enabled alternative classes (type keys) and alternative stereotypes.
type AlternativesManager struct {
	classes     map[string]bool
	stereotypes map[string]bool
}

func NewAlternativesManager(classes, stereotypes []string) *AlternativesManager {
	m := &AlternativesManager{
		classes:     make(map[string]bool, len(classes)),
		stereotypes: make(map[string]bool, len(stereotypes)),
	}
	for _, c := range classes {
		m.classes[c] = true
	}
	for _, s := range stereotypes {
		m.stereotypes[s] = true
	}
	return m
}

// IsEnabled reports whether an alternative declared by typeKey, or carrying
// one of the given stereotypes, is selected.
func (m *AlternativesManager) IsEnabled(typeKey string, stereotypes []string) bool {
	if m == nil {
		return false
	}
	if m.classes[typeKey] {
		return true
	}
	for _, s := range stereotypes {
		if m.stereotypes[s] {
			return true
		}
	}
	return false
}
