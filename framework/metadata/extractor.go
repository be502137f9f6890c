package metadata

import (
	"encoding"
	"reflect"
	"strings"
	"unicode"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/errors"
)

var binaryMarshaler = reflect.TypeOf((*encoding.BinaryMarshaler)(nil)).Elem()

// Extractor populates bean metadata from annotations. It has no side effects
// beyond the bean it is given.
type Extractor struct {
	annotations  *AnnotationManager
	alternatives *AlternativesManager
}

func NewExtractor(annotations *AnnotationManager, alternatives *AlternativesManager) *Extractor {
	return &Extractor{annotations: annotations, alternatives: alternatives}
}

// Annotations returns the annotation registry used for classification.
func (x *Extractor) Annotations() *AnnotationManager { return x.annotations }

// ── Conditions ────────────────────────────────────────────────────────────────

// CheckManagedBeanCondition rejects types that cannot be managed beans.
func (x *Extractor) CheckManagedBeanCondition(at *annotated.Type) error {
	if at.GoType().Kind() != reflect.Struct {
		return errors.Deployment(errors.CodeDeployment, at.Name(),
			"managed bean class must be a struct, got %s", at.GoType().Kind())
	}
	isDecorator := at.IsAnnotationPresent(annotated.Decorator)
	if isDecorator && at.IsAnnotationPresent(annotated.Interceptor) {
		return errors.Deployment(errors.CodeDeployment, at.Name(),
			"class may not be both a decorator and an interceptor")
	}
	if at.IsAbstract() && !isDecorator {
		return errors.Deployment(errors.CodeDeployment, at.Name(),
			"abstract class must be a decorator to be a managed bean")
	}
	return nil
}

// CheckGenericType requires generic instantiations to be Dependent.
func (x *Extractor) CheckGenericType(b *bean.Bean) error {
	if strings.Contains(b.BeanClass().Name(), "[") && b.Scope() != annotated.Dependent {
		return errors.Deployment(errors.CodeDeployment, displayName(b),
			"generic bean class must be @Dependent, found @%s", b.Scope())
	}
	return nil
}

// CheckUnproxiableAPIType rejects normal-scoped beans with a type that cannot
// be reached through a client proxy.
func (x *Extractor) CheckUnproxiableAPIType(b *bean.Bean) error {
	if !x.annotations.IsNormalScope(b.Scope()) {
		return nil
	}
	for _, t := range b.Types() {
		if k := t.Kind(); k != reflect.Pointer && k != reflect.Interface {
			return errors.Deployment(errors.CodeUnproxiable, displayName(b),
				"normal scoped bean has unproxiable api type %s", t)
		}
	}
	return nil
}

// CheckPassivation requires beans in a passivating scope, and their non
// transient injection points, to be serializable.
func (x *Extractor) CheckPassivation(b *bean.Bean) error {
	if !x.annotations.IsPassivatingScope(b.Scope()) {
		return nil
	}
	if !b.IsSerializable() {
		return errors.Deployment(errors.CodePassivation, displayName(b),
			"bean with passivating scope @%s must be serializable", b.Scope())
	}
	for _, ip := range b.InjectionPoints() {
		if ip.Transient || ip.Delegate || isSerializableType(ip.Type) {
			continue
		}
		return errors.Deployment(errors.CodePassivation, displayName(b),
			"passivating bean has non-serializable injection point %s", ip)
	}
	return nil
}

// ── Definitions ───────────────────────────────────────────────────────────────

// DefineAPITypes sets the bean types.
func (x *Extractor) DefineAPITypes(b *bean.Bean, types []reflect.Type) {
	b.SetTypes(types)
}

// ProducerTypes returns the bean types of a producer returning t.
func ProducerTypes(t reflect.Type) []reflect.Type {
	return []reflect.Type{t, annotated.TypeOf[any]()}
}

// DefineStereotypes records declared stereotypes and whether any of them is
// an alternative stereotype.
func (x *Extractor) DefineStereotypes(b *bean.Bean, a annotated.Annotated) {
	names := x.annotations.Stereotypes(a.Annotations())
	b.SetStereotypes(names)
	for _, st := range names {
		if x.annotations.StereotypeAnnotations(st).Has(annotated.Alternative) {
			b.SetAlternative(true)
		}
	}
	if a.IsAnnotationPresent(annotated.Alternative) {
		b.SetAlternative(true)
	}
}

// DefineScope sets exactly one scope: the declared one, the default of the
// declared stereotypes, or Dependent. errMessage is used when several scopes
// are declared.
func (x *Extractor) DefineScope(b *bean.Bean, a annotated.Annotated, errMessage string) error {
	declared := x.annotations.Scopes(a.Annotations())
	switch len(declared) {
	case 1:
		b.SetScope(declared[0].Name)
		return nil
	case 0:
	default:
		return errors.Deployment(errors.CodeMultipleScopes, displayName(b), "%s", errMessage)
	}

	var fromStereotypes []string
	for _, st := range b.Stereotypes() {
		for _, s := range x.annotations.Scopes(x.annotations.StereotypeAnnotations(st)) {
			if !contains(fromStereotypes, s.Name) {
				fromStereotypes = append(fromStereotypes, s.Name)
			}
		}
	}
	switch len(fromStereotypes) {
	case 0:
		b.SetScope(annotated.Dependent)
	case 1:
		b.SetScope(fromStereotypes[0])
	default:
		return errors.Deployment(errors.CodeMultipleScopes, displayName(b),
			"stereotypes declare conflicting default scopes %v", fromStereotypes)
	}
	return nil
}

// DefineSerializable marks the bean serializable when it is annotated so or
// its class (or produced type) implements encoding.BinaryMarshaler.
func (x *Extractor) DefineSerializable(b *bean.Bean, a annotated.Annotated) {
	if a.IsAnnotationPresent(annotated.Serializable) {
		b.SetSerializable(true)
		return
	}
	t := b.BeanClass()
	if b.Kind() == bean.ProducerMethod || b.Kind() == bean.ProducerField {
		t = a.BaseType()
	}
	b.SetSerializable(isSerializableType(t))
}

// DefineEnabled applies alternative selection. Non-alternatives are enabled.
func (x *Extractor) DefineEnabled(b *bean.Bean) {
	if !b.IsAlternative() {
		return
	}
	b.SetEnabled(x.alternatives.IsEnabled(annotated.TypeKey(b.BeanClass()), b.Stereotypes()))
}

// DefineName sets the EL name from Named (explicit or defaulted) or from a
// stereotype carrying Named.
func (x *Extractor) DefineName(b *bean.Bean, a annotated.Annotated, defaultName string) {
	if named, ok := a.Annotation(annotated.Named); ok {
		if v := named.Value("value"); v != "" {
			b.SetName(v)
		} else {
			b.SetName(defaultName)
		}
		return
	}
	for _, st := range b.Stereotypes() {
		if x.annotations.StereotypeAnnotations(st).Has(annotated.Named) {
			b.SetName(defaultName)
			return
		}
	}
}

// DefineQualifiers adds declared qualifiers, Default when nothing but Named
// or Any is declared, and Any always.
//
// A bean without explicit qualifiers therefore carries {Default, Any}, not
// Any alone: an unqualified injection point asks for Default, so beans that
// only had Any could never satisfy it.
func (x *Extractor) DefineQualifiers(b *bean.Bean, a annotated.Annotated) {
	explicit := false
	for _, q := range x.annotations.Qualifiers(a.Annotations()) {
		switch q.Name {
		case annotated.Named:
			continue
		case annotated.Any:
		default:
			explicit = true
		}
		b.AddQualifier(q)
	}
	if b.Name() != "" {
		b.AddQualifier(annotated.Name(b.Name()))
	}
	if !explicit {
		b.AddQualifier(annotated.Of(annotated.Default))
	}
	b.AddQualifier(annotated.Of(annotated.Any))
}

// ── Defaults ──────────────────────────────────────────────────────────────────

// DefaultManagedBeanName is the simple class name with a lower-case initial.
func DefaultManagedBeanName(at *annotated.Type) string {
	return LowerFirst(at.SimpleName())
}

// DefaultProducerName derives a name from a producer member, dropping a Get
// prefix from methods.
func DefaultProducerName(m annotated.Member) string {
	name := m.MemberName()
	if _, ok := m.(*annotated.Method); ok && len(name) > 3 && strings.HasPrefix(name, "Get") {
		name = name[3:]
	}
	return LowerFirst(name)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func isSerializableType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Interface, reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	if t.Implements(binaryMarshaler) {
		return true
	}
	return t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(binaryMarshaler)
}

func displayName(b *bean.Bean) string {
	name := annotated.TypeKey(b.BeanClass())
	if m := b.Member(); m != nil {
		name += "." + m.MemberName()
	}
	return name
}

// LowerFirst lower-cases the first rune of s.
func LowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// CheckNoProducersOrObservers rejects decorator and interceptor classes
// declaring producer members or observer methods. kind names the class role
// in the message and code is the error code to use.
func CheckNoProducersOrObservers(at *annotated.Type, code, kind string) error {
	for _, f := range at.Fields() {
		if f.IsAnnotationPresent(annotated.Produces) {
			return errors.Deployment(code, at.Name(), "%s may not declare producer field %s", kind, f.MemberName())
		}
	}
	for _, m := range at.Methods() {
		if m.IsAnnotationPresent(annotated.Produces) {
			return errors.Deployment(code, at.Name(), "%s may not declare producer method %s", kind, m.MemberName())
		}
		for _, p := range m.Parameters() {
			if p.IsAnnotationPresent(annotated.Observes) {
				return errors.Deployment(code, at.Name(), "%s may not declare observer method %s", kind, m.MemberName())
			}
		}
	}
	return nil
}
