package annotated

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Well-known annotation names.
const (
	Inject       = "Inject"
	Produces     = "Produces"
	Disposes     = "Disposes"
	Observes     = "Observes"
	Named        = "Named"
	Alternative  = "Alternative"
	Decorator    = "Decorator"
	Delegate     = "Delegate"
	Interceptor  = "Interceptor"
	AroundInvoke = "AroundInvoke"
	Transient    = "Transient"
	Serializable = "Serializable"
	Priority     = "Priority"

	// qualifiers
	Default = "Default"
	Any     = "Any"
	New     = "New"

	// scopes
	Dependent          = "Dependent"
	Singleton          = "Singleton"
	ApplicationScoped  = "ApplicationScoped"
	RequestScoped      = "RequestScoped"
	SessionScoped      = "SessionScoped"
	ConversationScoped = "ConversationScoped"
)

// Annotation is a piece of declarative metadata attached to a type, member or
// parameter. Go has no annotations, so they are registered through a
// Descriptor or derived from struct tags.
type Annotation struct {
	Name   string
	Values map[string]string
}

// Of creates an annotation from a name and key/value pairs.
//
//	annotated.Of("Named", "value", "greeter")
func Of(name string, kv ...string) Annotation {
	a := Annotation{Name: name}
	if len(kv) > 0 {
		a.Values = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			a.Values[kv[i]] = kv[i+1]
		}
	}
	return a
}

// Name is shorthand for a Named annotation carrying value.
func Name(value string) Annotation { return Of(Named, "value", value) }

// Value returns the member value for key ("" when absent).
func (a Annotation) Value(key string) string { return a.Values[key] }

// Equal reports whether a and b have the same name and member values.
func (a Annotation) Equal(b Annotation) bool {
	if a.Name != b.Name || len(a.Values) != len(b.Values) {
		return false
	}
	for k, v := range a.Values {
		if b.Values[k] != v {
			return false
		}
	}
	return true
}

func (a Annotation) String() string {
	if len(a.Values) == 0 {
		return "@" + a.Name
	}
	keys := make([]string, 0, len(a.Values))
	for k := range a.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, a.Values[k]))
	}
	return "@" + a.Name + "(" + strings.Join(parts, ",") + ")"
}

// Annotations is an ordered annotation set.
type Annotations []Annotation

// Get returns the first annotation called name.
func (as Annotations) Get(name string) (Annotation, bool) {
	for _, a := range as {
		if a.Name == name {
			return a, true
		}
	}
	return Annotation{}, false
}

// Has reports whether an annotation called name is present.
func (as Annotations) Has(name string) bool {
	_, ok := as.Get(name)
	return ok
}

// Contains reports whether an equal annotation is present.
func (as Annotations) Contains(a Annotation) bool {
	for _, x := range as {
		if x.Equal(a) {
			return true
		}
	}
	return false
}

// ── Annotated ─────────────────────────────────────────────────────────────────

// Annotated is anything carrying annotations and a base type.
type Annotated interface {
	BaseType() reflect.Type
	Annotations() Annotations
	Annotation(name string) (Annotation, bool)
	IsAnnotationPresent(name string) bool
}

type element struct {
	base        reflect.Type
	annotations Annotations
}

func (e *element) BaseType() reflect.Type   { return e.base }
func (e *element) Annotations() Annotations { return e.annotations }

func (e *element) Annotation(name string) (Annotation, bool) {
	return e.annotations.Get(name)
}

func (e *element) IsAnnotationPresent(name string) bool {
	return e.annotations.Has(name)
}

func (e *element) add(as ...Annotation) {
	e.annotations = append(e.annotations, as...)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// TypeKey returns the package-qualified name of t, dereferencing pointers.
// Unnamed types fall back to their string form.
//
//	annotated.TypeKey(reflect.TypeOf(&Greeter{}))  // "example.com/app.Greeter"
func TypeKey(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
