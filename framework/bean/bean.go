// Package bean holds the bean model shared by the definition pipeline and the
// runtime container.
package bean

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/errors"
)

// Kind tells how a bean was derived.
type Kind int

const (
	Managed Kind = iota
	ProducerMethod
	ProducerField
	Decorator
	Interceptor
	Builtin
	Extension
)

func (k Kind) String() string {
	switch k {
	case Managed:
		return "managed"
	case ProducerMethod:
		return "producer-method"
	case ProducerField:
		return "producer-field"
	case Decorator:
		return "decorator"
	case Interceptor:
		return "interceptor"
	case Builtin:
		return "builtin"
	case Extension:
		return "extension"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ── Bean ──────────────────────────────────────────────────────────────────────

// Bean describes how to create and dispose contextual instances of a type.
//
// A Bean is mutated by its builder while it is being defined. Once it is added
// to the bean manager it is sealed and every setter panics.
type Bean struct {
	id          uuid.UUID
	kind        Kind
	beanClass   reflect.Type
	annotated   annotated.Annotated
	types       []reflect.Type
	scope       string
	qualifiers  annotated.Annotations
	name        string
	stereotypes []string

	serializable bool
	enabled      bool
	alternative  bool

	injectionPoints []*InjectionPoint
	constructor     *annotated.Constructor
	producer        Producer

	parent *Bean            // declaring bean of a producer bean
	member annotated.Member // producer method or field

	abstractDecorator bool
	sealed            bool
}

// New creates an unsealed bean of kind for beanClass. It starts enabled.
func New(kind Kind, beanClass reflect.Type, a annotated.Annotated) *Bean {
	return &Bean{
		id:        uuid.New(),
		kind:      kind,
		beanClass: beanClass,
		annotated: a,
		enabled:   true,
	}
}

func (b *Bean) mutate(op string) {
	if b.sealed {
		panic(errors.IllegalState("%s on registered bean %s", op, b))
	}
}

// ID is the bean's identity; two definitions of one class never share it.
func (b *Bean) ID() uuid.UUID { return b.id }

func (b *Bean) Kind() Kind { return b.kind }

// BeanClass is the declaring type: the struct for managed beans, the
// declaring struct for producer beans.
func (b *Bean) BeanClass() reflect.Type { return b.beanClass }

// Annotated is the type, method or field the bean was derived from.
func (b *Bean) Annotated() annotated.Annotated { return b.annotated }

func (b *Bean) Types() []reflect.Type { return b.types }
func (b *Bean) Scope() string         { return b.scope }
func (b *Bean) Name() string          { return b.name }
func (b *Bean) Stereotypes() []string { return b.stereotypes }
func (b *Bean) IsSerializable() bool  { return b.serializable }
func (b *Bean) IsEnabled() bool       { return b.enabled }
func (b *Bean) IsAlternative() bool   { return b.alternative }
func (b *Bean) IsSealed() bool        { return b.sealed }

func (b *Bean) Qualifiers() annotated.Annotations { return b.qualifiers }

func (b *Bean) InjectionPoints() []*InjectionPoint { return b.injectionPoints }

func (b *Bean) Constructor() *annotated.Constructor { return b.constructor }

func (b *Bean) Producer() Producer { return b.producer }

// Parent returns the declaring bean of a producer bean.
func (b *Bean) Parent() *Bean { return b.parent }

// Member returns the producer method or field of a producer bean.
func (b *Bean) Member() annotated.Member { return b.member }

func (b *Bean) IsAbstractDecorator() bool { return b.abstractDecorator }

// HasType reports whether t is one of the bean types.
func (b *Bean) HasType(t reflect.Type) bool {
	for _, bt := range b.types {
		if bt == t {
			return true
		}
	}
	return false
}

// HasQualifier reports whether an equal qualifier is present.
func (b *Bean) HasQualifier(q annotated.Annotation) bool {
	return b.qualifiers.Contains(q)
}

// Key combines declaring type, qualifiers and scope.
func (b *Bean) Key() string {
	qs := make([]string, 0, len(b.qualifiers))
	for _, q := range b.qualifiers {
		qs = append(qs, q.String())
	}
	sort.Strings(qs)
	key := annotated.TypeKey(b.beanClass)
	if b.member != nil {
		key += "#" + b.member.MemberName()
	}
	return key + "{" + strings.Join(qs, ",") + "}@" + b.scope
}

func (b *Bean) String() string {
	return fmt.Sprintf("%s bean %s", b.kind, b.Key())
}

// ── Setters (builder only) ────────────────────────────────────────────────────

func (b *Bean) SetTypes(types []reflect.Type) { b.mutate("SetTypes"); b.types = types }
func (b *Bean) SetScope(scope string)         { b.mutate("SetScope"); b.scope = scope }
func (b *Bean) SetName(name string)           { b.mutate("SetName"); b.name = name }
func (b *Bean) SetSerializable(v bool)        { b.mutate("SetSerializable"); b.serializable = v }
func (b *Bean) SetEnabled(v bool)             { b.mutate("SetEnabled"); b.enabled = v }
func (b *Bean) SetAlternative(v bool)         { b.mutate("SetAlternative"); b.alternative = v }
func (b *Bean) SetAbstractDecorator(v bool)   { b.mutate("SetAbstractDecorator"); b.abstractDecorator = v }

func (b *Bean) SetStereotypes(names []string) {
	b.mutate("SetStereotypes")
	b.stereotypes = names
}

// AddQualifier appends q unless an equal qualifier is already present.
func (b *Bean) AddQualifier(q annotated.Annotation) {
	b.mutate("AddQualifier")
	if !b.qualifiers.Contains(q) {
		b.qualifiers = append(b.qualifiers, q)
	}
}

// AddInjectionPoint appends ip, keeping declaration order.
func (b *Bean) AddInjectionPoint(ip *InjectionPoint) {
	b.mutate("AddInjectionPoint")
	b.injectionPoints = append(b.injectionPoints, ip)
}

// SetConstructor sets the constructor. Replacing a constructor drops the
// injection points of its parameters.
func (b *Bean) SetConstructor(c *annotated.Constructor) {
	b.mutate("SetConstructor")
	if old := b.constructor; old != nil && old != c {
		var kept []*InjectionPoint
		for _, ip := range b.injectionPoints {
			if m, ok := ip.Member.(*annotated.Constructor); !ok || m != old {
				kept = append(kept, ip)
			}
		}
		b.injectionPoints = kept
	}
	b.constructor = c
}

func (b *Bean) SetProducer(p Producer) {
	b.mutate("SetProducer")
	b.producer = p
}

// SetParent links a producer bean to its declaring bean and member.
func (b *Bean) SetParent(parent *Bean, member annotated.Member) {
	b.mutate("SetParent")
	b.parent = parent
	b.member = member
}

// Seal makes the bean immutable. Called by the bean manager on registration.
func (b *Bean) Seal() { b.sealed = true }
