package annotated

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ── Type ──────────────────────────────────────────────────────────────────────

// Type is the annotated view of a bean class: a Go struct type whose
// instances are handled as *T.
type Type struct {
	element
	name         string
	goType       reflect.Type
	closure      []reflect.Type
	abstract     bool
	synthesized  bool
	constructors []*Constructor
	fields       []*Field
	methods      []*Method
}

// Name returns the type key (pkgpath.Name); synthesized subtypes carry a suffix.
func (t *Type) Name() string { return t.name }

// SimpleName returns the unqualified struct name.
func (t *Type) SimpleName() string { return t.goType.Name() }

// GoType returns the struct type.
func (t *Type) GoType() reflect.Type { return t.goType }

// TypeClosure returns *T, the declared interfaces, and the empty interface.
func (t *Type) TypeClosure() []reflect.Type {
	out := make([]reflect.Type, len(t.closure))
	copy(out, t.closure)
	return out
}

// IsAbstract reports whether the type was declared abstract and cannot be
// instantiated without a synthesized subtype.
func (t *Type) IsAbstract() bool { return t.abstract }

// IsSynthesized reports whether the type was generated by Synthesize.
func (t *Type) IsSynthesized() bool { return t.synthesized }

func (t *Type) Constructors() []*Constructor { return t.constructors }
func (t *Type) Fields() []*Field             { return t.fields }
func (t *Type) Methods() []*Method           { return t.methods }

// Method returns the declared method called name.
func (t *Type) Method(name string) (*Method, bool) {
	for _, m := range t.methods {
		if m.name == name {
			return m, true
		}
	}
	return nil, false
}

// Field returns the field called name.
func (t *Type) Field(name string) (*Field, bool) {
	for _, f := range t.fields {
		if f.name == name {
			return f, true
		}
	}
	return nil, false
}

func (t *Type) String() string { return t.name }

// ── Members ───────────────────────────────────────────────────────────────────

// Member is a constructor, field or method of a Type.
type Member interface {
	Annotated
	DeclaringType() *Type
	MemberName() string
}

// Callable is a member taking parameters.
type Callable interface {
	Member
	Parameters() []*Parameter
}

// Parameter is one parameter of a constructor or method.
type Parameter struct {
	element
	position int
	callable Callable
}

func (p *Parameter) Position() int      { return p.position }
func (p *Parameter) Callable() Callable { return p.callable }

// Constructor is a factory func returning *T or (*T, error).
type Constructor struct {
	element
	declaring    *Type
	fn           reflect.Value
	params       []*Parameter
	returnsError bool
}

func (c *Constructor) DeclaringType() *Type     { return c.declaring }
func (c *Constructor) MemberName() string       { return "constructor" }
func (c *Constructor) Parameters() []*Parameter { return c.params }

// Invoke calls the constructor with already resolved arguments.
func (c *Constructor) Invoke(args []reflect.Value) (any, error) {
	out := c.fn.Call(args)
	if c.returnsError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// Field is an exported struct field.
type Field struct {
	element
	declaring *Type
	name      string
	index     []int
}

func (f *Field) DeclaringType() *Type { return f.declaring }
func (f *Field) MemberName() string   { return f.name }

// Get reads the field from a *T instance.
func (f *Field) Get(instance any) any {
	return reflect.ValueOf(instance).Elem().FieldByIndex(f.index).Interface()
}

// Set writes the field on a *T instance.
func (f *Field) Set(instance any, value any) {
	fv := reflect.ValueOf(instance).Elem().FieldByIndex(f.index)
	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return
	}
	fv.Set(reflect.ValueOf(value))
}

// Method is a method on *T registered through a Descriptor.
type Method struct {
	element
	declaring    *Type
	name         string
	fn           reflect.Value // method expression: receiver is the first argument
	params       []*Parameter
	returnsError bool
}

func (m *Method) DeclaringType() *Type     { return m.declaring }
func (m *Method) MemberName() string       { return m.name }
func (m *Method) Parameters() []*Parameter { return m.params }

// Invoke calls the method on receiver with already resolved arguments and
// returns the first result (nil for methods without results).
func (m *Method) Invoke(receiver any, args []reflect.Value) (any, error) {
	in := make([]reflect.Value, 0, len(args)+1)
	in = append(in, reflect.ValueOf(receiver))
	in = append(in, args...)
	out := m.fn.Call(in)
	if m.returnsError && !out[len(out)-1].IsNil() {
		return nil, out[len(out)-1].Interface().(error)
	}
	if m.base == nil {
		return nil, nil
	}
	return out[0].Interface(), nil
}

// ── construction helpers ──────────────────────────────────────────────────────

func newConstructor(declaring *Type, fn reflect.Value, annos Annotations) (*Constructor, error) {
	ft := fn.Type()
	if ft.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor for %s must be a func, got %s", declaring.name, ft)
	}
	want := reflect.PointerTo(declaring.goType)
	switch {
	case ft.NumOut() == 1 && ft.Out(0) == want:
	case ft.NumOut() == 2 && ft.Out(0) == want && ft.Out(1) == errorType:
	default:
		return nil, fmt.Errorf("constructor for %s must return %s or (%s, error), got %s",
			declaring.name, want, want, ft)
	}
	c := &Constructor{
		element:      element{base: want, annotations: annos},
		declaring:    declaring,
		fn:           fn,
		returnsError: ft.NumOut() == 2,
	}
	for i := 0; i < ft.NumIn(); i++ {
		c.params = append(c.params, &Parameter{
			element:  element{base: ft.In(i)},
			position: i,
			callable: c,
		})
	}
	return c, nil
}

func newMethod(declaring *Type, name string) (*Method, error) {
	rm, ok := reflect.PointerTo(declaring.goType).MethodByName(name)
	if !ok {
		return nil, fmt.Errorf("%s has no method %s", declaring.name, name)
	}
	ft := rm.Func.Type()
	m := &Method{declaring: declaring, name: name, fn: rm.Func}
	outs := ft.NumOut()
	if outs > 0 && ft.Out(outs-1) == errorType {
		m.returnsError = true
		outs--
	}
	if outs > 1 {
		return nil, fmt.Errorf("method %s.%s returns more than one value", declaring.name, name)
	}
	if outs == 1 {
		m.base = ft.Out(0)
	}
	for i := 1; i < ft.NumIn(); i++ {
		m.params = append(m.params, &Parameter{
			element:  element{base: ft.In(i)},
			position: i - 1,
			callable: m,
		})
	}
	return m, nil
}
