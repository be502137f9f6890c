package annotated

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// Descriptor registers the annotation metadata of a struct type. Field
// metadata is read from struct tags; constructors, methods and parameters are
// declared explicitly because Go cannot annotate them.
//
//	greeter := annotated.Describe[Greeter](annotated.Of(annotated.ApplicationScoped)).
//	    Constructor(NewGreeter).
//	    Method("Message", annotated.Of(annotated.Produces)).
//	    Observer("OnStart").
//	    Implements((*Greeting)(nil)).
//	    MustBuild()
//
// Recognised struct tags:
//
//	inject:""           field is injected
//	produces:""         field is a producer field
//	delegate:""         decorator delegate injection point (implies inject)
//	named:"x"           @Named, empty value means defaulted
//	qualifiers:"A,B"    extra qualifier annotations
//	scope:"S"           scope of a producer field
//	transient:""        excluded from passivation checks
type Descriptor struct {
	typ  *Type
	errs []error
}

// Describe starts a descriptor for T with type-level annotations.
func Describe[T any](annos ...Annotation) *Descriptor {
	return DescribeType(TypeOf[T](), annos...)
}

// DescribeType is Describe for a reflect.Type. Pointer types are dereferenced.
func DescribeType(t reflect.Type, annos ...Annotation) *Descriptor {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	typ := &Type{
		element: element{base: reflect.PointerTo(t), annotations: append(Annotations(nil), annos...)},
		name:    TypeKey(t),
		goType:  t,
		closure: []reflect.Type{reflect.PointerTo(t)},
	}
	d := &Descriptor{typ: typ}
	if t.Kind() == reflect.Struct {
		d.discoverFields()
	}
	return d
}

func (d *Descriptor) fail(format string, args ...any) *Descriptor {
	d.errs = append(d.errs, fmt.Errorf(format, args...))
	return d
}

// Annotate adds type-level annotations.
func (d *Descriptor) Annotate(annos ...Annotation) *Descriptor {
	d.typ.add(annos...)
	return d
}

// Abstract marks the type abstract.
func (d *Descriptor) Abstract() *Descriptor {
	d.typ.abstract = true
	return d
}

// Implements adds interfaces to the type closure. Pass typed nil pointers:
// Implements((*Greeting)(nil)).
func (d *Descriptor) Implements(ifaces ...any) *Descriptor {
	for _, i := range ifaces {
		it := reflect.TypeOf(i)
		if it == nil || it.Kind() != reflect.Pointer || it.Elem().Kind() != reflect.Interface {
			d.fail("%s: Implements expects a typed nil interface pointer, got %v", d.typ.name, it)
			continue
		}
		it = it.Elem()
		if !d.typ.abstract && !d.typ.base.Implements(it) {
			d.fail("%s does not implement %s", d.typ.name, it)
			continue
		}
		d.typ.closure = append(d.typ.closure, it)
	}
	return d
}

// Constructor registers a factory func returning *T or (*T, error).
func (d *Descriptor) Constructor(fn any, annos ...Annotation) *Descriptor {
	c, err := newConstructor(d.typ, reflect.ValueOf(fn), annos)
	if err != nil {
		d.errs = append(d.errs, err)
		return d
	}
	d.typ.constructors = append(d.typ.constructors, c)
	return d
}

// ConstructorParam annotates parameter pos of the idx-th registered constructor.
func (d *Descriptor) ConstructorParam(idx, pos int, annos ...Annotation) *Descriptor {
	if idx < 0 || idx >= len(d.typ.constructors) {
		return d.fail("%s: no constructor #%d", d.typ.name, idx)
	}
	c := d.typ.constructors[idx]
	if pos < 0 || pos >= len(c.params) {
		return d.fail("%s: constructor #%d has no parameter %d", d.typ.name, idx, pos)
	}
	c.params[pos].add(annos...)
	return d
}

// Method registers a method on *T with annotations.
func (d *Descriptor) Method(name string, annos ...Annotation) *Descriptor {
	m := d.method(name)
	if m != nil {
		m.add(annos...)
	}
	return d
}

// Param annotates parameter pos of a registered method.
func (d *Descriptor) Param(method string, pos int, annos ...Annotation) *Descriptor {
	m := d.method(method)
	if m == nil {
		return d
	}
	if pos < 0 || pos >= len(m.params) {
		return d.fail("%s.%s has no parameter %d", d.typ.name, method, pos)
	}
	m.params[pos].add(annos...)
	return d
}

// Observer marks the first parameter of method as the observed event.
func (d *Descriptor) Observer(method string, qualifiers ...Annotation) *Descriptor {
	return d.Param(method, 0, append([]Annotation{Of(Observes)}, qualifiers...)...)
}

// Disposer marks the first parameter of method as the disposed instance.
func (d *Descriptor) Disposer(method string, qualifiers ...Annotation) *Descriptor {
	return d.Param(method, 0, append([]Annotation{Of(Disposes)}, qualifiers...)...)
}

// Field adds annotations to a discovered field.
func (d *Descriptor) Field(name string, annos ...Annotation) *Descriptor {
	f, ok := d.typ.Field(name)
	if !ok {
		return d.fail("%s has no exported field %s", d.typ.name, name)
	}
	f.add(annos...)
	return d
}

// Build returns the finished Type or every registration error.
func (d *Descriptor) Build() (*Type, error) {
	if len(d.errs) > 0 {
		return nil, errors.Join(d.errs...)
	}
	d.typ.closure = append(d.typ.closure, anyType)
	return d.typ, nil
}

// MustBuild is Build that panics on error. Intended for static archives.
func (d *Descriptor) MustBuild() *Type {
	t, err := d.Build()
	if err != nil {
		panic(fmt.Sprintf("annotated: %v", err))
	}
	return t
}

func (d *Descriptor) method(name string) *Method {
	if m, ok := d.typ.Method(name); ok {
		return m
	}
	m, err := newMethod(d.typ, name)
	if err != nil {
		d.errs = append(d.errs, err)
		return nil
	}
	d.typ.methods = append(d.typ.methods, m)
	return m
}

func (d *Descriptor) discoverFields() {
	t := d.typ.goType
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		annos := tagAnnotations(sf.Tag)
		if !sf.IsExported() {
			if len(annos) > 0 {
				d.fail("%s.%s: annotated field must be exported", d.typ.name, sf.Name)
			}
			continue
		}
		d.typ.fields = append(d.typ.fields, &Field{
			element:   element{base: sf.Type, annotations: annos},
			declaring: d.typ,
			name:      sf.Name,
			index:     sf.Index,
		})
	}
}

func tagAnnotations(tag reflect.StructTag) Annotations {
	var out Annotations
	if _, ok := tag.Lookup("inject"); ok {
		out = append(out, Of(Inject))
	}
	if _, ok := tag.Lookup("delegate"); ok {
		if !out.Has(Inject) {
			out = append(out, Of(Inject))
		}
		out = append(out, Of(Delegate))
	}
	if _, ok := tag.Lookup("produces"); ok {
		out = append(out, Of(Produces))
	}
	if v, ok := tag.Lookup("named"); ok {
		if v == "" {
			out = append(out, Of(Named))
		} else {
			out = append(out, Name(v))
		}
	}
	if v, ok := tag.Lookup("qualifiers"); ok {
		for _, q := range strings.Split(v, ",") {
			if q = strings.TrimSpace(q); q != "" {
				out = append(out, Of(q))
			}
		}
	}
	if v, ok := tag.Lookup("scope"); ok && v != "" {
		out = append(out, Of(v))
	}
	if _, ok := tag.Lookup("transient"); ok {
		out = append(out, Of(Transient))
	}
	return out
}

// ── Synthesis ─────────────────────────────────────────────────────────────────

// Synthesize derives a concrete subtype of base named base.Name()+suffix whose
// only constructor is fn. Used by proxy generation for abstract decorators.
func Synthesize(base *Type, suffix string, fn reflect.Value) (*Type, error) {
	sub := &Type{
		element:     element{base: base.base, annotations: append(Annotations(nil), base.annotations...)},
		name:        base.name + suffix,
		goType:      base.goType,
		closure:     base.TypeClosure(),
		synthesized: true,
		fields:      base.fields,
		methods:     base.methods,
	}
	c, err := newConstructor(sub, fn, nil)
	if err != nil {
		return nil, err
	}
	sub.constructors = []*Constructor{c}
	return sub, nil
}
