// Package event holds the observer index and delivers application events to
// observer methods.
package event

import (
	"fmt"
	"reflect"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
)

// Reception controls whether an observer is notified when no instance of its
// declaring bean exists yet.
type Reception int

const (
	Always Reception = iota
	IfExists
)

// Resolver supplies observer receivers and parameter values. The bean
// manager implements it.
type Resolver interface {
	// Instance returns the contextual instance of b. With create false it
	// only returns an existing instance.
	Instance(b *bean.Bean, create bool, cc bean.CreationalContext) (any, bool, error)
	InjectableReference(ip *bean.InjectionPoint, cc bean.CreationalContext) (any, error)
}

// ObserverMethod is a method receiving events of ObservedType whose
// qualifiers include Qualifiers.
//
// Observers added by extensions have no Bean or Method; they set Func.
type ObserverMethod struct {
	Bean            *bean.Bean
	Method          *annotated.Method
	ObservedType    reflect.Type
	Qualifiers      annotated.Annotations
	Priority        int
	Reception       Reception
	InjectionPoints []*bean.InjectionPoint
	Func            func(event any, meta *bean.EventMetadata) error
}

func (o *ObserverMethod) String() string {
	if o.Method != nil {
		return fmt.Sprintf("observer %s.%s(%s %v)", o.Method.DeclaringType().Name(), o.Method.MemberName(), o.ObservedType, o.Qualifiers)
	}
	return fmt.Sprintf("observer func(%s %v)", o.ObservedType, o.Qualifiers)
}

// Notify delivers evt. The receiver and every injected parameter are
// obtained through r with a creational context carrying meta, released once
// the method returns.
func (o *ObserverMethod) Notify(r Resolver, evt any, meta *bean.EventMetadata) error {
	if o.Func != nil {
		return o.Func(evt, meta)
	}

	cc := bean.NewCreationalContext(o.Bean).WithEventMetadata(meta)
	defer cc.Release()

	receiver, ok, err := r.Instance(o.Bean, o.Reception == Always, cc)
	if err != nil {
		return fmt.Errorf("%s: %w", o, err)
	}
	if !ok {
		return nil
	}

	params := o.Method.Parameters()
	args := make([]reflect.Value, len(params))
	for i, p := range params {
		if p.IsAnnotationPresent(annotated.Observes) {
			args[i] = Value(evt, p.BaseType())
		}
	}
	for _, ip := range o.InjectionPoints {
		v, err := r.InjectableReference(ip, cc)
		if err != nil {
			return fmt.Errorf("%s: %w", o, err)
		}
		args[ip.Parameter.Position()] = Value(v, ip.Parameter.BaseType())
	}
	for i, a := range args {
		if !a.IsValid() {
			args[i] = reflect.Zero(params[i].BaseType())
		}
	}

	_, err = o.Method.Invoke(receiver, args)
	return err
}

// Value converts v to a reflect.Value assignable to t; nil becomes the zero
// value of t.
func Value(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) && rv.Type().ConvertibleTo(t) {
		return rv.Convert(t)
	}
	return rv
}
