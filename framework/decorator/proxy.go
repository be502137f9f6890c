package decorator

import (
	"reflect"
	"sync"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/errors"
)

// ProxySuffix is appended to the name of synthesized decorator subtypes.
const ProxySuffix = "$$Proxy"

// ProxyFactory produces concrete subtypes of abstract decorator classes.
type ProxyFactory interface {
	AbstractDecoratorSubtype(at *annotated.Type) (*annotated.Type, error)
}

// SynthesizingProxyFactory derives the subtype with annotated.Synthesize and
// gives it a no-arg constructor allocating the zero value of the class.
// Subtypes are cached per class.
type SynthesizingProxyFactory struct {
	mu    sync.Mutex
	cache map[string]*annotated.Type
}

func NewSynthesizingProxyFactory() *SynthesizingProxyFactory {
	return &SynthesizingProxyFactory{cache: make(map[string]*annotated.Type)}
}

func (f *SynthesizingProxyFactory) AbstractDecoratorSubtype(at *annotated.Type) (*annotated.Type, error) {
	if !at.IsAbstract() {
		return nil, errors.IllegalState("%s is not abstract", at)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub, ok := f.cache[at.Name()]; ok {
		return sub, nil
	}

	goType := at.GoType()
	ctor := reflect.MakeFunc(
		reflect.FuncOf(nil, []reflect.Type{reflect.PointerTo(goType)}, false),
		func([]reflect.Value) []reflect.Value { return []reflect.Value{reflect.New(goType)} },
	)
	sub, err := annotated.Synthesize(at, ProxySuffix, ctor)
	if err != nil {
		return nil, errors.Deployment(errors.CodeDecorator, at.Name(), "proxy synthesis failed: %v", err)
	}
	f.cache[at.Name()] = sub
	return sub, nil
}
