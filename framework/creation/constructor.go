package creation

import (
	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/errors"
)

// ConstructorResolver picks the constructor used to instantiate a bean class.
// A nil constructor without error means the zero value is allocated.
type ConstructorResolver interface {
	Resolve(at *annotated.Type) (*annotated.Constructor, error)
}

// DefaultConstructorResolver selects, in order: the constructor annotated
// with Inject, the only constructor, the only no-arg constructor. Anything
// else is ambiguous.
type DefaultConstructorResolver struct{}

func (DefaultConstructorResolver) Resolve(at *annotated.Type) (*annotated.Constructor, error) {
	ctors := at.Constructors()
	if len(ctors) == 0 {
		return nil, nil
	}

	var injected []*annotated.Constructor
	for _, c := range ctors {
		if c.IsAnnotationPresent(annotated.Inject) {
			injected = append(injected, c)
		}
	}
	switch {
	case len(injected) == 1:
		return injected[0], nil
	case len(injected) > 1:
		return nil, errors.Deployment(errors.CodeAmbiguousConstructor, at.Name(),
			"%d constructors are annotated with @Inject", len(injected))
	case len(ctors) == 1:
		return ctors[0], nil
	}

	var noArg []*annotated.Constructor
	for _, c := range ctors {
		if len(c.Parameters()) == 0 {
			noArg = append(noArg, c)
		}
	}
	if len(noArg) == 1 {
		return noArg[0], nil
	}
	return nil, errors.Deployment(errors.CodeAmbiguousConstructor, at.Name(),
		"cannot choose among %d constructors: annotate one with @Inject", len(ctors))
}
