package decorator_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/decorator"
	"github.com/km-arc/go-webbeans/framework/errors"
	"github.com/km-arc/go-webbeans/framework/inject"
	"github.com/km-arc/go-webbeans/framework/metadata"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type Greeting interface{ Greet(name string) string }

type Shouting struct {
	Inner Greeting `delegate:""`
}

func (s *Shouting) Greet(name string) string { return strings.ToUpper(s.Inner.Greet(name)) }

type Polite struct {
	Inner Greeting `delegate:"" qualifiers:"Formal"`
}

func (p *Polite) Greet(name string) string { return "dear " + p.Inner.Greet(name) }

// Partial only overrides what it needs; it cannot be instantiated as is.
type Partial struct {
	Inner Greeting `delegate:""`
}

type NoDelegate struct{}

func (n *NoDelegate) Greet(name string) string { return name }

func shouting() *annotated.Type {
	return annotated.Describe[Shouting](annotated.Of(annotated.Decorator)).Implements((*Greeting)(nil)).MustBuild()
}

func polite() *annotated.Type {
	return annotated.Describe[Polite](annotated.Of(annotated.Decorator)).Implements((*Greeting)(nil)).MustBuild()
}

func delegateBean(t *testing.T, at *annotated.Type) *bean.Bean {
	t.Helper()
	am := metadata.NewAnnotationManager()
	am.AddQualifier("Formal")
	r := inject.NewResolver(am)
	b := bean.New(bean.Decorator, at.GoType(), at)
	b.SetTypes(at.TypeClosure())
	for _, f := range at.Fields() {
		if f.IsAnnotationPresent(annotated.Inject) {
			b.AddInjectionPoint(r.FieldInjectionPoint(b, f))
		}
	}
	return b
}

func key(v any) string { return annotated.TypeKey(reflect.TypeOf(v)) }

// ── Manager ───────────────────────────────────────────────────────────────────

func TestManager_IsEnabled(t *testing.T) {
	m := decorator.NewManager([]string{key(&Shouting{})}, nil)

	assert.True(t, m.IsEnabled(shouting()))
	assert.False(t, m.IsEnabled(polite()))
}

func TestManager_CheckConditions(t *testing.T) {
	m := decorator.NewManager(nil, nil)
	assert.NoError(t, m.CheckConditions(shouting()))

	noDelegate := annotated.Describe[NoDelegate](annotated.Of(annotated.Decorator)).Implements((*Greeting)(nil)).MustBuild()
	err := m.CheckConditions(noDelegate)
	assert.True(t, errors.Is(err, errors.ErrDecorator))
	assert.Contains(t, err.Error(), "exactly one delegate")

	noInterface := annotated.Describe[Shouting](annotated.Of(annotated.Decorator)).MustBuild()
	err = m.CheckConditions(noInterface)
	assert.True(t, errors.Is(err, errors.ErrDecorator))
	assert.Contains(t, err.Error(), "does not decorate any interface")

	producing := annotated.Describe[Shouting](annotated.Of(annotated.Decorator)).
		Implements((*Greeting)(nil)).
		Method("Greet", annotated.Of(annotated.Produces)).
		MustBuild()
	assert.True(t, errors.Is(m.CheckConditions(producing), errors.ErrDecorator))
}

func TestManager_ConfigureAndResolveInEnablementOrder(t *testing.T) {
	m := decorator.NewManager([]string{key(&Polite{}), key(&Shouting{})}, nil)

	s, err := m.Configure(delegateBean(t, shouting()))
	require.NoError(t, err)
	assert.Equal(t, annotated.TypeOf[Greeting](), s.DelegateType)
	assert.Equal(t, []reflect.Type{annotated.TypeOf[Greeting]()}, s.DecoratedTypes)

	p, err := m.Configure(delegateBean(t, polite()))
	require.NoError(t, err)

	assert.Equal(t, []*decorator.Decorator{p, s}, m.Decorators())

	greeting := []reflect.Type{annotated.TypeOf[Greeting]()}
	plain := annotated.Annotations{annotated.Of(annotated.Default), annotated.Of(annotated.Any)}
	formal := annotated.Annotations{annotated.Of("Formal"), annotated.Of(annotated.Any)}

	assert.Equal(t, []*decorator.Decorator{s}, m.Resolve(greeting, plain))
	assert.Equal(t, []*decorator.Decorator{p}, m.Resolve(greeting, formal))
	assert.Empty(t, m.Resolve([]reflect.Type{reflect.TypeOf("")}, plain))
}

func TestManager_ConfigureWithoutDelegateFails(t *testing.T) {
	m := decorator.NewManager(nil, nil)
	at := shouting()
	b := bean.New(bean.Decorator, at.GoType(), at)

	_, err := m.Configure(b)
	assert.True(t, errors.Is(err, errors.ErrDecorator))
}

// ── Proxy factory ─────────────────────────────────────────────────────────────

func TestSynthesizingProxyFactory(t *testing.T) {
	f := decorator.NewSynthesizingProxyFactory()
	abstract := annotated.Describe[Partial](annotated.Of(annotated.Decorator)).
		Abstract().
		Implements((*Greeting)(nil)).
		MustBuild()

	sub, err := f.AbstractDecoratorSubtype(abstract)
	require.NoError(t, err)
	assert.True(t, sub.IsSynthesized())
	assert.Equal(t, abstract.Name()+decorator.ProxySuffix, sub.Name())
	require.Len(t, sub.Constructors(), 1)
	assert.Empty(t, sub.Constructors()[0].Parameters())

	instance, err := sub.Constructors()[0].Invoke(nil)
	require.NoError(t, err)
	assert.IsType(t, &Partial{}, instance)

	again, err := f.AbstractDecoratorSubtype(abstract)
	require.NoError(t, err)
	assert.Same(t, sub, again)

	_, err = f.AbstractDecoratorSubtype(shouting())
	assert.True(t, errors.Is(err, errors.ErrIllegalState))
}
