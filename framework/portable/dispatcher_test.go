package portable_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/container"
	werrors "github.com/km-arc/go-webbeans/framework/errors"
	"github.com/km-arc/go-webbeans/framework/event"
	"github.com/km-arc/go-webbeans/framework/metadata"
	"github.com/km-arc/go-webbeans/framework/portable"
)

type Widget struct {
	Size int `produces:""`
}

func widgetMember(t *testing.T) annotated.Member {
	t.Helper()
	f, ok := annotated.Describe[Widget]().MustBuild().Field("Size")
	require.True(t, ok)
	return f
}

func TestDispatcher_ListenersRunInRegistrationOrder(t *testing.T) {
	d := portable.NewDispatcher(werrors.NewStack())
	var order []string
	portable.Observe(d, func(*portable.BeforeShutdown) { order = append(order, "first") })
	portable.Observe(d, func(*portable.BeforeShutdown) { order = append(order, "second") })
	portable.Observe(d, func(*portable.AfterDeploymentValidation) { order = append(order, "other") })

	e := portable.NewBeforeShutdown()
	assert.Equal(t, 2, d.Listeners(e))
	d.Fire(e)

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatcher_ListenersAddedDuringDeliveryRunOnNextEvent(t *testing.T) {
	d := portable.NewDispatcher(werrors.NewStack())
	calls := 0
	portable.Observe(d, func(*portable.BeforeShutdown) {
		portable.Observe(d, func(*portable.BeforeShutdown) { calls++ })
	})

	d.Fire(portable.NewBeforeShutdown())
	assert.Equal(t, 0, calls)

	d.Fire(portable.NewBeforeShutdown())
	assert.Equal(t, 1, calls)
}

func TestDispatcher_EventIsActiveOnlyDuringDelivery(t *testing.T) {
	stack := werrors.NewStack()
	d := portable.NewDispatcher(stack)
	var kept *portable.ProcessProducer
	portable.Observe(d, func(e *portable.ProcessProducer) {
		assert.True(t, e.Active())
		kept = e
	})

	e := portable.NewProcessProducer(widgetMember(t), bean.ProducerFunc(nil))
	assert.False(t, e.Active())
	d.Fire(e)
	assert.False(t, kept.Active())

	defer func() {
		r := recover()
		require.NotNil(t, r, "mutating an inert event must panic")
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, werrors.Is(err, werrors.ErrInactiveEvent))
	}()
	kept.SetProducer(nil)
}

func TestDispatcher_AddDefinitionErrorGoesToStack(t *testing.T) {
	stack := werrors.NewStack()
	d := portable.NewDispatcher(stack)
	boom := errors.New("boom")
	portable.Observe(d, func(e *portable.ProcessManagedBean) { e.AddDefinitionError(boom) })

	d.Fire(portable.NewProcessManagedBean(nil, nil))

	require.Equal(t, 1, stack.Len())
	var de *werrors.DefinitionError
	require.True(t, werrors.As(stack.Errors()[0], &de))
	assert.Equal(t, "ProcessManagedBean", de.Phase)
	assert.ErrorIs(t, de, boom)
}

func TestDispatcher_ListenerPanicBecomesDefinitionError(t *testing.T) {
	stack := werrors.NewStack()
	d := portable.NewDispatcher(stack)
	ran := false
	portable.Observe(d, func(*portable.BeforeShutdown) { panic("listener bug") })
	portable.Observe(d, func(*portable.BeforeShutdown) { ran = true })

	d.Fire(portable.NewBeforeShutdown())

	assert.True(t, ran, "later listeners still run")
	require.Equal(t, 1, stack.Len())
	assert.Contains(t, stack.Errors()[0].Error(), "listener bug")
}

func TestDispatcher_EventsFireOnce(t *testing.T) {
	d := portable.NewDispatcher(werrors.NewStack())
	e := portable.NewBeforeShutdown()
	d.Fire(e)

	assert.Panics(t, func() { d.Fire(e) })
}

func TestDispatcher_OnFireHook(t *testing.T) {
	var fired []string
	d := portable.NewDispatcher(werrors.NewStack(), portable.OnFire(func(name string) { fired = append(fired, name) }))

	d.Fire(portable.NewAfterDeploymentValidation())
	d.Fire(portable.NewBeforeShutdown())

	assert.Equal(t, []string{"AfterDeploymentValidation", "BeforeShutdown"}, fired)
}

// ── events ────────────────────────────────────────────────────────────────────

func TestProcessProducer_SetProducer(t *testing.T) {
	d := portable.NewDispatcher(werrors.NewStack())
	replacement := bean.ProducerFunc(func(bean.CreationalContext) (any, error) { return 7, nil })
	portable.Observe(d, func(e *portable.ProcessProducer) {
		assert.Equal(t, "Size", e.AnnotatedMember().MemberName())
		e.SetProducer(replacement)
	})

	e := portable.NewProcessProducer(widgetMember(t), nil)
	assert.False(t, e.IsProducerSet())
	d.Fire(e)

	assert.True(t, e.IsProducerSet())
	v, err := e.Producer().Produce(nil)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestBeforeBeanDiscovery_RegistersAnnotations(t *testing.T) {
	am := metadata.NewAnnotationManager()
	d := portable.NewDispatcher(werrors.NewStack())
	portable.Observe(d, func(e *portable.BeforeBeanDiscovery) {
		e.AddQualifier("Fast")
		e.AddScope("TenantScoped", true, false)
		e.AddStereotype("Service", annotated.Of(annotated.ApplicationScoped))
		e.AddInterceptorBinding("Logged")
	})

	d.Fire(portable.NewBeforeBeanDiscovery(am))

	assert.True(t, am.IsQualifier("Fast"))
	assert.True(t, am.IsNormalScope("TenantScoped"))
	assert.True(t, am.IsStereotype("Service"))
	assert.True(t, am.IsInterceptorBinding("Logged"))
}

func TestAfterBeanDiscovery_ForwardsToManager(t *testing.T) {
	stack := werrors.NewStack()
	m := container.New(nil)
	d := portable.NewDispatcher(stack)
	clock := container.NewSyntheticBean(bean.Builtin, reflect.TypeOf(""), annotated.Singleton,
		bean.ProducerFunc(func(bean.CreationalContext) (any, error) { return "tick", nil }))
	observer := &event.ObserverMethod{ObservedType: reflect.TypeOf(0), Func: func(any, *bean.EventMetadata) error { return nil }}

	portable.Observe(d, func(e *portable.AfterBeanDiscovery) {
		e.AddBean(clock)
		e.AddBean(clock)
		e.AddContext(container.NewCachedContext(annotated.RequestScoped))
		e.AddObserverMethod(observer)
	})
	d.Fire(portable.NewAfterBeanDiscovery(m))

	assert.Equal(t, []*bean.Bean{clock}, m.All())
	_, err := m.Context(annotated.RequestScoped)
	assert.NoError(t, err)
	assert.Equal(t, []*event.ObserverMethod{observer}, m.Observers().All())

	require.Equal(t, 1, stack.Len(), "the duplicate AddBean is a definition error")
	assert.True(t, werrors.Is(stack.Errors()[0], werrors.ErrDuplicateBean))
}

func TestAfterBeanDiscovery_RejectsIncompleteObservers(t *testing.T) {
	stack := werrors.NewStack()
	m := container.New(nil)
	d := portable.NewDispatcher(stack)
	noop := func(any, *bean.EventMetadata) error { return nil }

	portable.Observe(d, func(e *portable.AfterBeanDiscovery) {
		e.AddObserverMethod(nil)
		e.AddObserverMethod(&event.ObserverMethod{Func: noop})
		e.AddObserverMethod(&event.ObserverMethod{ObservedType: reflect.TypeOf(0)})
	})
	d.Fire(portable.NewAfterBeanDiscovery(m))

	assert.Empty(t, m.Observers().All())
	require.Equal(t, 3, stack.Len())
	assert.Contains(t, stack.Errors()[1].Error(), "no observed type")
	assert.Contains(t, stack.Errors()[2].Error(), "neither a func nor a bean method")
	assert.NotPanics(t, func() { _ = m.FireEvent(struct{}{}) })
}

func TestAfterBeanDiscovery_NoBeansAfterDefinitionError(t *testing.T) {
	stack := werrors.NewStack()
	stack.Push("ProcessManagedBean", errors.New("earlier phase"))
	m := container.New(nil)
	d := portable.NewDispatcher(stack)
	synthetic := func() *bean.Bean {
		return container.NewSyntheticBean(bean.Builtin, reflect.TypeOf(""), annotated.Singleton,
			bean.ProducerFunc(func(bean.CreationalContext) (any, error) { return "tick", nil }))
	}
	first, second := synthetic(), synthetic()

	portable.Observe(d, func(e *portable.AfterBeanDiscovery) {
		e.AddBean(first)
		e.AddDefinitionError(errors.New("broken"))
		e.AddBean(second)
	})
	d.Fire(portable.NewAfterBeanDiscovery(m))

	assert.Equal(t, []*bean.Bean{first}, m.All(), "errors of earlier phases do not block AddBean")
	require.Equal(t, 3, stack.Len())
	assert.Contains(t, stack.Errors()[2].Error(), "bean rejected")
}

func TestAfterDeploymentValidation_AddDeploymentProblem(t *testing.T) {
	stack := werrors.NewStack()
	d := portable.NewDispatcher(stack)
	portable.Observe(d, func(e *portable.AfterDeploymentValidation) {
		e.AddDeploymentProblem(errors.New("license expired"))
	})

	d.Fire(portable.NewAfterDeploymentValidation())

	err := stack.Inspect("deployment failed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "license expired")
}
