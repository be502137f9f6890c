package interceptor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/errors"
	"github.com/km-arc/go-webbeans/framework/interceptor"
	"github.com/km-arc/go-webbeans/framework/metadata"
)

type Audit struct{ calls int }

func (a *Audit) Around() error { a.calls++; return nil }
func (a *Audit) Other() error  { return nil }

type Timing struct{}

func (t *Timing) Around() error { return nil }

func annotations() *metadata.AnnotationManager {
	am := metadata.NewAnnotationManager()
	am.AddInterceptorBinding("Audited")
	am.AddInterceptorBinding("Timed")
	am.AddStereotype("Service", annotated.Of("Timed"))
	return am
}

func audit() *annotated.Type {
	return annotated.Describe[Audit](annotated.Of(annotated.Interceptor), annotated.Of("Audited")).
		Method("Around", annotated.Of(annotated.AroundInvoke)).
		MustBuild()
}

func timing() *annotated.Type {
	return annotated.Describe[Timing](annotated.Of(annotated.Interceptor), annotated.Of("Service")).
		Method("Around", annotated.Of(annotated.AroundInvoke)).
		MustBuild()
}

func delegate(at *annotated.Type) *bean.Bean {
	b := bean.New(bean.Interceptor, at.GoType(), at)
	b.SetTypes(at.TypeClosure())
	return b
}

func TestManager_CheckConditions(t *testing.T) {
	m := interceptor.NewManager(nil, annotations(), nil)
	assert.NoError(t, m.CheckConditions(audit()))
	assert.NoError(t, m.CheckConditions(timing()), "binding inherited from a stereotype")

	unbound := annotated.Describe[Audit](annotated.Of(annotated.Interceptor)).
		Method("Around", annotated.Of(annotated.AroundInvoke)).
		MustBuild()
	err := m.CheckConditions(unbound)
	assert.True(t, errors.Is(err, errors.ErrInterceptor))
	assert.Contains(t, err.Error(), "no interceptor binding")

	noAround := annotated.Describe[Audit](annotated.Of(annotated.Interceptor), annotated.Of("Audited")).MustBuild()
	err = m.CheckConditions(noAround)
	assert.Contains(t, err.Error(), "no @AroundInvoke")

	twoAround := annotated.Describe[Audit](annotated.Of(annotated.Interceptor), annotated.Of("Audited")).
		Method("Around", annotated.Of(annotated.AroundInvoke)).
		Method("Other", annotated.Of(annotated.AroundInvoke)).
		MustBuild()
	err = m.CheckConditions(twoAround)
	assert.Contains(t, err.Error(), "more than one")
}

func TestManager_ConfigureAndResolve(t *testing.T) {
	m := interceptor.NewManager([]string{
		annotated.TypeKey(annotated.TypeOf[Timing]()),
		annotated.TypeKey(annotated.TypeOf[Audit]()),
	}, annotations(), nil)

	assert.True(t, m.IsEnabled(audit()))

	a, err := m.Configure(delegate(audit()), m.Bindings(audit()))
	require.NoError(t, err)
	assert.Equal(t, "Around", a.AroundInvoke.MemberName())

	tm, err := m.Configure(delegate(timing()), m.Bindings(timing()))
	require.NoError(t, err)
	assert.Equal(t, annotated.Annotations{annotated.Of("Timed")}, tm.Bindings)

	assert.Equal(t, []*interceptor.Interceptor{tm, a}, m.Interceptors())

	both := annotated.Annotations{annotated.Of("Audited"), annotated.Of("Timed")}
	assert.Equal(t, []*interceptor.Interceptor{tm, a}, m.Resolve(both))
	assert.Equal(t, []*interceptor.Interceptor{a}, m.Resolve(annotated.Annotations{annotated.Of("Audited")}))
	assert.Empty(t, m.Resolve(nil))
}

func TestManager_IsEnabled(t *testing.T) {
	m := interceptor.NewManager(nil, annotations(), nil)
	assert.False(t, m.IsEnabled(audit()))
}
