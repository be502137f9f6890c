package deployment_test

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/config"
	"github.com/km-arc/go-webbeans/framework/container"
	"github.com/km-arc/go-webbeans/framework/deployment"
	"github.com/km-arc/go-webbeans/framework/errors"
	"github.com/km-arc/go-webbeans/framework/portable"
)

// counter returns the value of the counter name with label=value, 0 if absent.
func counter(t *testing.T, m *deployment.Metrics, name, label, value string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestNew_Defaults(t *testing.T) {
	ctx := deployment.New(nil)

	assert.NotEqual(t, uuid.Nil, ctx.ID)
	assert.NotNil(t, ctx.Resolver)
	assert.NotNil(t, ctx.ProxyFactory)
	assert.NotNil(t, ctx.Extractor)
	assert.Zero(t, ctx.Errors.Len())
	assert.False(t, ctx.Alternatives.IsEnabled("example.com/app.Mock", nil))
}

func TestNew_DescriptorDrivesEnablement(t *testing.T) {
	cfg := &config.Config{Deployment: config.DeploymentConfig{Descriptor: config.Descriptor{
		Alternatives: []string{"example.com/app.Mock"},
		Stereotypes:  []string{"Testing"},
	}}}
	ctx := deployment.New(cfg, deployment.WithLogger(zap.NewNop()))

	assert.True(t, ctx.Alternatives.IsEnabled("example.com/app.Mock", nil))
	assert.True(t, ctx.Alternatives.IsEnabled("example.com/app.Other", []string{"Testing"}))
}

func TestNew_DeploymentsDoNotShareState(t *testing.T) {
	a, b := deployment.New(nil), deployment.New(nil)
	a.Errors.Push("test", errors.New("boom"))

	assert.NotEqual(t, a.ID, b.ID)
	assert.Zero(t, b.Errors.Len())
	assert.NotSame(t, a.Manager, b.Manager)
}

func TestContext_CheckpointCountsNewErrors(t *testing.T) {
	ctx := deployment.New(nil)
	ctx.Errors.Push("ProcessManagedBean", errors.New("one"))
	ctx.Errors.Push("ProcessManagedBean", errors.New("two"))

	assert.Equal(t, 2, ctx.Checkpoint("ProcessManagedBean"))
	assert.Equal(t, 0, ctx.Checkpoint("ProcessProducerMethod"))
	assert.Equal(t, 2.0, counter(t, ctx.Metrics, "webbeans_definition_errors_total", "phase", "ProcessManagedBean"))

	err := ctx.Inspect("definition failed")
	require.Error(t, err)
	assert.True(t, errors.IsAggregate(err))
	assert.Equal(t, 2, ctx.Errors.Len(), "inspection never clears the stack")
}

func TestContext_InspectEmpty(t *testing.T) {
	assert.NoError(t, deployment.New(nil).Inspect("nothing"))
}

func TestMetrics_RegistrationAndEvents(t *testing.T) {
	ctx := deployment.New(nil)

	clock := bean.ProducerFunc(func(bean.CreationalContext) (any, error) { return time.Now(), nil })
	b := container.NewSyntheticBean(bean.Builtin, reflect.TypeOf(time.Time{}), annotated.Dependent, clock)
	require.NoError(t, ctx.Manager.AddBean(b))
	ctx.Dispatcher.Fire(portable.NewBeforeShutdown())

	assert.Equal(t, 1.0, counter(t, ctx.Metrics, "webbeans_beans_registered_total", "kind", "builtin"))
	assert.Equal(t, 1.0, counter(t, ctx.Metrics, "webbeans_lifecycle_events_total", "event", "BeforeShutdown"))
}

func TestMetrics_Handler(t *testing.T) {
	m := deployment.NewMetrics()
	m.ObserveDeployment(15 * time.Millisecond)
	m.EventFired("AfterBeanDiscovery")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "webbeans_deployment_duration_seconds")
	assert.Contains(t, rec.Body.String(), `webbeans_lifecycle_events_total{event="AfterBeanDiscovery"} 1`)
}
