package app_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	demo "github.com/km-arc/go-webbeans/app"
	"github.com/km-arc/go-webbeans/framework/annotated"
	kernel "github.com/km-arc/go-webbeans/framework/app"
	"github.com/km-arc/go-webbeans/framework/config"
	"github.com/km-arc/go-webbeans/framework/container"
)

func descriptor() config.Descriptor {
	return config.Descriptor{
		Decorators:   []string{annotated.TypeKey(annotated.TypeOf[demo.Shouting]())},
		Interceptors: []string{annotated.TypeKey(annotated.TypeOf[demo.Timed]())},
	}
}

func TestDescriptorFileMatchesArchive(t *testing.T) {
	d, err := config.LoadDescriptor("../beans.yaml")
	require.NoError(t, err)
	assert.Equal(t, descriptor(), d)
}

func TestArchiveDeploys(t *testing.T) {
	cfg := &config.Config{
		App:        config.AppConfig{Name: "shop", Env: "testing", Port: "8000"},
		Deployment: config.DeploymentConfig{Descriptor: descriptor()},
	}
	k, err := kernel.NewWithConfig(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, k.Register(demo.Extensions()...))
	require.NoError(t, k.Deploy(demo.Archive()...))
	defer k.Shutdown()

	rep := k.Report()
	assert.Equal(t, 1, rep.Decorators)
	assert.Equal(t, 1, rep.Interceptors)
	assert.Empty(t, rep.Skipped)

	m := k.Manager()
	g := container.MustResolve[demo.Greeting](m)
	assert.Equal(t, "Hello, Ada from shop", g.Greet("Ada"))

	require.NoError(t, m.FireEvent(demo.OrderPlaced{ID: "o-1", Customer: "Ada"}))

	audit := container.MustResolve[*demo.Audit](m)
	assert.Equal(t, 1, audit.Orders)
	assert.Equal(t, []string{"SystemClock", "Greeter"}, audit.Beans)

	audience := container.MustResolve[[]string](m)
	assert.Equal(t, []string{"Ada"}, audience)

	producers := m.BeansByName("audience")
	require.Len(t, producers, 1)
	producers[0].Producer().Dispose(audience)
	assert.Equal(t, 1, container.MustResolve[*demo.Greeter](m).Released())
}

func TestInspectionShowsDecoratorsInterceptorsAndDisposer(t *testing.T) {
	cfg := &config.Config{
		App:        config.AppConfig{Name: "shop", Env: "testing", Port: "8000"},
		Deployment: config.DeploymentConfig{Descriptor: descriptor()},
	}
	k, err := kernel.NewWithConfig(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, k.Register(demo.Extensions()...))
	require.NoError(t, k.Deploy(demo.Archive()...))
	defer k.Shutdown()

	show := func(name string) kernel.BeanView {
		t.Helper()
		rr := httptest.NewRecorder()
		k.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/beans/"+name, nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var body struct {
			Data []kernel.BeanView `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		require.Len(t, body.Data, 1)
		return body.Data[0]
	}

	greeter := show("greeter")
	assert.Equal(t, []string{annotated.TypeKey(annotated.TypeOf[demo.Shouting]())}, greeter.Decorators)
	assert.Equal(t, []string{annotated.TypeKey(annotated.TypeOf[demo.Timed]())}, greeter.Interceptors)
	assert.Empty(t, greeter.Disposer)

	audience := show("audience")
	assert.Equal(t, "Release", audience.Disposer)
	assert.Empty(t, audience.Decorators)
	assert.Empty(t, audience.Interceptors)
}

func TestArchiveWithoutDescriptorSkipsDecoratorAndInterceptor(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Name: "shop", Env: "testing", Port: "8000"}}
	k, err := kernel.NewWithConfig(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, k.Register(demo.Extensions()...))

	require.NoError(t, k.Deploy(demo.Archive()...))
	assert.Len(t, k.Report().Skipped, 2)
}
