package main

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	demo "github.com/km-arc/go-webbeans/app"
	"github.com/km-arc/go-webbeans/framework/app"
	"github.com/km-arc/go-webbeans/framework/config"
	"github.com/km-arc/go-webbeans/framework/errors"
	"github.com/km-arc/go-webbeans/framework/portable"
)

// byValue is incomparable and cannot be registered.
type byValue struct{ seen []string }

func (byValue) Observe(*portable.Dispatcher) {}

func newApp(t *testing.T) *app.Application {
	t.Helper()
	cfg := &config.Config{App: config.AppConfig{Name: "shop", Env: "testing", Port: "0"}}
	a, err := app.NewWithConfig(cfg, zap.NewNop())
	require.NoError(t, err)
	return a
}

// stdout runs fn and returns what it printed.
func stdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()
	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestInstall_RegistrationFailure(t *testing.T) {
	a := newApp(t)

	var err error
	out := stdout(t, func() {
		err = install(a, []portable.Extension{byValue{}}, demo.Archive())
	})

	assert.True(t, errors.Is(err, errors.ErrIllegalState))
	assert.Contains(t, out, "extension registration failed")
	assert.Zero(t, a.Report().Types, "nothing is deployed")
}

func TestInstall_DeploymentFailure(t *testing.T) {
	a := newApp(t)

	var err error
	out := stdout(t, func() {
		err = install(a, demo.Extensions(), demo.Archive()[1:2])
	})

	require.Error(t, err)
	assert.Contains(t, out, "deployment failed")
}

func TestInstall_Deploys(t *testing.T) {
	a := newApp(t)
	defer a.Shutdown()

	var err error
	out := stdout(t, func() {
		err = install(a, demo.Extensions(), demo.Archive())
	})

	require.NoError(t, err)
	assert.Contains(t, out, "deployed")
}
