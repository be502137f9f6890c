package portable_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-webbeans/framework/bean"
	werrors "github.com/km-arc/go-webbeans/framework/errors"
	"github.com/km-arc/go-webbeans/framework/portable"
)

type foreignContext struct{ bean.CreationalContext }

func TestEventMetadataProducer(t *testing.T) {
	var p portable.EventMetadataProducer
	meta := &bean.EventMetadata{Type: reflect.TypeOf("")}

	got, err := p.Produce(bean.NewCreationalContext(nil).WithEventMetadata(meta))
	require.NoError(t, err)
	assert.Same(t, meta, got)

	_, err = p.Produce(bean.NewCreationalContext(nil))
	assert.True(t, werrors.Is(err, werrors.ErrIllegalState), "outside an event delivery")

	_, err = p.Produce(foreignContext{})
	assert.True(t, werrors.Is(err, werrors.ErrIllegalState), "foreign creational context")

	assert.Empty(t, p.InjectionPoints())
	assert.NotPanics(t, func() { p.Dispose(meta) })
}
