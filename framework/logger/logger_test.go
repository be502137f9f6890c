package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/km-arc/go-webbeans/framework/config"
	"github.com/km-arc/go-webbeans/framework/logger"
)

func TestNew_RespectsLevel(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := logger.New(config.LogConfig{Level: "warn", Format: format})
		require.NoError(t, err, format)
		assert.False(t, l.Core().Enabled(zapcore.InfoLevel), format)
		assert.True(t, l.Core().Enabled(zapcore.ErrorLevel), format)
	}
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := logger.New(config.LogConfig{Level: "chatty", Format: "json"})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	assert.False(t, logger.Nop().Core().Enabled(zapcore.ErrorLevel))
}
