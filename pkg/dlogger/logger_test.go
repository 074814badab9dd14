package dlogger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetLogger(t *testing.T) {
	for _, level := range []string{"", LogLevelNone} {
		l, err := GetLogger(level)
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zap.FatalLevel))
	}

	l, err := GetLogger(LogLevelInfo)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.DebugLevel))

	l, err = GetLogger(LogLevelDebug)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))

	_, err = GetLogger("shouting")
	require.Error(t, err)
}

func TestMustGetLoggerPanics(t *testing.T) {
	assert.Panics(t, func() { MustGetLogger("shouting") })
}
