package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGetLoggerBeforeInit(t *testing.T) {
	assert.NotNil(t, GetLogger())
	assert.NotNil(t, Component("test"))
}

func TestInitLoggerRejectsUnknownLevel(t *testing.T) {
	err := InitLogger("verbose")
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger("debug"))
	assert.True(t, GetLogger().Core().Enabled(zapcore.DebugLevel))
	Sync()
}

func TestMaskString(t *testing.T) {
	assert.Equal(t, "", MaskString(""))
	assert.Equal(t, "**", MaskString("ab"))
	assert.Equal(t, "s*****1", MaskString("secret1"))
	assert.Equal(t, "a**d", MaskString("abcd"))
}
