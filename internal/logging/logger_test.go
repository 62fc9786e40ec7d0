package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.log")
	l, err := New(Config{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	l.Debug("scan started", zap.String("scan_id", "abc"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.Contains(t, line, `"msg":"scan started"`)
	assert.Contains(t, line, `"scan_id":"abc"`)
	assert.Contains(t, line, `"timestamp"`)
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.log")
	l, err := New(Config{Level: "chatty", Format: "json", Output: path})
	require.NoError(t, err)

	assert.False(t, l.Core().Enabled(zap.DebugLevel))
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
}

func TestOrDefault(t *testing.T) {
	nop := zap.NewNop()
	assert.Same(t, nop, OrDefault(nop))

	saved := Logger
	t.Cleanup(func() { Logger = saved })

	Logger = nil
	assert.NotNil(t, OrDefault(nil))

	require.NoError(t, Initialize(DefaultConfig()))
	assert.Same(t, Logger, OrDefault(nil))
}
