package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitializeDuplicatesToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svm.log")
	Initialize("debug", path)

	componentLogger := GetForComponent("logger_test")
	componentLogger.Info().Msg("file writer smoke test")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "file writer smoke test")
	require.Contains(t, string(data), "logger_test")
}

func TestInitializeWithoutLogFile(t *testing.T) {
	Initialize("info", "")
	require.NotNil(t, Get())
}
