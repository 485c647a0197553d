package transport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T, path *string, content string) {
	t.Helper()
	old := *path
	*path = filepath.Join(t.TempDir(), "value")
	require.NoError(t, os.WriteFile(*path, []byte(content), 0o644))
	t.Cleanup(func() { *path = old })
}

func TestPipeMaxSize(t *testing.T) {
	fixture(t, &PipeMaxSizePath, "1048576\n")
	n, err := PipeMaxSize()
	require.NoError(t, err)
	assert.Equal(t, 1<<20, n)
}

func TestTHPMode(t *testing.T) {
	fixture(t, &THPEnabledPath, "always [madvise] never\n")
	mode, err := THPMode()
	require.NoError(t, err)
	assert.Equal(t, "madvise", mode)
}

func TestParseBracketedWithoutMarker(t *testing.T) {
	assert.Equal(t, "never", parseBracketed(" never\n"))
}

func TestMissingTunable(t *testing.T) {
	PipeMaxSizePath, THPEnabledPath = "/nonexistent/pipe-max-size", "/nonexistent/enabled"
	t.Cleanup(func() {
		PipeMaxSizePath = "/proc/sys/fs/pipe-max-size"
		THPEnabledPath = "/sys/kernel/mm/transparent_hugepage/enabled"
	})
	_, err := PipeMaxSize()
	assert.Error(t, err)
	_, err = THPMode()
	assert.Error(t, err)
}
