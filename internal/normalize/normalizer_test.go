package normalize

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-pipe/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPUIndex(t *testing.T) {
	got, err := CPUIndex(3, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	got, err = CPUIndex(NoCPU, 0)
	require.NoError(t, err)
	assert.Equal(t, NoCPU, got)
}

func TestCPUIndexRejects(t *testing.T) {
	for _, tc := range []struct{ req, max int }{{4, 4}, {-2, 4}, {0, 0}} {
		_, err := CPUIndex(tc.req, tc.max)
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrConfig))
	}
}
