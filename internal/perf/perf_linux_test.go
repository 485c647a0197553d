//go:build linux
// +build linux

package perf

import (
	"testing"

	"github.com/momentics/hioload-pipe/pool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerfCounterCountsPrefault(t *testing.T) {
	c, err := OpenPageFaults()
	if err != nil {
		t.Skipf("perf events unavailable: %v", err)
	}
	defer c.Close()

	a := pool.NewAllocator(pool.NewMapper(), zerolog.Nop())
	require.NoError(t, c.Reset())
	require.NoError(t, c.Enable())
	b, err := a.Allocate(pool.AllocOptions{Size: 64 * 4096})
	require.NoError(t, err)
	require.NoError(t, c.Disable())
	defer b.Release()

	v, err := c.Read()
	require.NoError(t, err)
	assert.NotZero(t, v, "Expected prefaulting to fault pages in")
}
