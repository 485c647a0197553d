//go:build linux
// +build linux

package pool_test

import (
	"testing"

	"github.com/momentics/hioload-pipe/pool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinuxMapperHugeAlignment(t *testing.T) {
	a := pool.NewAllocator(pool.NewMapper(), zerolog.Nop())
	b, err := a.Allocate(pool.AllocOptions{Size: 1 << 18, HugePage: true})
	require.NoError(t, err)
	assert.Zero(t, b.Addr()%pool.HugePageSize)
	assert.Equal(t, pool.HugePageSize, b.Mapped())
	assert.Equal(t, byte('9'), b.Bytes()[9])
	require.NoError(t, b.Release())
}

func TestLinuxMapperPageAlignment(t *testing.T) {
	m := pool.NewMapper()
	a := pool.NewAllocator(m, zerolog.Nop())
	r, err := a.AllocatePair(pool.AllocOptions{Size: 1 << 16}, false)
	require.NoError(t, err)
	for _, s := range r.Slots() {
		assert.Zero(t, s.Addr()%uintptr(m.PageSize()))
	}
	require.NoError(t, r.Release())
}
