package residency

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/momentics/hioload-pipe/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPage = 4096

// image builds synthetic pagemap/kpageflags contents: entries maps a page
// index to its pagemap entry, frames maps a pfn to its flags.
func image(t *testing.T, entries map[int]uint64, frames map[uint64]uint64) *Verifier {
	t.Helper()
	pm := make([]byte, 16*8)
	for idx, ent := range entries {
		binary.NativeEndian.PutUint64(pm[idx*8:], ent)
	}
	kf := make([]byte, 64*8)
	for pfn, flags := range frames {
		binary.NativeEndian.PutUint64(kf[pfn*8:], flags)
	}
	return NewVerifier(bytes.NewReader(pm), bytes.NewReader(kf), testPage)
}

func present(pfn uint64) uint64 { return pagemapPresent | pfn }

func TestHugePageBackedReadsTHPBit(t *testing.T) {
	v := image(t,
		map[int]uint64{2: present(7), 3: present(9)},
		map[uint64]uint64{7: 1 << KPFTHP, 9: 1 << 5},
	)
	ok, err := v.HugePageBacked(2*testPage + 100)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.HugePageBacked(3 * testPage)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHugePageBackedNotPresentIsDiagnostic(t *testing.T) {
	v := image(t, map[int]uint64{1: 7}, nil)
	_, err := v.HugePageBacked(1 * testPage)
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrDiagnostic))
	assert.Contains(t, err.Error(), "not present")
}

func TestHugePageBackedHiddenPFN(t *testing.T) {
	v := image(t, map[int]uint64{1: present(0)}, nil)
	_, err := v.HugePageBacked(1 * testPage)
	require.Error(t, err)
	assert.Equal(t, api.ErrCodeDiagnostic, api.CodeOf(err))
	assert.Contains(t, err.Error(), "run as root")
}

func TestHugePageBackedShortRead(t *testing.T) {
	v := image(t, nil, nil)
	_, err := v.HugePageBacked(1000 * testPage)
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrDiagnostic))
}

func TestSurveyCountsPages(t *testing.T) {
	v := image(t,
		map[int]uint64{4: present(10), 5: present(11), 6: present(0), 7: present(12)},
		map[uint64]uint64{10: 1 << KPFTHP, 11: 1 << KPFTHP},
	)
	c := v.Survey(4*testPage+10, 4*testPage-10)
	assert.Equal(t, FlagCount{Total: 4, Available: 3, Set: 2}, c)
	assert.InDelta(t, 0.5, c.SetRatio(), 1e-9)
	assert.InDelta(t, 0.75, c.AvailableRatio(), 1e-9)
	assert.Equal(t, FlagCount{}, v.Survey(0, 0))
}
