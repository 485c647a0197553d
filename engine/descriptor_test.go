package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescriptorAdvancesByReportedCount(t *testing.T) {
	var d Descriptor
	d.Reset(make([]byte, 10000))
	prev := d.Remaining()
	for _, n := range []int{1, 4095, 4097, 1807} {
		d.Advance(n)
		assert.Less(t, d.Remaining(), prev)
		prev = d.Remaining()
	}
	assert.True(t, d.Done())
	assert.Empty(t, d.Pending())
}

func TestDescriptorRejectsOvershoot(t *testing.T) {
	var d Descriptor
	d.Reset(make([]byte, 16))
	d.Advance(10)
	assert.Panics(t, func() { d.Advance(7) })
	assert.Panics(t, func() { d.Advance(-1) })
	assert.Equal(t, 6, d.Remaining())
}
