// Package fake
// Author: momentics <momentics@gmail.com>
//
// Heap-backed Mapper for allocator tests. Regions are carved out of Go
// slices at the requested alignment; the Go heap does not move objects, so
// the alignment holds for the lifetime of the region.

package fake

import (
	"sync"
	"unsafe"
)

// Mapper is a fake implementation of pool.Mapper.
type Mapper struct {
	mu sync.Mutex

	Page int

	MapErr    error
	AdviseErr error
	LockErr   error

	MapCalls    int
	UnmapCalls  int
	AdviseCalls int
	LockCalls   int
	UnlockCalls int
	Lengths     []int
	Aligns      []int

	live map[uintptr][]byte
}

// NewMapper creates a fake mapper with 4 KiB pages.
func NewMapper() *Mapper {
	return &Mapper{Page: 4096, live: make(map[uintptr][]byte)}
}

// Map implements pool.Mapper.Map.
func (m *Mapper) Map(length, align int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MapCalls++
	m.Lengths = append(m.Lengths, length)
	m.Aligns = append(m.Aligns, align)
	if m.MapErr != nil {
		return nil, m.MapErr
	}
	if align < m.Page {
		align = m.Page
	}
	raw := make([]byte, length+align)
	base := uintptr(unsafe.Pointer(&raw[0]))
	off := int((base+uintptr(align-1))&^uintptr(align-1) - base)
	region := raw[off : off+length : off+length]
	m.live[uintptr(unsafe.Pointer(&region[0]))] = raw
	return region, nil
}

// Unmap implements pool.Mapper.Unmap.
func (m *Mapper) Unmap(region []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UnmapCalls++
	if len(region) > 0 {
		delete(m.live, uintptr(unsafe.Pointer(&region[0])))
	}
	return nil
}

// AdviseHuge implements pool.Mapper.AdviseHuge.
func (m *Mapper) AdviseHuge([]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AdviseCalls++
	return m.AdviseErr
}

// Lock implements pool.Mapper.Lock.
func (m *Mapper) Lock([]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LockCalls++
	return m.LockErr
}

// Unlock implements pool.Mapper.Unlock.
func (m *Mapper) Unlock([]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UnlockCalls++
	return nil
}

// PageSize implements pool.Mapper.PageSize.
func (m *Mapper) PageSize() int { return m.Page }

// Live returns the number of regions mapped and not yet unmapped.
func (m *Mapper) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}
