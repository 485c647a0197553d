// Package fake
// Author: momentics <momentics@gmail.com>

package fake

import (
	"sync"

	"github.com/momentics/hioload-pipe/internal/residency"
)

// Residency is a scripted huge page checker.
type Residency struct {
	mu sync.Mutex

	Huge bool
	Err  error
	// Count is returned by Survey.
	Count residency.FlagCount

	Checked  []uintptr
	Surveyed int
	Closed   bool
}

// HugePageBacked implements api.ResidencyChecker.
func (r *Residency) HugePageBacked(addr uintptr) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Checked = append(r.Checked, addr)
	return r.Huge, r.Err
}

// Survey returns the scripted count.
func (r *Residency) Survey(addr uintptr, length int) residency.FlagCount {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Surveyed++
	return r.Count
}

// Close records the call.
func (r *Residency) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closed = true
	return nil
}
