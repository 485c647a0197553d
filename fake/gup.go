// Package fake
// Author: momentics <momentics@gmail.com>

package fake

import (
	"sync"

	"github.com/momentics/hioload-pipe/internal/gup"
)

// GupDevice is a scripted gup.Device. Every request is recorded as issued.
type GupDevice struct {
	mu sync.Mutex

	GetUsec  uint64
	PutUsec  uint64
	FailAt   int // fail the request with this 1-based index, 0 never
	Err      error
	Requests []gup.Request
	Closed   bool
}

var _ gup.Device = (*GupDevice)(nil)

// FastBenchmark implements gup.Device.
func (d *GupDevice) FastBenchmark(r *gup.Request) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Requests = append(d.Requests, *r)
	if d.FailAt > 0 && len(d.Requests) == d.FailAt {
		return d.Err
	}
	r.GetDeltaUsec = d.GetUsec
	r.PutDeltaUsec = d.PutUsec
	return nil
}

// Close implements gup.Device.
func (d *GupDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Closed = true
	return nil
}
