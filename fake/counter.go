// Package fake
// Author: momentics <momentics@gmail.com>

package fake

import (
	"sync"

	"github.com/momentics/hioload-pipe/api"
)

// Counter is a fake api.FaultCounter. Calls are logged in order.
type Counter struct {
	mu sync.Mutex

	Faults  uint64
	ReadErr error
	Calls   []string
}

var _ api.FaultCounter = (*Counter)(nil)

func (c *Counter) log(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, name)
}

// Reset implements api.FaultCounter.
func (c *Counter) Reset() error { c.log("reset"); return nil }

// Enable implements api.FaultCounter.
func (c *Counter) Enable() error { c.log("enable"); return nil }

// Disable implements api.FaultCounter.
func (c *Counter) Disable() error { c.log("disable"); return nil }

// Close implements api.FaultCounter.
func (c *Counter) Close() error { c.log("close"); return nil }

// Read implements api.FaultCounter.
func (c *Counter) Read() (uint64, error) {
	c.log("read")
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Faults, c.ReadErr
}
