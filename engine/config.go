// File: engine/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"io"
	"time"

	"github.com/momentics/hioload-pipe/api"
	"github.com/momentics/hioload-pipe/pool"
	"github.com/rs/zerolog"
)

// CapacityVerifier checks the pipe capacity before a page-moving pass.
type CapacityVerifier interface {
	Verify(ep api.Endpoint) error
}

// Config wires one transfer loop.
type Config struct {
	Endpoint api.Endpoint
	// Ring holds one slot for copying and two for double-buffered page moving.
	Ring      *pool.Ring
	Primitive api.Primitive
	Strategy  Strategy
	// Gift sets SPLICE_F_GIFT on send and SPLICE_F_MOVE on receive.
	Gift bool
	// Budget is the byte count to move; 0 runs until the peer closes.
	Budget uint64
	// Capacity is checked before every page-moving send pass when set.
	Capacity CapacityVerifier
	// Sink is the splice destination descriptor on receive.
	Sink int
	// Tap observes copied bytes.
	Tap io.Writer
	Log zerolog.Logger
	Now func() time.Time
}

func (c *Config) validate(role api.Role) error {
	const op = "engine.Config"
	if c.Endpoint == nil {
		return api.Errorf(api.ErrCodeConfig, op, "endpoint is required")
	}
	if c.Ring == nil {
		return api.Errorf(api.ErrCodeConfig, op, "buffer ring is required")
	}
	if c.Tap != nil && c.Primitive == api.PrimitivePageMove {
		return api.Errorf(api.ErrCodeConfig, op, "a tap only observes copying transfers")
	}
	if role == api.RoleWriter && c.Primitive == api.PrimitivePageMove && c.Ring.Len() < 2 {
		return api.Errorf(api.ErrCodeConfig, op, "page-moving send needs two buffers, got %d", c.Ring.Len())
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

func newStats(role api.Role, c *Config) api.TransferStats {
	return api.TransferStats{
		Role:      role,
		Primitive: c.Primitive,
		Strategy:  c.Strategy.String(),
		Outcome:   api.OutcomeRunning,
	}
}
