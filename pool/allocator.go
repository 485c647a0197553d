// File: pool/allocator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Buffer allocator: maps, aligns, advises, pins and prefaults the regions
// used by the transfer engine. Buffers live for the whole run; there is no
// pooling or eviction.

package pool

import (
	"github.com/momentics/hioload-pipe/api"
	"github.com/rs/zerolog"
)

// HugePageSize is the transparent huge page size on x86-64 and arm64 (4K granule).
const HugePageSize = 2 << 20

// fillPattern is written over every byte when prefaulting.
var fillPattern = []byte("0123456789")

// AllocOptions selects how a region is acquired.
type AllocOptions struct {
	Size           int  // requested bytes
	HugePage       bool // align to and round up to HugePageSize, advise MADV_HUGEPAGE
	LockMemory     bool // mlock the region
	DontTouchPages bool // skip prefaulting
}

// Allocator creates Buffers through a Mapper.
type Allocator struct {
	mapper Mapper
	log    zerolog.Logger
}

// NewAllocator builds an allocator over m.
func NewAllocator(m Mapper, log zerolog.Logger) *Allocator {
	return &Allocator{
		mapper: m,
		log:    log.With().Str("component", "pool").Logger(),
	}
}

// PageSize returns the base page size of the underlying mapper.
func (a *Allocator) PageSize() int { return a.mapper.PageSize() }

// HugeRoundUp rounds size up to the next huge page multiple.
func HugeRoundUp(size int) int {
	return ((size - 1) &^ (HugePageSize - 1)) + HugePageSize
}

// Allocate acquires one buffer. Failures carry api.ErrCodeResource, except an
// empty request which is a configuration error.
func (a *Allocator) Allocate(opts AllocOptions) (*Buffer, error) {
	const op = "pool.Allocate"
	if opts.Size <= 0 {
		return nil, api.Errorf(api.ErrCodeConfig, op, "buffer size must be positive, got %d", opts.Size)
	}
	length, align, class := opts.Size, a.mapper.PageSize(), AlignPage
	if opts.HugePage {
		length, align, class = HugeRoundUp(opts.Size), HugePageSize, AlignHuge
	}
	region, err := a.mapper.Map(length, align)
	if err != nil {
		return nil, api.Wrap(api.ErrCodeResource, op, err, "could not allocate buffer").
			WithContext("size", length)
	}
	b := &Buffer{
		data:   region[:opts.Size:opts.Size],
		region: region,
		align:  class,
		mapper: a.mapper,
	}
	a.log.Debug().Int("requested", opts.Size).Int("mapped", length).
		Stringer("alignment", class).Msg("mapped buffer")

	if opts.HugePage {
		if err := a.mapper.AdviseHuge(region); err != nil {
			_ = b.Release()
			return nil, api.Wrap(api.ErrCodeResource, op, err, "could not advise huge pages")
		}
	}
	if opts.LockMemory {
		if err := a.mapper.Lock(region); err != nil {
			_ = b.Release()
			return nil, api.Wrap(api.ErrCodeResource, op, err, "could not lock memory")
		}
		b.locked = true
	}
	if !opts.DontTouchPages {
		Fill(region)
		b.prefaulted = true
	}
	return b, nil
}

// AllocatePair acquires the two half-buffers for double buffering. opts.Size
// is the total size S; each slot covers S/2 bytes. With same set both slots
// alias disjoint halves of a single allocation of S bytes.
func (a *Allocator) AllocatePair(opts AllocOptions, same bool) (*Ring, error) {
	const op = "pool.AllocatePair"
	half := opts.Size / 2
	if half <= 0 {
		return nil, api.Errorf(api.ErrCodeConfig, op, "buffer size %d cannot be split in two", opts.Size)
	}
	if same {
		whole, err := a.Allocate(opts)
		if err != nil {
			return nil, err
		}
		lo, hi := whole.Split()
		return newRing([]*Buffer{whole}, lo, hi), nil
	}
	slot := opts
	slot.Size = half
	first, err := a.Allocate(slot)
	if err != nil {
		return nil, err
	}
	second, err := a.Allocate(slot)
	if err != nil {
		_ = first.Release()
		return nil, err
	}
	return NewRing(first, second), nil
}

// Fill writes the digit pattern over every byte of p, faulting in each page.
func Fill(p []byte) {
	if len(p) == 0 {
		return
	}
	n := copy(p, fillPattern)
	for n < len(p) {
		n += copy(p[n:], p[:n])
	}
}
