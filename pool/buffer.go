// File: pool/buffer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Owned, page-aligned memory region handed to the transfer engine.

package pool

import (
	"errors"
	"unsafe"
)

// Alignment is the page granularity a Buffer is aligned to.
type Alignment int

const (
	AlignPage Alignment = iota
	AlignHuge
)

func (a Alignment) String() string {
	if a == AlignHuge {
		return "huge"
	}
	return "page"
}

// Buffer is a region obtained from an Allocator. Aliased halves share the
// parent's mapping and never release it.
type Buffer struct {
	data       []byte // usable bytes, exactly the requested length
	region     []byte // whole mapping; nil for aliases
	align      Alignment
	locked     bool
	prefaulted bool
	hugeOK     bool
	mapper     Mapper
	parent     *Buffer
}

// Bytes returns the usable region.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the usable length in bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Mapped returns the length of the backing mapping, which is never smaller than Len.
func (b *Buffer) Mapped() int {
	if b.parent != nil {
		return len(b.data)
	}
	return len(b.region)
}

// Addr returns the base virtual address.
func (b *Buffer) Addr() uintptr {
	if len(b.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b.data[0]))
}

// Alignment returns the alignment class.
func (b *Buffer) Alignment() Alignment { return b.align }

// Locked reports whether the pages are pinned with mlock.
func (b *Buffer) Locked() bool { return b.locked }

// Prefaulted reports whether every byte was written after mapping.
func (b *Buffer) Prefaulted() bool { return b.prefaulted }

// HugeConfirmed reports whether residency verification confirmed huge-page backing.
func (b *Buffer) HugeConfirmed() bool { return b.hugeOK }

// ConfirmHuge records the residency verification result.
func (b *Buffer) ConfirmHuge(ok bool) { b.hugeOK = ok }

// Alias reports whether the buffer is a view into another allocation.
func (b *Buffer) Alias() bool { return b.parent != nil }

// Split returns two aliased buffers owning disjoint halves of b.
func (b *Buffer) Split() (*Buffer, *Buffer) {
	half := len(b.data) / 2
	mk := func(p []byte) *Buffer {
		return &Buffer{
			data:       p,
			align:      b.align,
			locked:     b.locked,
			prefaulted: b.prefaulted,
			parent:     b,
		}
	}
	return mk(b.data[:half:half]), mk(b.data[half : 2*half : 2*half])
}

// Release unlocks and unmaps the region. Releasing an alias is a no-op.
func (b *Buffer) Release() error {
	if b.parent != nil || b.region == nil {
		return nil
	}
	var errs []error
	if b.locked {
		if err := b.mapper.Unlock(b.region); err != nil {
			errs = append(errs, err)
		}
		b.locked = false
	}
	if err := b.mapper.Unmap(b.region); err != nil {
		errs = append(errs, err)
	}
	b.region, b.data = nil, nil
	return errors.Join(errs...)
}
