// File: pool/ring.go
// Author: momentics <momentics@gmail.com>
//
// Slot rotation for double-buffered page-moving transfers.
// Slots are served in strict FIFO order, so a slot handed to the kernel is
// reused only after every other slot has been sent.

package pool

import (
	"errors"

	"github.com/eapache/queue"
)

// Ring rotates a fixed set of buffers. It is driven by a single goroutine.
type Ring struct {
	q     *queue.Queue
	slots []*Buffer
	owned []*Buffer
}

// NewRing creates a ring over slots and takes ownership of them.
func NewRing(slots ...*Buffer) *Ring {
	return newRing(slots, slots...)
}

func newRing(owned []*Buffer, slots ...*Buffer) *Ring {
	if len(slots) == 0 {
		panic("pool: ring needs at least one slot")
	}
	q := queue.New()
	for _, s := range slots {
		q.Add(s)
	}
	return &Ring{q: q, slots: slots, owned: owned}
}

// Current returns the slot of the active pass.
func (r *Ring) Current() *Buffer {
	return r.q.Peek().(*Buffer)
}

// Advance retires the current slot to the back of the ring and returns the next one.
func (r *Ring) Advance() *Buffer {
	r.q.Add(r.q.Remove())
	return r.Current()
}

// Len returns the number of slots.
func (r *Ring) Len() int { return r.q.Length() }

// Slots returns the slots in allocation order.
func (r *Ring) Slots() []*Buffer { return r.slots }

// SlotSize returns the length of one slot.
func (r *Ring) SlotSize() int { return r.slots[0].Len() }

// Release frees every owned allocation.
func (r *Ring) Release() error {
	var errs []error
	for _, b := range r.owned {
		if err := b.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	r.owned = nil
	return errors.Join(errs...)
}
