// File: engine/descriptor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import "fmt"

// Descriptor tracks the unsent or unread suffix of a buffer during one pass.
type Descriptor struct {
	buf []byte
	off int
}

// Reset starts a new pass over buf.
func (d *Descriptor) Reset(buf []byte) {
	d.buf, d.off = buf, 0
}

// Pending returns the suffix still to be moved.
func (d *Descriptor) Pending() []byte { return d.buf[d.off:] }

// Remaining returns the number of bytes still to be moved.
func (d *Descriptor) Remaining() int { return len(d.buf) - d.off }

// Done reports whether the pass is complete.
func (d *Descriptor) Done() bool { return d.off == len(d.buf) }

// Advance consumes n bytes. n is whatever the kernel reported and need not
// be page aligned; it must not exceed Remaining.
func (d *Descriptor) Advance(n int) {
	if n < 0 || n > d.Remaining() {
		panic(fmt.Sprintf("engine: advance by %d with %d bytes remaining", n, d.Remaining()))
	}
	d.off += n
}
