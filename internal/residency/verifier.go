// File: internal/residency/verifier.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Page residency inspection over the kernel's pagemap and kpageflags
// interfaces. Each pagemap entry is a native-endian u64 at
// (vaddr / pagesize) * 8: bit 63 is "present" and bits 0-54 hold the page
// frame number, which reads as zero without CAP_SYS_ADMIN. kpageflags holds
// one u64 of KPF_* bits per frame at pfn * 8.

package residency

import (
	"encoding/binary"
	"io"

	"github.com/momentics/hioload-pipe/api"
)

const (
	pagemapPresent = uint64(1) << 63
	pagemapPFNMask = uint64(1)<<55 - 1

	// KPFTHP is the kpageflags bit for transparent huge pages.
	KPFTHP = 22
)

// Verifier answers residency questions for the calling process.
type Verifier struct {
	pagemap    io.ReaderAt
	kpageflags io.ReaderAt
	pageSize   int
	closers    []io.Closer
}

// NewVerifier builds a Verifier over already opened metadata sources.
func NewVerifier(pagemap, kpageflags io.ReaderAt, pageSize int) *Verifier {
	return &Verifier{pagemap: pagemap, kpageflags: kpageflags, pageSize: pageSize}
}

var _ api.ResidencyChecker = (*Verifier)(nil)

// HugePageBacked reports whether the page containing addr carries KPF_THP.
// The page must be resident; callers prefault before asking.
func (v *Verifier) HugePageBacked(addr uintptr) (bool, error) {
	flags, err := v.pageFlags(addr)
	if err != nil {
		return false, err
	}
	return flags&(1<<KPFTHP) != 0, nil
}

func (v *Verifier) pageFlags(addr uintptr) (uint64, error) {
	const op = "residency.HugePageBacked"
	ent, err := readU64(v.pagemap, int64(addr/uintptr(v.pageSize))*8)
	if err != nil {
		return 0, api.Wrap(api.ErrCodeDiagnostic, op, err, "could not read from pagemap")
	}
	if ent&pagemapPresent == 0 {
		return 0, api.Errorf(api.ErrCodeDiagnostic, op, "page not present in /proc/self/pagemap").
			WithContext("addr", addr)
	}
	pfn := ent & pagemapPFNMask
	if pfn == 0 {
		return 0, api.Errorf(api.ErrCodeDiagnostic, op, "page frame number not present, run as root")
	}
	flags, err := readU64(v.kpageflags, int64(pfn)*8)
	if err != nil {
		return 0, api.Wrap(api.ErrCodeDiagnostic, op, err, "could not read from kpageflags")
	}
	return flags, nil
}

// FlagCount summarizes one kpageflags bit over a range of pages.
type FlagCount struct {
	Total     int // pages in range
	Available int // pages whose flags could be read
	Set       int // pages with the bit set
}

// SetRatio returns the share of all pages carrying the bit.
func (c FlagCount) SetRatio() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Set) / float64(c.Total)
}

// AvailableRatio returns the share of pages whose flags were readable.
func (c FlagCount) AvailableRatio() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Available) / float64(c.Total)
}

// Survey counts the pages of [addr, addr+length) carrying KPF_THP. Pages
// that are absent or hidden count toward Total only.
func (v *Verifier) Survey(addr uintptr, length int) FlagCount {
	var c FlagCount
	if length <= 0 {
		return c
	}
	ps := uintptr(v.pageSize)
	first := addr &^ (ps - 1)
	for p := first; p < addr+uintptr(length); p += ps {
		c.Total++
		flags, err := v.pageFlags(p)
		if err != nil {
			continue
		}
		c.Available++
		if flags&(1<<KPFTHP) != 0 {
			c.Set++
		}
	}
	return c
}

// Close releases the metadata sources opened by Open.
func (v *Verifier) Close() error {
	var first error
	for _, c := range v.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	v.closers = nil
	return first
}

func readU64(r io.ReaderAt, off int64) (uint64, error) {
	var b [8]byte
	if _, err := r.ReadAt(b[:], off); err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint64(b[:]), nil
}
