//go:build linux
// +build linux

// File: pool/mapper_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux anonymous mmap implementation of Mapper. Huge-page aligned regions
// are obtained by over-mapping one alignment unit and trimming both ends.

package pool

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

var munmapPtr = unix.MunmapPtr

type linuxMapper struct {
	pageSize int
}

func newPlatformMapper() Mapper {
	return &linuxMapper{pageSize: unix.Getpagesize()}
}

func (m *linuxMapper) PageSize() int { return m.pageSize }

func (m *linuxMapper) Map(length, align int) ([]byte, error) {
	if length <= 0 {
		return nil, fmt.Errorf("mmap: invalid length %d", length)
	}
	const prot = unix.PROT_READ | unix.PROT_WRITE
	const flags = unix.MAP_PRIVATE | unix.MAP_ANONYMOUS
	if align <= m.pageSize {
		p, err := unix.MmapPtr(-1, 0, nil, uintptr(length), prot, flags)
		if err != nil {
			return nil, fmt.Errorf("mmap %d bytes: %w", length, err)
		}
		return unsafe.Slice((*byte)(p), length), nil
	}
	if align&(align-1) != 0 {
		return nil, fmt.Errorf("mmap: alignment %d is not a power of two", align)
	}
	total := length + align
	p, err := unix.MmapPtr(-1, 0, nil, uintptr(total), prot, flags)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", total, err)
	}
	base := uintptr(p)
	head := int(((base + uintptr(align-1)) &^ uintptr(align-1)) - base)
	tail := total - head - length
	aligned := unsafe.Add(p, head)
	if head > 0 {
		if err := munmapPtr(p, uintptr(head)); err != nil {
			_ = munmapPtr(p, uintptr(total))
			return nil, fmt.Errorf("munmap alignment head: %w", err)
		}
	}
	if tail > 0 {
		if err := munmapPtr(unsafe.Add(aligned, length), uintptr(tail)); err != nil {
			_ = munmapPtr(aligned, uintptr(length+tail))
			return nil, fmt.Errorf("munmap alignment tail: %w", err)
		}
	}
	return unsafe.Slice((*byte)(aligned), length), nil
}

func (m *linuxMapper) Unmap(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	if err := munmapPtr(unsafe.Pointer(&region[0]), uintptr(len(region))); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}

func (m *linuxMapper) AdviseHuge(region []byte) error {
	if err := unix.Madvise(region, unix.MADV_HUGEPAGE); err != nil {
		return fmt.Errorf("madvise(MADV_HUGEPAGE): %w", err)
	}
	return nil
}

func (m *linuxMapper) Lock(region []byte) error {
	if err := unix.Mlock(region); err != nil {
		return fmt.Errorf("mlock: %w", err)
	}
	return nil
}

func (m *linuxMapper) Unlock(region []byte) error {
	if err := unix.Munlock(region); err != nil {
		return fmt.Errorf("munlock: %w", err)
	}
	return nil
}
