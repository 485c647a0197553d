//go:build linux
// +build linux

// File: internal/perf/perf_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package perf

import (
	"unsafe"

	"github.com/momentics/hioload-pipe/api"
	"golang.org/x/sys/unix"
)

// PerfCounter is a PERF_COUNT_SW_PAGE_FAULTS event on the calling process,
// opened disabled and read in group format.
type PerfCounter struct {
	fd int
	id uint64
}

var _ api.FaultCounter = (*PerfCounter)(nil)

// OpenPageFaults opens the software page fault counter for this process on any CPU.
func OpenPageFaults() (*PerfCounter, error) {
	const op = "perf.Open"
	attr := unix.PerfEventAttr{
		Type:        unix.PERF_TYPE_SOFTWARE,
		Config:      unix.PERF_COUNT_SW_PAGE_FAULTS,
		Read_format: unix.PERF_FORMAT_GROUP | unix.PERF_FORMAT_ID,
		Bits:        unix.PerfBitDisabled | unix.PerfBitExcludeHv,
	}
	attr.Size = uint32(unsafe.Sizeof(attr))
	fd, err := unix.PerfEventOpen(&attr, 0, -1, -1, unix.PERF_FLAG_FD_CLOEXEC)
	if err != nil {
		return nil, api.Wrap(api.ErrCodeCounter, op, err, "could not open perf event")
	}
	c := &PerfCounter{fd: fd}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(unix.PERF_EVENT_IOC_ID),
		uintptr(unsafe.Pointer(&c.id))); errno != 0 {
		unix.Close(fd)
		return nil, api.Wrap(api.ErrCodeCounter, op, errno, "could not get perf event id")
	}
	return c, nil
}

func (c *PerfCounter) ioctl(req uint, name string) error {
	if err := unix.IoctlSetInt(c.fd, req, unix.PERF_IOC_FLAG_GROUP); err != nil {
		return api.Wrap(api.ErrCodeCounter, "perf."+name, err, "perf ioctl failed")
	}
	return nil
}

// Reset zeroes the counter.
func (c *PerfCounter) Reset() error { return c.ioctl(unix.PERF_EVENT_IOC_RESET, "Reset") }

// Enable starts counting.
func (c *PerfCounter) Enable() error { return c.ioctl(unix.PERF_EVENT_IOC_ENABLE, "Enable") }

// Disable stops counting.
func (c *PerfCounter) Disable() error { return c.ioctl(unix.PERF_EVENT_IOC_DISABLE, "Disable") }

// Read returns the faults counted since the last Reset.
func (c *PerfCounter) Read() (uint64, error) {
	var buf [groupReadSize]byte
	n, err := unix.Read(c.fd, buf[:])
	if err != nil {
		return 0, api.Wrap(api.ErrCodeCounter, "perf.Read", err, "could not read perf event")
	}
	return parseGroupRead(buf[:n], c.id)
}

// Close releases the event descriptor.
func (c *PerfCounter) Close() error {
	if c.fd < 0 {
		return nil
	}
	err := unix.Close(c.fd)
	c.fd = -1
	return err
}
