//go:build linux
// +build linux

// File: internal/gup/device_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package gup

import (
	"unsafe"

	"github.com/momentics/hioload-pipe/api"
	"golang.org/x/sys/unix"
)

// _IOWR('g', 1, struct gup_test)
const gupFastBenchmark = 3<<30 | uintptr(unsafe.Sizeof(Request{}))<<16 | 'g'<<8 | 1

type device struct {
	fd int
}

// Open opens DevicePath for reading and writing.
func Open() (Device, error) {
	fd, err := unix.Open(DevicePath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, api.Wrap(api.ErrCodeResource, "gup.Open", err,
			"could not open gup_test, is CONFIG_GUP_TEST enabled and debugfs mounted?").
			WithContext("path", DevicePath)
	}
	return &device{fd: fd}, nil
}

func (d *device) FastBenchmark(r *Request) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), gupFastBenchmark, uintptr(unsafe.Pointer(r)))
	if errno != 0 {
		return errno
	}
	return nil
}

func (d *device) Close() error { return unix.Close(d.fd) }
