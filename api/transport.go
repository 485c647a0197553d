// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines the pipe endpoint abstraction driven by the transfer engine.
// Implementations translate platform errno values into the sentinels below
// so the engine can classify results without touching syscall packages.

package api

import "errors"

// Transfer result classes reported by Endpoint implementations.
var (
	// ErrWouldBlock is the transient not-ready condition (EAGAIN).
	ErrWouldBlock = errors.New("resource temporarily unavailable")
	// ErrPeerClosed reports that the other side of the pipe is gone (EPIPE).
	ErrPeerClosed = errors.New("broken pipe")
	// ErrInterrupted reports a call interrupted by a signal (EINTR).
	ErrInterrupted = errors.New("interrupted system call")
)

// Endpoint abstracts one end of a pipe backed by a raw descriptor.
type Endpoint interface {
	// Fd returns the underlying OS-level file descriptor.
	Fd() int

	// Write copies p into the pipe.
	Write(p []byte) (int, error)

	// Read copies pipe contents into p. A zero count with nil error means end of stream.
	Read(p []byte) (int, error)

	// Vmsplice maps the pages covering p into the pipe.
	Vmsplice(p []byte, flags int) (int, error)

	// SpliceTo moves up to n bytes from the pipe into the dst descriptor.
	SpliceTo(dst int, n int, flags int) (int, error)

	// Poll waits for the given readiness set; timeoutMs < 0 waits indefinitely.
	Poll(events PollEvents, timeoutMs int) (bool, error)

	// SetNonblock toggles O_NONBLOCK on the descriptor.
	SetNonblock(on bool) error

	// SetPipeSize requests a pipe capacity and returns the granted size.
	SetPipeSize(n int) (int, error)

	// PipeSize returns the current pipe capacity.
	PipeSize() (int, error)
}

// ResidencyChecker inspects kernel page metadata for a virtual address.
type ResidencyChecker interface {
	// HugePageBacked reports whether the page at addr is part of a transparent huge page.
	HugePageBacked(addr uintptr) (bool, error)
}

// FaultCounter counts page faults of the calling process between Enable and Disable.
type FaultCounter interface {
	Reset() error
	Enable() error
	Disable() error
	Read() (uint64, error)
	Close() error
}
