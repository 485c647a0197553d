// internal/transport/pipe_linux.go
//go:build linux
// +build linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux pipe endpoint over raw descriptors: write/read, vmsplice/splice,
// poll and F_{GET,SET}PIPE_SZ.

package transport

import (
	"errors"
	"os"

	"github.com/momentics/hioload-pipe/api"
	"golang.org/x/sys/unix"
)

// Pipe is one end of a pipe identified by its descriptor.
type Pipe struct {
	fd   int
	name string
}

var _ api.Endpoint = (*Pipe)(nil)

// NewPipe wraps fd; name is used in error messages.
func NewPipe(fd int, name string) *Pipe {
	return &Pipe{fd: fd, name: name}
}

// Stdin returns the endpoint for standard input.
func Stdin() *Pipe { return NewPipe(unix.Stdin, "stdin") }

// Stdout returns the endpoint for standard output.
func Stdout() *Pipe { return NewPipe(unix.Stdout, "stdout") }

// Fd implements api.Endpoint.
func (p *Pipe) Fd() int { return p.fd }

// Name returns the descriptive name.
func (p *Pipe) Name() string { return p.name }

// Write implements api.Endpoint.
func (p *Pipe) Write(b []byte) (int, error) {
	n, err := unix.Write(p.fd, b)
	return clampN(n), classify("write", err)
}

// Read implements api.Endpoint.
func (p *Pipe) Read(b []byte) (int, error) {
	n, err := unix.Read(p.fd, b)
	return clampN(n), classify("read", err)
}

// Vmsplice implements api.Endpoint.
func (p *Pipe) Vmsplice(b []byte, flags int) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	iov := []unix.Iovec{{Base: &b[0]}}
	iov[0].SetLen(len(b))
	n, err := unix.Vmsplice(p.fd, iov, flags)
	return clampN(n), classify("vmsplice", err)
}

// SpliceTo implements api.Endpoint.
func (p *Pipe) SpliceTo(dst int, n int, flags int) (int, error) {
	moved, err := unix.Splice(p.fd, nil, dst, nil, n, flags)
	if moved < 0 {
		moved = 0
	}
	return int(moved), classify("splice", err)
}

// Poll implements api.Endpoint.
func (p *Pipe) Poll(events api.PollEvents, timeoutMs int) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(p.fd), Events: int16(events)}}
	n, err := unix.Poll(fds, timeoutMs)
	if err != nil {
		return false, classify("poll", err)
	}
	return n > 0, nil
}

// SetNonblock implements api.Endpoint.
func (p *Pipe) SetNonblock(on bool) error {
	if err := unix.SetNonblock(p.fd, on); err != nil {
		return os.NewSyscallError("fcntl(O_NONBLOCK)", err)
	}
	return nil
}

// SetPipeSize implements api.Endpoint.
func (p *Pipe) SetPipeSize(n int) (int, error) {
	got, err := unix.FcntlInt(uintptr(p.fd), unix.F_SETPIPE_SZ, n)
	if err != nil {
		return 0, os.NewSyscallError("fcntl(F_SETPIPE_SZ)", err)
	}
	return got, nil
}

// PipeSize implements api.Endpoint.
func (p *Pipe) PipeSize() (int, error) {
	got, err := unix.FcntlInt(uintptr(p.fd), unix.F_GETPIPE_SZ, 0)
	if err != nil {
		return 0, os.NewSyscallError("fcntl(F_GETPIPE_SZ)", err)
	}
	return got, nil
}

func clampN(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// classify maps errno values onto the api transfer classes.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.EAGAIN):
		return api.ErrWouldBlock
	case errors.Is(err, unix.EPIPE):
		return api.ErrPeerClosed
	case errors.Is(err, unix.EINTR):
		return api.ErrInterrupted
	}
	return os.NewSyscallError(op, err)
}
