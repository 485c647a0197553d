//go:build !linux
// +build !linux

// File: internal/transport/pipe_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub pipe endpoint for platforms without vmsplice/splice.

package transport

import (
	"os"

	"github.com/momentics/hioload-pipe/api"
)

// Pipe is unavailable on this platform; every call fails with api.ErrNotSupported.
type Pipe struct {
	fd   int
	name string
}

var _ api.Endpoint = (*Pipe)(nil)

func NewPipe(fd int, name string) *Pipe { return &Pipe{fd: fd, name: name} }
func Stdin() *Pipe                      { return NewPipe(int(os.Stdin.Fd()), "stdin") }
func Stdout() *Pipe                     { return NewPipe(int(os.Stdout.Fd()), "stdout") }

func (p *Pipe) Fd() int                                { return p.fd }
func (p *Pipe) Name() string                           { return p.name }
func (p *Pipe) Write([]byte) (int, error)              { return 0, api.ErrNotSupported }
func (p *Pipe) Read([]byte) (int, error)               { return 0, api.ErrNotSupported }
func (p *Pipe) Vmsplice([]byte, int) (int, error)      { return 0, api.ErrNotSupported }
func (p *Pipe) SpliceTo(int, int, int) (int, error)    { return 0, api.ErrNotSupported }
func (p *Pipe) Poll(api.PollEvents, int) (bool, error) { return false, api.ErrNotSupported }
func (p *Pipe) SetNonblock(bool) error                 { return api.ErrNotSupported }
func (p *Pipe) SetPipeSize(int) (int, error)           { return 0, api.ErrNotSupported }
func (p *Pipe) PipeSize() (int, error)                 { return 0, api.ErrNotSupported }
