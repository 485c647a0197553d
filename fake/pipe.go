// Package fake
// Author: momentics <momentics@gmail.com>
//
// Scripted pipe endpoint for engine tests. It never touches the kernel:
// not-ready results, partial transfers, peer closure and failures are all
// programmed through exported fields.

package fake

import (
	"bytes"
	"io"
	"sync"

	"github.com/momentics/hioload-pipe/api"
)

// Pipe is a fake implementation of api.Endpoint.
type Pipe struct {
	mu sync.Mutex

	// NotReady is the number of upcoming transfer calls that find the pipe
	// not ready. A non-blocking call reports api.ErrWouldBlock; a blocking
	// call is counted as a simulated suspension and then proceeds.
	NotReady int
	// PollMisses is the number of upcoming zero-timeout polls reporting "not ready".
	PollMisses int
	// ChunkLimit caps the bytes moved per call when positive.
	ChunkLimit int
	// FailWith is returned by the next transfer call when set.
	FailWith error
	// Source feeds Read and SpliceTo; io.EOF means the writer closed.
	Source io.Reader
	// Record keeps a copy of every byte accepted by Write and Vmsplice.
	Record bool
	// SetSizeErr is returned by SetPipeSize when set.
	SetSizeErr error
	// Grant overrides the capacity granted by SetPipeSize when positive.
	Grant int
	// OnCall runs before every transfer call.
	OnCall func(p *Pipe)

	nonblock   bool
	capacity   int
	closeAfter int64
	closing    bool

	Accepted      int64
	Written       bytes.Buffer
	WriteCalls    int
	ReadCalls     int
	VmspliceCalls int
	SpliceCalls   int
	PollCalls     int
	PipeSizeCalls int
	SetSizeCalls  int
	WouldBlocks   int
	Blocks        int

	VmspliceFlags []int
	SpliceFlags   []int
	SpliceDst     []int
	PollTimeouts  []int
	CallAddrs     []*byte
	// Trace logs call kinds in order: "write", "read", "vmsplice", "splice", "poll", "getsize", "setsize".
	Trace []string
}

var _ api.Endpoint = (*Pipe)(nil)

// NewPipe creates a ready fake with a 64 KiB capacity.
func NewPipe() *Pipe {
	return &Pipe{capacity: 1 << 16}
}

// ClosePeerAfter makes the reader side vanish once n bytes were accepted.
func (p *Pipe) ClosePeerAfter(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeAfter, p.closing = n, true
}

// SetCapacity changes the capacity behind the engine's back.
func (p *Pipe) SetCapacity(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.capacity = n
}

// Nonblocking reports the O_NONBLOCK state.
func (p *Pipe) Nonblocking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nonblock
}

// Fd implements api.Endpoint.
func (p *Pipe) Fd() int { return -1 }

// Write implements api.Endpoint.
func (p *Pipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.WriteCalls++
	p.Trace = append(p.Trace, "write")
	return p.accept(b, p.nonblock)
}

// Vmsplice implements api.Endpoint.
func (p *Pipe) Vmsplice(b []byte, flags int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.VmspliceCalls++
	p.VmspliceFlags = append(p.VmspliceFlags, flags)
	p.Trace = append(p.Trace, "vmsplice")
	return p.accept(b, p.nonblock || flags&api.FlagNonblock != 0)
}

// Read implements api.Endpoint.
func (p *Pipe) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ReadCalls++
	p.Trace = append(p.Trace, "read")
	if err := p.before(p.nonblock); err != nil {
		return 0, err
	}
	if len(b) > 0 {
		p.CallAddrs = append(p.CallAddrs, &b[0])
	}
	return p.pull(b)
}

// SpliceTo implements api.Endpoint.
func (p *Pipe) SpliceTo(dst int, n int, flags int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SpliceCalls++
	p.SpliceFlags = append(p.SpliceFlags, flags)
	p.SpliceDst = append(p.SpliceDst, dst)
	p.Trace = append(p.Trace, "splice")
	if err := p.before(p.nonblock || flags&api.FlagNonblock != 0); err != nil {
		return 0, err
	}
	return p.pull(make([]byte, n))
}

// Poll implements api.Endpoint. A negative timeout always ends ready; a
// zero timeout consumes PollMisses first.
func (p *Pipe) Poll(events api.PollEvents, timeoutMs int) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PollCalls++
	p.PollTimeouts = append(p.PollTimeouts, timeoutMs)
	p.Trace = append(p.Trace, "poll")
	if p.PollMisses > 0 {
		p.PollMisses--
		if timeoutMs == 0 {
			return false, nil
		}
		p.Blocks++
	}
	return true, nil
}

// SetNonblock implements api.Endpoint.
func (p *Pipe) SetNonblock(on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nonblock = on
	return nil
}

// SetPipeSize implements api.Endpoint.
func (p *Pipe) SetPipeSize(n int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SetSizeCalls++
	p.Trace = append(p.Trace, "setsize")
	if p.SetSizeErr != nil {
		return 0, p.SetSizeErr
	}
	p.capacity = n
	if p.Grant > 0 {
		p.capacity = p.Grant
	}
	return p.capacity, nil
}

// PipeSize implements api.Endpoint.
func (p *Pipe) PipeSize() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PipeSizeCalls++
	p.Trace = append(p.Trace, "getsize")
	return p.capacity, nil
}

// before applies the scripted hook, failure and readiness for one transfer call.
func (p *Pipe) before(nonblock bool) error {
	if p.OnCall != nil {
		p.mu.Unlock()
		p.OnCall(p)
		p.mu.Lock()
	}
	if p.FailWith != nil {
		err := p.FailWith
		p.FailWith = nil
		return err
	}
	if p.NotReady > 0 {
		if nonblock {
			p.NotReady--
			p.WouldBlocks++
			return api.ErrWouldBlock
		}
		p.Blocks += p.NotReady
		p.NotReady = 0
	}
	return nil
}

func (p *Pipe) accept(b []byte, nonblock bool) (int, error) {
	if err := p.before(nonblock); err != nil {
		return 0, err
	}
	if p.closing && p.Accepted >= p.closeAfter {
		return 0, api.ErrPeerClosed
	}
	if len(b) > 0 {
		p.CallAddrs = append(p.CallAddrs, &b[0])
	}
	n := len(b)
	if p.ChunkLimit > 0 && n > p.ChunkLimit {
		n = p.ChunkLimit
	}
	if p.closing && p.Accepted+int64(n) > p.closeAfter {
		n = int(p.closeAfter - p.Accepted)
	}
	if p.Record {
		p.Written.Write(b[:n])
	}
	p.Accepted += int64(n)
	return n, nil
}

func (p *Pipe) pull(b []byte) (int, error) {
	if p.ChunkLimit > 0 && len(b) > p.ChunkLimit {
		b = b[:p.ChunkLimit]
	}
	if p.Source == nil || len(b) == 0 {
		return 0, nil
	}
	n, err := p.Source.Read(b)
	if err == io.EOF {
		err = nil
	}
	p.Accepted += int64(n)
	return n, err
}
