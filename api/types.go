// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations, DTOs, and constants.

package api

import "time"

// Outcome enumerates how a transfer loop ended.
type Outcome int

const (
	OutcomeRunning Outcome = iota
	OutcomeBudgetReached
	OutcomePeerClosed
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRunning:
		return "running"
	case OutcomeBudgetReached:
		return "budget-reached"
	case OutcomePeerClosed:
		return "peer-closed"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Clean reports whether the outcome terminates the process with success.
func (o Outcome) Clean() bool {
	return o == OutcomeBudgetReached || o == OutcomePeerClosed
}

// Role is the side of the pipe a process drives.
type Role int

const (
	RoleWriter Role = iota
	RoleReader
)

func (r Role) String() string {
	if r == RoleReader {
		return "read"
	}
	return "write"
}

// Primitive selects the kernel data movement call family.
type Primitive int

const (
	// PrimitiveCopy moves bytes with write(2)/read(2).
	PrimitiveCopy Primitive = iota
	// PrimitivePageMove maps pages with vmsplice(2) on send and splice(2) on receive.
	PrimitivePageMove
)

func (p Primitive) String() string {
	if p == PrimitivePageMove {
		return "splice"
	}
	return "copy"
}

// PollEvents mirrors the readiness bits of poll(2).
type PollEvents int16

const (
	PollIn     PollEvents = 0x1
	PollPri    PollEvents = 0x2
	PollOut    PollEvents = 0x4
	PollWrBand PollEvents = 0x200

	// PollWritable is the readiness set awaited before sending.
	PollWritable = PollOut | PollWrBand
	// PollReadable is the readiness set awaited before receiving.
	PollReadable = PollIn | PollPri
)

// Page-moving call flags; values follow the Linux SPLICE_F_* bits.
const (
	FlagMove     = 0x1
	FlagNonblock = 0x2
	FlagMore     = 0x4
	FlagGift     = 0x8
)

// TransferStats is the per-run result shared by engine, facade and metrics.
type TransferStats struct {
	Role           Role
	Primitive      Primitive
	Strategy       string
	Bytes          uint64 // bytes moved, as reported by the kernel
	Calls          uint64 // successful transfer calls
	WouldBlock     uint64 // not-ready retries
	ReadinessWaits uint64 // readiness calls issued
	Passes         uint64 // completed buffer passes
	Elapsed        time.Duration
	Outcome        Outcome

	PageFaults    uint64
	FaultsCounted bool
	Checksum      uint64
	HasChecksum   bool
}

// Throughput returns bytes per second over the measured interval.
func (s TransferStats) Throughput() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Bytes) / s.Elapsed.Seconds()
}
