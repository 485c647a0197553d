// control/options.go
// Author: momentics <momentics@gmail.com>
//
// Benchmark options shared by the write, read and measure commands.
// Options are bound to a flag.FlagSet, validated once, and never mutated
// afterwards.

package control

import (
	"flag"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/momentics/hioload-pipe/api"
	"github.com/momentics/hioload-pipe/internal/perf"
	"github.com/rs/zerolog"
)

// Options is the complete run configuration.
type Options struct {
	Verbose           bool
	BusyLoop          bool   // non-blocking descriptor, retry not-ready results immediately
	Poll              bool   // wait for readiness before each attempt
	HugePage          bool   // back buffers with transparent huge pages
	CheckHugePage     bool   // verify huge page backing after prefault
	BufSize           uint64 // bytes per pass; split in two halves with vmsplice
	WriteWithVmsplice bool
	ReadWithSplice    bool
	Gift              bool // SPLICE_F_GIFT on write, SPLICE_F_MOVE on read
	LockMemory        bool
	DontTouchPages    bool
	SameBuffer        bool   // alias both halves into one allocation
	Human             bool   // readable report instead of the CSV line
	BytesToPipe       uint64 // transfer budget, 0 for unbounded
	PipeSize          uint64 // explicit pipe capacity, 0 leaves it unset

	CPU           int    // pin the transfer thread, -1 disables pinning
	FaultCounter  string // perf, proc or none
	Checksum      bool   // xxhash64 of the copied stream
	CheckPipeSize bool   // verify capacity before every vmsplice pass
	MetricsFile   string // Prometheus text exposition written after the run
	ReportFile    string // writer report destination instead of stderr
}

// DefaultOptions returns the option defaults.
func DefaultOptions() Options {
	return Options{
		BufSize:      1 << 18,  // 256 KiB
		BytesToPipe:  10 << 30, // 10 GiB
		CPU:          -1,
		FaultCounter: perf.BackendPerf,
	}
}

// BindFlags registers every option on fs.
func (o *Options) BindFlags(fs *flag.FlagSet) {
	fs.BoolVar(&o.Verbose, "verbose", o.Verbose, "log diagnostics at debug level")
	fs.BoolVar(&o.BusyLoop, "busy_loop", o.BusyLoop, "mark the pipe non-blocking and spin on EAGAIN")
	fs.BoolVar(&o.Poll, "poll", o.Poll, "poll for readiness before every transfer call")
	fs.BoolVar(&o.HugePage, "huge_page", o.HugePage, "allocate buffers on 2MiB transparent huge pages")
	fs.BoolVar(&o.CheckHugePage, "check_huge_page", o.CheckHugePage, "verify huge page backing via /proc/self/pagemap")
	fs.Var(sizeValue{&o.BufSize}, "buf_size", "buffer size, e.g. 256K")
	fs.BoolVar(&o.WriteWithVmsplice, "write_with_vmsplice", o.WriteWithVmsplice, "write with vmsplice and double buffering")
	fs.BoolVar(&o.ReadWithSplice, "read_with_splice", o.ReadWithSplice, "read with splice into /dev/null")
	fs.BoolVar(&o.Gift, "gift", o.Gift, "gift pages (SPLICE_F_GIFT / SPLICE_F_MOVE)")
	fs.Var(sizeValue{&o.BytesToPipe}, "bytes_to_pipe", "bytes to transfer, 0 for unbounded")
	fs.Var(sizeValue{&o.PipeSize}, "pipe_size", "explicit pipe capacity, not allowed with vmsplice")
	fs.BoolVar(&o.LockMemory, "lock_memory", o.LockMemory, "mlock the buffers")
	fs.BoolVar(&o.DontTouchPages, "dont_touch_pages", o.DontTouchPages, "do not prefault the buffers")
	fs.BoolVar(&o.SameBuffer, "same_buffer", o.SameBuffer, "split one allocation into the two vmsplice halves")
	fs.BoolVar(&o.Human, "human", o.Human, "report a readable line instead of CSV")
	fs.IntVar(&o.CPU, "cpu", o.CPU, "pin the transfer thread to this CPU, -1 to disable")
	fs.StringVar(&o.FaultCounter, "fault_counter", o.FaultCounter, "page fault counter: "+strings.Join(perf.Backends, ", "))
	fs.BoolVar(&o.Checksum, "checksum", o.Checksum, "log an xxhash64 of the copied stream")
	fs.BoolVar(&o.CheckPipeSize, "check_pipe_size", o.CheckPipeSize, "verify the pipe capacity before every vmsplice pass")
	fs.StringVar(&o.MetricsFile, "metrics_file", o.MetricsFile, "write Prometheus metrics to this file after the run")
	fs.StringVar(&o.ReportFile, "report_file", o.ReportFile, "append the writer report to this file")
}

// Validate rejects inconsistent combinations before any resource is
// acquired. It has no side effects, so repeated calls agree.
func (o *Options) Validate() error {
	return o.validate(os.Getpagesize())
}

func (o *Options) validate(pageSize int) error {
	const op = "control.Validate"
	fail := func(format string, args ...any) error {
		return api.Errorf(api.ErrCodeConfig, op, format, args...)
	}
	switch {
	case o.BufSize == 0:
		return fail("--buf_size must be greater than zero")
	case o.DontTouchPages && o.CheckHugePage:
		return fail("--dont_touch_pages and --check_huge_page are incompatible, huge pages cannot be checked before they are faulted in")
	case o.CheckHugePage && !o.HugePage:
		return fail("--check_huge_page requires --huge_page")
	case o.WriteWithVmsplice && o.PipeSize != 0:
		return fail("--pipe_size cannot be combined with --write_with_vmsplice, the capacity is derived as --buf_size/2")
	case o.WriteWithVmsplice && o.BufSize%2 != 0:
		return fail("--buf_size %d must be even with --write_with_vmsplice", o.BufSize)
	case o.WriteWithVmsplice && o.Gift && (o.BufSize/2)%uint64(pageSize) != 0:
		return fail("--gift with --write_with_vmsplice needs --buf_size/2 (%d) to be a multiple of the page size %d", o.BufSize/2, pageSize)
	case o.SameBuffer && !o.WriteWithVmsplice:
		return fail("--same_buffer requires --write_with_vmsplice")
	case o.Checksum && (o.WriteWithVmsplice || o.ReadWithSplice):
		return fail("--checksum cannot be combined with --write_with_vmsplice or --read_with_splice, only copied bytes are observed")
	case !slices.Contains(perf.Backends, o.FaultCounter):
		return fail("--fault_counter %q is not one of %s", o.FaultCounter, strings.Join(perf.Backends, ", "))
	case o.CPU < -1:
		return fail("--cpu must be -1 or a CPU index, got %d", o.CPU)
	}
	return nil
}

// Dump logs every option at debug level.
func (o *Options) Dump(log zerolog.Logger) {
	log.Debug().
		Bool("busy_loop", o.BusyLoop).
		Bool("poll", o.Poll).
		Bool("huge_page", o.HugePage).
		Bool("check_huge_page", o.CheckHugePage).
		Uint64("buf_size", o.BufSize).
		Bool("write_with_vmsplice", o.WriteWithVmsplice).
		Bool("read_with_splice", o.ReadWithSplice).
		Bool("gift", o.Gift).
		Bool("lock_memory", o.LockMemory).
		Bool("dont_touch_pages", o.DontTouchPages).
		Bool("same_buffer", o.SameBuffer).
		Str("bytes_to_pipe", FormatSize(o.BytesToPipe)).
		Uint64("pipe_size", o.PipeSize).
		Int("cpu", o.CPU).
		Str("fault_counter", o.FaultCounter).
		Msg("options")
}

// Args renders the options back into command line flags accepted by BindFlags.
func (o *Options) Args() []string {
	var args []string
	boolFlag := func(name string, v bool) {
		if v {
			args = append(args, "--"+name)
		}
	}
	boolFlag("verbose", o.Verbose)
	boolFlag("busy_loop", o.BusyLoop)
	boolFlag("poll", o.Poll)
	boolFlag("huge_page", o.HugePage)
	boolFlag("check_huge_page", o.CheckHugePage)
	args = append(args, "--buf_size", FormatSizeFlag(o.BufSize))
	boolFlag("write_with_vmsplice", o.WriteWithVmsplice)
	boolFlag("read_with_splice", o.ReadWithSplice)
	boolFlag("gift", o.Gift)
	args = append(args, "--bytes_to_pipe", FormatSizeFlag(o.BytesToPipe))
	if o.PipeSize != 0 {
		args = append(args, "--pipe_size", FormatSizeFlag(o.PipeSize))
	}
	boolFlag("lock_memory", o.LockMemory)
	boolFlag("dont_touch_pages", o.DontTouchPages)
	boolFlag("same_buffer", o.SameBuffer)
	boolFlag("human", o.Human)
	boolFlag("checksum", o.Checksum)
	boolFlag("check_pipe_size", o.CheckPipeSize)
	if o.CPU >= 0 {
		args = append(args, "--cpu", strconv.Itoa(o.CPU))
	}
	if o.FaultCounter != perf.BackendPerf {
		args = append(args, "--fault_counter", o.FaultCounter)
	}
	if o.MetricsFile != "" {
		args = append(args, "--metrics_file", o.MetricsFile)
	}
	if o.ReportFile != "" {
		args = append(args, "--report_file", o.ReportFile)
	}
	return args
}
