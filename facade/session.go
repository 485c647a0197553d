// File: facade/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Session aggregates the components of one benchmark role behind a single
// entry point. It validates the immutable options, pins the thread, maps
// and prefaults the buffers, checks their residency, sizes the pipe,
// brackets the transfer with the fault counter and reports the result.

package facade

import (
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/momentics/hioload-pipe/affinity"
	"github.com/momentics/hioload-pipe/api"
	"github.com/momentics/hioload-pipe/control"
	"github.com/momentics/hioload-pipe/engine"
	"github.com/momentics/hioload-pipe/internal/gup"
	"github.com/momentics/hioload-pipe/internal/perf"
	"github.com/momentics/hioload-pipe/internal/residency"
	"github.com/momentics/hioload-pipe/internal/transport"
	"github.com/momentics/hioload-pipe/pool"
	"github.com/rs/zerolog"
)

// ResidencyProbe checks and surveys huge page backing.
type ResidencyProbe interface {
	api.ResidencyChecker
	Survey(addr uintptr, length int) residency.FlagCount
	Close() error
}

// Deps are the collaborators of a session. Zero values select the real
// implementations.
type Deps struct {
	Endpoint  api.Endpoint // stdout for the writer, stdin for the reader
	Sink      *os.File     // splice destination, /dev/null when nil
	Mapper    pool.Mapper
	Residency func() (ResidencyProbe, error)
	Faults    func(backend string) (api.FaultCounter, error)
	Pin       func(cpu int) error
	Gup       func() (gup.Device, error)
	Report    io.Writer // report stream, see reportStream
	Metrics   *control.MetricsRegistry
	Probes    *control.DebugProbes
	Now       func() time.Time
	Log       zerolog.Logger
}

// Session runs one role with fixed options.
type Session struct {
	opts control.Options
	deps Deps
	log  zerolog.Logger
}

// NewSession validates opts and fills in default collaborators.
func NewSession(opts control.Options, deps Deps) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if deps.Mapper == nil {
		deps.Mapper = pool.NewMapper()
	}
	if deps.Residency == nil {
		deps.Residency = func() (ResidencyProbe, error) { return residency.Open() }
	}
	if deps.Faults == nil {
		deps.Faults = perf.New
	}
	if deps.Pin == nil {
		deps.Pin = affinity.SetAffinity
	}
	if deps.Gup == nil {
		deps.Gup = gup.Open
	}
	if deps.Metrics == nil {
		deps.Metrics = control.NewMetricsRegistry()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Session{
		opts: opts,
		deps: deps,
		log:  deps.Log.With().Str("component", "session").Logger(),
	}, nil
}

// Options returns the validated options.
func (s *Session) Options() control.Options { return s.opts }

// Metrics returns the registry the session reports into.
func (s *Session) Metrics() *control.MetricsRegistry { return s.deps.Metrics }

// RunWriter pushes the budget into the pipe. SIGPIPE is ignored so that a
// departed reader surfaces as EPIPE and ends the run cleanly.
func (s *Session) RunWriter() (api.TransferStats, error) {
	signal.Ignore(syscall.SIGPIPE)
	o := s.opts
	plan, err := transport.PlanCapacity(int(o.PipeSize), int(o.BufSize), o.WriteWithVmsplice)
	if err != nil {
		return api.TransferStats{Role: api.RoleWriter, Outcome: api.OutcomeFatal}, err
	}
	ep := s.deps.Endpoint
	if ep == nil {
		ep = transport.Stdout()
	}
	return s.run(api.RoleWriter, ep, plan, func(ring *pool.Ring, tap io.Writer) (api.TransferStats, error) {
		cfg := s.engineConfig(ep, ring, tap)
		cfg.Primitive = primitive(o.WriteWithVmsplice)
		if o.CheckPipeSize && o.WriteWithVmsplice {
			cfg.Capacity = plan
		}
		snd, err := engine.NewSender(cfg)
		if err != nil {
			return api.TransferStats{Role: api.RoleWriter, Outcome: api.OutcomeFatal}, err
		}
		s.log.Info().Msg("starting to write")
		return snd.Run()
	})
}

// RunReader drains the budget from the pipe.
func (s *Session) RunReader() (api.TransferStats, error) {
	o := s.opts
	plan, err := transport.PlanCapacity(int(o.PipeSize), int(o.BufSize), false)
	if err != nil {
		return api.TransferStats{Role: api.RoleReader, Outcome: api.OutcomeFatal}, err
	}
	ep := s.deps.Endpoint
	if ep == nil {
		ep = transport.Stdin()
	}
	return s.run(api.RoleReader, ep, plan, func(ring *pool.Ring, tap io.Writer) (api.TransferStats, error) {
		cfg := s.engineConfig(ep, ring, tap)
		cfg.Primitive = primitive(o.ReadWithSplice)
		if o.ReadWithSplice {
			sink, closeSink, err := s.sink()
			if err != nil {
				return api.TransferStats{Role: api.RoleReader, Outcome: api.OutcomeFatal}, err
			}
			defer closeSink()
			cfg.Sink = int(sink.Fd())
		}
		rcv, err := engine.NewReceiver(cfg)
		if err != nil {
			return api.TransferStats{Role: api.RoleReader, Outcome: api.OutcomeFatal}, err
		}
		s.log.Info().Str("bytes", control.FormatSize(o.BytesToPipe)).Msg("will read")
		return rcv.Run()
	})
}

// RunGup times get_user_pages_fast over the benchmark buffer, once per
// half buffer of the budget.
func (s *Session) RunGup() (gup.Result, error) {
	o := s.opts
	o.Dump(s.log)
	if s.deps.Probes != nil {
		s.deps.Probes.Log(s.log)
	}
	if o.CPU >= 0 {
		if err := s.deps.Pin(o.CPU); err != nil {
			return gup.Result{}, err
		}
	}
	ring, err := s.allocate(false)
	if err != nil {
		return gup.Result{}, err
	}
	defer func() {
		if err := ring.Release(); err != nil {
			s.log.Warn().Err(err).Msg("could not release buffers")
		}
	}()
	if o.HugePage && o.CheckHugePage {
		s.checkResidency(ring)
	}

	dev, err := s.deps.Gup()
	if err != nil {
		return gup.Result{}, err
	}
	defer dev.Close()
	buf := ring.Current()
	res, err := gup.Run(dev, buf.Addr(), buf.Len(), s.deps.Mapper.PageSize(), o.BytesToPipe, s.log)
	if err != nil {
		return res, err
	}
	s.log.Info().Uint64("calls", res.Calls).Dur("get", res.Get).Dur("put", res.Put).
		Msg("get_user_pages_fast finished")

	w := s.deps.Report
	if w == nil {
		w = os.Stdout
	}
	if err := WriteGupReport(w, res, o); err != nil {
		return res, api.Wrap(api.ErrCodeResource, "facade.report", err, "could not write report")
	}
	return res, nil
}

type transferFunc func(ring *pool.Ring, tap io.Writer) (api.TransferStats, error)

func (s *Session) run(role api.Role, ep api.Endpoint, plan transport.CapacityPlan, transfer transferFunc) (api.TransferStats, error) {
	o := s.opts
	fatal := api.TransferStats{Role: role, Outcome: api.OutcomeFatal}
	o.Dump(s.log)
	if s.deps.Probes != nil {
		s.deps.Probes.Log(s.log)
	}

	if o.CPU >= 0 {
		if err := s.deps.Pin(o.CPU); err != nil {
			return fatal, err
		}
		s.log.Debug().Int("cpu", o.CPU).Msg("pinned transfer thread")
	}

	ring, err := s.allocate(role == api.RoleWriter && o.WriteWithVmsplice)
	if err != nil {
		return fatal, err
	}
	defer func() {
		if err := ring.Release(); err != nil {
			s.log.Warn().Err(err).Msg("could not release buffers")
		}
	}()
	if o.HugePage && o.CheckHugePage {
		s.checkResidency(ring)
	}

	if err := plan.Apply(ep); err != nil {
		return fatal, err
	}
	if plan.Mode != transport.CapacityNone {
		s.log.Debug().Stringer("mode", plan.Mode).Int("size", plan.Size).Msg("pipe capacity set")
	}

	counter, err := s.deps.Faults(o.FaultCounter)
	if err != nil {
		return fatal, api.Wrap(api.ErrCodeCounter, "facade.Session", err,
			"could not open the page fault counter, try --fault_counter proc or none")
	}
	defer counter.Close()

	var digest *xxhash.Digest
	var tap io.Writer
	if o.Checksum {
		digest = xxhash.New()
		tap = digest
	}

	if err := counter.Reset(); err != nil {
		return fatal, err
	}
	if err := counter.Enable(); err != nil {
		return fatal, err
	}
	stats, runErr := transfer(ring, tap)
	if err := counter.Disable(); err != nil && runErr == nil {
		stats.Outcome = api.OutcomeFatal
		return stats, err
	}
	if runErr != nil {
		return stats, runErr
	}
	faults, err := counter.Read()
	if err != nil {
		stats.Outcome = api.OutcomeFatal
		return stats, err
	}
	stats.PageFaults = faults
	stats.FaultsCounted = o.FaultCounter != perf.BackendNone
	if digest != nil {
		stats.Checksum = digest.Sum64()
		stats.HasChecksum = true
	}
	s.logResult(stats)

	if err := s.report(stats); err != nil {
		return stats, err
	}
	s.deps.Metrics.Observe(stats)
	if o.MetricsFile != "" {
		if err := s.deps.Metrics.WriteFile(o.MetricsFile); err != nil {
			return stats, api.Wrap(api.ErrCodeResource, "facade.Session", err, "could not write metrics file").
				WithContext("path", o.MetricsFile)
		}
	}
	return stats, nil
}

// allocate maps the writer's two half-buffers for page moving, or a single
// buffer otherwise.
func (s *Session) allocate(pair bool) (*pool.Ring, error) {
	o := s.opts
	alloc := pool.NewAllocator(s.deps.Mapper, s.deps.Log)
	ao := pool.AllocOptions{
		Size:           int(o.BufSize),
		HugePage:       o.HugePage,
		LockMemory:     o.LockMemory,
		DontTouchPages: o.DontTouchPages,
	}
	if pair {
		return alloc.AllocatePair(ao, o.SameBuffer)
	}
	buf, err := alloc.Allocate(ao)
	if err != nil {
		return nil, err
	}
	return pool.NewRing(buf), nil
}

// checkResidency is advisory: every failure is logged and the run goes on.
func (s *Session) checkResidency(ring *pool.Ring) {
	probe, err := s.deps.Residency()
	if err != nil {
		s.log.Warn().Err(err).Msg("cannot check huge pages")
		return
	}
	defer probe.Close()
	for i, buf := range ring.Slots() {
		ok, err := probe.HugePageBacked(buf.Addr())
		switch {
		case err != nil:
			s.log.Warn().Err(err).Int("slot", i).Msg("cannot check huge pages")
		case !ok:
			s.log.Warn().Int("slot", i).Msg("buffer is not backed by a huge page")
		default:
			buf.ConfirmHuge(true)
			s.log.Debug().Int("slot", i).Msg("buffer is backed by a huge page")
		}
		c := probe.Survey(buf.Addr(), buf.Len())
		s.log.Info().Int("slot", i).Int("pages", c.Total).
			Float64("available", c.AvailableRatio()*100).
			Float64("thp", c.SetRatio()*100).
			Msg("pages allocated with transparent hugepages (%)")
	}
}

func (s *Session) sink() (*os.File, func(), error) {
	if s.deps.Sink != nil {
		return s.deps.Sink, func() {}, nil
	}
	f, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return nil, nil, api.Wrap(api.ErrCodeResource, "facade.Session", err, "could not open "+os.DevNull)
	}
	return f, func() { f.Close() }, nil
}

func (s *Session) engineConfig(ep api.Endpoint, ring *pool.Ring, tap io.Writer) engine.Config {
	return engine.Config{
		Endpoint: ep,
		Ring:     ring,
		Strategy: engine.StrategyFor(s.opts.BusyLoop, s.opts.Poll),
		Gift:     s.opts.Gift,
		Budget:   s.opts.BytesToPipe,
		Tap:      tap,
		Log:      s.deps.Log,
		Now:      s.deps.Now,
	}
}

func (s *Session) logResult(st api.TransferStats) {
	ev := s.log.Info().
		Stringer("outcome", st.Outcome).
		Str("bytes", control.FormatSize(st.Bytes)).
		Dur("elapsed", st.Elapsed).
		Uint64("calls", st.Calls).
		Uint64("would_block", st.WouldBlock).
		Uint64("passes", st.Passes)
	if st.FaultsCounted {
		ev = ev.Uint64("page_faults", st.PageFaults)
	}
	if st.HasChecksum {
		ev = ev.Str("xxhash64", formatChecksum(st.Checksum))
	}
	ev.Msg("transfer finished")
}

func primitive(pageMove bool) api.Primitive {
	if pageMove {
		return api.PrimitivePageMove
	}
	return api.PrimitiveCopy
}
