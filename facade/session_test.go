package facade_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/momentics/hioload-pipe/api"
	"github.com/momentics/hioload-pipe/control"
	"github.com/momentics/hioload-pipe/facade"
	"github.com/momentics/hioload-pipe/fake"
	"github.com/momentics/hioload-pipe/internal/gup"
	"github.com/momentics/hioload-pipe/internal/residency"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	pipe    *fake.Pipe
	mapper  *fake.Mapper
	counter *fake.Counter
	probe   *fake.Residency
	report  bytes.Buffer
	pinned  []int
	deps    facade.Deps
}

func stepClock() func() time.Time {
	t := time.Unix(0, 0)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newHarness() *harness {
	h := &harness{
		pipe:    fake.NewPipe(),
		mapper:  fake.NewMapper(),
		counter: &fake.Counter{Faults: 42},
		probe:   &fake.Residency{Huge: true},
	}
	h.deps = facade.Deps{
		Endpoint:  h.pipe,
		Mapper:    h.mapper,
		Residency: func() (facade.ResidencyProbe, error) { return h.probe, nil },
		Faults:    func(string) (api.FaultCounter, error) { return h.counter, nil },
		Pin:       func(cpu int) error { h.pinned = append(h.pinned, cpu); return nil },
		Report:    &h.report,
		Now:       stepClock(),
		Log:       zerolog.Nop(),
	}
	return h
}

func options() control.Options {
	o := control.DefaultOptions()
	o.BytesToPipe = 1 << 20
	return o
}

func TestWriterCopyReachesBudget(t *testing.T) {
	h := newHarness()
	o := options()
	o.Human = true
	s, err := facade.NewSession(o, h.deps)
	require.NoError(t, err)

	st, err := s.RunWriter()
	require.NoError(t, err)
	assert.Equal(t, api.OutcomeBudgetReached, st.Outcome)
	assert.Equal(t, uint64(1<<20), st.Bytes)
	assert.Equal(t, uint64(42), st.PageFaults)
	assert.True(t, st.FaultsCounted)
	assert.Equal(t, 4, h.pipe.WriteCalls)
	assert.Zero(t, h.pipe.SetSizeCalls)
	assert.Equal(t, []string{"reset", "enable", "disable", "read", "close"}, h.counter.Calls)
	assert.Equal(t, 1, h.mapper.UnmapCalls)
	assert.Equal(t, "wrote 1MiB in 1s, 0.001GiB/s (copy, blocking, buf 256KiB)\n", h.report.String())
}

func TestWriterVmspliceSizesPipeAndChecksEveryPass(t *testing.T) {
	h := newHarness()
	o := options()
	o.WriteWithVmsplice = true
	o.CheckPipeSize = true
	o.BufSize = 64 << 10
	o.BytesToPipe = 128 << 10
	s, err := facade.NewSession(o, h.deps)
	require.NoError(t, err)

	st, err := s.RunWriter()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), st.Passes)
	assert.Equal(t, 2, h.mapper.MapCalls)
	assert.Equal(t, []int{32 << 10, 32 << 10}, h.mapper.Lengths)
	assert.Equal(t, []string{
		"setsize",
		"getsize", "vmsplice",
		"getsize", "vmsplice",
		"getsize", "vmsplice",
		"getsize", "vmsplice",
	}, h.pipe.Trace)
	size, _ := h.pipe.PipeSize()
	assert.Equal(t, 32<<10, size)
}

func TestWriterSameBufferMapsOnce(t *testing.T) {
	h := newHarness()
	o := options()
	o.WriteWithVmsplice = true
	o.SameBuffer = true
	s, err := facade.NewSession(o, h.deps)
	require.NoError(t, err)

	_, err = s.RunWriter()
	require.NoError(t, err)
	assert.Equal(t, 1, h.mapper.MapCalls)
	assert.Equal(t, []int{256 << 10}, h.mapper.Lengths)
	require.Len(t, h.pipe.CallAddrs, 8)
	assert.NotEqual(t, h.pipe.CallAddrs[0], h.pipe.CallAddrs[1])
	assert.Equal(t, h.pipe.CallAddrs[0], h.pipe.CallAddrs[2])
}

func TestWriterPeerClosedIsClean(t *testing.T) {
	h := newHarness()
	h.pipe.ClosePeerAfter(300 << 10)
	o := options()
	o.BytesToPipe = 0
	s, err := facade.NewSession(o, h.deps)
	require.NoError(t, err)

	st, err := s.RunWriter()
	require.NoError(t, err)
	assert.Equal(t, api.OutcomePeerClosed, st.Outcome)
	assert.Equal(t, uint64(300<<10), st.Bytes)
}

func TestExplicitPipeSizeWithVmspliceRejectedBeforeAllocation(t *testing.T) {
	h := newHarness()
	o := options()
	o.WriteWithVmsplice = true
	o.PipeSize = 64 << 10
	_, err := facade.NewSession(o, h.deps)
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrConfig))
	assert.Zero(t, h.mapper.MapCalls)
	assert.Zero(t, h.pipe.SetSizeCalls)
}

func TestReaderCopyCSV(t *testing.T) {
	h := newHarness()
	h.pipe.Source = bytes.NewReader(make([]byte, 512<<10))
	o := options()
	s, err := facade.NewSession(o, h.deps)
	require.NoError(t, err)

	st, err := s.RunReader()
	require.NoError(t, err)
	assert.Equal(t, api.OutcomePeerClosed, st.Outcome)
	assert.Equal(t, uint64(512<<10), st.Bytes)
	assert.Equal(t, "524288.000000,1048576,262144,0,0,0,0,0,0\n", h.report.String())
}

func TestReaderSpliceUsesSink(t *testing.T) {
	h := newHarness()
	h.pipe.Source = bytes.NewReader(make([]byte, 1<<20))
	sink, err := os.Create(filepath.Join(t.TempDir(), "sink"))
	require.NoError(t, err)
	defer sink.Close()
	h.deps.Sink = sink

	o := options()
	o.ReadWithSplice = true
	o.Gift = true
	s, err := facade.NewSession(o, h.deps)
	require.NoError(t, err)

	st, err := s.RunReader()
	require.NoError(t, err)
	assert.Equal(t, api.OutcomeBudgetReached, st.Outcome)
	assert.Equal(t, api.PrimitivePageMove, st.Primitive)
	require.NotEmpty(t, h.pipe.SpliceDst)
	assert.Equal(t, int(sink.Fd()), h.pipe.SpliceDst[0])
	assert.Equal(t, api.FlagMove, h.pipe.SpliceFlags[0]&api.FlagMove)
}

func TestWriterChecksumMatchesStream(t *testing.T) {
	h := newHarness()
	h.pipe.Record = true
	o := options()
	o.Checksum = true
	s, err := facade.NewSession(o, h.deps)
	require.NoError(t, err)

	st, err := s.RunWriter()
	require.NoError(t, err)
	require.True(t, st.HasChecksum)
	assert.Equal(t, xxhash.Sum64(h.pipe.Written.Bytes()), st.Checksum)
}

func TestResidencyFailureIsAdvisory(t *testing.T) {
	h := newHarness()
	h.probe.Err = api.Errorf(api.ErrCodeDiagnostic, "residency", "page frame number not present")
	o := options()
	o.HugePage = true
	o.CheckHugePage = true
	s, err := facade.NewSession(o, h.deps)
	require.NoError(t, err)

	st, err := s.RunWriter()
	require.NoError(t, err)
	assert.Equal(t, api.OutcomeBudgetReached, st.Outcome)
	assert.Len(t, h.probe.Checked, 1)
	assert.Equal(t, 1, h.probe.Surveyed)
	assert.True(t, h.probe.Closed)
	assert.Equal(t, []int{2 << 20}, h.mapper.Aligns)
}

func TestResidencySurveyLoggedAtInfo(t *testing.T) {
	h := newHarness()
	h.probe.Count = residency.FlagCount{Total: 4, Available: 4, Set: 3}
	var logs bytes.Buffer
	h.deps.Log = zerolog.New(&logs).Level(zerolog.InfoLevel)
	o := options()
	o.HugePage = true
	o.CheckHugePage = true
	s, err := facade.NewSession(o, h.deps)
	require.NoError(t, err)

	_, err = s.RunWriter()
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "pages allocated with transparent hugepages (%)")
	assert.Contains(t, logs.String(), `"thp":75`)
}

func TestResidencyUnavailableIsAdvisory(t *testing.T) {
	h := newHarness()
	h.deps.Residency = func() (facade.ResidencyProbe, error) {
		return nil, api.Errorf(api.ErrCodeDiagnostic, "residency", "permission denied")
	}
	o := options()
	o.HugePage = true
	o.CheckHugePage = true
	s, err := facade.NewSession(o, h.deps)
	require.NoError(t, err)

	_, err = s.RunWriter()
	assert.NoError(t, err)
}

func TestPinFailureIsFatalBeforeAllocation(t *testing.T) {
	h := newHarness()
	h.deps.Pin = func(int) error {
		return api.Errorf(api.ErrCodeResource, "affinity", "sched_setaffinity failed")
	}
	o := options()
	o.CPU = 1
	s, err := facade.NewSession(o, h.deps)
	require.NoError(t, err)

	st, err := s.RunWriter()
	require.Error(t, err)
	assert.Equal(t, api.OutcomeFatal, st.Outcome)
	assert.Zero(t, h.mapper.MapCalls)
}

func TestPinRequestedCPU(t *testing.T) {
	h := newHarness()
	o := options()
	o.CPU = 1
	s, err := facade.NewSession(o, h.deps)
	require.NoError(t, err)
	_, err = s.RunReader()
	require.NoError(t, err)
	assert.Equal(t, []int{1}, h.pinned)
}

func TestNoPinByDefault(t *testing.T) {
	h := newHarness()
	s, err := facade.NewSession(options(), h.deps)
	require.NoError(t, err)
	_, err = s.RunWriter()
	require.NoError(t, err)
	assert.Empty(t, h.pinned)
}

func TestCounterOpenFailure(t *testing.T) {
	h := newHarness()
	h.deps.Faults = func(string) (api.FaultCounter, error) {
		return nil, errors.New("perf_event_open: permission denied")
	}
	s, err := facade.NewSession(options(), h.deps)
	require.NoError(t, err)

	_, err = s.RunWriter()
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrCounter))
	assert.Zero(t, h.pipe.WriteCalls)
}

func TestCounterReadFailureIsFatal(t *testing.T) {
	h := newHarness()
	h.counter.ReadErr = api.Errorf(api.ErrCodeCounter, "perf.Read", "bad number of perf events")
	s, err := facade.NewSession(options(), h.deps)
	require.NoError(t, err)

	st, err := s.RunWriter()
	require.Error(t, err)
	assert.Equal(t, api.OutcomeFatal, st.Outcome)
	assert.Empty(t, h.report.String())
}

func TestTransferErrorSkipsReport(t *testing.T) {
	h := newHarness()
	h.pipe.FailWith = errors.New("input/output error")
	s, err := facade.NewSession(options(), h.deps)
	require.NoError(t, err)

	st, err := s.RunWriter()
	require.Error(t, err)
	assert.Equal(t, api.OutcomeFatal, st.Outcome)
	assert.Contains(t, err.Error(), "input/output error")
	assert.Empty(t, h.report.String())
	assert.Equal(t, 1, h.mapper.UnmapCalls)
}

func TestMetricsAndReportFiles(t *testing.T) {
	h := newHarness()
	h.deps.Report = nil
	dir := t.TempDir()
	o := options()
	o.MetricsFile = filepath.Join(dir, "run.prom")
	o.ReportFile = filepath.Join(dir, "write.csv")
	s, err := facade.NewSession(o, h.deps)
	require.NoError(t, err)

	_, err = s.RunWriter()
	require.NoError(t, err)

	report, err := os.ReadFile(o.ReportFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(report), "1048576.000000,1048576,262144,"))

	metrics, err := os.ReadFile(o.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `hioload_pipe_bytes_total{primitive="copy",role="write",strategy="blocking"} 1.048576e+06`)
	assert.Equal(t, uint64(1<<20), s.Metrics().GetSnapshot()["bytes"])
}

func TestFlagCountTypeIsShared(t *testing.T) {
	var p facade.ResidencyProbe = &fake.Residency{Count: residency.FlagCount{Total: 2, Set: 1}}
	assert.Equal(t, 0.5, p.Survey(0, 8192).SetRatio())
}

func TestGupTimesHalfBuffers(t *testing.T) {
	h := newHarness()
	dev := &fake.GupDevice{GetUsec: 5}
	h.deps.Gup = func() (gup.Device, error) { return dev, nil }
	o := options()
	o.BufSize = 64 << 10
	s, err := facade.NewSession(o, h.deps)
	require.NoError(t, err)

	res, err := s.RunGup()
	require.NoError(t, err)
	assert.Equal(t, uint64(32), res.Calls)
	assert.Equal(t, uint32(8), res.PagesPerCall)
	assert.True(t, dev.Closed)
	assert.Equal(t, 1, h.mapper.UnmapCalls)
	assert.Equal(t, "160,32,8,65536,0\n", h.report.String())
}

func TestGupDeviceUnavailable(t *testing.T) {
	h := newHarness()
	h.deps.Gup = func() (gup.Device, error) {
		return nil, api.Errorf(api.ErrCodeResource, "gup.Open", "no such file or directory")
	}
	s, err := facade.NewSession(options(), h.deps)
	require.NoError(t, err)

	_, err = s.RunGup()
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrResource))
	assert.Empty(t, h.report.String())
	assert.Equal(t, 1, h.mapper.UnmapCalls)
}
