//go:build linux
// +build linux

package engine_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/momentics/hioload-pipe/api"
	"github.com/momentics/hioload-pipe/engine"
	"github.com/momentics/hioload-pipe/internal/transport"
	"github.com/momentics/hioload-pipe/pool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func osPipe(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe2(fds[:], unix.O_CLOEXEC))
	return fds[0], fds[1]
}

type result struct {
	stats api.TransferStats
	err   error
}

func TestCopyRoundTripOverPipe(t *testing.T) {
	for _, strategy := range []engine.Strategy{engine.StrategyBlocking, engine.StrategyBusy, engine.StrategyReadiness} {
		t.Run(strategy.String(), func(t *testing.T) {
			rfd, wfd := osPipe(t)
			defer unix.Close(rfd)
			a := pool.NewAllocator(pool.NewMapper(), zerolog.Nop())
			wb, err := a.Allocate(pool.AllocOptions{Size: 12345})
			require.NoError(t, err)
			rb, err := a.Allocate(pool.AllocOptions{Size: 5000})
			require.NoError(t, err)
			defer wb.Release()
			defer rb.Release()

			var sent, got bytes.Buffer
			done := make(chan result, 1)
			go func() {
				s, err := engine.NewSender(engine.Config{
					Endpoint: transport.NewPipe(wfd, "w"),
					Ring:     pool.NewRing(wb),
					Strategy: strategy,
					Budget:   1 << 20,
					Tap:      &sent,
				})
				if err != nil {
					done <- result{err: err}
					return
				}
				st, err := s.Run()
				unix.Close(wfd)
				done <- result{st, err}
			}()

			rcv, err := engine.NewReceiver(engine.Config{
				Endpoint: transport.NewPipe(rfd, "r"),
				Ring:     pool.NewRing(rb),
				Strategy: strategy,
				Tap:      &got,
			})
			require.NoError(t, err)
			rst, err := rcv.Run()
			require.NoError(t, err)
			wr := <-done
			require.NoError(t, wr.err)

			assert.Equal(t, api.OutcomeBudgetReached, wr.stats.Outcome)
			assert.Equal(t, api.OutcomePeerClosed, rst.Outcome)
			assert.Equal(t, wr.stats.Bytes, rst.Bytes)
			assert.True(t, bytes.Equal(sent.Bytes(), got.Bytes()), "Expected identical byte streams")
		})
	}
}

func TestVmspliceToSpliceOverPipe(t *testing.T) {
	const size = 1 << 16
	rfd, wfd := osPipe(t)
	defer unix.Close(rfd)
	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer devnull.Close()

	w := transport.NewPipe(wfd, "w")
	plan, err := transport.PlanCapacity(0, size, true)
	require.NoError(t, err)
	if err := plan.Apply(w); err != nil {
		t.Skipf("pipe capacity unavailable: %v", err)
	}

	a := pool.NewAllocator(pool.NewMapper(), zerolog.Nop())
	ring, err := a.AllocatePair(pool.AllocOptions{Size: size}, false)
	require.NoError(t, err)
	defer ring.Release()
	rb, err := a.Allocate(pool.AllocOptions{Size: size})
	require.NoError(t, err)
	defer rb.Release()

	done := make(chan result, 1)
	go func() {
		s, err := engine.NewSender(engine.Config{
			Endpoint:  w,
			Ring:      ring,
			Primitive: api.PrimitivePageMove,
			Capacity:  plan,
			Budget:    1 << 20,
		})
		if err != nil {
			done <- result{err: err}
			return
		}
		st, err := s.Run()
		unix.Close(wfd)
		done <- result{st, err}
	}()

	rcv, err := engine.NewReceiver(engine.Config{
		Endpoint:  transport.NewPipe(rfd, "r"),
		Ring:      pool.NewRing(rb),
		Primitive: api.PrimitivePageMove,
		Sink:      int(devnull.Fd()),
	})
	require.NoError(t, err)
	rst, err := rcv.Run()
	require.NoError(t, err)
	wr := <-done
	require.NoError(t, wr.err)
	assert.Equal(t, uint64(1<<20), wr.stats.Bytes)
	assert.Equal(t, wr.stats.Bytes, rst.Bytes)
	assert.Equal(t, uint64(32), wr.stats.Passes)
}

func TestSenderPeerClosureOverPipe(t *testing.T) {
	rfd, wfd := osPipe(t)
	defer unix.Close(wfd)
	a := pool.NewAllocator(pool.NewMapper(), zerolog.Nop())
	wb, err := a.Allocate(pool.AllocOptions{Size: 1 << 16})
	require.NoError(t, err)
	defer wb.Release()
	rb, err := a.Allocate(pool.AllocOptions{Size: 1 << 16})
	require.NoError(t, err)
	defer rb.Release()

	done := make(chan result, 1)
	go func() {
		rcv, err := engine.NewReceiver(engine.Config{
			Endpoint: transport.NewPipe(rfd, "r"),
			Ring:     pool.NewRing(rb),
			Budget:   1 << 20,
		})
		if err != nil {
			done <- result{err: err}
			return
		}
		st, err := rcv.Run()
		unix.Close(rfd)
		done <- result{st, err}
	}()

	s, err := engine.NewSender(engine.Config{
		Endpoint: transport.NewPipe(wfd, "w"),
		Ring:     pool.NewRing(wb),
		Budget:   10 << 30,
	})
	require.NoError(t, err)
	st, err := s.Run()
	require.NoError(t, err)
	assert.Equal(t, api.OutcomePeerClosed, st.Outcome)
	rr := <-done
	require.NoError(t, rr.err)
	assert.Equal(t, api.OutcomeBudgetReached, rr.stats.Outcome)
}
