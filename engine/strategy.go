// File: engine/strategy.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Backpressure strategies and the per-call result classification shared by
// the send and receive loops.

package engine

import (
	"errors"

	"github.com/momentics/hioload-pipe/api"
)

// Strategy is the backpressure discipline of a loop.
type Strategy int

const (
	// StrategyBlocking leaves the endpoint blocking; the transfer call suspends.
	StrategyBlocking Strategy = iota
	// StrategyBusy marks the endpoint non-blocking and retries not-ready results immediately.
	StrategyBusy
	// StrategyReadiness waits in poll(2) before every attempt.
	StrategyReadiness
	// StrategyReadinessSpin spins on zero-timeout poll(2) before every non-blocking attempt.
	StrategyReadinessSpin
)

// StrategyFor maps the busy_loop and poll options onto a Strategy.
func StrategyFor(busyLoop, poll bool) Strategy {
	switch {
	case busyLoop && poll:
		return StrategyReadinessSpin
	case poll:
		return StrategyReadiness
	case busyLoop:
		return StrategyBusy
	default:
		return StrategyBlocking
	}
}

func (s Strategy) String() string {
	switch s {
	case StrategyBusy:
		return "busy-poll"
	case StrategyReadiness:
		return "poll"
	case StrategyReadinessSpin:
		return "busy-poll+poll"
	default:
		return "blocking"
	}
}

// Nonblocking reports whether calls are issued in non-blocking mode.
func (s Strategy) Nonblocking() bool {
	return s == StrategyBusy || s == StrategyReadinessSpin
}

var (
	errRetry = errors.New("retry")
	errPeer  = errors.New("peer closed")
)

// gate applies one Strategy to one endpoint and accounts its effects.
type gate struct {
	ep       api.Endpoint
	strategy Strategy
	events   api.PollEvents
	stats    *api.TransferStats
}

// prepare puts the descriptor into the mode the strategy expects.
func (g *gate) prepare() error {
	if err := g.ep.SetNonblock(g.strategy.Nonblocking()); err != nil {
		return api.Wrap(api.ErrCodeTransport, "engine.prepare", err, "could not set the pipe blocking mode")
	}
	return nil
}

// flags returns the page-moving flags implied by the strategy.
func (g *gate) flags() int {
	if g.strategy.Nonblocking() {
		return api.FlagNonblock
	}
	return 0
}

// await blocks or spins until the endpoint reports readiness.
func (g *gate) await() error {
	var timeout int
	switch g.strategy {
	case StrategyReadiness:
		timeout = -1
	case StrategyReadinessSpin:
		timeout = 0
	default:
		return nil
	}
	for {
		g.stats.ReadinessWaits++
		ready, err := g.ep.Poll(g.events, timeout)
		if err != nil && !errors.Is(err, api.ErrInterrupted) {
			return api.Wrap(api.ErrCodeTransport, "engine.await", err, "poll failed")
		}
		if ready {
			return nil
		}
	}
}

// settle classifies a failed call: errRetry, errPeer or a fatal error.
func (g *gate) settle(op string, err error) error {
	switch {
	case errors.Is(err, api.ErrInterrupted):
		return errRetry
	case errors.Is(err, api.ErrWouldBlock):
		if g.strategy == StrategyBlocking {
			return api.Wrap(api.ErrCodeTransport, op, err, "not-ready result in blocking mode")
		}
		g.stats.WouldBlock++
		return errRetry
	case errors.Is(err, api.ErrPeerClosed):
		return errPeer
	}
	return api.Wrap(api.ErrCodeTransport, op, err, op+" failed")
}
