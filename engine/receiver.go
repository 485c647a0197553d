// File: engine/receiver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"github.com/momentics/hioload-pipe/api"
)

// Receiver drains the pipe into its buffer, or into the sink descriptor for
// page-moving receives, until the budget is reached or the writer closes.
type Receiver struct {
	cfg   Config
	gate  gate
	stats api.TransferStats
}

// NewReceiver validates cfg and builds a receiver.
func NewReceiver(cfg Config) (*Receiver, error) {
	if err := cfg.validate(api.RoleReader); err != nil {
		return nil, err
	}
	r := &Receiver{cfg: cfg}
	r.stats = newStats(api.RoleReader, &r.cfg)
	r.gate = gate{
		ep:       cfg.Endpoint,
		strategy: cfg.Strategy,
		events:   api.PollReadable,
		stats:    &r.stats,
	}
	r.cfg.Log = cfg.Log.With().Str("component", "receiver").Logger()
	return r, nil
}

// Run executes the receive loop. The returned stats are valid for every
// outcome; the error is non-nil only for api.OutcomeFatal.
func (r *Receiver) Run() (api.TransferStats, error) {
	if err := r.gate.prepare(); err != nil {
		r.stats.Outcome = api.OutcomeFatal
		return r.stats, err
	}
	r.cfg.Log.Debug().Stringer("primitive", r.cfg.Primitive).Stringer("strategy", r.cfg.Strategy).
		Uint64("budget", r.cfg.Budget).Msg("starting to read")
	start := r.cfg.Now()
	out, err := r.loop()
	r.stats.Elapsed = r.cfg.Now().Sub(start)
	r.stats.Outcome = out
	return r.stats, err
}

func (r *Receiver) loop() (api.Outcome, error) {
	op := "read"
	flags := 0
	if r.cfg.Primitive == api.PrimitivePageMove {
		op = "splice"
		flags = r.gate.flags()
		if r.cfg.Gift {
			flags |= api.FlagMove
		}
	}
	var d Descriptor
	d.Reset(r.cfg.Ring.Current().Bytes())
	for {
		if r.cfg.Budget > 0 && r.stats.Bytes >= r.cfg.Budget {
			return api.OutcomeBudgetReached, nil
		}
		if err := r.gate.await(); err != nil {
			return api.OutcomeFatal, err
		}
		var n int
		var err error
		if r.cfg.Primitive == api.PrimitivePageMove {
			n, err = r.cfg.Endpoint.SpliceTo(r.cfg.Sink, d.Remaining(), flags)
		} else {
			n, err = r.cfg.Endpoint.Read(d.Pending())
		}
		if err != nil {
			switch verdict := r.gate.settle(op, err); verdict {
			case errRetry:
				continue
			case errPeer:
				return api.OutcomePeerClosed, nil
			default:
				return api.OutcomeFatal, verdict
			}
		}
		if n == 0 {
			r.cfg.Log.Debug().Uint64("bytes", r.stats.Bytes).Msg("writer closed the pipe")
			return api.OutcomePeerClosed, nil
		}
		if r.cfg.Tap != nil {
			if _, err := r.cfg.Tap.Write(d.Pending()[:n]); err != nil {
				return api.OutcomeFatal, api.Wrap(api.ErrCodeTransport, op, err, "checksum tap failed")
			}
		}
		d.Advance(n)
		r.stats.Bytes += uint64(n)
		r.stats.Calls++
		if d.Done() {
			r.stats.Passes++
			d.Reset(r.cfg.Ring.Advance().Bytes())
		}
	}
}
