// File: engine/sender.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"github.com/momentics/hioload-pipe/api"
)

// Sender pushes buffer passes into the pipe until the budget is reached or
// the reader goes away.
type Sender struct {
	cfg   Config
	gate  gate
	stats api.TransferStats
}

// NewSender validates cfg and builds a sender.
func NewSender(cfg Config) (*Sender, error) {
	if err := cfg.validate(api.RoleWriter); err != nil {
		return nil, err
	}
	s := &Sender{cfg: cfg}
	s.stats = newStats(api.RoleWriter, &s.cfg)
	s.gate = gate{
		ep:       cfg.Endpoint,
		strategy: cfg.Strategy,
		events:   api.PollWritable,
		stats:    &s.stats,
	}
	s.cfg.Log = cfg.Log.With().Str("component", "sender").Logger()
	return s, nil
}

// Run executes the send loop. The returned stats are valid for every
// outcome; the error is non-nil only for api.OutcomeFatal.
func (s *Sender) Run() (api.TransferStats, error) {
	if err := s.gate.prepare(); err != nil {
		s.stats.Outcome = api.OutcomeFatal
		return s.stats, err
	}
	s.cfg.Log.Debug().Stringer("primitive", s.cfg.Primitive).Stringer("strategy", s.cfg.Strategy).
		Uint64("budget", s.cfg.Budget).Int("slot", s.cfg.Ring.SlotSize()).Msg("starting to write")
	start := s.cfg.Now()
	out, err := s.loop()
	s.stats.Elapsed = s.cfg.Now().Sub(start)
	s.stats.Outcome = out
	return s.stats, err
}

func (s *Sender) loop() (api.Outcome, error) {
	op := "write"
	flags := 0
	if s.cfg.Primitive == api.PrimitivePageMove {
		op = "vmsplice"
		flags = s.gate.flags()
		if s.cfg.Gift {
			flags |= api.FlagGift
		}
	}
	var d Descriptor
	buf := s.cfg.Ring.Current()
	for {
		if s.cfg.Budget > 0 && s.stats.Bytes >= s.cfg.Budget {
			return api.OutcomeBudgetReached, nil
		}
		if s.cfg.Capacity != nil && s.cfg.Primitive == api.PrimitivePageMove {
			if err := s.cfg.Capacity.Verify(s.cfg.Endpoint); err != nil {
				return api.OutcomeFatal, err
			}
		}
		d.Reset(buf.Bytes())
		for !d.Done() {
			if err := s.gate.await(); err != nil {
				return api.OutcomeFatal, err
			}
			var n int
			var err error
			if s.cfg.Primitive == api.PrimitivePageMove {
				n, err = s.cfg.Endpoint.Vmsplice(d.Pending(), flags)
			} else {
				n, err = s.cfg.Endpoint.Write(d.Pending())
			}
			if err != nil {
				switch verdict := s.gate.settle(op, err); verdict {
				case errRetry:
					continue
				case errPeer:
					s.cfg.Log.Debug().Uint64("bytes", s.stats.Bytes).Msg("reader closed the pipe")
					return api.OutcomePeerClosed, nil
				default:
					return api.OutcomeFatal, verdict
				}
			}
			if n == 0 {
				return api.OutcomeFatal, api.Errorf(api.ErrCodeTransport, op,
					"%s made no progress with %d bytes pending", op, d.Remaining())
			}
			if s.cfg.Tap != nil {
				if _, err := s.cfg.Tap.Write(d.Pending()[:n]); err != nil {
					return api.OutcomeFatal, api.Wrap(api.ErrCodeTransport, op, err, "checksum tap failed")
				}
			}
			d.Advance(n)
			s.stats.Bytes += uint64(n)
			s.stats.Calls++
		}
		s.stats.Passes++
		buf = s.cfg.Ring.Advance()
	}
}
