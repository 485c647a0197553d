// File: engine/doc.go
// Package engine
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transfer engine for hioload-pipe.
//
// A Sender or Receiver drives bytes through an api.Endpoint with one of two
// primitives (copying or page-moving) crossed with one backpressure Strategy
// (blocking, busy-poll, readiness-poll). Every call advances a Descriptor by
// exactly the byte count the kernel reported. A not-ready result is the only
// condition retried; peer closure ends the loop cleanly; anything else is
// fatal.
//
// Page-moving sends are double buffered: passes alternate between the two
// slots of a pool.Ring while the pipe holds at most one half-buffer, so the
// slot being reused has always been drained downstream.

package engine
