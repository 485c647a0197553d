// File: internal/measure/matrix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The configuration matrix of a measurement campaign.

package measure

import "github.com/momentics/hioload-pipe/control"

// DefaultShifts are the buffer sizes 32KiB, 128KiB, 1MiB and 8MiB as powers of two.
var DefaultShifts = []int{15, 17, 20, 23}

// Pair is the option set of one write|read run.
type Pair struct {
	Writer control.Options
	Reader control.Options
}

// Matrix builds the pairs in run order. For every buffer size the page
// moving features are switched on one after another: vmsplice, then
// splice, then huge pages, then busy looping. The writer runs unbounded
// and stops when the reader has drained readSize bytes and exits.
func Matrix(shifts []int, readSize uint64, faultCounter string) []Pair {
	var pairs []Pair
	for _, shift := range shifts {
		o := control.DefaultOptions()
		o.BufSize = 1 << shift
		o.FaultCounter = faultCounter
		steps := []func(*control.Options){
			func(o *control.Options) { o.WriteWithVmsplice = true },
			func(o *control.Options) { o.ReadWithSplice = true },
			func(o *control.Options) { o.HugePage = true },
			func(o *control.Options) { o.BusyLoop = true },
		}
		for _, step := range steps {
			step(&o)
			w, r := o, o
			w.BytesToPipe = 0
			r.BytesToPipe = readSize
			pairs = append(pairs, Pair{Writer: w, Reader: r})
		}
	}
	return pairs
}
