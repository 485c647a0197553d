// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Debug probe registry. Probes describe the platform a run executes on and
// are dumped at debug level before the transfer starts.

package control

import (
	"sort"
	"sync"

	"github.com/momentics/hioload-pipe/api"
	"github.com/rs/zerolog"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

var _ api.Debug = (*DebugProbes)(nil)

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any, len(dp.probes))
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}

// Log writes every probe result as one debug event, keys in sorted order.
func (dp *DebugProbes) Log(log zerolog.Logger) {
	if log.GetLevel() > zerolog.DebugLevel {
		return
	}
	state := dp.DumpState()
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ev := log.Debug()
	for _, k := range keys {
		ev = ev.Interface(k, state[k])
	}
	ev.Msg("platform")
}
