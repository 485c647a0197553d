// Package api
// Author: momentics
//
// Debug introspection contract.

package api

// Debug exposes platform and run introspection.
type Debug interface {
	// DumpState emits a snapshot of probe results for diagnostics.
	DumpState() map[string]any

	// RegisterProbe registers a named debug probe.
	RegisterProbe(name string, fn func() any)
}
