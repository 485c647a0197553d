// Package control
// Author: momentics <momentics@gmail.com>
//
// Run configuration, metrics export, and debug introspection layer.
//
// Options are parsed once from the command line, validated, and then treated
// as immutable for the lifetime of a run. MetricsRegistry folds finished runs
// into Prometheus collectors; DebugProbes describe the host before a run.
package control
