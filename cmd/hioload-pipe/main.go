// File: cmd/hioload-pipe/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// hioload-pipe moves data through a pipe with write(2)/read(2) or
// vmsplice(2)/splice(2) and reports the throughput.
//
//	hioload-pipe write [options] | hioload-pipe read [options]
//	hioload-pipe measure [options]
//	hioload-pipe gup [options]

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/momentics/hioload-pipe/api"
	"github.com/momentics/hioload-pipe/control"
	"github.com/momentics/hioload-pipe/facade"
	"github.com/momentics/hioload-pipe/internal/measure"
	"github.com/rs/zerolog"
)

const usage = `usage: hioload-pipe <command> [options]

commands:
  write    fill buffers and push them into stdout
  read     drain stdin and report the throughput
  measure  run write|read pairs over the benchmark matrix
  gup      time get_user_pages_fast over the buffer (Linux, CONFIG_GUP_TEST)

run "hioload-pipe <command> -h" for the options of a command.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 1
	}
	switch args[0] {
	case "write", "read", "gup":
		return runRole(args[0], args[1:], stderr)
	case "measure":
		return runMeasure(args[1:], stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stderr, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 1
	}
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
}

// parseFlags returns done when the command should exit with code.
func parseFlags(fs *flag.FlagSet, args []string, stderr io.Writer) (code int, done bool) {
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, true
		}
		return 1, true
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "bad usage, non-option arguments starting from:\n  %s\n", strings.Join(fs.Args(), " "))
		return 1, true
	}
	return 0, false
}

func fatal(log zerolog.Logger, err error) int {
	log.Error().Err(err).Stringer("class", api.CodeOf(err)).Msg("fatal")
	return 1
}

func runRole(cmd string, args []string, stderr io.Writer) int {
	opts := control.DefaultOptions()
	fs := flag.NewFlagSet("hioload-pipe "+cmd, flag.ContinueOnError)
	opts.BindFlags(fs)
	if code, done := parseFlags(fs, args, stderr); done {
		return code
	}
	log := newLogger(stderr, opts.Verbose).With().Str("role", cmd).Logger()

	probes := control.NewDebugProbes()
	control.RegisterPlatformProbes(probes)
	s, err := facade.NewSession(opts, facade.Deps{Probes: probes, Log: log})
	if err != nil {
		return fatal(log, err)
	}
	switch cmd {
	case "write":
		_, err = s.RunWriter()
	case "read":
		_, err = s.RunReader()
	default:
		_, err = s.RunGup()
	}
	if err != nil {
		return fatal(log, err)
	}
	return 0
}

func runMeasure(args []string, stderr io.Writer) int {
	cfg := measure.DefaultConfig()
	fs := flag.NewFlagSet("hioload-pipe measure", flag.ContinueOnError)
	fs.IntVar(&cfg.Iterations, "iterations", cfg.Iterations, "repetitions of the whole matrix")
	fs.Func("read_size", "bytes read per run, e.g. 10G (default 10G)", func(s string) error {
		n, err := control.ParseSize(s)
		cfg.ReadSize = n
		return err
	})
	fs.Func("shifts", "comma separated log2 buffer sizes (default 15,17,20,23)", func(s string) error {
		var shifts []int
		for _, f := range strings.Split(s, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil || n < 12 || n > 30 {
				return fmt.Errorf("bad shift %q", f)
			}
			shifts = append(shifts, n)
		}
		cfg.Shifts = shifts
		return nil
	})
	fs.IntVar(&cfg.WriterCPU, "writer_cpu", cfg.WriterCPU, "CPU of the writer, -1 to disable pinning")
	fs.IntVar(&cfg.ReaderCPU, "reader_cpu", cfg.ReaderCPU, "CPU of the reader, -1 to disable pinning")
	fs.StringVar(&cfg.FaultCounter, "fault_counter", cfg.FaultCounter, "page fault counter of the children")
	fs.StringVar(&cfg.RawPath, "raw", cfg.RawPath, "raw CSV output")
	fs.StringVar(&cfg.GroupedPath, "grouped", cfg.GroupedPath, "grouped CSV output")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "log diagnostics at debug level")
	if code, done := parseFlags(fs, args, stderr); done {
		return code
	}
	log := newLogger(stderr, cfg.Verbose)

	bin, err := os.Executable()
	if err != nil {
		return fatal(log, api.Wrap(api.ErrCodeResource, "measure", err, "cannot locate own executable"))
	}
	d, err := measure.NewDriver(cfg, measure.ExecRunner{Binary: bin}, log)
	if err != nil {
		return fatal(log, err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rows, err := d.Run(ctx)
	if err != nil {
		return fatal(log, err)
	}
	log.Info().Int("runs", len(rows)).Str("raw", cfg.RawPath).Str("grouped", cfg.GroupedPath).Msg("measurement finished")
	return 0
}
