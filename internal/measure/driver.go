// File: internal/measure/driver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Measurement campaign: runs every matrix pair a number of times, collects
// the reader rows and writes the raw and grouped CSV files.

package measure

import (
	"context"
	"os"

	"github.com/momentics/hioload-pipe/api"
	"github.com/momentics/hioload-pipe/control"
	"github.com/rs/zerolog"
)

// Config of a campaign.
type Config struct {
	Iterations   int
	ReadSize     uint64
	Shifts       []int
	WriterCPU    int // -1 disables pinning
	ReaderCPU    int
	FaultCounter string
	Verbose      bool
	RawPath      string
	GroupedPath  string
}

// DefaultConfig mirrors a full campaign: ten iterations of 10GiB each.
func DefaultConfig() Config {
	return Config{
		Iterations:   10,
		ReadSize:     10 << 30,
		Shifts:       DefaultShifts,
		WriterCPU:    0,
		ReaderCPU:    1,
		FaultCounter: "none",
		RawPath:      "raw-data.csv",
		GroupedPath:  "data.csv",
	}
}

// Driver runs a campaign through a Runner.
type Driver struct {
	cfg    Config
	runner Runner
	log    zerolog.Logger
}

// NewDriver validates cfg.
func NewDriver(cfg Config, runner Runner, log zerolog.Logger) (*Driver, error) {
	const op = "measure.NewDriver"
	if cfg.Iterations < 1 {
		return nil, api.Errorf(api.ErrCodeConfig, op, "--iterations must be at least 1, got %d", cfg.Iterations)
	}
	if cfg.ReadSize == 0 {
		return nil, api.Errorf(api.ErrCodeConfig, op, "--read_size must be greater than zero")
	}
	if len(cfg.Shifts) == 0 {
		return nil, api.Errorf(api.ErrCodeConfig, op, "no buffer sizes to measure")
	}
	for _, p := range Matrix(cfg.Shifts, cfg.ReadSize, cfg.FaultCounter) {
		for _, o := range []control.Options{p.Writer, p.Reader} {
			if err := o.Validate(); err != nil {
				return nil, err
			}
		}
	}
	return &Driver{cfg: cfg, runner: runner, log: log.With().Str("component", "measure").Logger()}, nil
}

// Run executes the campaign and returns the collected rows. The output
// files are written only when every run succeeded.
func (d *Driver) Run(ctx context.Context) ([]Row, error) {
	pairs := Matrix(d.cfg.Shifts, d.cfg.ReadSize, d.cfg.FaultCounter)
	rows := make([]Row, 0, d.cfg.Iterations*len(pairs))
	for it := 0; it < d.cfg.Iterations; it++ {
		for _, p := range pairs {
			if err := ctx.Err(); err != nil {
				return rows, err
			}
			p.Writer.Verbose, p.Reader.Verbose = d.cfg.Verbose, d.cfg.Verbose
			p.Writer.CPU, p.Reader.CPU = d.cfg.WriterCPU, d.cfg.ReaderCPU
			wargs, rargs := p.Writer.Args(), p.Reader.Args()
			d.log.Info().Int("iteration", it).Str("buf_size", control.FormatSize(p.Reader.BufSize)).
				Bool("vmsplice", p.Writer.WriteWithVmsplice).Bool("splice", p.Reader.ReadWithSplice).
				Bool("huge_page", p.Reader.HugePage).Bool("busy_loop", p.Reader.BusyLoop).
				Msg("running test")
			line, err := d.runner.RunPair(ctx, wargs, rargs)
			if err != nil {
				return rows, err
			}
			row, err := ParseRow(line)
			if err != nil {
				return rows, err
			}
			d.log.Debug().Float64("bytes_per_second", row.BytesPerSecond).Msg("done")
			rows = append(rows, row)
		}
	}
	if err := d.write(rows); err != nil {
		return rows, err
	}
	return rows, nil
}

func (d *Driver) write(rows []Row) error {
	const op = "measure.write"
	if d.cfg.RawPath != "" {
		if err := writeFile(d.cfg.RawPath, func(f *os.File) error { return WriteRaw(f, rows) }); err != nil {
			return api.Wrap(api.ErrCodeResource, op, err, "could not write raw results").WithContext("path", d.cfg.RawPath)
		}
	}
	if d.cfg.GroupedPath != "" {
		groups := Aggregate(rows)
		if err := writeFile(d.cfg.GroupedPath, func(f *os.File) error { return WriteGrouped(f, groups) }); err != nil {
			return api.Wrap(api.ErrCodeResource, op, err, "could not write grouped results").WithContext("path", d.cfg.GroupedPath)
		}
	}
	return nil
}

func writeFile(path string, fill func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
