// File: facade/report.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Result lines. The CSV form is the default and is consumed by the measure
// driver; the readable form is selected with --human.

package facade

import (
	"fmt"
	"io"
	"os"

	"github.com/momentics/hioload-pipe/api"
	"github.com/momentics/hioload-pipe/control"
	"github.com/momentics/hioload-pipe/internal/gup"
)

// CSVHeader names the fields of FormatCSV in order.
const CSVHeader = "bytes_per_second,read_size,buf_size,write_with_vmsplice,read_with_splice,huge_page,busy_loop,poll,gift"

// FormatCSV renders one result row. Booleans are written as 0 or 1.
func FormatCSV(st api.TransferStats, o control.Options) string {
	return fmt.Sprintf("%f,%d,%d,%d,%d,%d,%d,%d,%d",
		st.Throughput(),
		o.BytesToPipe,
		o.BufSize,
		b2i(o.WriteWithVmsplice),
		b2i(o.ReadWithSplice),
		b2i(o.HugePage),
		b2i(o.BusyLoop),
		b2i(o.Poll),
		b2i(o.Gift),
	)
}

// FormatHuman renders one result in a readable form.
func FormatHuman(st api.TransferStats, o control.Options) string {
	return fmt.Sprintf("%s %s in %s, %.3fGiB/s (%s, %s, buf %s)",
		verb(st.Role),
		control.FormatSize(st.Bytes),
		st.Elapsed,
		st.Throughput()/(1<<30),
		st.Primitive,
		st.Strategy,
		control.FormatSize(o.BufSize),
	)
}

// WriteReport writes the CSV line to w, or the readable line with o.Human.
func WriteReport(w io.Writer, st api.TransferStats, o control.Options) error {
	line := FormatCSV(st, o)
	if o.Human {
		line = FormatHuman(st, o)
	}
	_, err := io.WriteString(w, line+"\n")
	return err
}

// GupCSVHeader names the fields of FormatGupCSV in order.
const GupCSVHeader = "get_usec,calls,pages_per_call,buf_size,huge_page"

// FormatGupCSV renders one get_user_pages_fast result row.
func FormatGupCSV(res gup.Result, o control.Options) string {
	return fmt.Sprintf("%d,%d,%d,%d,%d",
		res.Get.Microseconds(),
		res.Calls,
		res.PagesPerCall,
		o.BufSize,
		b2i(o.HugePage),
	)
}

// WriteGupReport writes the CSV line to w, or the readable line with o.Human.
func WriteGupReport(w io.Writer, res gup.Result, o control.Options) error {
	line := FormatGupCSV(res, o)
	if o.Human {
		line = fmt.Sprintf("total get_user_pages_fast time: %s over %d calls (%d pages per call, buf %s)",
			res.Get, res.Calls, res.PagesPerCall, control.FormatSize(o.BufSize))
	}
	_, err := io.WriteString(w, line+"\n")
	return err
}

// report writes to the injected stream, else the reader uses stdout and the
// writer uses --report_file or stderr. Stdout carries the writer's data.
func (s *Session) report(st api.TransferStats) error {
	w := s.deps.Report
	if w == nil {
		switch {
		case st.Role == api.RoleReader:
			w = os.Stdout
		case s.opts.ReportFile != "":
			f, err := os.OpenFile(s.opts.ReportFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
			if err != nil {
				return api.Wrap(api.ErrCodeResource, "facade.report", err, "could not open report file").
					WithContext("path", s.opts.ReportFile)
			}
			defer f.Close()
			w = f
		default:
			w = os.Stderr
		}
	}
	if err := WriteReport(w, st, s.opts); err != nil {
		return api.Wrap(api.ErrCodeResource, "facade.report", err, "could not write report")
	}
	return nil
}

func formatChecksum(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}

func verb(r api.Role) string {
	if r == api.RoleReader {
		return "read"
	}
	return "wrote"
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
