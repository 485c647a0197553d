// File: internal/measure/results.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Parsing and aggregation of the CSV rows reported by the reader.

package measure

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/momentics/hioload-pipe/api"
)

// Header is the raw CSV header, in report field order.
var Header = []string{
	"bytes_per_second", "read_size", "buf_size",
	"write_with_vmsplice", "read_with_splice", "huge_page", "busy_loop", "poll", "gift",
}

// Row is one reader report.
type Row struct {
	BytesPerSecond float64
	// Key holds the remaining fields verbatim; rows with equal keys belong
	// to the same configuration.
	Key [8]string
}

// ParseRow parses one CSV report line.
func ParseRow(line string) (Row, error) {
	const op = "measure.ParseRow"
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != len(Header) {
		return Row{}, api.Errorf(api.ErrCodeTransport, op, "report has %d fields, expected %d", len(fields), len(Header)).
			WithContext("line", line)
	}
	bps, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Row{}, api.Wrap(api.ErrCodeTransport, op, err, "bad throughput field").WithContext("line", line)
	}
	var r Row
	r.BytesPerSecond = bps
	copy(r.Key[:], fields[1:])
	return r, nil
}

// Group is the mean throughput of one configuration.
type Group struct {
	Key   [8]string
	Mean  float64
	Count int
}

// Aggregate groups rows by configuration. Groups are sorted by key with
// numeric fields compared as numbers.
func Aggregate(rows []Row) []Group {
	idx := make(map[[8]string]int)
	var groups []Group
	for _, r := range rows {
		i, ok := idx[r.Key]
		if !ok {
			i = len(groups)
			idx[r.Key] = i
			groups = append(groups, Group{Key: r.Key})
		}
		g := &groups[i]
		g.Count++
		g.Mean += (r.BytesPerSecond - g.Mean) / float64(g.Count)
	}
	sort.Slice(groups, func(a, b int) bool {
		ka, kb := groups[a].Key, groups[b].Key
		for i := range ka {
			if ka[i] == kb[i] {
				continue
			}
			na, ea := strconv.ParseUint(ka[i], 10, 64)
			nb, eb := strconv.ParseUint(kb[i], 10, 64)
			if ea == nil && eb == nil {
				return na < nb
			}
			return ka[i] < kb[i]
		}
		return false
	})
	return groups
}

// WriteRaw writes the header and every row.
func WriteRaw(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := append([]string{strconv.FormatFloat(r.BytesPerSecond, 'f', 6, 64)}, r.Key[:]...)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGrouped writes the configuration columns first and the mean
// throughput last.
func WriteGrouped(w io.Writer, groups []Group) error {
	cw := csv.NewWriter(w)
	header := append(append([]string{}, Header[1:]...), Header[0], "runs")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, g := range groups {
		rec := append(append([]string{}, g.Key[:]...),
			strconv.FormatFloat(g.Mean, 'f', 6, 64), strconv.Itoa(g.Count))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
