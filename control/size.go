// control/size.go
// Author: momentics <momentics@gmail.com>
//
// Human size strings: "<n>", "<n>K", "<n>M", "<n>G" with binary multiples.

package control

import (
	"fmt"
	"math/bits"
	"strconv"

	"github.com/momentics/hioload-pipe/api"
)

// ParseSize parses a byte count with an optional K, M or G suffix.
func ParseSize(s string) (uint64, error) {
	if s == "" {
		return 0, api.Errorf(api.ErrCodeConfig, "control.ParseSize", "bad size %q", s)
	}
	digits, shift := s, 0
	switch s[len(s)-1] {
	case 'K':
		digits, shift = s[:len(s)-1], 10
	case 'M':
		digits, shift = s[:len(s)-1], 20
	case 'G':
		digits, shift = s[:len(s)-1], 30
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, api.Errorf(api.ErrCodeConfig, "control.ParseSize", "bad size %q", s)
	}
	if shift > 0 && bits.LeadingZeros64(n) < shift {
		return 0, api.Errorf(api.ErrCodeConfig, "control.ParseSize", "size %q is not representable", s)
	}
	return n << shift, nil
}

// FormatSize renders x with the largest binary unit dividing it exactly.
func FormatSize(x uint64) string {
	switch {
	case x == 0:
		return "0B"
	case x&(1<<30-1) == 0:
		return fmt.Sprintf("%dGiB", x>>30)
	case x&(1<<20-1) == 0:
		return fmt.Sprintf("%dMiB", x>>20)
	case x&(1<<10-1) == 0:
		return fmt.Sprintf("%dKiB", x>>10)
	default:
		return fmt.Sprintf("%dB", x)
	}
}

// FormatSizeFlag renders x in the suffix form ParseSize accepts.
func FormatSizeFlag(x uint64) string {
	switch {
	case x != 0 && x&(1<<30-1) == 0:
		return strconv.FormatUint(x>>30, 10) + "G"
	case x != 0 && x&(1<<20-1) == 0:
		return strconv.FormatUint(x>>20, 10) + "M"
	case x != 0 && x&(1<<10-1) == 0:
		return strconv.FormatUint(x>>10, 10) + "K"
	default:
		return strconv.FormatUint(x, 10)
	}
}

// sizeValue adapts a size field to flag.Value.
type sizeValue struct{ p *uint64 }

func (v sizeValue) String() string {
	if v.p == nil {
		return ""
	}
	return FormatSize(*v.p)
}

func (v sizeValue) Set(s string) error {
	n, err := ParseSize(s)
	if err != nil {
		return err
	}
	*v.p = n
	return nil
}
