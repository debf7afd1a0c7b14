package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Size multiplier constants (binary / IEC).
const (
	kibibyte = 1 << 10
	mebibyte = 1 << 20
)

// sizeUnits maps lower-cased unit suffixes to byte multipliers. SI units
// are powers of 1000, IEC units powers of 1024; a bare K/M/G is IEC.
var sizeUnits = map[string]float64{
	"":    1,
	"b":   1,
	"kb":  1e3,
	"mb":  1e6,
	"gb":  1e9,
	"k":   1 << 10,
	"kib": 1 << 10,
	"m":   1 << 20,
	"mib": 1 << 20,
	"g":   1 << 30,
	"gib": 1 << 30,
}

// ParseSize parses a byte size such as "4096", "256KiB", "1.5 MB" or "2M".
// The empty string is zero.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.' && r != '-' && r != '+'
	})
	if split < 0 {
		split = len(s)
	}

	num, unit := s[:split], strings.ToLower(strings.TrimSpace(s[split:]))

	mult, ok := sizeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("invalid size %q: unknown unit %q", s, unit)
	}

	if num == "" {
		return 0, fmt.Errorf("invalid size %q: missing number", s)
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	if v < 0 {
		return 0, fmt.Errorf("invalid size %q: must be non-negative", s)
	}

	bytes := v * mult
	if bytes >= math.MaxInt64 {
		return 0, fmt.Errorf("invalid size %q: too large", s)
	}

	return int64(bytes), nil
}
