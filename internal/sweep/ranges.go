// Package sweep explores the accelerator design space by re-running the
// simulator over combinations of PE count, downsample stride, pairing group
// size and tile size.
package sweep

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// maxValues bounds the number of values one dimension may expand to.
const maxValues = 10000

// ErrNoValues is returned for a non-empty dimension that expands to nothing,
// such as a range whose start is past its end.
var ErrNoValues = errors.New("no values")

// ParseValues parses one sweep dimension, written either as a comma list
// ("4,8,16") or as an inclusive range "first:last:step" ("4:32:4"). Every
// PE count, stride, group and tile size is a positive integer, so zero and
// negative values are rejected here. An empty string returns nil, which
// keeps the base configuration's value for that dimension.
func ParseValues(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var (
		values []int
		err    error
	)
	if strings.Contains(s, ":") {
		values, err = parseRange(s)
	} else {
		values, err = parseList(s)
	}
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%q: %w", s, ErrNoValues)
	}
	return values, nil
}

func parseRange(s string) ([]int, error) {
	fields := strings.Split(s, ":")
	if len(fields) != 3 {
		return nil, fmt.Errorf("range %q: want first:last:step", s)
	}
	var bounds [3]int
	for i, f := range fields {
		v, err := parsePositive(f)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", s, err)
		}
		bounds[i] = v
	}
	first, last, step := bounds[0], bounds[1], bounds[2]
	if first > last {
		return nil, fmt.Errorf("range %q: first is past last: %w", s, ErrNoValues)
	}

	n := (last-first)/step + 1
	if n > maxValues {
		return nil, fmt.Errorf("range %q expands to %d values, limit %d", s, n, maxValues)
	}
	values := make([]int, n)
	for i := range values {
		values[i] = first + i*step
	}
	return values, nil
}

func parseList(s string) ([]int, error) {
	var values []int
	for _, f := range strings.Split(s, ",") {
		if strings.TrimSpace(f) == "" {
			continue
		}
		v, err := parsePositive(f)
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", s, err)
		}
		values = append(values, v)
	}
	if len(values) > maxValues {
		return nil, fmt.Errorf("list %q has %d values, limit %d", s, len(values), maxValues)
	}
	return values, nil
}

func parsePositive(s string) (int, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%d is not positive", v)
	}
	return v, nil
}
