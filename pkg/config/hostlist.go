package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ExpandHostlist expands a comma-separated list of hostnames, where any
// entry may carry one bracketed numeric range (e.g. "foo-cmm[1-2],bar"),
// into the flat list of concrete hostnames it denotes. A bare hostname with
// no brackets expands to itself.
func ExpandHostlist(spec string) ([]string, error) {
	var out []string
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		expanded, err := expandOne(entry)
		if err != nil {
			return nil, fmt.Errorf("hostlist %q: %w", entry, err)
		}
		out = append(out, expanded...)
	}
	return out, nil
}

func expandOne(entry string) ([]string, error) {
	open := strings.IndexByte(entry, '[')
	if open < 0 {
		return []string{entry}, nil
	}
	closeIdx := strings.IndexByte(entry, ']')
	if closeIdx < open {
		return nil, fmt.Errorf("unbalanced brackets")
	}

	prefix := entry[:open]
	suffix := entry[closeIdx+1:]
	rng := entry[open+1 : closeIdx]

	lo, hi, width, err := parseRange(rng)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, fmt.Sprintf("%s%0*d%s", prefix, width, i, suffix))
	}
	return out, nil
}

// parseRange parses "N" or "N-M" and returns the zero-padding width implied
// by the widest literal in the range, so "cmm[01-10]" keeps leading zeros.
func parseRange(rng string) (lo, hi, width int, err error) {
	parts := strings.SplitN(rng, "-", 2)
	loStr := parts[0]
	hiStr := loStr
	if len(parts) == 2 {
		hiStr = parts[1]
	}

	lo, err = strconv.Atoi(loStr)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid range start %q: %w", loStr, err)
	}
	hi, err = strconv.Atoi(hiStr)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid range end %q: %w", hiStr, err)
	}
	if hi < lo {
		return 0, 0, 0, fmt.Errorf("range end %d before start %d", hi, lo)
	}

	width = len(loStr)
	if len(hiStr) > width {
		width = len(hiStr)
	}
	return lo, hi, width, nil
}
