package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// IntRange is an inclusive integer interval.
type IntRange struct {
	Lo, Hi int
}

// Domain is a finite integer domain: explicit values plus inclusive
// ranges, kept in source order. A usable domain is non-empty.
type Domain struct {
	Values []int
	Ranges []IntRange
}

// ParseDomain parses XCSP3 domain text: whitespace-separated integers and
// lo..hi ranges, e.g. "1..10" or "0 2 4..8".
func ParseDomain(s string) (Domain, error) {
	var d Domain
	for _, tok := range strings.Fields(s) {
		if before, after, found := strings.Cut(tok, ".."); found {
			lo, err := strconv.Atoi(before)
			if err != nil {
				return Domain{}, fmt.Errorf("invalid domain range %q", tok)
			}
			hi, err := strconv.Atoi(after)
			if err != nil {
				return Domain{}, fmt.Errorf("invalid domain range %q", tok)
			}
			d.Ranges = append(d.Ranges, IntRange{Lo: lo, Hi: hi})
			continue
		}
		v, err := strconv.Atoi(tok)
		if err != nil {
			return Domain{}, fmt.Errorf("invalid domain value %q", tok)
		}
		d.Values = append(d.Values, v)
	}
	return d, nil
}

// IsEmpty reports whether the domain covers no values.
func (d Domain) IsEmpty() bool {
	return len(d.Values) == 0 && len(d.Ranges) == 0
}

// Validate checks structural soundness: at least one value and no
// inverted ranges.
func (d Domain) Validate() error {
	if d.IsEmpty() {
		return fmt.Errorf("empty domain")
	}
	for _, r := range d.Ranges {
		if r.Lo > r.Hi {
			return fmt.Errorf("inverted domain range %d..%d", r.Lo, r.Hi)
		}
	}
	return nil
}

// String returns the domain in XCSP3 literal form.
func (d Domain) String() string {
	parts := make([]string, 0, len(d.Values)+len(d.Ranges))
	for _, v := range d.Values {
		parts = append(parts, strconv.Itoa(v))
	}
	for _, r := range d.Ranges {
		parts = append(parts, fmt.Sprintf("%d..%d", r.Lo, r.Hi))
	}
	return strings.Join(parts, " ")
}
