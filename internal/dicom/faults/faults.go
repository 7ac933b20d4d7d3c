// Package faults damages generated DICOM files in the ways real archives
// are damaged, so the viewer's degraded paths (placeholders, N/A overlay
// fields, skipped files) can be exercised on demand.
package faults

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Type is a kind of damage.
type Type string

const (
	// Truncated cuts the file halfway through the pixel data.
	Truncated Type = "truncated"
	// NoPixels hides the PixelData element.
	NoPixels Type = "no-pixels"
	// OddLength gives PixelData an odd value length.
	OddLength Type = "odd-length"
	// MissingSpacing hides PixelSpacing.
	MissingSpacing Type = "missing-spacing"
	// MissingIdentity hides PatientName and StudyDate.
	MissingIdentity Type = "missing-identity"
)

// AllTypes returns every known fault type.
func AllTypes() []Type {
	return []Type{Truncated, NoPixels, OddLength, MissingSpacing, MissingIdentity}
}

// Config selects which faults to inject and into how many files.
type Config struct {
	Types      []Type
	Percentage int // 0-100, share of files damaged
}

// ParseTypes parses a comma-separated list. "all" enables every type.
func ParseTypes(input string) ([]Type, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	valid := make(map[Type]bool)
	for _, t := range AllTypes() {
		valid[t] = true
	}

	var result []Type
	seen := make(map[Type]bool)
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		if p == "all" {
			return AllTypes(), nil
		}
		t := Type(p)
		if !valid[t] {
			return nil, fmt.Errorf("unknown fault type %q, valid types: %v (or 'all')", p, AllTypes())
		}
		if !seen[t] {
			result = append(result, t)
			seen[t] = true
		}
	}
	return result, nil
}

// Enabled reports whether any file will be damaged.
func (c Config) Enabled() bool {
	return len(c.Types) > 0 && c.Percentage > 0
}

// Validate checks the percentage and type names.
func (c Config) Validate() error {
	if c.Percentage < 0 || c.Percentage > 100 {
		return fmt.Errorf("fault percentage must be 0-100, got %d", c.Percentage)
	}
	if c.Percentage > 0 && len(c.Types) == 0 {
		return fmt.Errorf("faults enabled but no types specified")
	}
	for _, t := range c.Types {
		if _, err := ParseTypes(string(t)); err != nil {
			return err
		}
	}
	return nil
}

// Plan picks which of n files to damage and with which type. At least one
// file is damaged when the config is enabled. Types are assigned round-robin
// in file order.
func (c Config) Plan(rng *rand.Rand, n int) map[int]Type {
	if !c.Enabled() || n <= 0 {
		return nil
	}
	count := max(1, n*c.Percentage/100)
	picked := rng.Perm(n)[:count]
	// stable assignment regardless of Perm order
	marked := make([]bool, n)
	for _, i := range picked {
		marked[i] = true
	}
	plan := make(map[int]Type, count)
	k := 0
	for i, m := range marked {
		if m {
			plan[i] = c.Types[k%len(c.Types)]
			k++
		}
	}
	return plan
}
