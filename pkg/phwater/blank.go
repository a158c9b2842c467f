package phwater

import (
	"fmt"
	"math"
)

// Blanks derives the 434 and 578 nm reference baselines from the 16 counts of
// the blank cycle. Each wavelength is the mean of four signal/reference ratios.
func Blanks(ref []float64) (blank434, blank578 float64, err error) {
	if len(ref) != ReferenceCycleLen {
		return 0, 0, fmt.Errorf("%w: reference cycle has %d counts, want %d", ErrMalformedRecord, len(ref), ReferenceCycleLen)
	}
	var sum434, sum578 float64
	for g := 0; g < ReferenceCycleLen; g += 4 {
		r434, err := countRatio(ref[g+1], ref[g], g)
		if err != nil {
			return 0, 0, fmt.Errorf("blank 434: %w", err)
		}
		r578, err := countRatio(ref[g+3], ref[g+2], g+2)
		if err != nil {
			return 0, 0, fmt.Errorf("blank 578: %w", err)
		}
		sum434 += r434
		sum578 += r578
	}
	return sum434 / 4, sum578 / 4, nil
}

// countRatio returns sig/ref, rejecting ratios a real logarithm cannot take.
func countRatio(sig, ref float64, at int) (float64, error) {
	if ref == 0 {
		return 0, fmt.Errorf("%w: zero reference count at %d", ErrInvalidMeasurement, at)
	}
	r := sig / ref
	if !(r > 0) || math.IsInf(r, 0) {
		return 0, fmt.Errorf("%w: ratio %g at %d", ErrInvalidMeasurement, r, at)
	}
	return r, nil
}
