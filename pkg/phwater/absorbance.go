package phwater

import (
	"fmt"
	"math"
)

// Absorbance holds the blank-corrected absorbances of the 23 light sets.
type Absorbance struct {
	A434 [LightSets]float64
	A578 [LightSets]float64
}

// Absorbances reshapes the 92-count light cycle into 23 sets of
// [ref434, sig434, ref578, sig578] and converts each set to absorbance
// relative to the blank baselines.
func Absorbances(light []float64, blank434, blank578 float64) (Absorbance, error) {
	var out Absorbance
	if len(light) != LightCycleLen {
		return out, fmt.Errorf("%w: light cycle has %d counts, want %d", ErrMalformedRecord, len(light), LightCycleLen)
	}
	if !(blank434 > 0) || !(blank578 > 0) {
		return out, fmt.Errorf("%w: blanks %g/%g", ErrInvalidMeasurement, blank434, blank578)
	}
	a434Blank := -math.Log10(blank434)
	a578Blank := -math.Log10(blank578)
	for i := 0; i < LightSets; i++ {
		row := light[i*lightColumns : (i+1)*lightColumns]
		r434, err := countRatio(row[colSig434], row[colRef434], i*lightColumns+colRef434)
		if err != nil {
			return Absorbance{}, fmt.Errorf("light set %d at 434 nm: %w", i, err)
		}
		r578, err := countRatio(row[colSig578], row[colRef578], i*lightColumns+colRef578)
		if err != nil {
			return Absorbance{}, fmt.Errorf("light set %d at 578 nm: %w", i, err)
		}
		out.A434[i] = -math.Log10(r434) - a434Blank
		out.A578[i] = -math.Log10(r578) - a578Blank
	}
	return out, nil
}
