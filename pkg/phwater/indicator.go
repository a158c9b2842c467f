package phwater

import (
	"fmt"
	"math"
)

// negligibleDeterminant bounds |D| relative to the magnitude of its two terms.
const negligibleDeterminant = 1e-12

// IndicatorConcentration solves, per light set, the 2x2 system linking the
// absorbances to the protonated (HI) and deprotonated (I) dye concentrations
// and returns HI + I. The coefficients must already be temperature corrected.
func IndicatorConcentration(abs Absorbance, c Coefficients) ([LightSets]float64, error) {
	var out [LightSets]float64
	t1 := c.EA434 * c.EB578
	t2 := c.EB434 * c.EA578
	d := t1 - t2
	if d == 0 || math.Abs(d) <= negligibleDeterminant*(math.Abs(t1)+math.Abs(t2)) || math.IsNaN(d) {
		return out, fmt.Errorf("%w: absorptivity determinant %g", ErrSingularSystem, d)
	}
	for i := range out {
		hi := (abs.A434[i]*c.EB578 - abs.A578[i]*c.EB434) / d
		ind := (abs.A578[i]*c.EA434 - abs.A434[i]*c.EA578) / d
		out[i] = hi + ind
	}
	return out, nil
}
