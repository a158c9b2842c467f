package phwater

import (
	"fmt"
	"math"
	"math/cmplx"
)

// PKa is the mCP dissociation constant at tempC (degC) and practical salinity psal.
func PKa(tempC, psal float64) float64 {
	return (pKaNumerator / (tempC + kelvinOffset)) + pKaOffset + (pKaSalinitySlope * (referenceSalinity - psal))
}

// PointPH estimates a candidate pH for every light set from the absorbance
// ratio R = A578/A434. The logarithm is taken over the complex plane and only
// the real part is kept, so a negative argument yields log10|x| rather than
// an error. c must already be temperature corrected.
func PointPH(abs Absorbance, c Coefficients, tempC, psal float64) ([LightSets]float64, error) {
	var out [LightSets]float64
	if c.EA434 == 0 {
		return out, fmt.Errorf("%w: corrected ea434 is zero", ErrSingularSystem)
	}
	pKa := PKa(tempC, psal)
	e1 := c.EA578 / c.EA434
	e2 := c.EB578 / c.EA434
	e3 := c.EB434 / c.EA434
	for i := range out {
		if abs.A434[i] == 0 {
			return out, fmt.Errorf("%w: zero 434 nm absorbance at set %d", ErrSingularSystem, i)
		}
		r := abs.A578[i] / abs.A434[i]
		v1 := r - e1
		v2 := e2 - r*e3
		if v2 == 0 {
			return out, fmt.Errorf("%w: ratio denominator vanishes at set %d", ErrSingularSystem, i)
		}
		out[i] = real(complex(pKa, 0) + cmplx.Log10(complex(v1/v2, 0)))
	}
	return out, nil
}

// checkFinite rejects series whose analysed points cannot enter a regression.
func checkFinite(name string, v []float64) error {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: %s is %g at point %d", ErrInvalidMeasurement, name, x, i)
		}
	}
	return nil
}
