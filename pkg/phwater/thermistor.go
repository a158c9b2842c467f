package phwater

import (
	"fmt"
	"math"
)

// Thermistor converts a raw thermistor count (ABSTHRM_L0) to degrees Celsius.
func Thermistor(raw float64) (float64, error) {
	if !(raw > 0) || raw >= thermistorFullScale {
		return 0, fmt.Errorf("%w: thermistor count %g outside (0, %g)", ErrInvalidMeasurement, raw, thermistorFullScale)
	}
	rt := (raw / (thermistorFullScale - raw)) * thermistorResistor
	lnRt := math.Log(rt)
	invT := steinhartA + steinhartB*lnRt + steinhartC*math.Pow(lnRt, 3)
	return 1.0/invT - kelvinOffset, nil
}
