package phwater

import "fmt"

// Record is one PHSEN measurement cycle with the calibration of the reagent
// bag it was taken with.
type Record struct {
	Reference     []float64    `json:"ref"`
	Light         []float64    `json:"light"`
	ThermistorRaw float64      `json:"thermistor"`
	Coefficients  Coefficients `json:"coefficients"`
}

// Detail carries the intermediates of one pH computation.
type Detail struct {
	PH          float64            `json:"ph"`
	Temperature float64            `json:"temperature_c"`
	Salinity    float64            `json:"salinity"`
	Blank434    float64            `json:"blank434"`
	Blank578    float64            `json:"blank578"`
	Corrected   Coefficients       `json:"corrected_coefficients"`
	PKa         float64            `json:"pka"`
	Window      Window             `json:"window"`
	PointPH     [LightSets]float64 `json:"point_ph"`
	IndConc     [LightSets]float64 `json:"indicator_concentration"`
	Absorbance  Absorbance         `json:"-"`
}

// Compute converts the record's thermistor count and returns the pH detail
// for practical salinity psal.
func Compute(rec Record, psal float64) (Detail, error) {
	tempC, err := Thermistor(rec.ThermistorRaw)
	if err != nil {
		return Detail{}, err
	}
	return PHWater(rec.Reference, rec.Light, tempC, rec.Coefficients, psal)
}

// PHWater runs the full calculation for one record with the temperature
// already in degrees Celsius.
func PHWater(ref, light []float64, tempC float64, coeffs Coefficients, psal float64) (Detail, error) {
	d := Detail{Temperature: tempC, Salinity: psal}

	var err error
	d.Blank434, d.Blank578, err = Blanks(ref)
	if err != nil {
		return Detail{}, err
	}
	d.Absorbance, err = Absorbances(light, d.Blank434, d.Blank578)
	if err != nil {
		return Detail{}, err
	}
	d.Corrected = coeffs.AtTemperature(tempC)
	d.PKa = PKa(tempC, psal)

	d.IndConc, err = IndicatorConcentration(d.Absorbance, d.Corrected)
	if err != nil {
		return Detail{}, err
	}
	d.PointPH, err = PointPH(d.Absorbance, d.Corrected, tempC, psal)
	if err != nil {
		return Detail{}, err
	}

	y := d.PointPH[SkipPoints:]
	x := d.IndConc[SkipPoints:]
	if err := checkFinite("point pH", y); err != nil {
		return Detail{}, err
	}
	if err := checkFinite("indicator concentration", x); err != nil {
		return Detail{}, err
	}
	d.Window, err = SelectWindow(y)
	if err != nil {
		return Detail{}, err
	}
	lo, hi := d.Window.Start, d.Window.Start+WindowLen
	d.PH, err = Regress(x[lo:hi], y[lo:hi])
	if err != nil {
		return Detail{}, fmt.Errorf("final regression: %w", err)
	}
	return d, nil
}
