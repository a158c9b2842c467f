package phwater

import (
	"errors"
	"math"
	"testing"
)

func TestIndicatorConcentrationInvertsMixture(t *testing.T) {
	c := vendorCoefficients.AtTemperature(18)
	var abs Absorbance
	var want [LightSets]float64
	for i := 0; i < LightSets; i++ {
		hi := 1e-6 * float64(i+1)
		ind := 2.5e-6 * float64(i+2)
		abs.A434[i] = c.EA434*hi + c.EB434*ind
		abs.A578[i] = c.EA578*hi + c.EB578*ind
		want[i] = hi + ind
	}
	got, err := IndicatorConcentration(abs, c)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-15 {
			t.Fatalf("set %d: %g, want %g", i, got[i], want[i])
		}
	}
}

func TestIndicatorConcentrationSingular(t *testing.T) {
	cases := []Coefficients{
		{EA434: 2, EB434: 4, EA578: 1, EB578: 2},
		{EA434: 1e4, EB434: 1e4, EA578: 1e4, EB578: 1e4 * (1 + 1e-15)},
		{},
	}
	for _, c := range cases {
		if _, err := IndicatorConcentration(Absorbance{}, c); !errors.Is(err, ErrSingularSystem) {
			t.Fatalf("%+v: expected singular system, got %v", c, err)
		}
	}
}
