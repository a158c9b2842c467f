package phwater

import (
	"errors"
	"math"
	"testing"
)

func TestComputeMatchesReference(t *testing.T) {
	for _, g := range goldenRecords {
		t.Run(g.name, func(t *testing.T) {
			d, err := Compute(g.record(), DefaultSalinity)
			if err != nil {
				t.Fatalf("compute: %v", err)
			}
			if math.Abs(d.PH-g.ph) > 1e-6 {
				t.Fatalf("pH = %.12f, want %.12f", d.PH, g.ph)
			}
			if math.Abs(d.Temperature-g.temperature) > 1e-9 {
				t.Fatalf("temperature = %.12f, want %.12f", d.Temperature, g.temperature)
			}
			if math.Abs(d.Blank434-g.blank434) > 1e-12 || math.Abs(d.Blank578-g.blank578) > 1e-12 {
				t.Fatalf("blanks = %v/%v, want %v/%v", d.Blank434, d.Blank578, g.blank434, g.blank578)
			}
			if d.Window.Start != g.window {
				t.Fatalf("window start = %d, want %d", d.Window.Start, g.window)
			}
			if math.Abs(d.Window.R2-g.r2) > 1e-9 {
				t.Fatalf("window R2 = %.12f, want %.12f", d.Window.R2, g.r2)
			}
		})
	}
}

func TestComputeSalinityShiftsPKa(t *testing.T) {
	for _, g := range goldenRecords {
		d, err := Compute(g.record(), 33)
		if err != nil {
			t.Fatalf("%s: %v", g.name, err)
		}
		if math.Abs(d.PH-g.ph33) > 1e-6 {
			t.Fatalf("%s: pH at S=33 = %.12f, want %.12f", g.name, d.PH, g.ph33)
		}
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	rec := goldenRecords[0].record()
	first, err := Compute(rec, DefaultSalinity)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Compute(rec, DefaultSalinity)
		if err != nil {
			t.Fatalf("compute %d: %v", i, err)
		}
		if again.PH != first.PH {
			t.Fatalf("run %d: pH %v != %v", i, again.PH, first.PH)
		}
	}
}

func TestPHWaterTakesCelsius(t *testing.T) {
	g := goldenRecords[1]
	d, err := PHWater(g.ref, g.light, g.temperature, vendorCoefficients, DefaultSalinity)
	if err != nil {
		t.Fatalf("phwater: %v", err)
	}
	if math.Abs(d.PH-g.ph) > 1e-6 {
		t.Fatalf("pH = %.12f, want %.12f", d.PH, g.ph)
	}
	want := vendorCoefficients.AtTemperature(g.temperature)
	if d.Corrected != want {
		t.Fatalf("corrected coefficients = %+v, want %+v", d.Corrected, want)
	}
	if d.PKa != PKa(g.temperature, DefaultSalinity) {
		t.Fatalf("pKa = %v", d.PKa)
	}
}

func TestComputeRejectsMalformedCycles(t *testing.T) {
	g := goldenRecords[0]
	cases := []struct {
		name  string
		ref   []float64
		light []float64
		want  error
	}{
		{"light 91", g.ref, g.light[:91], ErrMalformedRecord},
		{"light 93", g.ref, append(append([]float64{}, g.light...), 2000), ErrMalformedRecord},
		{"ref 15", g.ref[:15], g.light, ErrMalformedRecord},
		{"ref 17", append(append([]float64{}, g.ref...), 2000), g.light, ErrMalformedRecord},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PHWater(tc.ref, tc.light, g.temperature, vendorCoefficients, DefaultSalinity)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestComputeRejectsBadThermistor(t *testing.T) {
	rec := goldenRecords[0].record()
	rec.ThermistorRaw = 4096
	if _, err := Compute(rec, DefaultSalinity); !errors.Is(err, ErrInvalidMeasurement) {
		t.Fatalf("expected invalid measurement, got %v", err)
	}
}

func TestComputeRejectsFlatIndicator(t *testing.T) {
	// identical light sets give constant point pH and indicator concentration
	light := make([]float64, LightCycleLen)
	for i := 0; i < LightSets; i++ {
		copy(light[i*4:], []float64{2000, 1300, 2100, 1100})
	}
	_, err := PHWater(goldenRecords[0].ref, light, 20, vendorCoefficients, DefaultSalinity)
	if !errors.Is(err, ErrDegenerateWindow) {
		t.Fatalf("expected degenerate window, got %v", err)
	}
}
