package phwater

import (
	"errors"
	"math"
	"testing"
)

func TestPKa(t *testing.T) {
	got := PKa(25, 35)
	want := 1245.69/298.15 + 3.8275
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("pKa = %v, want %v", got, want)
	}
	if d := PKa(25, 30) - got; math.Abs(d-0.0105) > 1e-12 {
		t.Fatalf("salinity term = %v, want 0.0105", d)
	}
}

func constantAbsorbance(a434, a578 float64) Absorbance {
	var abs Absorbance
	for i := 0; i < LightSets; i++ {
		abs.A434[i] = a434
		abs.A578[i] = a578
	}
	return abs
}

func TestPointPHPositiveArgument(t *testing.T) {
	c := vendorCoefficients
	abs := constantAbsorbance(0.4, 0.6)
	got, err := PointPH(abs, c, 20, 35)
	if err != nil {
		t.Fatalf("point pH: %v", err)
	}
	r := 0.6 / 0.4
	e1, e2, e3 := c.EA578/c.EA434, c.EB578/c.EA434, c.EB434/c.EA434
	want := PKa(20, 35) + math.Log10((r-e1)/(e2-r*e3))
	if math.Abs(got[0]-want) > 1e-12 {
		t.Fatalf("point pH = %.15f, want %.15f", got[0], want)
	}
}

func TestPointPHKeepsRealPartOfNegativeLog(t *testing.T) {
	c := vendorCoefficients
	// R below e1 makes the log argument negative
	abs := constantAbsorbance(1, 0.001)
	got, err := PointPH(abs, c, 20, 35)
	if err != nil {
		t.Fatalf("point pH: %v", err)
	}
	r := 0.001
	e1, e2, e3 := c.EA578/c.EA434, c.EB578/c.EA434, c.EB434/c.EA434
	arg := (r - e1) / (e2 - r*e3)
	if arg >= 0 {
		t.Fatalf("test setup: argument %v not negative", arg)
	}
	want := PKa(20, 35) + math.Log10(-arg)
	if math.Abs(got[5]-want) > 1e-12 {
		t.Fatalf("point pH = %.15f, want real part %.15f", got[5], want)
	}
}

func TestPointPHSingular(t *testing.T) {
	c := Coefficients{EA434: 1, EB434: 1, EA578: 0, EB578: 2}
	// R = 2 makes e2 - R*e3 vanish
	if _, err := PointPH(constantAbsorbance(0.5, 1), c, 20, 35); !errors.Is(err, ErrSingularSystem) {
		t.Fatalf("expected singular system, got %v", err)
	}
	if _, err := PointPH(constantAbsorbance(0, 1), vendorCoefficients, 20, 35); !errors.Is(err, ErrSingularSystem) {
		t.Fatalf("expected singular system for zero absorbance, got %v", err)
	}
	if _, err := PointPH(constantAbsorbance(0.5, 1), Coefficients{EB434: 1, EB578: 1}, 20, 35); !errors.Is(err, ErrSingularSystem) {
		t.Fatalf("expected singular system for zero ea434, got %v", err)
	}
}
