package phwater

import "fmt"

// flatVariance bounds a centred sum of squares, relative to the raw sum of
// squares, below which the series is treated as constant. It admits the
// rounding left by a computed mean, about 32 ulps per point, and nothing more.
const flatVariance = 1024 * epsilon * epsilon

const epsilon = 0x1p-52

// fit holds the centred sums of squares of one window.
type fit struct {
	meanX float64
	meanY float64
	ssx   float64
	ssy   float64
	ssxy  float64
	sumx2 float64
	sumy2 float64
}

// fitWindow centres x[lo:hi] and y[lo:hi] on their means before summing, so a
// small spread on a large offset is not lost to cancellation.
func fitWindow(x, y []float64, lo, hi int) fit {
	n := float64(hi - lo)
	var sumx, sumy float64
	for i := lo; i < hi; i++ {
		sumx += x[i]
		sumy += y[i]
	}
	f := fit{meanX: sumx / n, meanY: sumy / n}
	for i := lo; i < hi; i++ {
		dx := x[i] - f.meanX
		dy := y[i] - f.meanY
		f.ssx += dx * dx
		f.ssy += dy * dy
		f.ssxy += dx * dy
		f.sumx2 += x[i] * x[i]
		f.sumy2 += y[i] * y[i]
	}
	return f
}

// r2 returns the coefficient of determination; ok is false when either
// series has no variance.
func (f fit) r2() (float64, bool) {
	if flat(f.ssx, f.sumx2) || flat(f.ssy, f.sumy2) {
		return 0, false
	}
	return f.ssxy * f.ssxy / (f.ssx * f.ssy), true
}

// intercept is ybar - slope*xbar, the value of the fitted line at x = 0.
func (f fit) intercept() (float64, bool) {
	if flat(f.ssx, f.sumx2) {
		return 0, false
	}
	slope := f.ssxy / f.ssx
	return f.meanY - slope*f.meanX, true
}

func flat(ss, sum2 float64) bool {
	return ss <= flatVariance*sum2
}

// Window is the most linear run of WindowLen analysed points.
type Window struct {
	Start int     `json:"start"` // offset into the analysed points
	R2    float64 `json:"r2"`    // coefficient of determination against position
}

// SelectWindow slides a WindowLen-point window over y, regressing it against
// the positions 1..len(y), and returns the first window with the highest R².
// Windows with zero variance are skipped.
func SelectWindow(y []float64) (Window, error) {
	if len(y) < WindowLen {
		return Window{}, fmt.Errorf("%w: %d points, need at least %d", ErrMalformedRecord, len(y), WindowLen)
	}
	x := make([]float64, len(y))
	for i := range x {
		x[i] = float64(i + 1)
	}
	best := Window{Start: -1}
	for k := 0; k+WindowLen <= len(y); k++ {
		r2, ok := fitWindow(x, y, k, k+WindowLen).r2()
		if !ok {
			continue
		}
		if best.Start < 0 || r2 > best.R2 {
			best = Window{Start: k, R2: r2}
		}
	}
	if best.Start < 0 {
		return Window{}, fmt.Errorf("%w: no window with non-zero variance", ErrDegenerateWindow)
	}
	return best, nil
}

// Regress fits y against x by ordinary least squares and returns the
// intercept. Applied to indicator concentration and point pH it extrapolates
// the pH to zero added dye.
func Regress(x, y []float64) (float64, error) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, fmt.Errorf("%w: regression over %d/%d points", ErrMalformedRecord, len(x), len(y))
	}
	ph, ok := fitWindow(x, y, 0, len(x)).intercept()
	if !ok {
		return 0, fmt.Errorf("%w: indicator concentration is constant", ErrDegenerateWindow)
	}
	return ph, nil
}
