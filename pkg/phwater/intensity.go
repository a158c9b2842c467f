package phwater

import "fmt"

// SignalIntensity434 extracts the 23 signal counts at 434 nm (PH434SI_L0).
func SignalIntensity434(light []float64) ([LightSets]float64, error) {
	return lightColumn(light, colSig434)
}

// SignalIntensity578 extracts the 23 signal counts at 578 nm (PH578SI_L0).
func SignalIntensity578(light []float64) ([LightSets]float64, error) {
	return lightColumn(light, colSig578)
}

func lightColumn(light []float64, col int) ([LightSets]float64, error) {
	var out [LightSets]float64
	if len(light) != LightCycleLen {
		return out, fmt.Errorf("%w: light cycle has %d counts, want %d", ErrMalformedRecord, len(light), LightCycleLen)
	}
	for i := range out {
		out[i] = light[i*lightColumns+col]
	}
	return out, nil
}
