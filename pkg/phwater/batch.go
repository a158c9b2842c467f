package phwater

import "fmt"

// Salinity is the practical salinity applied to a batch: either one value
// broadcast to every record or one value per record. The zero value is the
// scalar DefaultSalinity.
type Salinity struct {
	scalar float64
	values []float64
	vector bool
	set    bool
}

// ScalarSalinity broadcasts v to every record.
func ScalarSalinity(v float64) Salinity {
	return Salinity{scalar: v, set: true}
}

// SalinityVector assigns values[i] to record i.
func SalinityVector(values []float64) Salinity {
	cp := make([]float64, len(values))
	copy(cp, values)
	return Salinity{values: cp, vector: true, set: true}
}

// IsVector reports whether the salinity is given per record.
func (s Salinity) IsVector() bool { return s.vector }

// Len is the number of per-record values, or 0 for a scalar.
func (s Salinity) Len() int { return len(s.values) }

// Resolve expands the salinity to n records.
func (s Salinity) Resolve(n int) ([]float64, error) {
	if s.vector {
		if len(s.values) != n {
			return nil, fmt.Errorf("%w: %d salinity values for %d records", ErrMalformedRecord, len(s.values), n)
		}
		out := make([]float64, n)
		copy(out, s.values)
		return out, nil
	}
	v := DefaultSalinity
	if s.set {
		v = s.scalar
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out, nil
}

// Result is the outcome of one record of a batch. Err is a *RecordError when
// the record failed, in which case Detail is zero.
type Result struct {
	Detail Detail
	Err    error
}

// PH returns the computed pH of the record.
func (r Result) PH() float64 { return r.Detail.PH }

// ComputeBatch runs Compute independently for every record. A failing record
// only sets its own Result.Err; the returned error is non-nil only when the
// salinity cannot be aligned with the records.
func ComputeBatch(records []Record, sal Salinity) ([]Result, error) {
	psal, err := sal.Resolve(len(records))
	if err != nil {
		return nil, err
	}
	out := make([]Result, len(records))
	for i := range records {
		out[i] = ComputeOne(records, psal, i)
	}
	return out, nil
}

// ComputeOne computes record i of a batch whose salinity has already been
// resolved. It lets callers schedule records themselves.
func ComputeOne(records []Record, psal []float64, i int) Result {
	d, err := Compute(records[i], psal[i])
	if err != nil {
		return Result{Err: &RecordError{Index: i, Err: err}}
	}
	return Result{Detail: d}
}

// SignalIntensities434 maps SignalIntensity434 over a batch of light cycles.
func SignalIntensities434(lights [][]float64) ([][LightSets]float64, error) {
	return mapLights(lights, SignalIntensity434)
}

// SignalIntensities578 maps SignalIntensity578 over a batch of light cycles.
func SignalIntensities578(lights [][]float64) ([][LightSets]float64, error) {
	return mapLights(lights, SignalIntensity578)
}

func mapLights(lights [][]float64, fn func([]float64) ([LightSets]float64, error)) ([][LightSets]float64, error) {
	out := make([][LightSets]float64, len(lights))
	for i, l := range lights {
		v, err := fn(l)
		if err != nil {
			return nil, &RecordError{Index: i, Err: err}
		}
		out[i] = v
	}
	return out, nil
}
