package phwater

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord reports a cycle of the wrong length or misaligned batch inputs.
	ErrMalformedRecord = errors.New("phwater: malformed record")
	// ErrInvalidMeasurement reports counts that cannot feed a real logarithm.
	ErrInvalidMeasurement = errors.New("phwater: invalid measurement")
	// ErrSingularSystem reports a zero or negligible denominator.
	ErrSingularSystem = errors.New("phwater: singular system")
	// ErrDegenerateWindow reports that no regression window has non-zero variance.
	ErrDegenerateWindow = errors.New("phwater: degenerate window")
)

// RecordError ties a failure to its position in a batch.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
