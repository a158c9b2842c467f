// Package domain defines the persisted run records and the storage contract
// shared by the phsen service and its persistence backends.
package domain

import "time"

// EntityType identifies the type of record stored by a persistence backend.
type EntityType string

// EntityRun identifies a processed batch run.
const EntityRun EntityType = "run"

// RecordStatus reports whether a single record produced a pH value.
type RecordStatus string

// Record outcome states.
const (
	RecordSucceeded RecordStatus = "succeeded"
	RecordFailed    RecordStatus = "failed"
)

// RecordOutcome summarises the processing of one record in a batch.
type RecordOutcome struct {
	Index       int          `json:"index"`
	Status      RecordStatus `json:"status"`
	PH          float64      `json:"ph"`
	Temperature float64      `json:"temperature"`
	Salinity    float64      `json:"salinity"`
	WindowStart int          `json:"window_start"`
	R2          float64      `json:"r2"`
	Error       string       `json:"error,omitempty"`
}

// Succeeded reports whether the record yielded a pH value.
func (o RecordOutcome) Succeeded() bool {
	return o.Status == RecordSucceeded
}

// Run is a processed batch of PHSEN records.
type Run struct {
	ID          string          `json:"id"`
	Label       string          `json:"label,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt time.Time       `json:"completed_at"`
	Records     []RecordOutcome `json:"records"`
}

// Counts returns the number of succeeded and failed records.
func (r Run) Counts() (succeeded, failed int) {
	for _, rec := range r.Records {
		if rec.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// Clone returns a deep copy of the run.
func (r Run) Clone() Run {
	cp := r
	if r.Records != nil {
		cp.Records = make([]RecordOutcome, len(r.Records))
		copy(cp.Records, r.Records)
	}
	return cp
}
