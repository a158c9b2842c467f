// Package phwater computes the L1 pH of seawater (PHWATER) from the raw blank,
// light and thermistor counts of a SAMI-II pH sensor (PHSEN), following the
// OOI Data Product Specification 1341-00510.
//
// The package is pure: every function derives its output from its arguments
// only and performs no I/O. Compute processes one record; ComputeBatch maps it
// over a sequence of records with explicit input-length validation.
package phwater
