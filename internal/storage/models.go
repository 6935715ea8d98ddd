package storage

import "time"

// Observation is a single sampled value for one target. Immutable once created.
type Observation struct {
	TargetID  string
	Timestamp time.Time
	Value     float64
}
