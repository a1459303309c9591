package feature

import "errors"

// Errors surfaced by feature construction and vectorization. All of them
// indicate defects (bad input, config skew), not transient conditions, and
// are never retried or silently defaulted.
var (
	// ErrInvalidAmount rejects a transaction whose amount cannot be used
	// as a numeric feature (negative or not a number).
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrIncompleteFeatureRecord means the builder failed to populate a
	// feature the spec declares. This is a programming or config defect.
	ErrIncompleteFeatureRecord = errors.New("incomplete feature record")

	// ErrMissingFeature means a record handed to the vectorizer lacks a
	// declared feature. Defense in depth: records may come from replay or
	// backfill tooling that bypassed the builder.
	ErrMissingFeature = errors.New("missing feature")

	// ErrAggregatesUnavailable wraps a failing historical-aggregates read.
	// Recoverable from the caller's point of view, and deliberately
	// distinct from a cold start: an unreachable store must never be
	// scored as "no history".
	ErrAggregatesUnavailable = errors.New("historical aggregates unavailable")
)

// Record holds the raw feature values for one transaction, keyed by
// feature name: floats for numeric features, normalized (lowercased,
// trimmed) strings for categoricals. Records are built fresh per scoring
// call and never persisted.
type Record struct {
	Numeric     map[string]float64
	Categorical map[string]string
}

// NewRecord returns an empty record with allocated maps.
func NewRecord() *Record {
	return &Record{
		Numeric:     make(map[string]float64),
		Categorical: make(map[string]string),
	}
}

// Num returns a numeric feature value, or 0 if absent.
func (r *Record) Num(name string) float64 { return r.Numeric[name] }

// Cat returns a categorical feature value, or "" if absent.
func (r *Record) Cat(name string) string { return r.Categorical[name] }
