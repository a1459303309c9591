package feature

import (
	"fmt"
	"strings"
)

// Vectorizer maps a Record to a fixed-length numeric vector under a spec.
//
// The mapping is fully deterministic: numeric features in spec order, then
// one one-hot block per categorical feature (vocabulary order plus a
// trailing "other" slot). Output length is Spec.VectorLen() for every
// input. Unknown categorical values never error; they route to "other",
// which is how the pipeline degrades gracefully under category drift.
type Vectorizer struct {
	spec *Spec
}

// NewVectorizer creates a vectorizer bound to a spec.
func NewVectorizer(spec *Spec) *Vectorizer {
	return &Vectorizer{spec: spec}
}

// Spec returns the spec this vectorizer encodes against.
func (v *Vectorizer) Spec() *Spec { return v.spec }

// Vectorize encodes a record. It re-checks feature presence even though
// the builder already guarantees it, because records may arrive from
// replay or backfill tooling that never went through the builder.
func (v *Vectorizer) Vectorize(rec *Record) ([]float64, error) {
	out := make([]float64, 0, v.spec.VectorLen())

	for _, name := range v.spec.NumericFeatures() {
		val, ok := rec.Numeric[name]
		if !ok {
			return nil, fmt.Errorf("%w: numeric feature %q absent from record", ErrMissingFeature, name)
		}
		out = append(out, val)
	}

	for _, cat := range v.spec.CategoricalFeatures() {
		raw, ok := rec.Categorical[cat.Name]
		if !ok {
			return nil, fmt.Errorf("%w: categorical feature %q absent from record", ErrMissingFeature, cat.Name)
		}
		out = append(out, oneHot(raw, cat.Vocab)...)
	}

	return out, nil
}

// oneHot encodes value against vocab. The block has len(vocab)+1 slots;
// a value not in vocab (including "") lights the final "other" slot.
func oneHot(value string, vocab []string) []float64 {
	value = strings.ToLower(strings.TrimSpace(value))
	block := make([]float64, len(vocab)+1)
	for i, v := range vocab {
		if value == v {
			block[i] = 1.0
			return block
		}
	}
	block[len(vocab)] = 1.0
	return block
}
