package feature

import (
	"errors"
	"reflect"
	"testing"
)

func fullRecord() *Record {
	rec := NewRecord()
	rec.Numeric[FeatureHour] = 14
	rec.Numeric[FeatureAmount] = 89.50
	rec.Numeric[FeatureIsOnline] = 0
	rec.Numeric[FeatureMerchantTx24h] = 3
	rec.Numeric[FeatureCategoryAvg7d] = 42.5
	rec.Categorical[FeatureCategory] = "grocery"
	rec.Categorical[FeatureChannel] = "contactless"
	rec.Categorical[FeatureZone] = "paris 11e"
	return rec
}

func TestVectorLen(t *testing.T) {
	spec := DefaultSpec()
	v := NewVectorizer(spec)

	vec, err := v.Vectorize(fullRecord())
	if err != nil {
		t.Fatalf("Vectorize failed: %v", err)
	}
	if len(vec) != spec.VectorLen() {
		t.Errorf("vector length = %d, want %d", len(vec), spec.VectorLen())
	}
}

func TestVectorizeNumericOrder(t *testing.T) {
	v := NewVectorizer(DefaultSpec())

	vec, err := v.Vectorize(fullRecord())
	if err != nil {
		t.Fatalf("Vectorize failed: %v", err)
	}

	// Numeric features lead the vector in spec order.
	want := []float64{14, 89.50, 0, 3, 42.5}
	if !reflect.DeepEqual(vec[:5], want) {
		t.Errorf("numeric prefix = %v, want %v", vec[:5], want)
	}
}

func TestVectorizeOneHotPlacement(t *testing.T) {
	spec := DefaultSpec()
	v := NewVectorizer(spec)

	vec, err := v.Vectorize(fullRecord())
	if err != nil {
		t.Fatalf("Vectorize failed: %v", err)
	}

	// "grocery" is the first vocabulary entry of the first categorical,
	// whose block starts right after the numerics.
	numerics := len(spec.NumericFeatures())
	if vec[numerics] != 1.0 {
		t.Errorf("grocery slot = %v, want 1.0", vec[numerics])
	}

	// Exactly one slot lit per categorical block.
	offset := numerics
	for _, cat := range spec.CategoricalFeatures() {
		blockLen := len(cat.Vocab) + 1
		sum := 0.0
		for _, x := range vec[offset : offset+blockLen] {
			sum += x
		}
		if sum != 1.0 {
			t.Errorf("block %s sums to %v, want exactly 1.0", cat.Name, sum)
		}
		offset += blockLen
	}
}

func TestVectorizeUnknownValueRoutesToOther(t *testing.T) {
	spec := DefaultSpec()
	v := NewVectorizer(spec)

	rec := fullRecord()
	rec.Categorical[FeatureCategory] = "cryptocurrency" // not in vocab

	vec, err := v.Vectorize(rec)
	if err != nil {
		t.Fatalf("unknown category must not error, got %v", err)
	}
	if len(vec) != spec.VectorLen() {
		t.Fatalf("vector length = %d, want %d", len(vec), spec.VectorLen())
	}

	// The "other" slot is the last of the category block.
	numerics := len(spec.NumericFeatures())
	catVocab := len(spec.CategoricalFeatures()[0].Vocab)
	if vec[numerics+catVocab] != 1.0 {
		t.Errorf("other slot = %v, want 1.0", vec[numerics+catVocab])
	}
}

func TestVectorizeEmptyValueRoutesToOther(t *testing.T) {
	spec := DefaultSpec()
	v := NewVectorizer(spec)

	rec := fullRecord()
	rec.Categorical[FeatureZone] = ""

	vec, err := v.Vectorize(rec)
	if err != nil {
		t.Fatalf("empty zone must not error, got %v", err)
	}

	// Last block is the zone; its final slot is "other".
	if vec[len(vec)-1] != 1.0 {
		t.Errorf("zone other slot = %v, want 1.0", vec[len(vec)-1])
	}
}

func TestVectorizeMissingFeature(t *testing.T) {
	v := NewVectorizer(DefaultSpec())

	rec := fullRecord()
	delete(rec.Numeric, FeatureAmount)
	if _, err := v.Vectorize(rec); !errors.Is(err, ErrMissingFeature) {
		t.Errorf("expected ErrMissingFeature for absent numeric, got %v", err)
	}

	rec = fullRecord()
	delete(rec.Categorical, FeatureChannel)
	if _, err := v.Vectorize(rec); !errors.Is(err, ErrMissingFeature) {
		t.Errorf("expected ErrMissingFeature for absent categorical, got %v", err)
	}
}

func TestVectorizeDeterministic(t *testing.T) {
	v := NewVectorizer(DefaultSpec())
	rec := fullRecord()

	first, err := v.Vectorize(rec)
	if err != nil {
		t.Fatalf("Vectorize failed: %v", err)
	}
	second, err := v.Vectorize(rec)
	if err != nil {
		t.Fatalf("Vectorize failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("same record produced different vectors")
	}
}

func TestSpecVectorLenFormula(t *testing.T) {
	spec := NewSpec("t1",
		[]string{"a", "b"},
		[]Categorical{
			{Name: "c", Vocab: []string{"x", "y", "z"}},
			{Name: "d", Vocab: []string{"p"}},
		},
	)

	// 2 numerics + (3+1) + (1+1)
	if got := spec.VectorLen(); got != 8 {
		t.Errorf("VectorLen = %d, want 8", got)
	}
}
