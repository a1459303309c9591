// Package feature implements the train/inference feature contract:
// a static spec of feature names and vocabularies, a builder that derives
// raw feature values from a transaction plus its historical context, and a
// deterministic vectorizer that maps a record to a fixed-shape vector.
//
// The spec is the single source of truth for vector shape. Reordering
// numeric features or a vocabulary silently reorders every output column,
// so any such change requires a model version bump.
package feature

import "strings"

// Numeric feature names recognized by the builder.
const (
	FeatureHour          = "hour"
	FeatureAmount        = "amount"
	FeatureIsOnline      = "is_online"
	FeatureMerchantTx24h = "merchant_tx_count_24h"
	FeatureCategoryAvg7d = "avg_amount_category_7d"
)

// Categorical feature names recognized by the builder.
const (
	FeatureCategory = "merchant_category"
	FeatureChannel  = "channel"
	FeatureZone     = "arrondissement"
)

// Categorical binds a categorical feature to its ordered vocabulary.
// The one-hot block for the feature has len(Vocab)+1 slots: one per
// vocabulary entry plus a trailing "other" slot for unseen values.
type Categorical struct {
	Name  string
	Vocab []string
}

// Spec is an immutable declaration of feature names, order, and
// vocabularies. It has no behavior beyond returning these definitions.
type Spec struct {
	version     string
	numeric     []string
	categorical []Categorical
}

// NewSpec builds a spec with the given feature order. Vocabulary values
// are normalized to lowercase; matching is case-insensitive.
func NewSpec(version string, numeric []string, categorical []Categorical) *Spec {
	cats := make([]Categorical, len(categorical))
	for i, c := range categorical {
		vocab := make([]string, len(c.Vocab))
		for j, v := range c.Vocab {
			vocab[j] = strings.ToLower(strings.TrimSpace(v))
		}
		cats[i] = Categorical{Name: c.Name, Vocab: vocab}
	}
	return &Spec{
		version:     version,
		numeric:     append([]string(nil), numeric...),
		categorical: cats,
	}
}

// DefaultSpec returns the v1 feature contract. Hour extraction is pinned
// to UTC; the timezone is part of this version's compatibility contract.
func DefaultSpec() *Spec {
	return NewSpec("v1",
		[]string{
			FeatureHour,
			FeatureAmount,
			FeatureIsOnline,
			FeatureMerchantTx24h,
			FeatureCategoryAvg7d,
		},
		[]Categorical{
			{Name: FeatureCategory, Vocab: []string{
				"grocery", "restaurant", "fuel", "transport", "ecommerce",
				"electronics", "pharmacy", "fashion", "hotel", "subscription",
			}},
			{Name: FeatureChannel, Vocab: []string{
				"card", "contactless", "mobile", "online", "wire",
			}},
			{Name: FeatureZone, Vocab: []string{
				"paris 1e", "paris 8e", "paris 9e", "paris 10e", "paris 11e",
				"paris 15e", "paris 18e", "paris 20e",
				"montreuil", "saint-denis", "aubervilliers", "pantin",
			}},
		},
	)
}

// Version returns the spec's version tag.
func (s *Spec) Version() string { return s.version }

// NumericFeatures returns numeric feature names in vector order.
func (s *Spec) NumericFeatures() []string {
	return append([]string(nil), s.numeric...)
}

// CategoricalFeatures returns categorical features in vector order.
func (s *Spec) CategoricalFeatures() []Categorical {
	cats := make([]Categorical, len(s.categorical))
	for i, c := range s.categorical {
		cats[i] = Categorical{Name: c.Name, Vocab: append([]string(nil), c.Vocab...)}
	}
	return cats
}

// VectorLen is the length of every vector produced under this spec:
// one slot per numeric feature plus (vocab size + 1) per categorical.
func (s *Spec) VectorLen() int {
	n := len(s.numeric)
	for _, c := range s.categorical {
		n += len(c.Vocab) + 1
	}
	return n
}
