package scoring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sentinelai/sentinel/internal/feature"
)

// Bundle is a trained model artifact: weights plus the exact feature spec
// the model was trained against. Shipping the vocabularies inside the
// artifact is what keeps train and inference encoding identical: the
// runtime never vectorizes against a spec the model has not seen.
type Bundle struct {
	Kind         string            `json:"kind"`
	ModelVersion string            `json:"model_version"`
	Weights      []float64         `json:"weights"`
	Bias         float64           `json:"bias"`
	Spec         BundleSpec        `json:"spec"`
	Meta         map[string]string `json:"meta,omitempty"`
}

// BundleSpec carries the categorical vocabularies in training order.
type BundleSpec struct {
	Categories []string `json:"categories"`
	Channels   []string `json:"channels"`
	Zones      []string `json:"zones"`
}

// FeatureSpec reconstructs the feature contract the artifact was trained
// with. Numeric feature order is fixed by the platform; only vocabularies
// vary per artifact.
func (b *Bundle) FeatureSpec() *feature.Spec {
	return feature.NewSpec(b.ModelVersion,
		[]string{
			feature.FeatureHour,
			feature.FeatureAmount,
			feature.FeatureIsOnline,
			feature.FeatureMerchantTx24h,
			feature.FeatureCategoryAvg7d,
		},
		[]feature.Categorical{
			{Name: feature.FeatureCategory, Vocab: b.Spec.Categories},
			{Name: feature.FeatureChannel, Vocab: b.Spec.Channels},
			{Name: feature.FeatureZone, Vocab: b.Spec.Zones},
		},
	)
}

// Validate checks internal consistency: the weight vector must match the
// width of the spec the artifact itself declares. An inconsistent artifact
// is rejected at load time, before it can skew a single score.
func (b *Bundle) Validate() error {
	if b.ModelVersion == "" {
		return fmt.Errorf("model artifact missing model_version")
	}
	want := b.FeatureSpec().VectorLen()
	if len(b.Weights) != want {
		return fmt.Errorf("%w: artifact %s declares a %d-wide spec but has %d weights",
			ErrFeatureShapeMismatch, b.ModelVersion, want, len(b.Weights))
	}
	return nil
}

// Scorer builds the runtime scorer for this artifact.
func (b *Bundle) Scorer() *ModelScorer {
	return NewModelScorer(b.Kind, b.ModelVersion, b.Weights, b.Bias)
}

// LoadLatest picks the most recently modified *.json artifact in dir and
// parses it. Returns (nil, nil) when the directory is absent or empty;
// running without a model is a valid degraded mode, not an error.
func LoadLatest(dir string) (*Bundle, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read models dir: %w", err)
	}

	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = e.Name()
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(filepath.Join(dir, newest))
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact %s: %w", newest, err)
	}

	var bundle Bundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact %s: %w", newest, err)
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return &bundle, nil
}
