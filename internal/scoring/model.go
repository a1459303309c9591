package scoring

import (
	"fmt"
	"math"

	"github.com/sentinelai/sentinel/internal/feature"
)

// ModelScorer scores the feature vector with a logistic model: the fraud
// probability is rescaled to [0,100] at this boundary so everything
// downstream speaks the canonical 0-100 scale.
type ModelScorer struct {
	kind    string
	version string
	weights []float64
	bias    float64
}

// NewModelScorer creates a scorer from trained weights. The expected
// vector width is len(weights).
func NewModelScorer(kind, version string, weights []float64, bias float64) *ModelScorer {
	return &ModelScorer{
		kind:    kind,
		version: version,
		weights: append([]float64(nil), weights...),
		bias:    bias,
	}
}

func (m *ModelScorer) Version() string { return m.version }

// Kind returns the model family tag from the artifact ("logistic", ...).
func (m *ModelScorer) Kind() string { return m.kind }

// InputLen is the vector width the model was trained on.
func (m *ModelScorer) InputLen() int { return len(m.weights) }

// Score computes sigmoid(w·x + b) * 100, rounded. A wrong-shape vector is
// version skew between the feature spec and the model artifact; it fails
// fast instead of producing a meaningless score.
func (m *ModelScorer) Score(_ *feature.Record, vec []float64) (int, []string, error) {
	if len(vec) != len(m.weights) {
		return 0, nil, fmt.Errorf("%w: model %s expects %d features, got %d",
			ErrFeatureShapeMismatch, m.version, len(m.weights), len(vec))
	}

	z := m.bias
	for i, w := range m.weights {
		z += w * vec[i]
	}
	p := 1.0 / (1.0 + math.Exp(-z))

	return clamp(int(math.Round(p * 100))), nil, nil
}
