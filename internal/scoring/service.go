package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sentinelai/sentinel/internal/feature"
	"github.com/sentinelai/sentinel/internal/idgen"
	"github.com/sentinelai/sentinel/internal/logging"
	"github.com/sentinelai/sentinel/internal/metrics"
	"github.com/sentinelai/sentinel/internal/traces"
	"github.com/sentinelai/sentinel/internal/transaction"
)

// pipeline is one immutable spec+model pairing. Hot-reload publishes a
// whole new pipeline atomically so no scoring call ever observes a mixed
// old-spec/new-model combination.
type pipeline struct {
	builder    *feature.Builder
	vectorizer *feature.Vectorizer
	model      *ModelScorer // nil → rules-only mode
}

// Service runs the scoring pipeline for one transaction at a time:
// build features, vectorize, score, classify, persist, decide on alert.
// Stateless per call; safe to run concurrently across transactions.
type Service struct {
	aggs       transaction.Aggregates
	rules      *RuleScorer
	store      Store
	thresholds Thresholds
	pipe       atomic.Pointer[pipeline]
}

// NewService creates a scoring service in rules-only mode under the
// default feature spec. Call UseModel to attach a trained model.
func NewService(aggs transaction.Aggregates, rules *RuleScorer, store Store, thresholds Thresholds) *Service {
	s := &Service{
		aggs:       aggs,
		rules:      rules,
		store:      store,
		thresholds: thresholds,
	}
	spec := feature.DefaultSpec()
	s.pipe.Store(&pipeline{
		builder:    feature.NewBuilder(spec, aggs),
		vectorizer: feature.NewVectorizer(spec),
	})
	return s
}

// UseModel swaps in a model artifact together with its own feature spec.
// The swap is atomic: in-flight calls finish on the pipeline they loaded.
func (s *Service) UseModel(bundle *Bundle) error {
	if err := bundle.Validate(); err != nil {
		return err
	}
	spec := bundle.FeatureSpec()
	s.pipe.Store(&pipeline{
		builder:    feature.NewBuilder(spec, s.aggs),
		vectorizer: feature.NewVectorizer(spec),
		model:      bundle.Scorer(),
	})
	return nil
}

// ModelVersion reports the version the next scoring call will stamp.
func (s *Service) ModelVersion() string {
	if p := s.pipe.Load(); p.model != nil {
		return p.model.Version()
	}
	return s.rules.Version()
}

// ScoreTransaction scores one transaction and persists the result. On any
// error nothing is persisted and no alert decision is made. Repeated calls
// with identical inputs and aggregate state produce identical results.
func (s *Service) ScoreTransaction(ctx context.Context, tx *transaction.Transaction) (*Result, error) {
	ctx, span := traces.StartSpan(ctx, "scoring.ScoreTransaction", traces.TransactionID(tx.ID))
	defer span.End()
	start := time.Now()

	p := s.pipe.Load()

	rec, err := p.builder.Build(ctx, tx)
	if err != nil {
		metrics.ScoringFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}
	vec, err := p.vectorizer.Vectorize(rec)
	if err != nil {
		metrics.ScoringFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	score, factors, err := s.rules.Score(rec, vec)
	if err != nil {
		metrics.ScoringFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}
	version := s.rules.Version()

	if p.model != nil {
		modelScore, _, err := p.model.Score(rec, vec)
		if err != nil {
			// Shape mismatch halts the call; a skewed model must not
			// fall back to rules quietly.
			metrics.ScoringFailuresTotal.WithLabelValues(failureReason(err)).Inc()
			return nil, err
		}
		version = p.model.Version()
		if modelScore > score {
			score = modelScore
			withModel := append([]string{fmt.Sprintf("Model score applied (%s)", p.model.Version())}, factors...)
			if len(withModel) > maxFactors {
				withModel = withModel[:maxFactors]
			}
			factors = withModel
		}
	}

	level := s.thresholds.LevelFor(score)
	alertRequired := score >= s.thresholds.Alert

	reason := ""
	if alertRequired {
		reason = buildReason(score, s.thresholds.Alert, factors)
	}

	stored, err := s.store.Upsert(ctx, &RiskScore{
		ID:            idgen.WithPrefix("rs_"),
		TransactionID: tx.ID,
		Score:         score,
		ModelVersion:  version,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		metrics.ScoringFailuresTotal.WithLabelValues("store").Inc()
		return nil, fmt.Errorf("failed to persist risk score: %w", err)
	}

	metrics.TransactionsScoredTotal.WithLabelValues(string(level)).Inc()
	metrics.ScoringDuration.Observe(time.Since(start).Seconds())

	logging.L(ctx).Info("transaction scored",
		"transaction_id", tx.ID,
		"score", score,
		"level", level,
		"model_version", version,
		"alert_required", alertRequired,
	)

	return &Result{
		TransactionID: tx.ID,
		RiskScoreID:   stored.ID,
		Score:         score,
		Level:         level,
		Factors:       factors,
		ModelVersion:  version,
		AlertRequired: alertRequired,
		Reason:        reason,
	}, nil
}

// buildReason produces the non-empty explanation stored on an alert. When
// no rule contributed a factor the threshold breach itself is the reason.
func buildReason(score, threshold int, factors []string) string {
	if len(factors) == 0 {
		return fmt.Sprintf("Risk score %d at or above alert threshold %d", score, threshold)
	}
	return strings.Join(factors, "; ")
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, feature.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, feature.ErrAggregatesUnavailable):
		return "aggregates_unavailable"
	case errors.Is(err, feature.ErrIncompleteFeatureRecord):
		return "incomplete_record"
	case errors.Is(err, feature.ErrMissingFeature):
		return "missing_feature"
	case errors.Is(err, ErrFeatureShapeMismatch):
		return "shape_mismatch"
	default:
		return "other"
	}
}
