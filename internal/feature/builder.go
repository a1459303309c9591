package feature

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sentinelai/sentinel/internal/transaction"
)

// Rolling windows for the historical context features.
const (
	MerchantWindow = 24 * time.Hour
	CategoryWindow = 7 * 24 * time.Hour
)

// Builder derives a Record from a transaction plus historical aggregates.
//
// Both aggregate reads are taken as of the transaction's occurred_at, not
// ingestion time, so replaying an old transaction yields the same features
// it would have had live (no future leakage). Hour extraction is pinned to
// UTC regardless of server locale; training pipelines must use the same
// zone or scores drift between train and inference.
type Builder struct {
	spec *Spec
	aggs transaction.Aggregates
}

// NewBuilder creates a feature builder bound to a spec and an aggregates
// reader. The reader is the only collaborator; the builder itself holds no
// mutable state and is safe for concurrent use.
func NewBuilder(spec *Spec, aggs transaction.Aggregates) *Builder {
	return &Builder{spec: spec, aggs: aggs}
}

// Build computes the raw feature record for one transaction. It is a pure
// function of the transaction and the aggregates state at call time.
//
// Cold starts are valid outcomes: a merchant or category with no history
// yields 0 / 0.0. A failing aggregates read is a different thing entirely
// and propagates as an error; zero history and an unreachable store must
// never look the same downstream.
func (b *Builder) Build(ctx context.Context, tx *transaction.Transaction) (*Record, error) {
	if math.IsNaN(tx.Amount) || math.IsInf(tx.Amount, 0) {
		return nil, fmt.Errorf("%w: amount is not a number", ErrInvalidAmount)
	}
	if tx.Amount < 0 {
		return nil, fmt.Errorf("%w: amount must be >= 0, got %.2f", ErrInvalidAmount, tx.Amount)
	}

	rec := NewRecord()

	for _, name := range b.spec.NumericFeatures() {
		switch name {
		case FeatureHour:
			rec.Numeric[name] = float64(tx.OccurredAt.UTC().Hour())
		case FeatureAmount:
			rec.Numeric[name] = tx.Amount
		case FeatureIsOnline:
			if tx.IsOnline {
				rec.Numeric[name] = 1.0
			} else {
				rec.Numeric[name] = 0.0
			}
		case FeatureMerchantTx24h:
			count, err := b.aggs.CountByMerchant(ctx, tx.MerchantName, tx.OccurredAt, MerchantWindow)
			if err != nil {
				return nil, fmt.Errorf("%w: merchant 24h count for %q: %w", ErrAggregatesUnavailable, tx.MerchantName, err)
			}
			rec.Numeric[name] = float64(count)
		case FeatureCategoryAvg7d:
			avg, err := b.aggs.AvgAmountByCategory(ctx, tx.MerchantCategory, tx.OccurredAt, CategoryWindow)
			if err != nil {
				return nil, fmt.Errorf("%w: category 7d average for %q: %w", ErrAggregatesUnavailable, tx.MerchantCategory, err)
			}
			rec.Numeric[name] = avg
		}
	}

	for _, cat := range b.spec.CategoricalFeatures() {
		switch cat.Name {
		case FeatureCategory:
			rec.Categorical[cat.Name] = normalize(tx.MerchantCategory)
		case FeatureChannel:
			rec.Categorical[cat.Name] = normalize(tx.Channel)
		case FeatureZone:
			rec.Categorical[cat.Name] = normalize(tx.Arrondissement)
		}
	}

	if err := b.checkComplete(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// checkComplete verifies every declared feature was populated. A spec
// naming a feature the builder does not know how to compute surfaces here
// instead of as a silently misaligned vector.
func (b *Builder) checkComplete(rec *Record) error {
	var missing []string
	for _, name := range b.spec.NumericFeatures() {
		if _, ok := rec.Numeric[name]; !ok {
			missing = append(missing, name)
		}
	}
	for _, cat := range b.spec.CategoricalFeatures() {
		if _, ok := rec.Categorical[cat.Name]; !ok {
			missing = append(missing, cat.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: spec %s declares features the builder did not populate: %s",
			ErrIncompleteFeatureRecord, b.spec.Version(), strings.Join(missing, ", "))
	}
	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
