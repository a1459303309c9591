package scoring

import (
	"testing"

	"github.com/sentinelai/sentinel/internal/feature"
)

func recordWith(numeric map[string]float64, categorical map[string]string) *feature.Record {
	rec := feature.NewRecord()
	for k, v := range numeric {
		rec.Numeric[k] = v
	}
	for k, v := range categorical {
		rec.Categorical[k] = v
	}
	return rec
}

func TestRuleScorerBaseScore(t *testing.T) {
	s := NewRuleScorer(DefaultRules(DefaultHighRiskCategories, DefaultHighRiskZones)...)

	// Daytime grocery card payment with no history triggers nothing.
	rec := recordWith(
		map[string]float64{
			feature.FeatureHour:          14,
			feature.FeatureAmount:        24.90,
			feature.FeatureIsOnline:      0,
			feature.FeatureMerchantTx24h: 0,
			feature.FeatureCategoryAvg7d: 0,
		},
		map[string]string{
			feature.FeatureCategory: "grocery",
			feature.FeatureChannel:  "card",
			feature.FeatureZone:     "paris 11e",
		},
	)

	score, factors, err := s.Score(rec, nil)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 10 {
		t.Errorf("score = %d, want base 10", score)
	}
	if len(factors) != 0 {
		t.Errorf("factors = %v, want none", factors)
	}
}

func TestAmountTiers(t *testing.T) {
	tests := []struct {
		amount float64
		delta  int
	}{
		{59.99, 0},
		{60, 10},
		{119.99, 10},
		{120, 20},
		{199.99, 20},
		{200, 35},
		{2599.99, 35},
	}

	rule := &AmountTierRule{}
	for _, tt := range tests {
		rec := recordWith(map[string]float64{feature.FeatureAmount: tt.amount}, nil)
		hit := rule.Evaluate(rec)
		got := 0
		if hit != nil {
			got = hit.Delta
		}
		if got != tt.delta {
			t.Errorf("amount %.2f: delta = %d, want %d", tt.amount, got, tt.delta)
		}
	}
}

func TestUnusualHour(t *testing.T) {
	tests := []struct {
		hour  float64
		delta int
	}{
		{0, 20},
		{2, 20},
		{5, 20},
		{6, 10},
		{7, 10},
		{8, 0},
		{14, 0},
		{23, 0},
	}

	rule := &UnusualHourRule{}
	for _, tt := range tests {
		rec := recordWith(map[string]float64{feature.FeatureHour: tt.hour}, nil)
		hit := rule.Evaluate(rec)
		got := 0
		if hit != nil {
			got = hit.Delta
		}
		if got != tt.delta {
			t.Errorf("hour %.0f: delta = %d, want %d", tt.hour, got, tt.delta)
		}
	}
}

func TestHighRiskCategoryCaseInsensitive(t *testing.T) {
	rule := NewHighRiskCategoryRule([]string{"Electronics", "HOTEL"})

	rec := recordWith(nil, map[string]string{feature.FeatureCategory: "electronics"})
	if rule.Evaluate(rec) == nil {
		t.Error("expected hit for electronics")
	}

	rec = recordWith(nil, map[string]string{feature.FeatureCategory: "grocery"})
	if rule.Evaluate(rec) != nil {
		t.Error("unexpected hit for grocery")
	}

	// Empty category never matches, even against a weird list.
	rec = recordWith(nil, map[string]string{feature.FeatureCategory: ""})
	if rule.Evaluate(rec) != nil {
		t.Error("unexpected hit for empty category")
	}
}

func TestMerchantBurst(t *testing.T) {
	tests := []struct {
		count float64
		delta int
	}{
		{0, 0},
		{2, 0},
		{3, 8},
		{4, 8},
		{5, 15},
		{12, 15},
	}

	rule := &MerchantBurstRule{}
	for _, tt := range tests {
		rec := recordWith(map[string]float64{feature.FeatureMerchantTx24h: tt.count}, nil)
		hit := rule.Evaluate(rec)
		got := 0
		if hit != nil {
			got = hit.Delta
		}
		if got != tt.delta {
			t.Errorf("count %.0f: delta = %d, want %d", tt.count, got, tt.delta)
		}
	}
}

func TestCategoryDeviationSkipsColdStart(t *testing.T) {
	rule := &CategoryDeviationRule{}

	// avg 0 means no history, never a deviation.
	rec := recordWith(map[string]float64{
		feature.FeatureAmount:        500,
		feature.FeatureCategoryAvg7d: 0,
	}, nil)
	if rule.Evaluate(rec) != nil {
		t.Error("cold start must not trigger deviation")
	}

	// amount at exactly 2x the average triggers.
	rec = recordWith(map[string]float64{
		feature.FeatureAmount:        100,
		feature.FeatureCategoryAvg7d: 50,
	}, nil)
	if rule.Evaluate(rec) == nil {
		t.Error("expected hit at 2x category average")
	}

	rec = recordWith(map[string]float64{
		feature.FeatureAmount:        99,
		feature.FeatureCategoryAvg7d: 50,
	}, nil)
	if rule.Evaluate(rec) != nil {
		t.Error("unexpected hit below 2x category average")
	}
}

func TestScoreClampedAt100(t *testing.T) {
	s := NewRuleScorer(DefaultRules(DefaultHighRiskCategories, DefaultHighRiskZones)...)

	// Everything triggers: 10+35+20+10+15+10+15+10 would exceed 100.
	rec := recordWith(
		map[string]float64{
			feature.FeatureHour:          2,
			feature.FeatureAmount:        950,
			feature.FeatureIsOnline:      1,
			feature.FeatureMerchantTx24h: 6,
			feature.FeatureCategoryAvg7d: 100,
		},
		map[string]string{
			feature.FeatureCategory: "electronics",
			feature.FeatureChannel:  "online",
			feature.FeatureZone:     "saint-denis",
		},
	)

	score, factors, err := s.Score(rec, nil)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 100 {
		t.Errorf("score = %d, want clamped 100", score)
	}
	if len(factors) != maxFactors {
		t.Errorf("factors = %d, want capped at %d", len(factors), maxFactors)
	}
}

func TestFactorOrderFollowsRuleOrder(t *testing.T) {
	s := NewRuleScorer(DefaultRules(DefaultHighRiskCategories, DefaultHighRiskZones)...)

	rec := recordWith(
		map[string]float64{
			feature.FeatureHour:          3,
			feature.FeatureAmount:        250,
			feature.FeatureIsOnline:      0,
			feature.FeatureMerchantTx24h: 0,
			feature.FeatureCategoryAvg7d: 0,
		},
		map[string]string{
			feature.FeatureCategory: "grocery",
			feature.FeatureChannel:  "card",
			feature.FeatureZone:     "paris 8e",
		},
	)

	_, factors, err := s.Score(rec, nil)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	want := []string{"Very high amount (>= 200)", "Unusual hour (night)"}
	if len(factors) != 2 || factors[0] != want[0] || factors[1] != want[1] {
		t.Errorf("factors = %v, want %v", factors, want)
	}
}

func TestRuleScorerDeterministic(t *testing.T) {
	s := NewRuleScorer(DefaultRules(DefaultHighRiskCategories, DefaultHighRiskZones)...)
	rec := recordWith(
		map[string]float64{
			feature.FeatureHour:          6,
			feature.FeatureAmount:        130,
			feature.FeatureIsOnline:      1,
			feature.FeatureMerchantTx24h: 3,
			feature.FeatureCategoryAvg7d: 40,
		},
		map[string]string{
			feature.FeatureCategory: "ecommerce",
			feature.FeatureChannel:  "online",
			feature.FeatureZone:     "pantin",
		},
	)

	first, firstFactors, _ := s.Score(rec, nil)
	for i := 0; i < 10; i++ {
		score, factors, err := s.Score(rec, nil)
		if err != nil {
			t.Fatalf("Score failed: %v", err)
		}
		if score != first {
			t.Fatalf("run %d: score %d != %d", i, score, first)
		}
		if len(factors) != len(firstFactors) {
			t.Fatalf("run %d: factor count changed", i)
		}
	}
}
