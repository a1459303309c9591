package scoring

import (
	"fmt"
	"strings"

	"github.com/sentinelai/sentinel/internal/feature"
)

// RuleVersion tags scores produced by the rule engine alone.
const RuleVersion = "rules_v1"

const (
	baseScore  = 10
	maxFactors = 5
)

// Hit is a triggered rule's contribution: a bounded point delta and one
// human-readable factor string.
type Hit struct {
	Delta  int
	Factor string
}

// Rule evaluates one risk signal against a feature record. Returns nil
// when the rule does not trigger. Rules must be pure: same record, same
// hit, every time.
type Rule interface {
	Name() string
	Evaluate(rec *feature.Record) *Hit
}

// RuleScorer is an additive rule engine. Rule order is fixed at
// construction and determines factor order in the output.
type RuleScorer struct {
	rules []Rule
}

// NewRuleScorer creates a rule engine with the given rules, in order.
func NewRuleScorer(rules ...Rule) *RuleScorer {
	return &RuleScorer{rules: rules}
}

// DefaultRules returns the built-in rule set in its canonical order.
// Category and zone lists are matched case-insensitively.
func DefaultRules(highRiskCategories, highRiskZones []string) []Rule {
	return []Rule{
		&AmountTierRule{},
		&UnusualHourRule{},
		&OnlineChannelRule{},
		NewHighRiskCategoryRule(highRiskCategories),
		NewSensitiveZoneRule(highRiskZones),
		&MerchantBurstRule{},
		&CategoryDeviationRule{},
	}
}

// DefaultHighRiskCategories and DefaultHighRiskZones seed the two
// list-driven rules when config provides nothing.
var (
	DefaultHighRiskCategories = []string{"ecommerce", "electronics", "hotel"}
	DefaultHighRiskZones      = []string{"saint-denis", "aubervilliers", "montreuil"}
)

func (s *RuleScorer) Version() string { return RuleVersion }

// Score sums the base score and every triggered rule's delta, clamps to
// [0,100], and returns at most maxFactors factor strings in rule order.
func (s *RuleScorer) Score(rec *feature.Record, _ []float64) (int, []string, error) {
	score := baseScore
	factors := []string{}
	for _, rule := range s.rules {
		hit := rule.Evaluate(rec)
		if hit == nil {
			continue
		}
		score += hit.Delta
		if len(factors) < maxFactors {
			factors = append(factors, hit.Factor)
		}
	}
	return clamp(score), factors, nil
}

// AmountTierRule scores the raw amount in simple tiers.
type AmountTierRule struct{}

func (r *AmountTierRule) Name() string { return "amount_tier" }

func (r *AmountTierRule) Evaluate(rec *feature.Record) *Hit {
	amount := rec.Num(feature.FeatureAmount)
	switch {
	case amount >= 200:
		return &Hit{Delta: 35, Factor: "Very high amount (>= 200)"}
	case amount >= 120:
		return &Hit{Delta: 20, Factor: "High amount (>= 120)"}
	case amount >= 60:
		return &Hit{Delta: 10, Factor: "Above-average amount (>= 60)"}
	}
	return nil
}

// UnusualHourRule flags night and early-morning transactions (UTC hour,
// matching the feature contract).
type UnusualHourRule struct{}

func (r *UnusualHourRule) Name() string { return "unusual_hour" }

func (r *UnusualHourRule) Evaluate(rec *feature.Record) *Hit {
	hour := int(rec.Num(feature.FeatureHour))
	switch {
	case hour <= 5:
		return &Hit{Delta: 20, Factor: "Unusual hour (night)"}
	case hour <= 7:
		return &Hit{Delta: 10, Factor: "Early morning hour"}
	}
	return nil
}

// OnlineChannelRule adds a fixed delta for card-not-present transactions.
type OnlineChannelRule struct{}

func (r *OnlineChannelRule) Name() string { return "online_channel" }

func (r *OnlineChannelRule) Evaluate(rec *feature.Record) *Hit {
	if rec.Num(feature.FeatureIsOnline) >= 1.0 {
		return &Hit{Delta: 10, Factor: "Online transaction"}
	}
	return nil
}

// HighRiskCategoryRule flags merchant categories with elevated fraud rates.
type HighRiskCategoryRule struct {
	categories map[string]bool
}

// NewHighRiskCategoryRule builds the rule from a category list.
func NewHighRiskCategoryRule(categories []string) *HighRiskCategoryRule {
	return &HighRiskCategoryRule{categories: toSet(categories)}
}

func (r *HighRiskCategoryRule) Name() string { return "high_risk_category" }

func (r *HighRiskCategoryRule) Evaluate(rec *feature.Record) *Hit {
	category := rec.Cat(feature.FeatureCategory)
	if category != "" && r.categories[category] {
		return &Hit{Delta: 15, Factor: fmt.Sprintf("High-risk category (%s)", category)}
	}
	return nil
}

// SensitiveZoneRule is a coarse geographic proxy over the zone code.
type SensitiveZoneRule struct {
	zones map[string]bool
}

// NewSensitiveZoneRule builds the rule from a zone list.
func NewSensitiveZoneRule(zones []string) *SensitiveZoneRule {
	return &SensitiveZoneRule{zones: toSet(zones)}
}

func (r *SensitiveZoneRule) Name() string { return "sensitive_zone" }

func (r *SensitiveZoneRule) Evaluate(rec *feature.Record) *Hit {
	zone := rec.Cat(feature.FeatureZone)
	if zone != "" && r.zones[zone] {
		return &Hit{Delta: 10, Factor: "Sensitive zone"}
	}
	return nil
}

// MerchantBurstRule flags repeated transactions at the same merchant
// inside the trailing 24h window.
type MerchantBurstRule struct{}

func (r *MerchantBurstRule) Name() string { return "merchant_burst" }

func (r *MerchantBurstRule) Evaluate(rec *feature.Record) *Hit {
	count := int(rec.Num(feature.FeatureMerchantTx24h))
	switch {
	case count >= 5:
		return &Hit{Delta: 15, Factor: "High merchant frequency (>= 5 tx/24h)"}
	case count >= 3:
		return &Hit{Delta: 8, Factor: "Moderate merchant frequency (>= 3 tx/24h)"}
	}
	return nil
}

// CategoryDeviationRule compares the amount against the category's 7-day
// average. Skips cold starts (average 0): no history is not a deviation.
type CategoryDeviationRule struct{}

func (r *CategoryDeviationRule) Name() string { return "category_deviation" }

func (r *CategoryDeviationRule) Evaluate(rec *feature.Record) *Hit {
	avg := rec.Num(feature.FeatureCategoryAvg7d)
	if avg <= 0 {
		return nil
	}
	if rec.Num(feature.FeatureAmount) >= 2.0*avg {
		return &Hit{Delta: 10, Factor: "Amount well above category 7-day average"}
	}
	return nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return set
}
