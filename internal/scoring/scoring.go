// Package scoring turns a transaction's feature record and vector into a
// risk score in [0,100], a display level, and human-readable factors.
//
// Two scorer strategies sit behind one interface: an additive rule engine
// over the raw feature record, and a linear model over the feature vector
// loaded from a registry artifact. The service runs both when a model is
// loaded and keeps the higher score. Every result carries the model
// version that produced it so historical scores stay interpretable.
package scoring

import (
	"context"
	"errors"
	"time"

	"github.com/sentinelai/sentinel/internal/feature"
)

// Level is the display classification of a score.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Default score thresholds. Display levels are independent of the alert
// threshold: an alert fires on score >= Alert regardless of level.
const (
	DefaultMediumThreshold = 50
	DefaultHighThreshold   = 80
	DefaultAlertThreshold  = 70
)

// ErrFeatureShapeMismatch means the feature vector's length does not match
// the scorer's expected input width. This is version skew between the
// builder/vectorizer and the scorer: a deployment bug, never tolerated.
var ErrFeatureShapeMismatch = errors.New("feature shape mismatch")

// ErrScoreNotFound is returned when no risk score exists for a transaction.
var ErrScoreNotFound = errors.New("risk score not found")

// Thresholds groups the configurable score cutoffs.
type Thresholds struct {
	Medium int // level >= MEDIUM at this score
	High   int // level >= HIGH at this score
	Alert  int // alert_required at this score
}

// DefaultThresholds returns the standard cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Medium: DefaultMediumThreshold,
		High:   DefaultHighThreshold,
		Alert:  DefaultAlertThreshold,
	}
}

// LevelFor classifies a score. Boundaries are inclusive on the upper
// side: Medium-1 is LOW, Medium is MEDIUM, High is HIGH.
func (t Thresholds) LevelFor(score int) Level {
	switch {
	case score >= t.High:
		return LevelHigh
	case score >= t.Medium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Scorer produces a score in [0,100] and ordered explanatory factors from
// a feature record and its vectorized form.
type Scorer interface {
	Score(rec *feature.Record, vec []float64) (score int, factors []string, err error)
	Version() string
}

// Result is the outcome of scoring one transaction.
type Result struct {
	TransactionID string   `json:"transactionId"`
	RiskScoreID   string   `json:"riskScoreId"`
	Score         int      `json:"score"`
	Level         Level    `json:"level"`
	Factors       []string `json:"factors"`
	ModelVersion  string   `json:"modelVersion"`
	AlertRequired bool     `json:"alertRequired"`
	Reason        string   `json:"reason,omitempty"`
}

// RiskScore is the persisted scoring record. One row per transaction;
// rescoring replaces the row (and stamps a fresh created_at).
type RiskScore struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transactionId"`
	Score         int       `json:"score"`
	ModelVersion  string    `json:"modelVersion"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Store persists risk scores.
type Store interface {
	// Upsert inserts or replaces the score for rs.TransactionID and
	// returns the stored row (the ID is stable across rescores).
	Upsert(ctx context.Context, rs *RiskScore) (*RiskScore, error)
	GetByTransaction(ctx context.Context, txID string) (*RiskScore, error)
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
