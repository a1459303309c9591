// Package transaction defines the payment transaction model and its stores.
//
// A transaction is immutable once scored: ingestion validates the shape at
// the boundary and rejects anything malformed before it can reach the
// scoring pipeline. The stores double as the historical-aggregates reader
// used by feature construction (merchant frequency, category averages).
package transaction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Validation errors returned at the ingestion boundary. A rejected
// transaction is never scored and never produces a risk score or alert.
var (
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNotFound           = errors.New("transaction not found")
)

// Transaction is a single payment transaction. Fields are fixed at
// ingestion time and never mutated afterwards.
type Transaction struct {
	ID               string    `json:"id"`
	OccurredAt       time.Time `json:"occurredAt"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	MerchantName     string    `json:"merchantName"`
	MerchantCategory string    `json:"merchantCategory"`
	Arrondissement   string    `json:"arrondissement"`
	Channel          string    `json:"channel"`
	IsOnline         bool      `json:"isOnline"`
	Description      string    `json:"description,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Validate checks the transaction shape at the ingestion boundary.
// Unknown-shape input is rejected here rather than tolerated downstream.
func (t *Transaction) Validate() error {
	if t.OccurredAt.IsZero() {
		return fmt.Errorf("%w: occurred_at is required", ErrInvalidTransaction)
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return fmt.Errorf("%w: amount is not a number", ErrInvalidAmount)
	}
	if t.Amount < 0 {
		return fmt.Errorf("%w: amount must be >= 0, got %.2f", ErrInvalidAmount, t.Amount)
	}
	if strings.TrimSpace(t.MerchantName) == "" {
		return fmt.Errorf("%w: merchant_name is required", ErrInvalidTransaction)
	}
	if strings.TrimSpace(t.MerchantCategory) == "" {
		return fmt.Errorf("%w: merchant_category is required", ErrInvalidTransaction)
	}
	if strings.TrimSpace(t.Channel) == "" {
		return fmt.Errorf("%w: channel is required", ErrInvalidTransaction)
	}
	if len(t.Currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter code, got %q", ErrInvalidTransaction, t.Currency)
	}
	return nil
}

// Store persists transactions.
type Store interface {
	Create(ctx context.Context, tx *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	List(ctx context.Context, limit int, before time.Time) ([]*Transaction, error)

	Aggregates
}

// Aggregates exposes point-in-time historical reads used for feature
// construction. Both queries are bound to an "as of" instant: rows with
// occurred_at >= end are never visible, so a read taken as of a
// transaction's occurred_at cannot leak future transactions into its
// features. The window is half-open: (end-window, end). The subject
// transaction itself falls outside its own window.
//
// Cold start (no history) is a valid outcome: CountByMerchant returns 0
// and AvgAmountByCategory returns 0.0 with a nil error. A non-nil error
// means the store itself failed and must never be confused with zero
// history.
type Aggregates interface {
	CountByMerchant(ctx context.Context, merchant string, end time.Time, window time.Duration) (int, error)
	AvgAmountByCategory(ctx context.Context, category string, end time.Time, window time.Duration) (float64, error)
}
