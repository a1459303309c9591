// Package alert manages the review lifecycle of high-risk transactions.
//
// An alert is opened when a scored transaction crosses the alert threshold
// and carries an immutable snapshot of the score that triggered it. Analysts
// move it through TO_PROCESS -> UNDER_INVESTIGATION -> CLOSED; every change
// is recorded as an audit event with the acting user and request id.
package alert

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of an alert.
type Status string

const (
	StatusToProcess          Status = "TO_PROCESS"
	StatusUnderInvestigation Status = "UNDER_INVESTIGATION"
	StatusClosed             Status = "CLOSED"
)

// Audit event types written to alert_events.
const (
	EventCreated       = "CREATED"
	EventStatusChanged = "STATUS_CHANGED"
)

var (
	ErrNotFound          = errors.New("alert not found")
	ErrUnknownStatus     = errors.New("unknown alert status")
	ErrInvalidTransition = errors.New("invalid alert status transition")
	ErrCommentRequired   = errors.New("closing an alert requires a comment")
)

// ParseStatus validates a caller-supplied status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusToProcess, StatusUnderInvestigation, StatusClosed:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// CanTransition reports whether moving from one status to another is legal.
// The lifecycle only moves forward; CLOSED is terminal.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusToProcess:
		return to == StatusUnderInvestigation || to == StatusClosed
	case StatusUnderInvestigation:
		return to == StatusClosed
	default:
		return false
	}
}

// Alert is an open review item for a high-risk transaction. Score and
// Reason are snapshots taken at creation and never updated, so the alert
// records why it fired even if the transaction is later rescored.
type Alert struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transactionId"`
	RiskScoreID   string    `json:"riskScoreId"`
	Score         int       `json:"score"`
	Reason        string    `json:"reason"`
	Status        Status    `json:"status"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Event is one audit row for an alert.
type Event struct {
	ID        string    `json:"id"`
	AlertID   string    `json:"alertId"`
	EventType string    `json:"eventType"`
	OldStatus Status    `json:"oldStatus,omitempty"`
	NewStatus Status    `json:"newStatus"`
	Actor     string    `json:"actor"`
	Message   string    `json:"message,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Status   Status
	MinScore int
	Limit    int
}

// Store persists alerts and their audit trail.
type Store interface {
	Create(ctx context.Context, a *Alert) error
	Get(ctx context.Context, id string) (*Alert, error)
	// GetOpenByTransaction returns the newest non-CLOSED alert for a
	// transaction, or ErrNotFound.
	GetOpenByTransaction(ctx context.Context, txID string) (*Alert, error)
	// List returns alerts sorted by score descending, then created_at
	// descending (hottest first).
	List(ctx context.Context, f Filter) ([]*Alert, error)
	// Update persists status, comment and updated_at. Score and reason
	// are never touched after creation.
	Update(ctx context.Context, a *Alert) error
	AppendEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, alertID string) ([]*Event, error)
}
