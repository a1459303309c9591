package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sentinelai/sentinel/internal/idgen"
	"github.com/sentinelai/sentinel/internal/logging"
	"github.com/sentinelai/sentinel/internal/metrics"
	"github.com/sentinelai/sentinel/internal/scoring"
	"github.com/sentinelai/sentinel/internal/traces"
)

// Publisher pushes alert events to connected clients. The realtime hub
// satisfies this.
type Publisher interface {
	Publish(eventType string, data any)
}

// Manager owns alert creation and lifecycle transitions.
type Manager struct {
	store  Store
	pub    Publisher
	logger *slog.Logger
}

// NewManager wires the manager. pub may be nil when no realtime hub runs
// (tests, the CLI scorer).
func NewManager(store Store, pub Publisher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  store,
		pub:    pub,
		logger: logging.Component(logger, "alerts"),
	}
}

// CreateFromResult opens an alert for a scoring result that crossed the
// alert threshold. If an open alert already exists for the transaction it
// is returned unchanged, so rescoring never floods the review queue.
func (m *Manager) CreateFromResult(ctx context.Context, res scoring.Result) (*Alert, error) {
	ctx, span := traces.StartSpan(ctx, "alert.create",
		traces.TransactionID(res.TransactionID),
		traces.Score(res.Score),
	)
	defer span.End()

	existing, err := m.store.GetOpenByTransaction(ctx, res.TransactionID)
	switch {
	case err == nil:
		logging.L(ctx).Debug("open alert already exists",
			"alert_id", existing.ID,
			"transaction_id", res.TransactionID)
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		// A failed dedupe read must not open a second alert for the
		// same transaction.
		return nil, fmt.Errorf("check open alert: %w", err)
	}

	now := time.Now().UTC()
	a := &Alert{
		ID:            idgen.WithPrefix("alr_"),
		TransactionID: res.TransactionID,
		RiskScoreID:   res.RiskScoreID,
		Score:         res.Score,
		Reason:        res.Reason,
		Status:        StatusToProcess,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.store.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}

	m.appendEvent(ctx, &Event{
		AlertID:   a.ID,
		EventType: EventCreated,
		NewStatus: StatusToProcess,
		Actor:     "system",
		Message:   res.Reason,
	})

	metrics.AlertsCreatedTotal.Inc()
	logging.L(ctx).Info("alert created",
		"alert_id", a.ID,
		"transaction_id", a.TransactionID,
		"score", a.Score)

	if m.pub != nil {
		m.pub.Publish("alert_created", map[string]any{
			"alertId":       a.ID,
			"transactionId": a.TransactionID,
			"score":         a.Score,
			"reason":        a.Reason,
			"status":        string(a.Status),
		})
	}
	return a, nil
}

// UpdateStatus moves an alert through its lifecycle. Closing requires a
// non-empty comment. Actor is the analyst performing the change.
func (m *Manager) UpdateStatus(ctx context.Context, id string, to Status, actor, comment string) (*Alert, error) {
	ctx, span := traces.StartSpan(ctx, "alert.update_status",
		traces.AlertID(id),
	)
	defer span.End()

	a, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(a.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
	}
	if to == StatusClosed && strings.TrimSpace(comment) == "" {
		return nil, ErrCommentRequired
	}

	from := a.Status
	a.Status = to
	if comment != "" {
		a.Comment = comment
	}
	a.UpdatedAt = time.Now().UTC()

	if err := m.store.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update alert %s: %w", id, err)
	}

	m.appendEvent(ctx, &Event{
		AlertID:   a.ID,
		EventType: EventStatusChanged,
		OldStatus: from,
		NewStatus: to,
		Actor:     actor,
		Message:   comment,
	})

	metrics.AlertTransitionsTotal.WithLabelValues(string(to)).Inc()
	logging.L(ctx).Info("alert status changed",
		"alert_id", a.ID,
		"from", from,
		"to", to,
		"actor", actor)

	if m.pub != nil {
		m.pub.Publish("alert_status_changed", map[string]any{
			"alertId":       a.ID,
			"transactionId": a.TransactionID,
			"score":         a.Score,
			"oldStatus":     string(from),
			"newStatus":     string(to),
			"actor":         actor,
		})
	}
	return a, nil
}

// OpenAlert adapts CreateFromResult to the sink interface the scoring
// handler accepts.
func (m *Manager) OpenAlert(ctx context.Context, res scoring.Result) error {
	_, err := m.CreateFromResult(ctx, res)
	return err
}

// Events returns the audit trail for an alert, oldest first.
func (m *Manager) Events(ctx context.Context, alertID string) ([]*Event, error) {
	if _, err := m.store.Get(ctx, alertID); err != nil {
		return nil, err
	}
	return m.store.ListEvents(ctx, alertID)
}

// Get returns one alert by id.
func (m *Manager) Get(ctx context.Context, id string) (*Alert, error) {
	return m.store.Get(ctx, id)
}

// List returns alerts matching the filter, hottest first.
func (m *Manager) List(ctx context.Context, f Filter) ([]*Alert, error) {
	return m.store.List(ctx, f)
}

// appendEvent stamps id, request id and created_at. Audit failures are
// logged but do not fail the operation that produced them.
func (m *Manager) appendEvent(ctx context.Context, e *Event) {
	e.ID = idgen.WithPrefix("evt_")
	e.RequestID = logging.RequestID(ctx)
	e.CreatedAt = time.Now().UTC()
	if err := m.store.AppendEvent(ctx, e); err != nil {
		logging.L(ctx).Error("append alert event failed",
			"alert_id", e.AlertID,
			"event_type", e.EventType,
			"error", err)
	}
}
