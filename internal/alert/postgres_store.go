package alert

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PostgresStore persists alerts and audit events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed alert store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, a *Alert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts
			(id, transaction_id, risk_score_id, score, reason, status, comment,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		a.ID,
		a.TransactionID,
		a.RiskScoreID,
		a.Score,
		a.Reason,
		a.Status,
		a.Comment,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Alert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, risk_score_id, score, reason, status,
		       COALESCE(comment, ''), created_at, updated_at
		FROM alerts
		WHERE id = $1
	`, id)

	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) GetOpenByTransaction(ctx context.Context, txID string) (*Alert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, risk_score_id, score, reason, status,
		       COALESCE(comment, ''), created_at, updated_at
		FROM alerts
		WHERE transaction_id = $1 AND status <> $2
		ORDER BY created_at DESC
		LIMIT 1
	`, txID, StatusClosed)

	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open alert: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*Alert, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, transaction_id, risk_score_id, score, reason, status,
		       COALESCE(comment, ''), created_at, updated_at
		FROM alerts
	`)

	var args []any
	var where []string
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if f.MinScore > 0 {
		args = append(args, f.MinScore)
		where = append(where, "score >= $"+strconv.Itoa(len(args)))
	}
	if len(where) > 0 {
		query.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	query.WriteString(" ORDER BY score DESC, created_at DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, a *Alert) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts
		SET status = $2, comment = $3, updated_at = $4
		WHERE id = $1
	`, a.ID, a.Status, a.Comment, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_events
			(id, alert_id, event_type, old_status, new_status, actor, message,
			 request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		e.ID,
		e.AlertID,
		e.EventType,
		string(e.OldStatus),
		e.NewStatus,
		e.Actor,
		e.Message,
		e.RequestID,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, alertID string) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, alert_id, event_type, COALESCE(old_status, ''), new_status,
		       actor, COALESCE(message, ''), COALESCE(request_id, ''), created_at
		FROM alert_events
		WHERE alert_id = $1
		ORDER BY created_at ASC
	`, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Event
	for rows.Next() {
		var e Event
		var oldStatus string
		err := rows.Scan(
			&e.ID,
			&e.AlertID,
			&e.EventType,
			&oldStatus,
			&e.NewStatus,
			&e.Actor,
			&e.Message,
			&e.RequestID,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert event: %w", err)
		}
		e.OldStatus = Status(oldStatus)
		result = append(result, &e)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*Alert, error) {
	var a Alert
	err := row.Scan(
		&a.ID,
		&a.TransactionID,
		&a.RiskScoreID,
		&a.Score,
		&a.Reason,
		&a.Status,
		&a.Comment,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
