package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore persists transactions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed transaction store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, tx *Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, occurred_at, amount, currency, merchant_name, merchant_category,
			 arrondissement, channel, is_online, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		tx.ID,
		tx.OccurredAt,
		tx.Amount,
		tx.Currency,
		tx.MerchantName,
		tx.MerchantCategory,
		tx.Arrondissement,
		tx.Channel,
		tx.IsOnline,
		tx.Description,
		tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, occurred_at, amount, currency, merchant_name, merchant_category,
		       arrondissement, channel, is_online, COALESCE(description, ''), created_at
		FROM transactions
		WHERE id = $1
	`, id)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int, before time.Time) ([]*Transaction, error) {
	if before.IsZero() {
		before = time.Now()
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, occurred_at, amount, currency, merchant_name, merchant_category,
		       arrondissement, channel, is_online, COALESCE(description, ''), created_at
		FROM transactions
		WHERE occurred_at < $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

// CountByMerchant counts this merchant's transactions in the half-open
// window (end-window, end). The strict upper bound keeps the read
// point-in-time consistent: nothing at or after `end` is visible.
func (s *PostgresStore) CountByMerchant(ctx context.Context, merchant string, end time.Time, window time.Duration) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM transactions
		WHERE LOWER(merchant_name) = LOWER($1)
		  AND occurred_at > $2
		  AND occurred_at < $3
	`, merchant, end.Add(-window), end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count merchant transactions: %w", err)
	}
	return count, nil
}

// AvgAmountByCategory averages amounts for a category in the half-open
// window (end-window, end). Returns (0, nil) when no rows match.
func (s *PostgresStore) AvgAmountByCategory(ctx context.Context, category string, end time.Time, window time.Duration) (float64, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT AVG(amount)
		FROM transactions
		WHERE LOWER(merchant_category) = LOWER($1)
		  AND occurred_at > $2
		  AND occurred_at < $3
	`, category, end.Add(-window), end).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to average category amounts: %w", err)
	}
	if !avg.Valid {
		return 0, nil // cold start
	}
	return avg.Float64, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*Transaction, error) {
	var tx Transaction
	err := row.Scan(
		&tx.ID,
		&tx.OccurredAt,
		&tx.Amount,
		&tx.Currency,
		&tx.MerchantName,
		&tx.MerchantCategory,
		&tx.Arrondissement,
		&tx.Channel,
		&tx.IsOnline,
		&tx.Description,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
