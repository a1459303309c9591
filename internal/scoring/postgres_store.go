package scoring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore persists risk scores in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed risk score store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, rs *RiskScore) (*RiskScore, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO risk_scores (id, transaction_id, score, model_version, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (transaction_id) DO UPDATE
			SET score = EXCLUDED.score,
			    model_version = EXCLUDED.model_version,
			    created_at = EXCLUDED.created_at
		RETURNING id
	`, rs.ID, rs.TransactionID, rs.Score, rs.ModelVersion, rs.CreatedAt)

	stored := *rs
	if err := row.Scan(&stored.ID); err != nil {
		return nil, fmt.Errorf("failed to upsert risk score: %w", err)
	}
	return &stored, nil
}

func (s *PostgresStore) GetByTransaction(ctx context.Context, txID string) (*RiskScore, error) {
	var rs RiskScore
	err := s.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, score, model_version, created_at
		FROM risk_scores
		WHERE transaction_id = $1
	`, txID).Scan(&rs.ID, &rs.TransactionID, &rs.Score, &rs.ModelVersion, &rs.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get risk score: %w", err)
	}
	return &rs, nil
}
