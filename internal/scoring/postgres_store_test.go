//go:build integration

package scoring

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupTestDB(t *testing.T) (*PostgresStore, *sql.DB) {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("sentinel_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(ctr)
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := goose.Up(db, "../../migrations"); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	return NewPostgresStore(db), db
}

func seedTransactionRow(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO transactions
			(id, occurred_at, amount, currency, merchant_name, merchant_category,
			 arrondissement, channel, is_online, description, created_at)
		VALUES ($1, NOW(), 10, 'EUR', 'Monoprix', 'grocery', '', 'card', FALSE, '', NOW())
	`, id)
	if err != nil {
		t.Fatalf("seed transaction %s: %v", id, err)
	}
}

func TestPostgres_UpsertKeepsStableID(t *testing.T) {
	store, db := setupTestDB(t)
	ctx := context.Background()
	seedTransactionRow(t, db, "txn_score1")

	first, err := store.Upsert(ctx, &RiskScore{
		ID:            "rs_1",
		TransactionID: "txn_score1",
		Score:         42,
		ModelVersion:  "rules_v1",
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// Rescore under a fresh candidate ID: the row is replaced, the ID kept.
	second, err := store.Upsert(ctx, &RiskScore{
		ID:            "rs_2",
		TransactionID: "txn_score1",
		Score:         77,
		ModelVersion:  "fraud_v2",
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("re-Upsert failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("rescore changed row id: %s vs %s", second.ID, first.ID)
	}

	got, err := store.GetByTransaction(ctx, "txn_score1")
	if err != nil {
		t.Fatalf("GetByTransaction failed: %v", err)
	}
	if got.Score != 77 || got.ModelVersion != "fraud_v2" {
		t.Errorf("got %+v, want rescored row", got)
	}
}

func TestPostgres_GetByTransactionNotFound(t *testing.T) {
	store, _ := setupTestDB(t)

	_, err := store.GetByTransaction(context.Background(), "txn_never_scored")
	if !errors.Is(err, ErrScoreNotFound) {
		t.Errorf("expected ErrScoreNotFound, got %v", err)
	}
}
