package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sentinelai/sentinel/internal/alert"
	"github.com/sentinelai/sentinel/internal/config"
	"github.com/sentinelai/sentinel/internal/server"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Port:            "0",
		Env:             "development",
		LogLevel:        "error",
		LogFormat:       "text",
		AlertThreshold:  config.DefaultAlertThreshold,
		MediumThreshold: config.DefaultMediumThreshold,
		HighThreshold:   config.DefaultHighThreshold,
		RateLimitRPM:    10000,
	}
	s, err := server.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts
}

func riskyRequest() TransactionRequest {
	return TransactionRequest{
		OccurredAt:       time.Date(2025, 3, 10, 2, 30, 0, 0, time.UTC),
		Amount:           2599.99,
		Currency:         "EUR",
		MerchantName:     "TechWorld",
		MerchantCategory: "electronics",
		Arrondissement:   "saint-denis",
		Channel:          "online",
	}
}

func TestClientFullFlow(t *testing.T) {
	ts := testServer(t)
	c := New(ts.URL)
	ctx := context.Background()

	tx, err := c.CreateTransaction(ctx, riskyRequest())
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if tx.ID == "" {
		t.Fatal("expected transaction id")
	}

	res, err := c.Score(ctx, tx.ID)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if !res.AlertRequired {
		t.Fatalf("expected alertRequired, score %d", res.Score)
	}

	rs, err := c.GetScore(ctx, tx.ID)
	if err != nil {
		t.Fatalf("GetScore failed: %v", err)
	}
	if rs.Score != res.Score {
		t.Errorf("stored score %d != result %d", rs.Score, res.Score)
	}

	alerts, err := c.ListAlerts(ctx, AlertFilter{})
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if len(alerts) != 1 || alerts[0].TransactionID != tx.ID {
		t.Fatalf("alerts = %v", alerts)
	}

	// Walk the lifecycle and check the audit trail.
	id := alerts[0].ID
	if _, err := c.UpdateAlertStatus(ctx, id, "UNDER_INVESTIGATION", "", "ana"); err != nil {
		t.Fatalf("UpdateAlertStatus failed: %v", err)
	}
	closed, err := c.UpdateAlertStatus(ctx, id, "CLOSED", "Confirmed with cardholder", "ana")
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if closed.Status != alert.StatusClosed {
		t.Errorf("status = %s, want CLOSED", closed.Status)
	}

	events, err := c.AlertEvents(ctx, id)
	if err != nil {
		t.Fatalf("AlertEvents failed: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("events = %d, want 3 (created + 2 transitions)", len(events))
	}

	summary, err := c.DashboardSummary(ctx, 7)
	if err != nil {
		t.Fatalf("DashboardSummary failed: %v", err)
	}
	if summary.KPIs.AlertsCreated != 1 {
		t.Errorf("alertsCreated = %d, want 1", summary.KPIs.AlertsCreated)
	}
}

func TestClientAPIError(t *testing.T) {
	ts := testServer(t)
	c := New(ts.URL)

	_, err := c.Score(context.Background(), "txn_missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != 404 || apiErr.Code != "transaction_not_found" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestClientSendsAPIKey(t *testing.T) {
	ts := testServer(t)

	// Server without a key ignores the header; this just exercises the path.
	c := New(ts.URL, WithAPIKey("whatever"))
	if _, err := c.ListAlerts(context.Background(), AlertFilter{Limit: 5}); err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
}
