package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sentinelai/sentinel/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:            "0",
		Env:             "development",
		LogLevel:        "error",
		LogFormat:       "text",
		AlertThreshold:  config.DefaultAlertThreshold,
		MediumThreshold: config.DefaultMediumThreshold,
		HighThreshold:   config.DefaultHighThreshold,
		RateLimitRPM:    10000,
	}
}

// newTestServer creates a server with in-memory stores
func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

// ---------------------------------------------------------------------------
// Health endpoint tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}
}

func TestLivenessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/live", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/ready", nil)
	s.router.ServeHTTP(w, req)

	// Server hasn't called Run() so ready is false
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 (not ready), got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Route registration tests
// ---------------------------------------------------------------------------

func TestCoreRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := s.router.Routes()
	expected := []string{
		"GET:/health",
		"GET:/health/live",
		"GET:/health/ready",
		"GET:/metrics",
		"GET:/ws",
		"POST:/v1/transactions",
		"GET:/v1/transactions",
		"GET:/v1/transactions/:id",
		"POST:/v1/score",
		"GET:/v1/transactions/:id/score",
		"GET:/v1/alerts",
		"GET:/v1/alerts/:id",
		"GET:/v1/alerts/:id/events",
		"PATCH:/v1/alerts/:id/status",
		"GET:/v1/dashboard/summary",
		"GET:/v1/model",
	}

	routeSet := make(map[string]bool)
	for _, route := range routes {
		routeSet[route.Method+":"+route.Path] = true
	}

	for _, e := range expected {
		if !routeSet[e] {
			t.Errorf("Route %s not registered", e)
		}
	}
}

// ---------------------------------------------------------------------------
// End-to-end flow: ingest, score, alert, review
// ---------------------------------------------------------------------------

func TestIngestScoreAlertFlow(t *testing.T) {
	s := newTestServer(t)

	// Ingest a transaction risky enough to cross the alert threshold:
	// large amount, high-risk category, high-risk zone, night hour.
	occurred := time.Date(2025, 3, 10, 2, 30, 0, 0, time.UTC).Format(time.RFC3339)
	body := fmt.Sprintf(`{
		"amount": 2599.99,
		"currency": "eur",
		"occurredAt": %q,
		"merchantName": "TechWorld",
		"merchantCategory": "electronics",
		"arrondissement": "saint-denis",
		"channel": "online"
	}`, occurred)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var tx map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &tx); err != nil {
		t.Fatalf("Failed to parse transaction: %v", err)
	}
	txID, _ := tx["id"].(string)
	if txID == "" {
		t.Fatal("Expected transaction id in response")
	}

	// Score it
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/v1/score", strings.NewReader(fmt.Sprintf(`{"transactionId":%q}`, txID)))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from score, got %d: %s", w.Code, w.Body.String())
	}

	var res map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("Failed to parse score result: %v", err)
	}
	if res["alertRequired"] != true {
		t.Fatalf("Expected alertRequired=true, got %v (score %v)", res["alertRequired"], res["score"])
	}
	if res["level"] != "HIGH" {
		t.Errorf("Expected level HIGH, got %v", res["level"])
	}

	// Score is retrievable
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/v1/transactions/"+txID+"/score", nil)
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 fetching score, got %d", w.Code)
	}

	// An alert was opened for the transaction
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/v1/alerts", nil)
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 listing alerts, got %d", w.Code)
	}

	var list map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("Failed to parse alert list: %v", err)
	}
	alerts, _ := list["alerts"].([]interface{})
	if len(alerts) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(alerts))
	}
	first, _ := alerts[0].(map[string]interface{})
	if first["transactionId"] != txID {
		t.Errorf("Alert references transaction %v, want %s", first["transactionId"], txID)
	}
	if first["status"] != "TO_PROCESS" {
		t.Errorf("Expected new alert in TO_PROCESS, got %v", first["status"])
	}

	// Rescoring the same transaction must not open a second alert
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/v1/score", strings.NewReader(fmt.Sprintf(`{"transactionId":%q}`, txID)))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from rescore, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/v1/alerts", nil)
	s.router.ServeHTTP(w, req)
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	alerts, _ = list["alerts"].([]interface{})
	if len(alerts) != 1 {
		t.Errorf("Expected still 1 alert after rescore, got %d", len(alerts))
	}
}

func TestScoreUnknownTransaction(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/score", strings.NewReader(`{"transactionId":"txn_missing"}`))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// API key enforcement
// ---------------------------------------------------------------------------

func TestAPIKeyProtection(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = "secret-key"
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	// v1 routes require the key
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/alerts", nil)
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/v1/alerts", nil)
	req.Header.Set("X-API-Key", "secret-key")
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with key, got %d", w.Code)
	}

	// Health stays open
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for health without key, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Misc
// ---------------------------------------------------------------------------

func TestModelInfoEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/model", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["modelVersion"] == nil || resp["modelVersion"] == "" {
		t.Error("Expected modelVersion in response")
	}
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header on response")
	}

	// Upstream-provided IDs are preserved
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "req-upstream-1")
	s.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "req-upstream-1" {
		t.Errorf("Expected upstream request ID preserved, got %q", got)
	}
}

func TestNotFoundRoute(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/nonexistent", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
