// Package client is a Go client for the Sentinel HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sentinelai/sentinel/internal/alert"
	"github.com/sentinelai/sentinel/internal/dashboard"
	"github.com/sentinelai/sentinel/internal/scoring"
	"github.com/sentinelai/sentinel/internal/transaction"
)

// Client talks to a Sentinel server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithAPIKey sets the X-API-Key header on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the given base URL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sentinel: %s (%s, HTTP %d)", e.Message, e.Code, e.StatusCode)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = resp.Status
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// TransactionRequest is the ingestion payload.
type TransactionRequest struct {
	OccurredAt       time.Time `json:"occurredAt"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	MerchantName     string    `json:"merchantName"`
	MerchantCategory string    `json:"merchantCategory"`
	Arrondissement   string    `json:"arrondissement,omitempty"`
	Channel          string    `json:"channel"`
	IsOnline         bool      `json:"isOnline,omitempty"`
	Description      string    `json:"description,omitempty"`
}

// CreateTransaction ingests a transaction.
func (c *Client) CreateTransaction(ctx context.Context, req TransactionRequest) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	if err := c.do(ctx, http.MethodPost, "/v1/transactions", req, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransaction fetches one transaction by id.
func (c *Client) GetTransaction(ctx context.Context, id string) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	if err := c.do(ctx, http.MethodGet, "/v1/transactions/"+url.PathEscape(id), nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Score scores a transaction and returns the result.
func (c *Client) Score(ctx context.Context, transactionID string) (*scoring.Result, error) {
	var res scoring.Result
	body := map[string]string{"transactionId": transactionID}
	if err := c.do(ctx, http.MethodPost, "/v1/score", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetScore fetches the stored risk score for a transaction.
func (c *Client) GetScore(ctx context.Context, transactionID string) (*scoring.RiskScore, error) {
	var rs scoring.RiskScore
	path := "/v1/transactions/" + url.PathEscape(transactionID) + "/score"
	if err := c.do(ctx, http.MethodGet, path, nil, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

// AlertFilter narrows ListAlerts. Zero values mean "no filter".
type AlertFilter struct {
	Status   string
	MinScore int
	Limit    int
}

// ListAlerts returns the review queue, highest scores first.
func (c *Client) ListAlerts(ctx context.Context, filter AlertFilter) ([]alert.Alert, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.MinScore > 0 {
		q.Set("min_score", strconv.Itoa(filter.MinScore))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	path := "/v1/alerts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Alerts []alert.Alert `json:"alerts"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Alerts, nil
}

// GetAlert fetches one alert by id.
func (c *Client) GetAlert(ctx context.Context, id string) (*alert.Alert, error) {
	var a alert.Alert
	if err := c.do(ctx, http.MethodGet, "/v1/alerts/"+url.PathEscape(id), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// AlertEvents returns an alert's audit trail, oldest first.
func (c *Client) AlertEvents(ctx context.Context, id string) ([]alert.Event, error) {
	var resp struct {
		Events []alert.Event `json:"events"`
	}
	path := "/v1/alerts/" + url.PathEscape(id) + "/events"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// UpdateAlertStatus moves an alert through its lifecycle. Closing requires
// a comment; actor is recorded in the audit trail.
func (c *Client) UpdateAlertStatus(ctx context.Context, id, status, comment, actor string) (*alert.Alert, error) {
	body := map[string]string{"status": status}
	if comment != "" {
		body["comment"] = comment
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		c.baseURL+"/v1/alerts/"+url.PathEscape(id)+"/status", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if actor != "" {
		req.Header.Set("X-Actor", actor)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = resp.Status
		}
		return nil, apiErr
	}

	var a alert.Alert
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &a, nil
}

// DashboardSummary fetches the KPI summary for the trailing window.
func (c *Client) DashboardSummary(ctx context.Context, days int) (*dashboard.SummaryResponse, error) {
	path := "/v1/dashboard/summary"
	if days > 0 {
		path += "?days=" + strconv.Itoa(days)
	}
	var resp dashboard.SummaryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
