package scoring

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sentinelai/sentinel/internal/feature"
	"github.com/sentinelai/sentinel/internal/logging"
	"github.com/sentinelai/sentinel/internal/transaction"
)

// AlertSink opens a review alert for a result that crossed the alert
// threshold. The alert manager satisfies this.
type AlertSink interface {
	OpenAlert(ctx context.Context, res Result) error
}

// Publisher pushes scoring events to connected clients. The realtime hub
// satisfies this.
type Publisher interface {
	Publish(eventType string, data any)
}

// transactionGetter is the slice of transaction.Store the handler needs.
type transactionGetter interface {
	Get(ctx context.Context, id string) (*transaction.Transaction, error)
}

// Handler provides HTTP endpoints for scoring.
type Handler struct {
	svc    *Service
	store  Store
	txs    transactionGetter
	alerts AlertSink // nil = no alerting
	pub    Publisher // nil = no realtime broadcast
	logger *slog.Logger
}

// NewHandler creates a scoring handler. alerts and pub may be nil.
func NewHandler(svc *Service, store Store, txs transactionGetter, alerts AlertSink, pub Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		store:  store,
		txs:    txs,
		alerts: alerts,
		pub:    pub,
		logger: logger,
	}
}

// RegisterRoutes sets up scoring routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/score", h.Score)
	r.GET("/transactions/:id/score", h.GetScore)
}

// ScoreRequest identifies the transaction to score.
type ScoreRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
}

// Score handles POST /score. Scoring is deterministic: repeating the call
// with unchanged history returns the same score and replaces the stored
// row under the same risk score id.
func (h *Handler) Score(c *gin.Context) {
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "transactionId is required",
		})
		return
	}

	ctx := c.Request.Context()

	tx, err := h.txs.Get(ctx, req.TransactionID)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "transaction_not_found",
				"message": "No transaction with that id",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "transaction_error",
			"message": "Failed to load transaction",
		})
		return
	}

	res, err := h.svc.ScoreTransaction(ctx, tx)
	if err != nil {
		h.respondScoringError(c, err)
		return
	}

	if res.AlertRequired && h.alerts != nil {
		// The score is already persisted; a failed alert write must not
		// discard it. The response still carries alertRequired.
		if err := h.alerts.OpenAlert(ctx, *res); err != nil {
			logging.L(ctx).Error("alert creation failed",
				"transaction_id", res.TransactionID,
				"score", res.Score,
				"error", err)
		}
	}

	if h.pub != nil {
		h.pub.Publish("transaction_scored", map[string]any{
			"transactionId": res.TransactionID,
			"score":         res.Score,
			"level":         string(res.Level),
			"factors":       res.Factors,
			"modelVersion":  res.ModelVersion,
			"alertRequired": res.AlertRequired,
		})
	}

	c.JSON(http.StatusOK, res)
}

// GetScore handles GET /transactions/:id/score
func (h *Handler) GetScore(c *gin.Context) {
	rs, err := h.store.GetByTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrScoreNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "score_not_found",
				"message": "Transaction has not been scored",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "score_error",
			"message": "Failed to load risk score",
		})
		return
	}
	c.JSON(http.StatusOK, rs)
}

// respondScoringError maps pipeline errors to HTTP statuses. Invalid input
// is the caller's fault; aggregate store failures are retryable; anything
// else is a server defect.
func (h *Handler) respondScoringError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, feature.ErrInvalidAmount), errors.Is(err, transaction.ErrInvalidTransaction):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_transaction",
			"message": err.Error(),
		})
	case errors.Is(err, feature.ErrAggregatesUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "aggregates_unavailable",
			"message": "Aggregate lookups are temporarily unavailable, retry later",
		})
	default:
		h.logger.Error("scoring failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "scoring_error",
			"message": "Failed to score transaction",
		})
	}
}
