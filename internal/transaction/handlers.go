package transaction

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sentinelai/sentinel/internal/idgen"
	"github.com/sentinelai/sentinel/internal/logging"
	"github.com/sentinelai/sentinel/internal/metrics"
	"github.com/sentinelai/sentinel/internal/pagination"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handler provides HTTP endpoints for transaction ingestion and reads.
type Handler struct {
	store  Store
	logger *slog.Logger
}

// NewHandler creates a new transaction handler.
func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes sets up transaction routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/transactions", h.Create)
	r.GET("/transactions", h.List)
	r.GET("/transactions/:id", h.Get)
}

// CreateRequest is the ingestion payload. ID and created_at are assigned
// server-side.
type CreateRequest struct {
	OccurredAt       time.Time `json:"occurredAt" binding:"required"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency" binding:"required"`
	MerchantName     string    `json:"merchantName" binding:"required"`
	MerchantCategory string    `json:"merchantCategory" binding:"required"`
	Arrondissement   string    `json:"arrondissement"`
	Channel          string    `json:"channel" binding:"required"`
	IsOnline         bool      `json:"isOnline"`
	Description      string    `json:"description"`
}

// Create handles POST /transactions
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	channel := strings.TrimSpace(req.Channel)
	tx := &Transaction{
		ID:               idgen.WithPrefix("txn_"),
		OccurredAt:       req.OccurredAt.UTC(),
		Amount:           req.Amount,
		Currency:         strings.ToUpper(strings.TrimSpace(req.Currency)),
		MerchantName:     strings.TrimSpace(req.MerchantName),
		MerchantCategory: strings.TrimSpace(req.MerchantCategory),
		Arrondissement:   strings.TrimSpace(req.Arrondissement),
		Channel:          channel,
		IsOnline:         req.IsOnline || strings.EqualFold(channel, "online"),
		Description:      req.Description,
		CreatedAt:        time.Now().UTC(),
	}

	if err := tx.Validate(); err != nil {
		code := "invalid_transaction"
		if errors.Is(err, ErrInvalidAmount) {
			code = "invalid_amount"
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   code,
			"message": err.Error(),
		})
		return
	}

	if err := h.store.Create(c.Request.Context(), tx); err != nil {
		h.logger.Error("transaction insert failed", "transaction_id", tx.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "transaction_error",
			"message": "Failed to store transaction",
		})
		return
	}

	metrics.TransactionsIngestedTotal.Inc()
	logging.L(c.Request.Context()).Info("transaction ingested",
		"transaction_id", tx.ID,
		"merchant", tx.MerchantName,
		"amount", tx.Amount)

	c.JSON(http.StatusCreated, tx)
}

// Get handles GET /transactions/:id
func (h *Handler) Get(c *gin.Context) {
	tx, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
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
	c.JSON(http.StatusOK, tx)
}

// List handles GET /transactions?limit=&cursor=
// Results are ordered by occurred_at descending; the cursor encodes the
// last row's occurred_at and id.
func (h *Handler) List(c *gin.Context) {
	limit := defaultPageSize
	if ls := c.Query("limit"); ls != "" {
		n, err := strconv.Atoi(ls)
		if err != nil || n <= 0 || n > maxPageSize {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be an integer in [1,100]",
			})
			return
		}
		limit = n
	}

	var before time.Time
	cur, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_cursor",
			"message": "Malformed pagination cursor",
		})
		return
	}
	if cur != nil {
		before = cur.Timestamp
	}

	// limit+1 to learn whether another page exists
	txs, err := h.store.List(c.Request.Context(), limit+1, before)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "transaction_error",
			"message": "Failed to list transactions",
		})
		return
	}

	page, next, hasMore := pagination.ComputePage(txs, limit, func(tx *Transaction) (time.Time, string) {
		return tx.OccurredAt, tx.ID
	})
	if page == nil {
		page = []*Transaction{}
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": page,
		"count":        len(page),
		"nextCursor":   next,
		"hasMore":      hasMore,
	})
}
