package alert

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultListLimit = 50

// Handler provides HTTP endpoints for the alert review queue.
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler creates a new alert handler.
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// RegisterRoutes sets up alert routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/alerts", h.List)
	r.GET("/alerts/:id", h.Get)
	r.GET("/alerts/:id/events", h.ListEvents)
	r.PATCH("/alerts/:id/status", h.UpdateStatus)
}

// List handles GET /alerts?status=&min_score=&limit=
// Results are sorted by score descending, then created_at descending.
func (h *Handler) List(c *gin.Context) {
	f := Filter{Limit: defaultListLimit}

	if s := c.Query("status"); s != "" {
		status, err := ParseStatus(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_status",
				"message": "status must be TO_PROCESS, UNDER_INVESTIGATION or CLOSED",
			})
			return
		}
		f.Status = status
	}
	if ms := c.Query("min_score"); ms != "" {
		n, err := strconv.Atoi(ms)
		if err != nil || n < 0 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_min_score",
				"message": "min_score must be an integer in [0,100]",
			})
			return
		}
		f.MinScore = n
	}
	if ls := c.Query("limit"); ls != "" {
		if n, err := strconv.Atoi(ls); err == nil && n > 0 && n <= 200 {
			f.Limit = n
		}
	}

	alerts, err := h.manager.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "alert_list_error",
			"message": "Failed to list alerts",
		})
		return
	}
	if alerts == nil {
		alerts = []*Alert{}
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// Get handles GET /alerts/:id
func (h *Handler) Get(c *gin.Context) {
	a, err := h.manager.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "alert_not_found",
				"message": "No alert with that id",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "alert_error",
			"message": "Failed to load alert",
		})
		return
	}
	c.JSON(http.StatusOK, a)
}

// ListEvents handles GET /alerts/:id/events
func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.manager.Events(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "alert_not_found",
				"message": "No alert with that id",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "alert_error",
			"message": "Failed to load alert events",
		})
		return
	}
	if events == nil {
		events = []*Event{}
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

// UpdateStatusRequest for lifecycle transitions.
type UpdateStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

// UpdateStatus handles PATCH /alerts/:id/status. The acting analyst is
// taken from the X-Actor header and recorded in the audit trail.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	to, err := ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_status",
			"message": "status must be TO_PROCESS, UNDER_INVESTIGATION or CLOSED",
		})
		return
	}

	actor := c.GetHeader("X-Actor")
	if actor == "" {
		actor = "anonymous"
	}

	a, err := h.manager.UpdateStatus(c.Request.Context(), c.Param("id"), to, actor, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "alert_not_found",
				"message": "No alert with that id",
			})
		case errors.Is(err, ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "invalid_transition",
				"message": err.Error(),
			})
		case errors.Is(err, ErrCommentRequired):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "comment_required",
				"message": "Closing an alert requires a comment",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "alert_error",
				"message": "Failed to update alert status",
			})
		}
		return
	}

	c.JSON(http.StatusOK, a)
}
