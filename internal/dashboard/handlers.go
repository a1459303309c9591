// Package dashboard provides JSON API endpoints for fraud-desk analytics.
package dashboard

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sentinelai/sentinel/internal/alert"
	"github.com/sentinelai/sentinel/internal/transaction"
)

// Caps on how much history one summary request may pull. The summary is a
// desk overview, not a reporting warehouse.
const (
	maxTransactionsScanned = 2000
	maxAlertsScanned       = 500
	defaultWindowDays      = 7
	maxWindowDays          = 90

	criticalScore = 90
	hotspotLimit  = 5
)

// Handler provides dashboard API endpoints.
type Handler struct {
	txStore    transaction.Store
	alertStore alert.Store
}

// NewHandler creates a new dashboard handler.
func NewHandler(txStore transaction.Store, alertStore alert.Store) *Handler {
	return &Handler{txStore: txStore, alertStore: alertStore}
}

// RegisterRoutes sets up dashboard routes under the given group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard/summary", h.Summary)
}

// KPIs are the headline numbers for the review desk.
type KPIs struct {
	Transactions   int     `json:"transactions"`
	TotalAmount    float64 `json:"totalAmount"`
	AlertsCreated  int     `json:"alertsCreated"`
	OpenAlerts     int     `json:"openAlerts"`
	CriticalAlerts int     `json:"criticalAlerts"`
}

// DayPoint is one day of the summary series. Date is YYYY-MM-DD in UTC.
type DayPoint struct {
	Date         string  `json:"date"`
	Transactions int     `json:"transactions"`
	Amount       float64 `json:"amount"`
	Alerts       int     `json:"alerts"`
}

// Hotspot counts open alerts whose transaction occurred in a zone.
type Hotspot struct {
	Arrondissement string `json:"arrondissement"`
	Alerts         int    `json:"alerts"`
}

// SummaryResponse is the full dashboard payload.
type SummaryResponse struct {
	WindowDays int        `json:"windowDays"`
	KPIs       KPIs       `json:"kpis"`
	Daily      []DayPoint `json:"daily"`
	Hotspots   []Hotspot  `json:"hotspots"`
}

// Summary handles GET /dashboard/summary?days=
func (h *Handler) Summary(c *gin.Context) {
	days := defaultWindowDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxWindowDays {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_days",
				"message": "days must be an integer in [1,90]",
			})
			return
		}
		days = n
	}

	resp, err := h.buildSummary(c.Request.Context(), days, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "dashboard_error",
			"message": "Failed to build summary",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) buildSummary(ctx context.Context, days int, now time.Time) (*SummaryResponse, error) {
	since := now.AddDate(0, 0, -days)

	txs, err := h.txStore.List(ctx, maxTransactionsScanned, now)
	if err != nil {
		return nil, err
	}

	alerts, err := h.alertStore.List(ctx, alert.Filter{Limit: maxAlertsScanned})
	if err != nil {
		return nil, err
	}

	resp := &SummaryResponse{
		WindowDays: days,
		Daily:      make([]DayPoint, days),
		Hotspots:   []Hotspot{},
	}

	// Oldest day first.
	dayIndex := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := now.AddDate(0, 0, -(days - 1 - i)).Format("2006-01-02")
		resp.Daily[i] = DayPoint{Date: date}
		dayIndex[date] = i
	}

	txZone := make(map[string]string, len(txs))
	for _, tx := range txs {
		txZone[tx.ID] = tx.Arrondissement
		if tx.OccurredAt.Before(since) {
			continue
		}
		resp.KPIs.Transactions++
		resp.KPIs.TotalAmount += tx.Amount
		if i, ok := dayIndex[tx.OccurredAt.UTC().Format("2006-01-02")]; ok {
			resp.Daily[i].Transactions++
			resp.Daily[i].Amount += tx.Amount
		}
	}

	zoneCounts := make(map[string]int)
	for _, a := range alerts {
		if a.CreatedAt.Before(since) {
			continue
		}
		resp.KPIs.AlertsCreated++
		if a.Status != alert.StatusClosed {
			resp.KPIs.OpenAlerts++
			if a.Score >= criticalScore {
				resp.KPIs.CriticalAlerts++
			}
			if zone := txZone[a.TransactionID]; zone != "" {
				zoneCounts[zone]++
			}
		}
		if i, ok := dayIndex[a.CreatedAt.UTC().Format("2006-01-02")]; ok {
			resp.Daily[i].Alerts++
		}
	}

	for zone, n := range zoneCounts {
		resp.Hotspots = append(resp.Hotspots, Hotspot{Arrondissement: zone, Alerts: n})
	}
	sort.Slice(resp.Hotspots, func(i, j int) bool {
		if resp.Hotspots[i].Alerts != resp.Hotspots[j].Alerts {
			return resp.Hotspots[i].Alerts > resp.Hotspots[j].Alerts
		}
		return resp.Hotspots[i].Arrondissement < resp.Hotspots[j].Arrondissement
	})
	if len(resp.Hotspots) > hotspotLimit {
		resp.Hotspots = resp.Hotspots[:hotspotLimit]
	}

	return resp, nil
}
