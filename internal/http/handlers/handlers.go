package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/fleetready/backend/internal/cache"
	"github.com/fleetready/backend/internal/models"
	"github.com/fleetready/backend/internal/readiness"
	"github.com/fleetready/backend/internal/rules"
	"github.com/fleetready/backend/internal/session"
)

// Pinger is implemented by the Postgres store; nil when the in-memory store
// backs the server.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Readiness  *readiness.Service
	Sessions   *session.Service
	Cache      *cache.ResultCache
	Classifier rules.Classifier
	Validator  *validator.Validate
	Logger     zerolog.Logger
	Pinger     Pinger
	MetricsTTL time.Duration
	RecentTTL  time.Duration
}

func (h *Handler) Healthz(c *gin.Context) {
	if h.Pinger != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.Pinger.Ping(ctx); err != nil {
			writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Dashboard metrics
// @Description Fleet readiness metrics over a time window
// @Tags admin
// @Produce json
// @Param date query string false "YYYY-MM-DD in UTC, defaults to today"
// @Param days query int false "trailing day count"
// @Param all_time query bool false "ignore the window entirely"
// @Param batch_size query int false "scan batch size (100..1000)"
// @Param max_batches query int false "scan batch budget (1..200)"
// @Success 200 {object} models.FleetMetrics
// @Failure 400 {object} map[string]any
// @Router /api/admin/dashboard/metrics [get]
func (h *Handler) DashboardMetrics(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "0"))
	allTime := c.Query("all_time") == "true"
	w, err := readiness.ResolveWindow(c.Query("date"), days, allTime, time.Now())
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid window selector", err.Error())
		return
	}

	batchSize := clampQueryInt(c, "batch_size", h.Readiness.ScanBatchSize, 100, 1000)
	maxBatches := clampQueryInt(c, "max_batches", h.Readiness.ScanMaxBatches, 1, 200)

	key := fmt.Sprintf("metrics:%d|%d|%t|%d|%d|%s",
		w.Start.Unix(), w.End.Unix(), w.AllTime, batchSize, maxBatches, h.Readiness.Policy)

	var out models.FleetMetrics
	err = h.Cache.Do(c.Request.Context(), key, h.MetricsTTL, &out, func() (any, error) {
		svc := *h.Readiness
		svc.ScanBatchSize = batchSize
		svc.ScanMaxBatches = maxBatches
		return svc.FleetMetrics(c.Request.Context(), w)
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to compute dashboard metrics", err.Error())
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Compliance ledger
// @Description Paginated audit ledger of readiness checks
// @Tags admin
// @Produce json
// @Param page query int false "page number (1-based)"
// @Param limit query int false "page size (1..200)"
// @Param status query string false "status filter (GREEN/YELLOW/RED)"
// @Param rider_id query string false "rider filter"
// @Param start_date query string false "lower timestamp bound (RFC3339 or YYYY-MM-DD)"
// @Param end_date query string false "upper timestamp bound, exclusive"
// @Success 200 {object} models.LedgerPage
// @Failure 400 {object} map[string]any
// @Router /api/admin/compliance/ledger [get]
func (h *Handler) ComplianceLedger(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	filter := readiness.LedgerFilter{
		Status:  strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		RiderID: strings.TrimSpace(c.Query("rider_id")),
	}
	var err error
	if filter.Start, err = parseBound(c.Query("start_date"), false); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid start_date", err.Error())
		return
	}
	if filter.End, err = parseBound(c.Query("end_date"), true); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid end_date", err.Error())
		return
	}

	key := fmt.Sprintf("ledger:%d|%d|%s|%s|%s|%s",
		page, limit, filter.Status, filter.RiderID, c.Query("start_date"), c.Query("end_date"))

	var out models.LedgerPage
	err = h.Cache.Do(c.Request.Context(), key, h.RecentTTL, &out, func() (any, error) {
		return h.Readiness.Ledger(c.Request.Context(), page, limit, filter)
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to fetch compliance ledger", err.Error())
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Recent readiness checks
// @Tags admin
// @Produce json
// @Param limit query int false "item count (1..10)"
// @Success 200 {array} models.LedgerItem
// @Router /api/admin/readiness/recent [get]
func (h *Handler) RecentReadiness(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	if limit < 1 || limit > 10 {
		limit = 5
	}

	var out []models.LedgerItem
	err := h.Cache.Do(c.Request.Context(), fmt.Sprintf("recent:%d", limit), h.RecentTTL, &out, func() (any, error) {
		return h.Readiness.Recent(c.Request.Context(), limit)
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to fetch recent readiness", err.Error())
		return
	}
	c.JSON(http.StatusOK, out)
}

func clampQueryInt(c *gin.Context, name string, def, min, max int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return def
	}
	return v
}

var errBadBound = errors.New("expected RFC3339 or YYYY-MM-DD")

func parseBound(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		ts = ts.UTC()
		return &ts, nil
	}
	if day, err := time.Parse("2006-01-02", raw); err == nil {
		ts := day.UTC()
		if endOfDay {
			ts = ts.AddDate(0, 0, 1)
		}
		return &ts, nil
	}
	return nil, errBadBound
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
