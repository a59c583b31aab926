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
	"github.com/rs/zerolog/log"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/intelligence"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/service"
)

type IntelligenceService interface {
	Reorder(ctx context.Context, req service.Request) (*service.ReorderReport, error)
	Allocation(ctx context.Context, req service.Request, sku string, qty int) (*service.AllocationReport, error)
	Aging(ctx context.Context, req service.Request) (*service.AgingReport, error)
	Slotting(ctx context.Context, req service.Request) (*service.SlottingReport, error)
	Anomalies(ctx context.Context, req service.Request) (*service.AnomalyReport, error)
	Dashboard(ctx context.Context, req service.Request) (*service.Dashboard, error)
	InvalidateCache(ctx context.Context) error
}

type IntelligenceHandler struct {
	service IntelligenceService
}

func NewIntelligenceHandler(service IntelligenceService) *IntelligenceHandler {
	return &IntelligenceHandler{service: service}
}

func (h *IntelligenceHandler) GetReorder(c *gin.Context) {
	req, ok := parseRequest(c)
	if !ok {
		return
	}
	report, err := h.service.Reorder(c.Request.Context(), req)
	if err != nil {
		respondError(c, "failed to build reorder suggestions", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *IntelligenceHandler) GetAllocation(c *gin.Context) {
	req, ok := parseRequest(c)
	if !ok {
		return
	}

	qty, err := strconv.Atoi(strings.TrimSpace(c.Query("qty")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "qty must be a positive integer"})
		return
	}

	report, err := h.service.Allocation(c.Request.Context(), req, c.Query("sku"), qty)
	if err != nil {
		respondError(c, "failed to preview allocation", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *IntelligenceHandler) GetAging(c *gin.Context) {
	req, ok := parseRequest(c)
	if !ok {
		return
	}
	report, err := h.service.Aging(c.Request.Context(), req)
	if err != nil {
		respondError(c, "failed to build aging report", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *IntelligenceHandler) GetSlotting(c *gin.Context) {
	req, ok := parseRequest(c)
	if !ok {
		return
	}
	report, err := h.service.Slotting(c.Request.Context(), req)
	if err != nil {
		respondError(c, "failed to classify velocity", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *IntelligenceHandler) GetAnomalies(c *gin.Context) {
	req, ok := parseRequest(c)
	if !ok {
		return
	}
	report, err := h.service.Anomalies(c.Request.Context(), req)
	if err != nil {
		respondError(c, "failed to detect anomalies", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *IntelligenceHandler) GetDashboard(c *gin.Context) {
	req, ok := parseRequest(c)
	if !ok {
		return
	}
	dashboard, err := h.service.Dashboard(c.Request.Context(), req)
	if err != nil {
		respondError(c, "failed to build dashboard", err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (h *IntelligenceHandler) InvalidateCache(c *gin.Context) {
	if err := h.service.InvalidateCache(c.Request.Context()); err != nil {
		respondError(c, "failed to invalidate cache", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "invalidated"})
}

// parseRequest reads the shared query overrides. On a bad value it writes the 400
// response itself and returns false.
func parseRequest(c *gin.Context) (service.Request, bool) {
	req, err := ParseOverrides(c.Query)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameter", "details": err.Error()})
		return req, false
	}
	return req, true
}

// OverrideKeys lists every per-call parameter ParseOverrides understands.
var OverrideKeys = []string{
	"lead_time_days", "service_level_z", "target_days",
	"class_a_boundary", "class_b_boundary", "method",
	"reconcile_tolerance",
	"usage_window_days", "velocity_window_days",
	"trend_slope_threshold", "min_confidence",
	"variance_threshold_percent", "variance_min_system_qty",
	"future_tolerance_days", "slow_moving_days", "dead_stock_days",
	"as_of",
}

// ParseOverrides reads parameter overrides from any key lookup, so the HTTP query
// string and CLI flags share one parser. Unset keys leave the field zero.
func ParseOverrides(get func(key string) string) (service.Request, error) {
	var req service.Request
	p := &req.Params

	ints := []struct {
		key string
		dst *int
	}{
		{"lead_time_days", &p.LeadTimeDays},
		{"target_days", &p.TargetDays},
		{"usage_window_days", &p.UsageWindowDays},
		{"velocity_window_days", &p.VelocityWindowDays},
		{"variance_min_system_qty", &p.VarianceMinSystemQty},
		{"future_tolerance_days", &p.FutureToleranceDays},
		{"slow_moving_days", &p.SlowMovingDays},
		{"dead_stock_days", &p.DeadStockDays},
	}
	for _, f := range ints {
		v, err := positiveInt(get, f.key)
		if err != nil {
			return req, err
		}
		*f.dst = v
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"service_level_z", &p.ServiceLevelZ},
		{"class_a_boundary", &p.ClassABoundaryPercent},
		{"class_b_boundary", &p.ClassBBoundaryPercent},
		{"trend_slope_threshold", &p.TrendSlopeThreshold},
		{"min_confidence", &p.MinConfidence},
		{"variance_threshold_percent", &p.VarianceThresholdPercent},
	}
	for _, f := range floats {
		v, err := positiveFloat(get, f.key)
		if err != nil {
			return req, err
		}
		*f.dst = v
	}

	if raw := strings.TrimSpace(get("method")); raw != "" {
		method, err := intelligence.ParseAllocationMethod(raw)
		if err != nil {
			return req, err
		}
		p.AllocationMethod = method
	}
	if raw := strings.TrimSpace(get("reconcile_tolerance")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return req, fmt.Errorf("%w: reconcile_tolerance must be a non-negative integer", domain.ErrInvalidInput)
		}
		req.ReconcileTolerance = &v
	}
	if raw := strings.TrimSpace(get("as_of")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return req, fmt.Errorf("%w: as_of must be YYYY-MM-DD", domain.ErrInvalidInput)
		}
		req.AsOf = t
	}
	return req, nil
}

func positiveInt(get func(string) string, key string) (int, error) {
	raw := strings.TrimSpace(get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidInput, key)
	}
	return v, nil
}

func positiveFloat(get func(string) string, key string) (float64, error) {
	raw := strings.TrimSpace(get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive number", domain.ErrInvalidInput, key)
	}
	return v, nil
}

func respondError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": message, "details": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": message, "details": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "details": err.Error()})
	}
}
