package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/larkspur-kitchen/rewards/internal/analytics"
	"github.com/larkspur-kitchen/rewards/internal/http/api/render"
)

// AnalyticsHandler serves the program economics report.
type AnalyticsHandler struct {
	aggregator *analytics.Aggregator
}

// NewAnalyticsHandler constructs an AnalyticsHandler.
func NewAnalyticsHandler(aggregator *analytics.Aggregator) *AnalyticsHandler {
	return &AnalyticsHandler{aggregator: aggregator}
}

// Report computes the rollup for start_date, end_date and period.
func (h *AnalyticsHandler) Report(c *gin.Context) {
	period, errPeriod := analytics.ParsePeriod(c.Query("period"))
	if errPeriod != nil {
		render.Error(c, errPeriod)
		return
	}
	start, errStart := parseDateQuery(c.Query("start_date"), false)
	if errStart != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return
	}
	end, errEnd := parseDateQuery(c.Query("end_date"), true)
	if errEnd != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
		return
	}

	report, errReport := h.aggregator.Report(c.Request.Context(), analytics.Query{Start: start, End: end, Period: period})
	if errReport != nil {
		render.Error(c, errReport)
		return
	}
	c.JSON(http.StatusOK, report)
}

// parseDateQuery accepts RFC3339 or YYYY-MM-DD. A bare end date covers that whole day.
func parseDateQuery(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, errParse := time.Parse(time.RFC3339, raw); errParse == nil {
		return t.UTC(), nil
	}
	t, errParse := time.Parse("2006-01-02", raw)
	if errParse != nil {
		return time.Time{}, errParse
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return t.UTC(), nil
}
