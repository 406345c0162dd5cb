package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imena-mn/nmflow/internal/service"
	"github.com/imena-mn/nmflow/internal/workflow"
)

type StatsHandler struct {
	statsSvc *service.StatsService
}

func NewStatsHandler(statsSvc *service.StatsService) *StatsHandler {
	return &StatsHandler{statsSvc: statsSvc}
}

func parsePeriod(c *gin.Context) (workflow.Period, bool) {
	period := workflow.Period(c.DefaultQuery("period", string(workflow.PeriodToday)))
	if !period.Valid() {
		respondError(c, http.StatusBadRequest, "period must be one of today, thisWeek, thisMonth")
		return "", false
	}
	return period, true
}

func (h *StatsHandler) AverageDelays(c *gin.Context) {
	period, ok := parsePeriod(c)
	if !ok {
		return
	}

	averages, err := h.statsSvc.AverageDelays(c.Request.Context(), period)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, averages)
}

func (h *StatsHandler) ExamTypeCounts(c *gin.Context) {
	period, ok := parsePeriod(c)
	if !ok {
		return
	}

	counts, err := h.statsSvc.ExamTypeCounts(c.Request.Context(), period)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, counts)
}

func (h *StatsHandler) ActivityFeed(c *gin.Context) {
	period, ok := parsePeriod(c)
	if !ok {
		return
	}

	items, err := h.statsSvc.ActivityFeed(c.Request.Context(), period, parseQueryInt(c, "limit", 100))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, items)
}

func (h *StatsHandler) DailyWorklist(c *gin.Context) {
	day := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "date must be formatted as 2006-01-02")
			return
		}
		day = parsed
	}

	items, err := h.statsSvc.DailyWorklist(c.Request.Context(), day)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, items)
}
