package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/sanmon-backend/internal/model"
	"github.com/stemsi/sanmon-backend/internal/response"
	"github.com/stemsi/sanmon-backend/internal/service"
	"github.com/stemsi/sanmon-backend/internal/validator"
)

// JobRunner runs the jobs under the same leases as their scheduled triggers.
type JobRunner interface {
	Aggregate(ctx context.Context) (*model.DailySummary, error)
	Notify(ctx context.Context) (service.NotificationResult, error)
}

// JobHandler exposes the daily summaries and lets staff run the jobs by hand.
type JobHandler struct {
	aggregation *service.AggregationService
	jobs        JobRunner
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(aggregation *service.AggregationService, jobs JobRunner) *JobHandler {
	return &JobHandler{aggregation: aggregation, jobs: jobs}
}

// HistoryQuery selects how many days of summaries to return.
type HistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=366"`
}

// History godoc
// GET /api/v1/monitoring/summaries?limit=30
func (h *JobHandler) History(c *gin.Context) {
	var q HistoryQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidQuery, fields)
		return
	}

	summaries, err := h.aggregation.History(c.Request.Context(), q.Limit)
	if err != nil {
		failFromError(c, err)
		return
	}

	limit := q.Limit
	if limit == 0 {
		limit = service.DefaultHistoryDays
	}
	dates := make([]time.Time, len(summaries))
	for i, s := range summaries {
		dates[i] = s.DateSend
	}
	response.SuccessWithPeriod(c, http.StatusOK, gin.H{"summaries": summaries}, response.NewPeriod(limit, dates))
}

// RunAggregation godoc
// POST /api/v1/monitoring/jobs/aggregate
func (h *JobHandler) RunAggregation(c *gin.Context) {
	summary, err := h.jobs.Aggregate(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}

// RunNotification godoc
// POST /api/v1/monitoring/jobs/notify
// Subject to the same business-day and window checks as the scheduled job.
// Returns 409 while a scheduled or other manual dispatch holds the job.
func (h *JobHandler) RunNotification(c *gin.Context) {
	result, err := h.jobs.Notify(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}
