package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/sanmon-backend/internal/model"
	"github.com/stemsi/sanmon-backend/internal/response"
	"github.com/stemsi/sanmon-backend/internal/service"
	"github.com/stemsi/sanmon-backend/internal/validator"
)

// ClassHandler handles class registration, daily reports and closures.
type ClassHandler struct {
	classService *service.ClassService
}

// NewClassHandler creates a new ClassHandler.
func NewClassHandler(classService *service.ClassService) *ClassHandler {
	return &ClassHandler{classService: classService}
}

// Overview godoc
// GET /api/v1/monitoring
// School totals and every class record.
func (h *ClassHandler) Overview(c *gin.Context) {
	overview, err := h.classService.Overview(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, overview)
}

// ListClasses godoc
// GET /api/v1/monitoring/classes
func (h *ClassHandler) ListClasses(c *gin.Context) {
	classes, err := h.classService.ListClasses(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"classes": classes})
}

// RegisterClassRequest is the payload for registering a class.
type RegisterClassRequest struct {
	NameClass  string `json:"name_class" binding:"required,classname"`
	ManClass   string `json:"man_class" binding:"max=255"`
	CountClass int    `json:"count_class" binding:"required,min=1"`
}

// RegisterClass godoc
// POST /api/v1/monitoring/classes
func (h *ClassHandler) RegisterClass(c *gin.Context) {
	var req RegisterClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class, err := h.classService.RegisterClass(c.Request.Context(), model.ClassRoster{
		NameClass:  req.NameClass,
		ManClass:   req.ManClass,
		CountClass: req.CountClass,
	})
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"class": class})
}

// UpdateRosterRequest is the payload for editing a class's contact and size.
type UpdateRosterRequest struct {
	ManClass   string `json:"man_class" binding:"max=255"`
	CountClass int    `json:"count_class" binding:"required,min=1"`
}

// UpdateRoster godoc
// PUT /api/v1/monitoring/classes/:name
func (h *ClassHandler) UpdateRoster(c *gin.Context) {
	var req UpdateRosterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class, err := h.classService.UpdateRoster(c.Request.Context(), model.ClassRoster{
		NameClass:  c.Param("name"),
		ManClass:   req.ManClass,
		CountClass: req.CountClass,
	})
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// ReportRequest is the daily illness report for one class.
// Omitting closed keeps a closed class closed; closed=false reopens it.
type ReportRequest struct {
	CountIll        *int  `json:"count_ill" binding:"required,min=0"`
	Closed          *bool `json:"closed"`
	ReopenAfterDays *int  `json:"reopen_after_days" binding:"omitempty,min=1,max=60"`
}

// ApplyReport godoc
// POST /api/v1/monitoring/classes/:name/report
func (h *ClassHandler) ApplyReport(c *gin.Context) {
	var req ReportRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class, err := h.classService.ApplyReport(c.Request.Context(), model.ClassReport{
		NameClass:       c.Param("name"),
		CountIll:        *req.CountIll,
		Closed:          req.Closed,
		ReopenAfterDays: req.ReopenAfterDays,
	})
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// ClosureRequest closes a class for a date range or reopens it.
type ClosureRequest struct {
	Closed     *bool  `json:"closed" binding:"required"`
	DateClosed string `json:"date_closed" binding:"omitempty,datetime=2006-01-02"`
	DateOpen   string `json:"date_open" binding:"omitempty,datetime=2006-01-02"`
}

// SetClosure godoc
// POST /api/v1/monitoring/classes/:name/closure
func (h *ClassHandler) SetClosure(c *gin.Context) {
	var req ClosureRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	closure := model.ClassClosure{
		NameClass:  c.Param("name"),
		Closed:     *req.Closed,
		DateClosed: parseDate(req.DateClosed),
		DateOpen:   parseDate(req.DateOpen),
	}
	class, err := h.classService.SetClosure(c.Request.Context(), closure)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// parseDate returns nil for an empty value. Format is checked by binding.
func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil
	}
	return &t
}
