package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gym-scheduling-api/internal/models"
	"github.com/noah-isme/gym-scheduling-api/internal/service"
	appErrors "github.com/noah-isme/gym-scheduling-api/pkg/errors"
	"github.com/noah-isme/gym-scheduling-api/pkg/response"
)

type sessionService interface {
	Materialize(ctx context.Context, scheduleID string, req service.MaterializeRequest) (*models.ClassSession, bool, error)
	Get(ctx context.Context, id string) (*models.ClassSession, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, *models.Pagination, error)
	Cancel(ctx context.Context, id string) (*models.ClassSession, error)
	Delete(ctx context.Context, id string) error
}

type sessionExporter interface {
	Export(ctx context.Context, filter models.SessionFilter, format service.ExportFormat) (*service.ExportResult, error)
}

// SessionHandler manages materialized session endpoints.
type SessionHandler struct {
	service sessionService
	export  sessionExporter
}

// NewSessionHandler constructs handler.
func NewSessionHandler(svc sessionService, exportSvc sessionExporter) *SessionHandler {
	return &SessionHandler{service: svc, export: exportSvc}
}

// Materialize godoc
// @Summary Materialize a session from a schedule
// @Description Creates the dated session for the first occurrence on-or-after target_date. Returns 201 when created, 200 when the session already existed.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.MaterializeRequest false "Materialization options"
// @Success 200 {object} response.Envelope "Session already existed"
// @Success 201 {object} response.Envelope "Session created"
// @Failure 409 {object} response.Envelope "Schedule is inactive"
// @Router /schedules/{id}/sessions [post]
func (h *SessionHandler) Materialize(c *gin.Context) {
	var req service.MaterializeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	session, created, err := h.service.Materialize(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(c, status, session, nil, map[string]interface{}{"was_created": created})
}

// List godoc
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Param schedule_id query string false "Filter by schedule"
// @Param from query string false "Start of window (RFC 3339)"
// @Param to query string false "End of window (RFC 3339)"
// @Param status query string false "scheduled or cancelled"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	filter, err := sessionFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	sessions, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// ListBySchedule godoc
// @Summary List sessions for one schedule
// @Tags Sessions
// @Produce json
// @Param id path string true "Schedule ID"
// @Param from query string false "Start of window (RFC 3339)"
// @Param to query string false "End of window (RFC 3339)"
// @Param status query string false "scheduled or cancelled"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/sessions [get]
func (h *SessionHandler) ListBySchedule(c *gin.Context) {
	filter, err := sessionFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.ScheduleID = c.Param("id")
	sessions, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// Get godoc
// @Summary Get session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Cancel godoc
// @Summary Cancel session
// @Description Transitions a session to cancelled. Cancelling twice is a no-op.
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/cancel [post]
func (h *SessionHandler) Cancel(c *gin.Context) {
	session, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Delete godoc
// @Summary Delete session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export sessions
// @Description Renders the sessions matching the filter as CSV or PDF.
// @Tags Sessions
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "csv or pdf"
// @Param schedule_id query string false "Filter by schedule"
// @Param from query string false "Start of window (RFC 3339)"
// @Param to query string false "End of window (RFC 3339)"
// @Param status query string false "scheduled or cancelled"
// @Success 200 {file} binary
// @Router /sessions/export [get]
func (h *SessionHandler) Export(c *gin.Context) {
	filter, err := sessionFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	// Exports cover the whole window, never a page of it.
	filter.Unpaginated = true

	result, err := h.export.Export(c.Request.Context(), filter, service.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

func sessionFilterFromQuery(c *gin.Context) (models.SessionFilter, error) {
	var filter models.SessionFilter
	filter.ScheduleID = c.Query("schedule_id")
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "from must be RFC 3339")
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "to must be RFC 3339")
		}
		filter.To = &to
	}
	if raw := c.Query("status"); raw != "" {
		status := models.SessionStatus(raw)
		if status != models.SessionScheduled && status != models.SessionCancelled {
			return filter, appErrors.Clone(appErrors.ErrValidation, "status must be scheduled or cancelled")
		}
		filter.Status = status
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = limit
	}
	return filter, nil
}
