package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gym-scheduling-api/internal/models"
	"github.com/noah-isme/gym-scheduling-api/internal/service"
	appErrors "github.com/noah-isme/gym-scheduling-api/pkg/errors"
	"github.com/noah-isme/gym-scheduling-api/pkg/response"
)

type sessionServiceMock struct {
	materializeResp    *models.ClassSession
	materializeCreated bool
	materializeErr     error
	lastScheduleID     string
	lastRequest        service.MaterializeRequest
	cancelResp         *models.ClassSession
	cancelErr          error
	listResp           []models.ClassSession
	lastFilter         models.SessionFilter
}

func (m *sessionServiceMock) Materialize(ctx context.Context, scheduleID string, req service.MaterializeRequest) (*models.ClassSession, bool, error) {
	m.lastScheduleID = scheduleID
	m.lastRequest = req
	return m.materializeResp, m.materializeCreated, m.materializeErr
}

func (m *sessionServiceMock) Get(ctx context.Context, id string) (*models.ClassSession, error) {
	return m.materializeResp, nil
}

func (m *sessionServiceMock) List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, &models.Pagination{Page: 1, PageSize: 50, TotalCount: len(m.listResp)}, nil
}

func (m *sessionServiceMock) Cancel(ctx context.Context, id string) (*models.ClassSession, error) {
	return m.cancelResp, m.cancelErr
}

func (m *sessionServiceMock) Delete(ctx context.Context, id string) error {
	return nil
}

type sessionExporterMock struct {
	result     *service.ExportResult
	err        error
	lastFilter models.SessionFilter
}

func (m *sessionExporterMock) Export(ctx context.Context, filter models.SessionFilter, format service.ExportFormat) (*service.ExportResult, error) {
	m.lastFilter = filter
	return m.result, m.err
}

func materializeRequest(t *testing.T, scheduleID, body string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/schedules/"+scheduleID+"/sessions", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: scheduleID}}
	return w, c
}

func TestSessionHandlerMaterializeCreated(t *testing.T) {
	mockSvc := &sessionServiceMock{
		materializeResp:    &models.ClassSession{ID: "session-1", ScheduleID: "sched-1", Capacity: 15},
		materializeCreated: true,
	}
	handler := NewSessionHandler(mockSvc, &sessionExporterMock{})

	w, c := materializeRequest(t, "sched-1", `{"target_date":"2025-09-22","timezone":"UTC"}`)
	handler.Materialize(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "sched-1", mockSvc.lastScheduleID)
	assert.Equal(t, "2025-09-22", mockSvc.lastRequest.TargetDate)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["was_created"])
}

func TestSessionHandlerMaterializeExistingReturns200(t *testing.T) {
	mockSvc := &sessionServiceMock{
		materializeResp:    &models.ClassSession{ID: "session-1"},
		materializeCreated: false,
	}
	handler := NewSessionHandler(mockSvc, &sessionExporterMock{})

	w, c := materializeRequest(t, "sched-1", `{"target_date":"2025-09-22"}`)
	handler.Materialize(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, false, envelope.Meta["was_created"])
}

func TestSessionHandlerMaterializeEmptyBody(t *testing.T) {
	mockSvc := &sessionServiceMock{
		materializeResp:    &models.ClassSession{ID: "session-1"},
		materializeCreated: true,
	}
	handler := NewSessionHandler(mockSvc, &sessionExporterMock{})

	w, c := materializeRequest(t, "sched-1", "")
	handler.Materialize(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, mockSvc.lastRequest.TargetDate)
}

func TestSessionHandlerMaterializeInactiveConflict(t *testing.T) {
	mockSvc := &sessionServiceMock{
		materializeErr: appErrors.Clone(appErrors.ErrInactiveSchedule, ""),
	}
	handler := NewSessionHandler(mockSvc, &sessionExporterMock{})

	w, c := materializeRequest(t, "sched-1", `{}`)
	handler.Materialize(c)

	require.Equal(t, http.StatusConflict, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInactiveSchedule.Code, envelope.Error.Code)
}

func TestSessionHandlerListParsesWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &sessionServiceMock{}
	handler := NewSessionHandler(mockSvc, &sessionExporterMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/sessions?schedule_id=sched-1&from=2025-09-22T00:00:00Z&to=2025-09-29T00:00:00Z&status=scheduled", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sched-1", mockSvc.lastFilter.ScheduleID)
	require.NotNil(t, mockSvc.lastFilter.From)
	assert.Equal(t, time.Date(2025, 9, 22, 0, 0, 0, 0, time.UTC), mockSvc.lastFilter.From.UTC())
	assert.Equal(t, models.SessionScheduled, mockSvc.lastFilter.Status)
}

func TestSessionHandlerListRejectsBadWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSessionHandler(&sessionServiceMock{}, &sessionExporterMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/sessions?from=not-a-date", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerExportSetsHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &sessionExporterMock{
		result: &service.ExportResult{
			Content:     []byte("Session,Schedule\n"),
			ContentType: "text/csv",
			Filename:    "sessions-20250922.csv",
		},
	}
	handler := NewSessionHandler(&sessionServiceMock{}, exporter)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/sessions/export?format=csv", nil)
	c.Request = req

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "sessions-20250922.csv")
	assert.True(t, exporter.lastFilter.Unpaginated, "exports must fetch the whole window")
}

func TestSessionHandlerListByScheduleUsesPathParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &sessionServiceMock{}
	handler := NewSessionHandler(mockSvc, &sessionExporterMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/schedules/sched-1/sessions?status=scheduled", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}

	handler.ListBySchedule(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sched-1", mockSvc.lastFilter.ScheduleID)
	assert.Equal(t, models.SessionScheduled, mockSvc.lastFilter.Status)
}
