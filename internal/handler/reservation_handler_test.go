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

	"github.com/tutorhq/tutor-market-api/internal/models"
	"github.com/tutorhq/tutor-market-api/internal/repository"
	"github.com/tutorhq/tutor-market-api/internal/service"
	appErrors "github.com/tutorhq/tutor-market-api/pkg/errors"
)

type reservationServiceMock struct {
	createResp *models.Reservation
	createErr  error
	getResp    *models.Reservation
	getErr     error
	listResp   []models.Reservation
	listPage   *models.Pagination
	listErr    error
	transResp  *models.Reservation
	transErr   error

	lastCreate  service.CreateReservationRequest
	lastID      string
	lastSide    string
	lastFilter  models.ReservationFilter
	lastAction  string
	createCalls int
}

func (m *reservationServiceMock) Create(ctx context.Context, req service.CreateReservationRequest) (*models.Reservation, error) {
	m.createCalls++
	m.lastCreate = req
	return m.createResp, m.createErr
}

func (m *reservationServiceMock) Get(ctx context.Context, id string) (*models.Reservation, error) {
	m.lastID = id
	return m.getResp, m.getErr
}

func (m *reservationServiceMock) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, m.listPage, m.listErr
}

func (m *reservationServiceMock) Complete(ctx context.Context, id, side string) (*models.Reservation, error) {
	m.lastID = id
	m.lastSide = side
	m.lastAction = "complete"
	return m.transResp, m.transErr
}

func (m *reservationServiceMock) Cancel(ctx context.Context, id, side string) (*models.Reservation, error) {
	m.lastID = id
	m.lastSide = side
	m.lastAction = "cancel"
	return m.transResp, m.transErr
}

func TestReservationHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reserveTime := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	mockSvc := &reservationServiceMock{createResp: &models.Reservation{ID: "r1"}}
	h := NewReservationHandler(mockSvc)

	body, _ := json.Marshal(map[string]any{
		"student_id":   "stu-1",
		"teacher_id":   "tch-1",
		"course_id":    "crs-1",
		"reserve_time": reserveTime,
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/reservations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, mockSvc.createCalls)
	assert.Equal(t, "stu-1", mockSvc.lastCreate.StudentID)
	assert.True(t, reserveTime.Equal(mockSvc.lastCreate.ReserveTime))
}

func TestReservationHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reservationServiceMock{}
	h := NewReservationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/reservations", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, mockSvc.createCalls)
}

func TestReservationHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reservationServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "reservation not found")}
	h := NewReservationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	req, _ := http.NewRequest(http.MethodGet, "/reservations/missing", nil)
	c.Request = req

	h.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "missing", mockSvc.lastID)
}

func TestReservationHandlerListFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reservationServiceMock{
		listResp: []models.Reservation{{ID: "r1"}},
		listPage: &models.Pagination{Page: 2, PageSize: 5, TotalCount: 11},
	}
	h := NewReservationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/reservations?teacherId=tch-1&teacherStatus=RESERVED&page=2&limit=5", nil)
	c.Request = req

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tch-1", mockSvc.lastFilter.TeacherID)
	assert.Equal(t, models.StatusReserved, mockSvc.lastFilter.TeacherStatus)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 5, mockSvc.lastFilter.PageSize)
}

func TestReservationHandlerSideRouting(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		call       func(h *ReservationHandler, c *gin.Context)
		wantSide   string
		wantAction string
	}{
		{"teacher complete", (*ReservationHandler).TeacherComplete, repository.SideTeacher, "complete"},
		{"teacher cancel", (*ReservationHandler).TeacherCancel, repository.SideTeacher, "cancel"},
		{"student complete", (*ReservationHandler).StudentComplete, repository.SideStudent, "complete"},
		{"student cancel", (*ReservationHandler).StudentCancel, repository.SideStudent, "cancel"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockSvc := &reservationServiceMock{transResp: &models.Reservation{ID: "r1"}}
			h := NewReservationHandler(mockSvc)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Params = gin.Params{{Key: "id", Value: "r1"}}
			req, _ := http.NewRequest(http.MethodPost, "/reservations/r1/action", nil)
			c.Request = req

			tc.call(h, c)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "r1", mockSvc.lastID)
			assert.Equal(t, tc.wantSide, mockSvc.lastSide)
			assert.Equal(t, tc.wantAction, mockSvc.lastAction)
		})
	}
}

func TestReservationHandlerTransitionConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reservationServiceMock{transErr: appErrors.Clone(appErrors.ErrConflict, "reservation is not in a cancellable state")}
	h := NewReservationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	req, _ := http.NewRequest(http.MethodPost, "/reservations/r1/teacher/cancel", nil)
	c.Request = req

	h.TeacherCancel(c)
	require.Equal(t, http.StatusConflict, w.Code)
}
