package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-reg-api/internal/middleware"
	"github.com/noah-isme/course-reg-api/internal/models"
	"github.com/noah-isme/course-reg-api/internal/service"
)

const handlerTestCourseID = "7f9c3f1e-8f6a-4f5e-b0d0-1a2b3c4d5e6f"

type fakeRegistrationRepo struct {
	regs map[string]models.Registration
}

func (f *fakeRegistrationRepo) Create(ctx context.Context, reg *models.Registration) error {
	reg.ID = "reg-1"
	reg.Status = models.RegistrationStatusPending
	return nil
}

func (f *fakeRegistrationRepo) Withdraw(ctx context.Context, id, studentProfileID string) (*models.Registration, error) {
	reg, ok := f.regs[id]
	if !ok || reg.StudentProfileID != studentProfileID {
		return nil, sql.ErrNoRows
	}
	reg.Status = models.RegistrationStatusWithdrawn
	return &reg, nil
}

func (f *fakeRegistrationRepo) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) (*models.Registration, error) {
	reg, ok := f.regs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	reg.Status = status
	return &reg, nil
}

func (f *fakeRegistrationRepo) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	if reg, ok := f.regs[id]; ok {
		return &reg, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRegistrationRepo) ListByStudent(ctx context.Context, studentProfileID string) ([]models.RegistrationDetail, error) {
	return nil, nil
}

func (f *fakeRegistrationRepo) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error) {
	return nil, 0, nil
}

type fakeProfileReader struct{}

func (fakeProfileReader) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	if userID != "user-1" {
		return nil, sql.ErrNoRows
	}
	return &models.StudentProfile{ID: "profile-1", UserID: "user-1"}, nil
}

func newRegistrationHandler(repo *fakeRegistrationRepo) *RegistrationHandler {
	svc := service.NewRegistrationService(repo, fakeProfileReader{}, nil, nil, nil, nil)
	return NewRegistrationHandler(svc)
}

type errorEnvelope struct {
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func TestRegistrationHandlerCreateWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRegistrationHandler(&fakeRegistrationRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/registrations", strings.NewReader(`{}`))

	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegistrationHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRegistrationHandler(&fakeRegistrationRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body := `{"course_id":"` + handlerTestCourseID + `"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/registrations", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	var envelope struct {
		Data models.Registration `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, models.RegistrationStatusPending, envelope.Data.Status)
	assert.Equal(t, handlerTestCourseID, envelope.Data.CourseID)
}

func TestRegistrationHandlerCreateBadCourseID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRegistrationHandler(&fakeRegistrationRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/registrations", strings.NewReader(`{"course_id":"nope"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegistrationHandlerWithdrawNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRegistrationHandler(&fakeRegistrationRepo{regs: map[string]models.Registration{}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/registrations/reg-9/withdraw", nil)
	c.Params = gin.Params{{Key: "id", Value: "reg-9"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.Withdraw(c)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var envelope errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}

func TestRegistrationHandlerGetOwn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRegistrationHandler(&fakeRegistrationRepo{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", StudentProfileID: "profile-1", CourseID: handlerTestCourseID, Status: models.RegistrationStatusApproved},
	}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/registrations/reg-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "reg-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.Get(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.Registration `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, models.RegistrationStatusApproved, envelope.Data.Status)
}
