package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/data-siswa-api/internal/dto"
	"github.com/noah-isme/data-siswa-api/internal/middleware"
	"github.com/noah-isme/data-siswa-api/internal/models"
	appErrors "github.com/noah-isme/data-siswa-api/pkg/errors"
)

type fakeChangeRequestSrv struct {
	created    *models.ChangeRequest
	createErr  error
	lastCreate dto.CreateChangeRequest
	actionReq  dto.ChangeRequestActionRequest
	actionErr  error
	statusReq  *models.ChangeRequest
	submitted  dto.SubmitChangesRequest
}

func (f *fakeChangeRequestSrv) Create(_ context.Context, req dto.CreateChangeRequest, _ *models.JWTClaims) (*models.ChangeRequest, error) {
	f.lastCreate = req
	return f.created, f.createErr
}

func (f *fakeChangeRequestSrv) Action(_ context.Context, _ string, req dto.ChangeRequestActionRequest, _ *models.JWTClaims) (*models.ChangeRequest, error) {
	f.actionReq = req
	return f.created, f.actionErr
}

func (f *fakeChangeRequestSrv) Submit(_ context.Context, _ string, req dto.SubmitChangesRequest, _ *models.JWTClaims) (*models.ChangeRequest, error) {
	f.submitted = req
	return f.created, nil
}

func (f *fakeChangeRequestSrv) Status(context.Context, string, *models.JWTClaims) (*models.ChangeRequest, error) {
	return f.statusReq, nil
}

func (f *fakeChangeRequestSrv) List(context.Context, models.ChangeRequestFilter) ([]dto.ChangeRequestDetail, error) {
	return nil, nil
}

func (f *fakeChangeRequestSrv) Get(context.Context, string) (*dto.ChangeRequestDetail, error) {
	return nil, nil
}

func setClaims(c *gin.Context, role models.UserRole, studentID string) {
	claims := &models.JWTClaims{UserID: "user-1", Role: role, Email: "user@sekolah.id"}
	if studentID != "" {
		claims.StudentID = &studentID
	}
	c.Set(middleware.ContextUserKey, claims)
}

func TestChangeRequestHandlerCreateRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewChangeRequestHandler(&fakeChangeRequestSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body, _ := json.Marshal(dto.CreateChangeRequest{StudentID: "student-1", Reason: "alamat"})
	c.Request = httptest.NewRequest(http.MethodPost, "/requests", bytes.NewReader(body))

	h.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangeRequestHandlerCreateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeChangeRequestSrv{created: &models.ChangeRequest{ID: "req-1", Status: models.ChangeRequestStatusRequested}}
	h := NewChangeRequestHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body, _ := json.Marshal(dto.CreateChangeRequest{StudentID: "student-1", Reason: "alamat pindah"})
	c.Request = httptest.NewRequest(http.MethodPost, "/requests", bytes.NewReader(body))
	setClaims(c, models.RoleStudent, "student-1")

	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "student-1", srv.lastCreate.StudentID)
}

func TestChangeRequestHandlerCreateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeChangeRequestSrv{createErr: appErrors.ErrConflict}
	h := NewChangeRequestHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body, _ := json.Marshal(dto.CreateChangeRequest{StudentID: "student-1", Reason: "x"})
	c.Request = httptest.NewRequest(http.MethodPost, "/requests", bytes.NewReader(body))
	setClaims(c, models.RoleStudent, "student-1")

	h.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestChangeRequestHandlerActionPassesDecision(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeChangeRequestSrv{created: &models.ChangeRequest{ID: "req-1", Status: models.ChangeRequestStatusEditing}}
	h := NewChangeRequestHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body, _ := json.Marshal(dto.ChangeRequestActionRequest{Action: models.ChangeRequestActionApproveEdit})
	c.Request = httptest.NewRequest(http.MethodPost, "/requests/req-1/action", bytes.NewReader(body))
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	setClaims(c, models.RoleAdmin, "")

	h.Action(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ChangeRequestActionApproveEdit, srv.actionReq.Action)
}

func TestChangeRequestHandlerActionInvalidTransition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeChangeRequestSrv{actionErr: appErrors.ErrInvalidTransition}
	h := NewChangeRequestHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body, _ := json.Marshal(dto.ChangeRequestActionRequest{Action: models.ChangeRequestActionValidate})
	c.Request = httptest.NewRequest(http.MethodPost, "/requests/req-1/action", bytes.NewReader(body))
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	setClaims(c, models.RoleAdmin, "")

	h.Action(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangeRequestHandlerSubmitForwardsChanges(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeChangeRequestSrv{created: &models.ChangeRequest{ID: "req-1", Status: models.ChangeRequestStatusReview}}
	h := NewChangeRequestHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body, _ := json.Marshal(dto.SubmitChangesRequest{Changes: map[string]string{"alamat": "Jl. Mawar 2"}})
	c.Request = httptest.NewRequest(http.MethodPost, "/requests/req-1/submit", bytes.NewReader(body))
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	setClaims(c, models.RoleStudent, "student-1")

	h.Submit(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Jl. Mawar 2", srv.submitted.Changes["alamat"])
}

func TestChangeRequestHandlerStatusNullWhenAbsent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewChangeRequestHandler(&fakeChangeRequestSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/requests/status?studentId=student-1", nil)
	setClaims(c, models.RoleStudent, "student-1")

	h.Status(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "null", string(envelope["data"]))
}
