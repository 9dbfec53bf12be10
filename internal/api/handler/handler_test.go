package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fixmycity/backend/internal/activity"
	"fixmycity/backend/internal/api/handler"
	"fixmycity/backend/internal/api/router"
	"fixmycity/backend/internal/auth"
	"fixmycity/backend/internal/complaint"
	"fixmycity/backend/internal/feed"
	"fixmycity/backend/internal/models"
	"fixmycity/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type testEnv struct {
	store  *MockStorage
	act    *memActivity
	jwt    *auth.JWTManager
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := new(MockStorage)
	act := &memActivity{}
	jwtm := auth.NewJWTManager("test-secret", time.Hour)

	hub := feed.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	complaints := complaint.NewService(store, nil, activity.NewLogger(act), feed.LocalPublisher{Hub: hub}, nil)
	h := handler.NewHandler(store, jwtm, complaints, act, nil, hub, nil)
	return &testEnv{store: store, act: act, jwt: jwtm, router: router.New(h, router.Options{})}
}

func (e *testEnv) do(t *testing.T, req *http.Request, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w, body
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(t *testing.T, path string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (e *testEnv) loginUser(t *testing.T) *models.User {
	t.Helper()
	u := &models.User{ID: primitive.NewObjectID(), Name: "Asha", Email: "asha@example.com", Status: models.StatusActive}
	e.store.On("GetUserByID", u.ID).Return(u, nil)
	return u
}

func (e *testEnv) loginAdmin(t *testing.T, role models.AdminRole) *models.Admin {
	t.Helper()
	a := &models.Admin{ID: primitive.NewObjectID(), Name: "Ravi", Email: "ravi@city.gov", Role: role, Status: models.StatusActive}
	e.store.On("GetAdminByID", a.ID).Return(a, nil)
	return a
}

func (e *testEnv) token(t *testing.T, p *models.Principal) string {
	t.Helper()
	tok, err := e.jwt.Generate(p)
	require.NoError(t, err)
	return tok
}

func roadIssues() (*models.ComplaintType, *models.Department) {
	dept := &models.Department{ID: primitive.NewObjectID(), Name: "Public Works"}
	ct := &models.ComplaintType{
		ID:           primitive.NewObjectID(),
		Name:         "Road Issues",
		DepartmentID: &dept.ID,
		SubTypes:     models.NewSubTypes([]string{"Potholes", "Broken footpath", "Blocked drainage"}),
	}
	return ct, dept
}

func TestRegister_CreatesUserAndIssuesToken(t *testing.T) {
	e := newTestEnv(t)
	e.store.On("CreateUser", mock.AnythingOfType("*models.User")).Return(nil)

	w, body := e.do(t, jsonRequest(http.MethodPost, "/api/auth/register", gin.H{
		"name": "Asha", "email": "asha@example.com", "password": "longenough",
	}), "")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])
	assert.Contains(t, e.act.actions(), activity.ActionRegister)
	e.store.AssertExpectations(t)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	e.store.On("CreateUser", mock.Anything).Return(storage.ErrDuplicate)

	w, body := e.do(t, jsonRequest(http.MethodPost, "/api/auth/register", gin.H{
		"name": "Asha", "email": "asha@example.com", "password": "longenough",
	}), "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestRegister_ValidationMessage(t *testing.T) {
	e := newTestEnv(t)

	w, body := e.do(t, jsonRequest(http.MethodPost, "/api/auth/register", gin.H{
		"name": "Asha", "email": "asha@example.com",
	}), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["message"], "password is required")
}

func TestLogin_WrongPasswordIsAudited(t *testing.T) {
	e := newTestEnv(t)
	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)
	u := &models.User{ID: primitive.NewObjectID(), Email: "asha@example.com", PasswordHash: hash, Status: models.StatusActive}
	e.store.On("GetUserByEmail", "asha@example.com").Return(u, nil)

	w, _ := e.do(t, jsonRequest(http.MethodPost, "/api/auth/login", gin.H{
		"email": "asha@example.com", "password": "wrong-horse",
	}), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.Len(t, e.act.records, 1)
	assert.False(t, e.act.records[0].Success)
}

func TestLogin_SuspendedAccount(t *testing.T) {
	e := newTestEnv(t)
	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)
	u := &models.User{ID: primitive.NewObjectID(), Email: "asha@example.com", PasswordHash: hash, Status: models.StatusSuspended}
	e.store.On("GetUserByEmail", "asha@example.com").Return(u, nil)

	w, _ := e.do(t, jsonRequest(http.MethodPost, "/api/auth/login", gin.H{
		"email": "asha@example.com", "password": "correct-horse",
	}), "")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogin_UnknownEmail(t *testing.T) {
	e := newTestEnv(t)
	e.store.On("GetUserByEmail", "nobody@example.com").Return(nil, storage.ErrNotFound)

	w, body := e.do(t, jsonRequest(http.MethodPost, "/api/auth/login", gin.H{
		"email": "nobody@example.com", "password": "whatever1",
	}), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid email or password", body["message"])
}

func TestSubmitComplaint_MissingLocation(t *testing.T) {
	e := newTestEnv(t)
	u := e.loginUser(t)
	ct, _ := roadIssues()

	w, body := e.do(t, formRequest(t, "/api/complaints", map[string]string{
		"typeId":      ct.ID.Hex(),
		"subTypeId":   "1",
		"description": "Footpath slabs broken near the bus stop",
		"area":        "Sector 4",
		"city":        "Pune",
	}), e.token(t, u.Principal()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, complaint.ErrMissingLocation.Error(), body["message"])
	e.store.AssertNotCalled(t, "SaveComplaint", mock.Anything)
}

func TestSubmitComplaint_ActivityFailureDoesNotChangeResponse(t *testing.T) {
	e := newTestEnv(t)
	e.act.failing = true
	u := e.loginUser(t)
	ct, dept := roadIssues()
	e.store.On("GetComplaintTypeByID", ct.ID).Return(ct, nil)
	e.store.On("GetDepartmentByID", dept.ID).Return(dept, nil)
	e.store.On("SaveComplaint", mock.AnythingOfType("*models.Complaint")).Return(nil)

	w, body := e.do(t, formRequest(t, "/api/complaints", map[string]string{
		"complaintType": ct.ID.Hex(),
		"subTypeId":     "1",
		"description":   "Footpath slabs broken near the bus stop",
		"area":          "Sector 4",
		"city":          "Pune",
		"latitude":      "18.5204",
		"longitude":     "73.8567",
	}), e.token(t, u.Principal()))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	c := body["complaint"].(map[string]interface{})
	assert.Equal(t, "Broken footpath", c["subType"])
	assert.Equal(t, "Road Issues", c["complaintType"])
	assert.Equal(t, []interface{}{}, c["images"])
	assert.Empty(t, e.act.actions())
}

func TestGetComplaint_OtherUsersComplaintIsNotFound(t *testing.T) {
	e := newTestEnv(t)
	u := e.loginUser(t)
	other := &models.Complaint{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID()}
	e.store.On("GetComplaintByID", other.ID).Return(other, nil)

	w, body := e.do(t, httptest.NewRequest(http.MethodGet, "/api/complaints/"+other.ID.Hex(), nil), e.token(t, u.Principal()))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, complaint.ErrNotFound.Error(), body["message"])
}

func TestComplaintTypes_HidesRetiredAndUnlinked(t *testing.T) {
	e := newTestEnv(t)
	u := e.loginUser(t)
	ct, _ := roadIssues()
	ct.RetireSubType(0)
	orphan := models.ComplaintType{ID: primitive.NewObjectID(), Name: "Misc"}
	e.store.On("ListComplaintTypes").Return([]models.ComplaintType{*ct, orphan}, nil)

	w, body := e.do(t, httptest.NewRequest(http.MethodGet, "/api/complaint-types", nil), e.token(t, u.Principal()))

	require.Equal(t, http.StatusOK, w.Code)
	types := body["complaintTypes"].([]interface{})
	require.Len(t, types, 1)
	subs := types[0].(map[string]interface{})["subTypes"].([]interface{})
	require.Len(t, subs, 2)
	first := subs[0].(map[string]interface{})
	assert.Equal(t, "Broken footpath", first["name"])
	assert.Equal(t, float64(1), first["key"])
}

func TestRoutes_TokenKindMustMatch(t *testing.T) {
	e := newTestEnv(t)
	u := e.loginUser(t)

	w, _ := e.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/me", nil), e.token(t, u.Principal()))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = e.do(t, httptest.NewRequest(http.MethodGet, "/api/complaints", nil), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateAdmin_RequiresSuperAdmin(t *testing.T) {
	e := newTestEnv(t)
	a := e.loginAdmin(t, models.RoleAdmin)

	w, _ := e.do(t, jsonRequest(http.MethodPost, "/api/admin/admins", gin.H{
		"name": "New", "email": "new@city.gov", "password": "longenough",
	}), e.token(t, a.Principal()))

	assert.Equal(t, http.StatusForbidden, w.Code)
	e.store.AssertNotCalled(t, "CreateAdmin", mock.Anything)
}

func TestSetAdminStatus_CannotChangeOwn(t *testing.T) {
	e := newTestEnv(t)
	a := e.loginAdmin(t, models.RoleSuperAdmin)

	w, _ := e.do(t, jsonRequest(http.MethodPatch, "/api/admin/admins/"+a.ID.Hex()+"/status", gin.H{
		"status": "suspended",
	}), e.token(t, a.Principal()))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRetireSubType_KeepsKeys(t *testing.T) {
	e := newTestEnv(t)
	a := e.loginAdmin(t, models.RoleAdmin)
	ct, _ := roadIssues()
	e.store.On("GetComplaintTypeByID", ct.ID).Return(ct, nil)
	e.store.On("UpdateComplaintType", ct.ID, mock.MatchedBy(func(set bson.M) bool {
		subs, ok := set["subTypes"].([]models.SubType)
		return ok && len(subs) == 3 && subs[1].Retired && !subs[0].Retired && subs[2].Key == 2
	})).Return(nil)

	w, _ := e.do(t, httptest.NewRequest(http.MethodDelete, "/api/admin/complaint-types/"+ct.ID.Hex()+"/subtypes/1", nil), e.token(t, a.Principal()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, e.act.actions(), activity.ActionComplaintTypeSaved)
	e.store.AssertExpectations(t)
}

func TestRetireSubType_UnknownKey(t *testing.T) {
	e := newTestEnv(t)
	a := e.loginAdmin(t, models.RoleAdmin)
	ct, _ := roadIssues()
	e.store.On("GetComplaintTypeByID", ct.ID).Return(ct, nil)

	w, _ := e.do(t, httptest.NewRequest(http.MethodDelete, "/api/admin/complaint-types/"+ct.ID.Hex()+"/subtypes/9", nil), e.token(t, a.Principal()))

	assert.Equal(t, http.StatusNotFound, w.Code)
	e.store.AssertNotCalled(t, "UpdateComplaintType", mock.Anything, mock.Anything)
}

func TestWorkerStatusUpdate_RejectsUnknownStatus(t *testing.T) {
	e := newTestEnv(t)
	wk := &models.Worker{ID: primitive.NewObjectID(), DepartmentID: primitive.NewObjectID(), Status: models.StatusActive}
	e.store.On("GetWorkerByID", wk.ID).Return(wk, nil)

	w, body := e.do(t, jsonRequest(http.MethodPatch, "/api/worker/complaints/"+primitive.NewObjectID().Hex()+"/status", gin.H{
		"status": "Done",
	}), e.token(t, wk.Principal()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.HasPrefix(body["message"].(string), "status must be one of"), body["message"])
}

func TestListActivity_Filters(t *testing.T) {
	e := newTestEnv(t)
	a := e.loginAdmin(t, models.RoleAdmin)

	w, body := e.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/activity?actorKind=worker&success=false&from=2024-01-01", nil), e.token(t, a.Principal()))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.KindWorker, e.act.filter.ActorKind)
	require.NotNil(t, e.act.filter.Success)
	assert.False(t, *e.act.filter.Success)
	require.NotNil(t, e.act.filter.From)
	assert.Equal(t, 2024, e.act.filter.From.Year())
	assert.Contains(t, body, "activity")

	w, _ = e.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/activity?success=maybe", nil), e.token(t, a.Principal()))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkerComplaints_BlockQuery(t *testing.T) {
	e := newTestEnv(t)
	wk := &models.Worker{ID: primitive.NewObjectID(), DepartmentID: primitive.NewObjectID(), Status: models.StatusActive}
	e.store.On("GetWorkerByID", wk.ID).Return(wk, nil)
	block := primitive.NewObjectID()

	e.store.On("ListComplaints", mock.MatchedBy(func(f storage.ComplaintFilter) bool {
		return f.BlockID != nil && *f.BlockID == block &&
			f.DepartmentID != nil && *f.DepartmentID == wk.DepartmentID
	}), mock.Anything).Return([]models.Complaint{}, int64(0), nil)

	w, _ := e.do(t, httptest.NewRequest(http.MethodGet, "/api/worker/complaints?block="+block.Hex(), nil), e.token(t, wk.Principal()))
	assert.Equal(t, http.StatusOK, w.Code)
	e.store.AssertExpectations(t)

	w, _ = e.do(t, httptest.NewRequest(http.MethodGet, "/api/worker/complaints?block=ward-3", nil), e.token(t, wk.Principal()))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
