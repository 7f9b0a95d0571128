package users

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aerowatch/dashboard-portal/settings-backend/internal/auth"
	"aerowatch/dashboard-portal/settings-backend/internal/settings"
)

func newTestRouter(repo Repository, reader SettingsReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/api/v1")
	group.Use(auth.RequirePrincipal())
	NewHandler(newTestService(repo, reader, nil), zap.NewNop()).RegisterRoutes(group)
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", testUserID.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) (bool, string) {
	t.Helper()
	var env struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Success, env.Error
}

func TestUpdateProfilePartialPatch(t *testing.T) {
	repo := new(MockRepository)
	var captured *ProfileUpdateRequest
	repo.On("UpdateProfile", mock.Anything, testUserID, mock.AnythingOfType("*users.ProfileUpdateRequest")).
		Run(func(args mock.Arguments) { captured = args.Get(2).(*ProfileUpdateRequest) }).
		Return(true, nil)

	w := doRequest(newTestRouter(repo, new(MockSettingsReader)), http.MethodPut, "/api/v1/user/profile",
		`{"firstName":"Ana"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured.FirstName)
	assert.Equal(t, "Ana", *captured.FirstName)
	assert.Nil(t, captured.LastName)
	assert.Nil(t, captured.Phone)
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	repo := new(MockRepository)
	repo.On("UpdateProfile", mock.Anything, testUserID, mock.Anything).Return(false, nil)

	w := doRequest(newTestRouter(repo, new(MockSettingsReader)), http.MethodPut, "/api/v1/user/profile",
		`{"firstName":"Ana"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	success, msg := decodeEnvelope(t, w)
	assert.False(t, success)
	assert.NotEmpty(t, msg)
}

func TestUploadAvatarMissingFile(t *testing.T) {
	router := newTestRouter(new(MockRepository), new(MockSettingsReader))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", testUserID.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	success, msg := decodeEnvelope(t, w)
	assert.False(t, success)
	assert.Equal(t, "file is required", msg)
}

func TestUploadAvatarReturnsURL(t *testing.T) {
	repo := new(MockRepository)
	repo.On("UpdateAvatar", mock.Anything, testUserID, mock.AnythingOfType("string")).Return(true, nil)
	router := newTestRouter(repo, new(MockSettingsReader))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", testUserID.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Success bool `json:"success"`
		Data    struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Contains(t, env.Data.URL, "avatars/"+testUserID.String()+"/")
}

func TestChangePasswordValidationEnvelope(t *testing.T) {
	w := doRequest(newTestRouter(new(MockRepository), new(MockSettingsReader)), http.MethodPost, "/api/v1/user/password",
		`{"currentPassword":"old-password","newPassword":"short","confirmPassword":"short"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var env struct {
		Success bool `json:"success"`
		Fields  []struct {
			Field string `json:"field"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.Success)
	require.NotEmpty(t, env.Fields)
	assert.Equal(t, "newPassword", env.Fields[0].Field)
}

func TestChangePasswordWrongCurrentStatus(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, testUserID).Return(&User{
		ID:           testUserID,
		PasswordHash: hashOf(t, "the-real-password"),
	}, nil)

	w := doRequest(newTestRouter(repo, new(MockSettingsReader)), http.MethodPost, "/api/v1/user/password",
		`{"currentPassword":"wrong","newPassword":"new-password-1","confirmPassword":"new-password-1"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	success, msg := decodeEnvelope(t, w)
	assert.False(t, success)
	assert.Equal(t, "current password is incorrect", msg)
}

func TestExportRequiresUserIDParam(t *testing.T) {
	w := doRequest(newTestRouter(new(MockRepository), new(MockSettingsReader)), http.MethodGet, "/api/v1/user/export", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	success, _ := decodeEnvelope(t, w)
	assert.False(t, success)
}

func TestExportReturnsRawBundle(t *testing.T) {
	repo := new(MockRepository)
	reader := new(MockSettingsReader)
	repo.On("GetByID", mock.Anything, testUserID).Return(&User{ID: testUserID, Email: "ana@example.com"}, nil)
	reader.On("GetSettings", mock.Anything, testUserID).Return(settings.DefaultStoredSettings(testUserID), nil)
	reader.On("GetHealthProfile", mock.Anything, testUserID).Return(settings.DefaultHealthProfile(testUserID), nil)
	reader.On("GetThresholds", mock.Anything, testUserID).Return(settings.DefaultThresholds(testUserID), nil)
	reader.On("ListEmergencyContacts", mock.Anything, testUserID).Return([]settings.EmergencyContact{}, nil)

	w := doRequest(newTestRouter(repo, reader), http.MethodGet,
		"/api/v1/user/export?userId="+testUserID.String(), "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	var bundle map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bundle))
	assert.Contains(t, bundle, "user")
	assert.Contains(t, bundle, "settings")
	assert.Contains(t, bundle, "health_profile")
	assert.NotContains(t, bundle, "success")
}

func TestDeleteRequiresUserIDParam(t *testing.T) {
	w := doRequest(newTestRouter(new(MockRepository), new(MockSettingsReader)), http.MethodDelete, "/api/v1/user/delete", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteStoreErrorHidesDetail(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Delete", mock.Anything, testUserID).Return(false, errors.New("pq: connection refused"))

	w := doRequest(newTestRouter(repo, new(MockSettingsReader)), http.MethodDelete,
		"/api/v1/user/delete?userId="+testUserID.String(), "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	success, msg := decodeEnvelope(t, w)
	assert.False(t, success)
	assert.Equal(t, "failed to delete account", msg)
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestDeleteTwiceSecondIs404(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Delete", mock.Anything, testUserID).Return(true, nil).Once()
	repo.On("Delete", mock.Anything, testUserID).Return(false, nil).Once()
	router := newTestRouter(repo, new(MockSettingsReader))

	first := doRequest(router, http.MethodDelete, "/api/v1/user/delete?userId="+testUserID.String(), "")
	second := doRequest(router, http.MethodDelete, "/api/v1/user/delete?userId="+testUserID.String(), "")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusNotFound, second.Code)
	success, msg := decodeEnvelope(t, second)
	assert.False(t, success)
	assert.Equal(t, "user not found", msg)
}
