package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/testutil"
	"learnhub_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtSecret = "app-test-secret"

type testApp struct {
	*App
	t *testing.T
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", Mode: "test"},
		JWT:       config.JWTConfig{Secret: jwtSecret},
		Storage:   config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir()},
		RateLimit: config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
		Outbox:    config.OutboxConfig{}.WithDefaults(),
		Security:  config.SecurityConfig{EncryptionKey: "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="},
	}
	a, err := Build(cfg, testutil.DB(t), nil)
	require.NoError(t, err)
	return &testApp{App: a, t: t}
}

func (a *testApp) token(user *model.User) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, util.Claims{
		UserID:    user.ID,
		Role:      user.Role,
		IsPremium: user.IsPremium,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(jwtSecret))
	require.NoError(a.t, err)
	return token
}

func (a *testApp) do(method, path string, user *model.User, body interface{}) (*httptest.ResponseRecorder, util.Response) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+a.token(user))
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	var resp util.Response
	if w.Body.Len() > 0 {
		json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func (a *testApp) user(name string, role model.UserRole, premium bool) *model.User {
	u := testutil.CreateUser(a.t, a.DB, name, premium)
	u.Role = role
	require.NoError(a.t, a.DB.Model(u).Update("role", role).Error)
	return u
}

func dataID(t *testing.T, resp util.Response) uint {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "unexpected data %#v", resp.Data)
	id, ok := m["id"].(float64)
	require.True(t, ok)
	return uint(id)
}

func TestHealthAndAuth(t *testing.T) {
	a := newTestApp(t)

	w, _ := a.do(http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = a.do(http.MethodGet, "/api/courses", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCourseLifecycle(t *testing.T) {
	a := newTestApp(t)
	teacher := a.user("teacher", model.Teacher, false)
	student := a.user("student", model.Student, false)
	other := a.user("other", model.Student, false)

	w, _ := a.do(http.MethodPost, "/api/courses", student, map[string]interface{}{"title": "x", "category": "c", "level": "l"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp := a.do(http.MethodPost, "/api/courses", teacher, map[string]interface{}{
		"title":          "Go Basics",
		"category":       "programming",
		"level":          "beginner",
		"hasCertificate": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	courseID := dataID(t, resp)

	w, _ = a.do(http.MethodPost, "/api/courses/enroll", student, map[string]interface{}{"courseId": courseID})
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp = a.do(http.MethodPost, "/api/courses/enroll", student, map[string]interface{}{"courseId": courseID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_ENROLLED", resp.Reason)

	progressPath := fmt.Sprintf("/api/courses/%d/progress", courseID)
	w, _ = a.do(http.MethodPut, progressPath, student, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = a.do(http.MethodPut, progressPath, student, map[string]interface{}{"progressPercentage": 150})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PERCENTAGE", resp.Reason)

	w, _ = a.do(http.MethodPut, progressPath, student, map[string]interface{}{"progressPercentage": 100})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = a.do(http.MethodPut, progressPath, other, map[string]interface{}{"progressPercentage": 10})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_ENROLLED", resp.Reason)

	w, _ = a.do(http.MethodGet, fmt.Sprintf("/api/users/%d/progress", student.ID), other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = a.do(http.MethodGet, "/api/users/abc/progress", student, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, resp.Reason)

	w, resp = a.do(http.MethodGet, fmt.Sprintf("/api/users/%d/progress", student.ID), student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100.0, resp.Data.(map[string]interface{})["overallProgress"])

	_, processed, err := a.RunPendingTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, processed)

	w, resp = a.do(http.MethodGet, "/api/certificates", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data, 1)

	w, resp = a.do(http.MethodGet, "/api/notifications", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.GreaterOrEqual(t, resp.Data.(map[string]interface{})["total"], 1.0)
}

func TestPremiumEnrollmentForbidden(t *testing.T) {
	a := newTestApp(t)
	student := a.user("student", model.Student, false)
	course := testutil.CreateCourse(t, a.DB, "Advanced Go", true, false)

	w, resp := a.do(http.MethodPost, "/api/courses/enroll", student, map[string]interface{}{"courseId": course.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "PREMIUM_REQUIRED", resp.Reason)

	w, resp = a.do(http.MethodPost, "/api/courses/enroll", student, map[string]interface{}{"courseId": 9999})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "COURSE_NOT_FOUND", resp.Reason)
}

func TestEventRegistrationFlow(t *testing.T) {
	a := newTestApp(t)
	admin := a.user("admin", model.Admin, false)
	first := a.user("first", model.Student, false)
	second := a.user("second", model.Student, false)

	w, _ := a.do(http.MethodPost, "/api/events", first, map[string]interface{}{"title": "x", "datetime": time.Now().Add(time.Hour)})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp := a.do(http.MethodPost, "/api/events", admin, map[string]interface{}{
		"title":        "Go Meetup",
		"datetime":     time.Now().Add(48 * time.Hour),
		"maxAttendees": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	eventID := dataID(t, resp)

	w, _ = a.do(http.MethodPost, "/api/events/register", first, map[string]interface{}{"eventId": eventID})
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp = a.do(http.MethodPost, "/api/events/register", second, map[string]interface{}{"eventId": eventID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EVENT_FULL", resp.Reason)

	w, resp = a.do(http.MethodPost, "/api/events/register", second, map[string]interface{}{"eventId": 9999})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "EVENT_NOT_FOUND", resp.Reason)

	feedback := fmt.Sprintf("/api/events/%d/feedback", eventID)
	w, _ = a.do(http.MethodPost, feedback, first, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, resp = a.do(http.MethodPost, feedback, first, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "FEEDBACK_ALREADY_SUBMITTED", resp.Reason)

	w, _ = a.do(http.MethodPost, fmt.Sprintf("/api/events/%d/attendance/%d", eventID, first.ID), admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = a.do(http.MethodGet, "/api/events/registrations", first, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data, 1)
}
