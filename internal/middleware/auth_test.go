package middleware

import (
	"context"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-test-secret"

func sign(t *testing.T, userID uint, role model.UserRole) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, util.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})...)
	return r
}

func do(r *gin.Engine, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(AuthMiddleware(secret))

	assert.Equal(t, http.StatusUnauthorized, do(r, "/", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/", "garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/", sign(t, 0, model.Student)).Code)
	assert.Equal(t, http.StatusOK, do(r, "/", sign(t, 1, model.Student)).Code)
	assert.Equal(t, http.StatusOK, do(r, "/?token="+sign(t, 1, model.Student), "").Code)
}

func TestRoleMiddleware(t *testing.T) {
	r := newRouter(AuthMiddleware(secret), RoleMiddleware(model.Teacher))

	w := do(r, "/", sign(t, 1, model.Student))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "PERMISSION_DENIED")

	assert.Equal(t, http.StatusOK, do(r, "/", sign(t, 2, model.Teacher)).Code)
	assert.Equal(t, http.StatusOK, do(r, "/", sign(t, 3, model.Admin)).Code)
}

type fakeActivity struct {
	mu   sync.Mutex
	seen []uint
}

func (f *fakeActivity) UpdateLastSeen(ctx context.Context, userID uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, userID)
	return nil
}

func (f *fakeActivity) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func TestActivityMiddleware(t *testing.T) {
	repo := &fakeActivity{}
	r := newRouter(AuthMiddleware(secret), ActivityMiddleware(repo))

	assert.Equal(t, http.StatusOK, do(r, "/", sign(t, 5, model.Student)).Code)
	require.Eventually(t, func() bool { return repo.count() == 1 }, time.Second, 10*time.Millisecond)
}
