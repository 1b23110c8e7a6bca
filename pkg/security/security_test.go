package security

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtection(t *testing.T) *DataProtection {
	t.Helper()
	p, err := NewDataProtection(base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 32))))
	require.NoError(t, err)
	return p
}

func TestDataProtection_RoundTrip(t *testing.T) {
	p := newProtection(t)

	a, err := p.Encrypt("192.168.1.10")
	require.NoError(t, err)
	b, err := p.Encrypt("192.168.1.10")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	plain, err := p.Decrypt(a)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.10", plain)
}

func TestDataProtection_RejectsTampering(t *testing.T) {
	p := newProtection(t)
	enc, err := p.Encrypt("secret")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(enc)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	_, err = p.Decrypt(base64.StdEncoding.EncodeToString(raw))
	assert.Error(t, err)

	_, err = p.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestNewDataProtection_KeyLength(t *testing.T) {
	_, err := NewDataProtection(base64.StdEncoding.EncodeToString([]byte("too-short")))
	assert.Error(t, err)

	_, err = NewDataProtection("%%%")
	assert.Error(t, err)
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(2, time.Minute)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	l.visitors["b"].lastSeen = time.Now().Add(-time.Hour)
	l.sweep()
	_, ok := l.visitors["b"]
	assert.False(t, ok)
	_, ok = l.visitors["a"]
	assert.True(t, ok)
}

func TestMiddlewares(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"http://allowed.test"}), Secure(), NewRateLimiter(1, time.Minute).Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://allowed.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://allowed.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
