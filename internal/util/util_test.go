package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAppErrorStatus(t *testing.T) {
	cases := map[*AppError]int{
		ErrCourseNotFound:    http.StatusNotFound,
		ErrAlreadyEnrolled:   http.StatusConflict,
		ErrPremiumRequired:   http.StatusForbidden,
		ErrInvalidPercentage: http.StatusBadRequest,
	}
	for err, status := range cases {
		assert.Equal(t, status, err.Status(), err.Code)
	}
}

func TestAsAppError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("enroll: %w", ErrEventFull)
	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "EVENT_FULL", appErr.Code)

	_, ok = AsAppError(errors.New("boom"))
	assert.False(t, ok)
}

func TestRespondError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondError(c, ErrAlreadyRegistered)

	assert.Equal(t, http.StatusConflict, w.Code)
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ALREADY_REGISTERED", body.Reason)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	RespondError(c, errors.New("db down"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestPagination(t *testing.T) {
	skip, limit := Pagination("", "")
	assert.Equal(t, 0, skip)
	assert.Equal(t, DefaultPageLimit, limit)

	skip, limit = Pagination("-3", "1000")
	assert.Equal(t, 0, skip)
	assert.Equal(t, MaxPageLimit, limit)

	skip, limit = Pagination("20", "5")
	assert.Equal(t, 20, skip)
	assert.Equal(t, 5, limit)
}

func TestMustParseUint(t *testing.T) {
	assert.Equal(t, uint(42), MustParseUint("42"))
	assert.Equal(t, uint(0), MustParseUint("abc"))
	assert.Equal(t, uint(0), MustParseUint("-1"))
}

func TestParseID(t *testing.T) {
	id, ok := ParseID("42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	for _, s := range []string{"abc", "-1", "0", "", "1.5"} {
		_, ok := ParseID(s)
		assert.False(t, ok, s)
	}
}

func TestParseJWT(t *testing.T) {
	secret := "test-secret"
	claims := Claims{
		UserID:    9,
		Role:      "student",
		IsPremium: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	parsed, err := ParseJWT(signed, secret)
	require.NoError(t, err)
	assert.Equal(t, Principal{ID: 9, Role: "student", IsPremium: true}, parsed.Principal())

	_, err = ParseJWT(signed, "other-secret")
	assert.Error(t, err)

	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = ParseJWT(expired, secret)
	assert.Error(t, err)
}

func TestValidateMimeType(t *testing.T) {
	mime, err := ValidateMimeType(bytes.NewReader([]byte("%PDF-1.7\n")), AllowedResourceTypes)
	require.NoError(t, err)
	assert.Equal(t, MimePDF, mime)

	_, err = ValidateMimeType(bytes.NewReader([]byte{0x7f, 'E', 'L', 'F', 0x02}), AllowedResourceTypes)
	assert.ErrorIs(t, err, ErrInvalidFileType)

	assert.True(t, IsVideo("video/mp4"))
	assert.False(t, IsVideo("image/png"))
}

func TestParseProbeDuration(t *testing.T) {
	d, err := parseProbeDuration(`{"format":{"duration":"93.480000"}}`)
	require.NoError(t, err)
	assert.InDelta(t, 93.48, d, 1e-9)

	d, err = parseProbeDuration(`{"format":{}}`)
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = parseProbeDuration("not json")
	assert.Error(t, err)
}
