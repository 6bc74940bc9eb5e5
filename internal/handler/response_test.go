package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apierrors "Lens_Community/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	SetupValidator()
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, errors.New("dial tcp 10.0.0.3:3306: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
	assert.Len(t, c.Errors, 1)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	respondError(c, apierrors.ErrExpired)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invitation code has expired","code":"otp_expired"}`, w.Body.String())
}

func TestBindJSONNamesTheField(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"password":"password123","email":"a@example.com"}`, "username is required"},
		{`{"username":"abc","password":"password123","email":"nope"}`, "email must be a valid email"},
		{`{"username":"abc","password":"short","email":"a@example.com"}`, "password must satisfy min=8"},
		{`{"username":"abc","password":"password123","email":"a@example.com","role":"admin"}`, "role must be one of"},
		{`{not json`, "invalid request body"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
		c.Request.Header.Set("Content-Type", "application/json")

		var req RegisterReq
		require.False(t, bindJSON(c, &req), tc.body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), tc.want, tc.body)
	}
}

func TestParamIDRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-1"} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "id", Value: raw}}
		_, ok := paramID(c, "id")
		assert.False(t, ok, raw)
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
}

func TestJoinReqAcceptsBothSpellings(t *testing.T) {
	assert.Equal(t, "123456", JoinReq{OTPCode: " 123456 "}.code())
	assert.Equal(t, "654321", JoinReq{OTPCodeSnake: "654321"}.code())
	assert.Equal(t, "111111", JoinReq{OTPCode: "111111", OTPCodeSnake: "222222"}.code())
	assert.Empty(t, JoinReq{}.code())
}

func TestLoginReqIdentifier(t *testing.T) {
	assert.Equal(t, "bob", LoginReq{Username: "bob"}.identifier())
	assert.Equal(t, "b@example.com", LoginReq{Email: "b@example.com", Username: "bob"}.identifier())
	assert.Equal(t, "x", LoginReq{Login: "x", Email: "b@example.com"}.identifier())
}
