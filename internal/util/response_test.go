package util

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"proctorx_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

func performHandleError(t *testing.T, err error) (int, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleError(c, err)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHandleErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{ErrValidation, http.StatusBadRequest},
		{ErrTestHasNoQuestions, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrAccountDeactivated, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrTestNotAccessible, http.StatusForbidden},
		{ErrNotFound, http.StatusNotFound},
		{ErrQuestionNotInTest, http.StatusNotFound},
		{ErrConflict, http.StatusConflict},
		{ErrAttemptLimitExceeded, http.StatusConflict},
		{ErrEmailRegistered, http.StatusConflict},
		{ErrQuestionsLocked, http.StatusConflict},
		{ErrSubmissionClosed, http.StatusConflict},
		{ErrTestArchived, http.StatusConflict},
		{ErrAccessCodeExhausted, http.StatusConflict},
		{ErrRateLimited, http.StatusTooManyRequests},
	}

	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			code, body := performHandleError(t, tc.err)
			assert.Equal(t, tc.code, code)
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestHandleErrorWrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("loading submission: %w", ErrNotFound)
	code, body := performHandleError(t, wrapped)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, body.Success)
}

func TestHandleErrorUnknownIs500(t *testing.T) {
	code, body := performHandleError(t, fmt.Errorf("driver: bad connection"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.False(t, body.Success)
	// 内部错误细节不能泄露给客户端
	assert.Equal(t, "Internal server error", body.Error)
}
