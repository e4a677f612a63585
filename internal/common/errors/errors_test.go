package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"creator-match/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type recordingLogger struct {
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.errors = append(l.errors, msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.warns = append(l.warns, msg) }

// ==========================
// StandardError
// ==========================

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   ErrorCode
		status int
	}{
		{ErrCodeMissingField, http.StatusUnprocessableEntity},
		{ErrCodeInvalidFormat, http.StatusUnprocessableEntity},
		{ErrCodeAnalysisUnavailable, http.StatusServiceUnavailable},
		{ErrCodeDeliveryFailed, http.StatusBadGateway},
		{ErrCodeInvalidTransition, http.StatusConflict},
		{ErrCodeSubmissionPending, http.StatusConflict},
		{ErrCodeSessionNotFound, http.StatusNotFound},
		{ErrCodeInvalidRequest, http.StatusBadRequest},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.code))
		})
	}
}

func TestAsStandardError_ThroughWrapping(t *testing.T) {
	cause := stderrors.New("smtp down")
	wrapped := fmt.Errorf("dispatch: %w", NewDeliveryFailedError("ses", cause))

	stdErr, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeDeliveryFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Contains(t, stdErr.Details, "provider: ses")
	assert.ErrorIs(t, wrapped, cause)

	assert.True(t, HasCode(wrapped, ErrCodeDeliveryFailed))
	assert.False(t, HasCode(wrapped, ErrCodeInternal))
	assert.False(t, HasCode(cause, ErrCodeDeliveryFailed))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeMissingField))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidRequest))
	assert.Equal(t, "COLLABORATOR", GetErrorCategory(ErrCodeAnalysisUnavailable))
	assert.Equal(t, "STATE", GetErrorCategory(ErrCodeSubmissionPending))
	assert.Equal(t, "SESSION", GetErrorCategory(ErrCodeSessionNotFound))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestWithMetadata_Merges(t *testing.T) {
	err := NewInvalidRequestError("bad body").WithMetadata(map[string]interface{}{"schema": "email-request"})
	assert.Equal(t, "email-request", err.Metadata["schema"])
}

// ==========================
// ErrorHandler
// ==========================

func TestHandleWithNotifications_WritesEnvelope(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wizards/x/business/submit", nil)
	notes := []models.Notification{{Kind: models.NotificationValidationError, Title: "Missing Information"}}

	h.HandleWithNotifications(rec, req, NewInvalidTransitionError("results", "back"), notes)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, ErrCodeInvalidTransition, body.Error.Code)
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, "Missing Information", body.Notifications[0].Title)

	assert.Len(t, log.warns, 1)
	assert.Empty(t, log.errors)
}

func TestHandleHTTPError_PlainErrorBecomesInternal(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)

	rec := httptest.NewRecorder()
	h.HandleHTTPError(rec, httptest.NewRequest(http.MethodGet, "/", nil), stderrors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body, "notifications")
	assert.Len(t, log.errors, 1)
}
