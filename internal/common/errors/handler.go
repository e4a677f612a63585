// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"

	"creator-match/internal/models"
)

// ErrorHandler writes errors as JSON responses with a consistent shape.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// ErrorResponse is the JSON envelope for failed requests.
type ErrorResponse struct {
	Error         *StandardError        `json:"error"`
	Notifications []models.Notification `json:"notifications,omitempty"`
}

// HandleHTTPError normalizes err, logs it and writes the JSON envelope.
func (h *ErrorHandler) HandleHTTPError(w http.ResponseWriter, r *http.Request, err error) {
	h.HandleWithNotifications(w, r, err, nil)
}

// HandleWithNotifications is HandleHTTPError for session routes, whose
// responses also carry the notifications raised while handling the request.
func (h *ErrorHandler) HandleWithNotifications(w http.ResponseWriter, r *http.Request, err error, notes []models.Notification) {
	stdErr := h.normalizeError(err)
	status := HTTPStatus(stdErr.Code)

	h.logError(r, stdErr, status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: stdErr, Notifications: notes})
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

func (h *ErrorHandler) logError(r *http.Request, stdErr *StandardError, status int) {
	if h.logger == nil {
		return
	}
	fields := map[string]interface{}{
		"method":        r.Method,
		"path":          r.URL.Path,
		"status":        status,
		"errorCode":     string(stdErr.Code),
		"details":       stdErr.Details,
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields)
		return
	}
	h.logger.Warn("request rejected", fields)
}
