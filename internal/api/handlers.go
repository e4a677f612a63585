package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "creator-match/internal/common/errors"
	"creator-match/internal/common/validation"
	"creator-match/internal/models"
	"creator-match/internal/session"
	"creator-match/internal/wizard"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 16 << 10

// WizardResponse is returned by every successful session route.
type WizardResponse struct {
	ID            string                `json:"id"`
	State         wizard.State          `json:"state"`
	ExpiresAt     time.Time             `json:"expiresAt"`
	Notifications []models.Notification `json:"notifications"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Sessions  int       `json:"sessions"`
	Timestamp time.Time `json:"timestamp"`
}

// sessionHandler runs one action against a live session and returns the
// success status code.
type sessionHandler func(w http.ResponseWriter, r *http.Request, entry *session.Entry) (int, error)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		entry, err := s.sessions.Get(r.Context(), id)
		if err != nil {
			s.errors.HandleHTTPError(w, r, err)
			return
		}

		status, err := h(w, r, entry)
		if err != nil {
			s.errors.HandleWithNotifications(w, r, s.translate(entry, err), entry.Outbox.Drain())
			return
		}

		s.sessions.Persist(r.Context(), entry)
		s.writeWizard(w, status, entry)
	}
}

func (s *Server) writeWizard(w http.ResponseWriter, status int, entry *session.Entry) {
	writeJSON(w, status, WizardResponse{
		ID:            entry.ID,
		State:         entry.Controller.Snapshot(),
		ExpiresAt:     entry.Meta().ExpiresAt,
		Notifications: entry.Outbox.Drain(),
	})
}

// translate maps wizard sentinels onto StandardErrors. Errors that already
// carry a code pass through.
func (s *Server) translate(entry *session.Entry, err error) error {
	if _, ok := apperrors.AsStandardError(err); ok {
		return err
	}
	step := string(entry.Controller.Step())
	switch {
	case errors.Is(err, wizard.ErrSubmissionPending):
		return apperrors.NewSubmissionPendingError(err)
	case errors.Is(err, wizard.ErrInvalidTransition), errors.Is(err, wizard.ErrStepInactive):
		return apperrors.NewInvalidTransitionError(step, err.Error())
	case errors.Is(err, wizard.ErrEmailCaptureDisabled):
		return apperrors.NewInvalidRequestError("email capture is disabled")
	}
	return apperrors.NewInternalError(err)
}

// ==========================
// Infrastructure
// ==========================

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Sessions:  s.sessions.Len(),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.Warn("not ready", map[string]interface{}{"error": err})
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Timestamp: time.Now().UTC()})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ready", Sessions: s.sessions.Len(), Timestamp: time.Now().UTC()})
}

// ==========================
// Wizard Routes
// ==========================

func (s *Server) createWizard(w http.ResponseWriter, r *http.Request) {
	entry, err := s.sessions.Create(r.Context())
	if err != nil {
		s.errors.HandleHTTPError(w, r, err)
		return
	}
	s.writeWizard(w, http.StatusCreated, entry)
}

func (s *Server) deleteWizard(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.errors.HandleHTTPError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getWizard(_ http.ResponseWriter, _ *http.Request, _ *session.Entry) (int, error) {
	return http.StatusOK, nil
}

func (s *Server) updateBusiness(_ http.ResponseWriter, r *http.Request, entry *session.Entry) (int, error) {
	fields, err := decodeFields(r, businessFields)
	if err != nil {
		return 0, err
	}
	for _, f := range fields {
		if err := entry.Controller.SetBusinessField(f.field, f.value); err != nil {
			return 0, err
		}
	}
	return http.StatusOK, nil
}

func (s *Server) updateCreator(_ http.ResponseWriter, r *http.Request, entry *session.Entry) (int, error) {
	fields, err := decodeFields(r, creatorFields)
	if err != nil {
		return 0, err
	}
	for _, f := range fields {
		if err := entry.Controller.SetCreatorField(f.field, f.value); err != nil {
			return 0, err
		}
	}
	return http.StatusOK, nil
}

func (s *Server) submitBusiness(_ http.ResponseWriter, r *http.Request, entry *session.Entry) (int, error) {
	return http.StatusOK, entry.Controller.SubmitBusiness(r.Context())
}

func (s *Server) submitCreator(_ http.ResponseWriter, r *http.Request, entry *session.Entry) (int, error) {
	return http.StatusOK, entry.Controller.SubmitCreator(r.Context())
}

func (s *Server) back(_ http.ResponseWriter, _ *http.Request, entry *session.Entry) (int, error) {
	return http.StatusOK, entry.Controller.Back()
}

func (s *Server) reset(_ http.ResponseWriter, _ *http.Request, entry *session.Entry) (int, error) {
	return http.StatusOK, entry.Controller.Reset()
}

type emailBody struct {
	Email string `json:"email"`
}

func (s *Server) submitEmail(_ http.ResponseWriter, r *http.Request, entry *session.Entry) (int, error) {
	raw, err := readBody(r, emailRequest)
	if err != nil {
		return 0, err
	}
	var body emailBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return 0, apperrors.NewInvalidRequestError(err.Error())
	}
	if err := s.sessions.SubmitEmail(r.Context(), entry, body.Email); err != nil {
		return 0, err
	}
	return http.StatusAccepted, nil
}

// ==========================
// Helpers
// ==========================

type fieldValue struct {
	field models.Field
	value string
}

// decodeFields validates a field-update body and returns its entries in form
// order.
func decodeFields(r *http.Request, schema *validation.Schema) ([]fieldValue, error) {
	raw, err := readBody(r, schema)
	if err != nil {
		return nil, err
	}
	var values map[string]string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, apperrors.NewInvalidRequestError(err.Error())
	}

	order := append([]models.Field{models.FieldWebsite}, models.SocialFields...)
	out := make([]fieldValue, 0, len(values))
	for _, f := range order {
		if v, ok := values[string(f)]; ok {
			out = append(out, fieldValue{field: f, value: v})
		}
	}
	return out, nil
}

func readBody(r *http.Request, schema *validation.Schema) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("read body: %v", err))
	}
	if len(raw) > maxBodyBytes {
		return nil, apperrors.NewInvalidRequestError("request body too large")
	}

	result := schema.ValidateBytes(raw)
	if !result.Valid {
		return nil, apperrors.NewInvalidRequestError(strings.Join(result.GetErrorMessages(), "; ")).
			WithMetadata(map[string]interface{}{"schema": schema.Name()})
	}
	return raw, nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
