// internal/server/integrations.go
package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"campaign-engine/internal/common/auth"
	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/models"

	"github.com/go-chi/chi/v5"
)

func sessionOr401(w http.ResponseWriter, r *http.Request) (*auth.Session, bool) {
	session, ok := auth.SessionFrom(r.Context())
	if !ok {
		errors.WriteHTTP(w, errors.NewAuthRequiredError("no session in context"))
		return nil, false
	}
	return session, true
}

func providerParam(w http.ResponseWriter, r *http.Request) (models.Provider, bool) {
	provider := models.Provider(chi.URLParam(r, "provider"))
	if !provider.Valid() {
		errors.WriteHTTP(w, errors.NewValidationError("unknown provider", []errors.FieldError{
			{Field: "provider", Message: "provider must be vapi, twilio or sendgrid"},
		}))
		return "", false
	}
	return provider, true
}

func (s *Server) handleIntegrationStatuses(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	statuses := s.integrations.GetIntegrationStatuses(r.Context(), session.UserID)
	respondJSON(w, http.StatusOK, map[string]interface{}{"integrations": statuses})
}

func (s *Server) handleGetIntegration(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	provider, ok := providerParam(w, r)
	if !ok {
		return
	}

	cfg, err := s.integrations.GetRawConfig(r.Context(), session.UserID, provider)
	if err != nil {
		errors.WriteHTTP(w, err)
		return
	}
	if cfg == nil {
		errors.WriteHTTP(w, errors.NewNotFoundError("integration config", string(provider)))
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSaveIntegration(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	provider, ok := providerParam(w, r)
	if !ok {
		return
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		errors.WriteHTTP(w, errors.NewValidationError("invalid request body", []errors.FieldError{
			{Field: "body", Message: "request body must be a JSON object"},
		}))
		return
	}

	result, err := s.integrations.SaveRawConfig(r.Context(), session.UserID, provider, raw)
	if err != nil {
		errors.WriteHTTP(w, err)
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, result)
}

func (s *Server) handleTestIntegration(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	provider, ok := providerParam(w, r)
	if !ok {
		return
	}

	testErr := s.runConnectivityTest(w, r, session.UserID, provider)
	if testErr == errSkipResponse {
		return
	}

	testStatus := models.TestPassed
	if testErr != nil {
		testStatus = models.TestFailed
	}
	if err := s.integrations.UpdateIntegrationStatus(r.Context(), session.UserID, provider, true, testStatus); err != nil {
		s.logger.Error("failed to record test outcome", map[string]interface{}{
			"provider": provider, "error": err,
		})
	}

	response := map[string]interface{}{
		"provider":    provider,
		"test_status": testStatus,
	}
	if testErr != nil {
		response["error"] = errors.AsStandard(testErr).Message
		respondJSON(w, http.StatusOK, response)
		return
	}
	respondJSON(w, http.StatusOK, response)
}

// errSkipResponse signals that runConnectivityTest already wrote the
// response, typically a 422 for a provider that was never configured.
var errSkipResponse = stderrors.New("response already written")

func (s *Server) runConnectivityTest(w http.ResponseWriter, r *http.Request, userID string, provider models.Provider) error {
	ctx := r.Context()
	switch provider {
	case models.ProviderVapi:
		cfg, err := s.integrations.ResolveVapiConfig(ctx, userID, "")
		if err != nil {
			errors.WriteHTTP(w, err)
			return errSkipResponse
		}
		return s.vapi.TestConnection(ctx, cfg)
	case models.ProviderTwilio:
		cfg, err := s.integrations.ResolveTwilioConfig(ctx, userID)
		if err != nil {
			errors.WriteHTTP(w, err)
			return errSkipResponse
		}
		return s.twilio.TestConnection(ctx, cfg)
	default:
		cfg, err := s.integrations.ResolveSendGridConfig(ctx, userID)
		if err != nil {
			errors.WriteHTTP(w, err)
			return errSkipResponse
		}
		return s.sendgrid.TestConnection(ctx, cfg)
	}
}
