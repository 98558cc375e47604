// internal/server/campaigns.go
package server

import (
	"encoding/json"
	"net/http"

	"campaign-engine/internal/campaign"
	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	campaigns, err := s.campaigns.List(r.Context(), session.UserID)
	if err != nil {
		errors.WriteHTTP(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"campaigns": campaigns})
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOr401(w, r)
	if !ok {
		return
	}

	var req campaign.CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteHTTP(w, errors.NewValidationError("invalid request body", []errors.FieldError{
			{Field: "body", Message: "request body must be a JSON object"},
		}))
		return
	}

	c, err := s.campaigns.Create(r.Context(), session.UserID, req)
	if err != nil {
		errors.WriteHTTP(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	c, err := s.campaigns.Get(r.Context(), session.UserID, chi.URLParam(r, "id"))
	if err != nil {
		errors.WriteHTTP(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOr401(w, r)
	if !ok {
		return
	}

	var req campaign.UpdateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteHTTP(w, errors.NewValidationError("invalid request body", []errors.FieldError{
			{Field: "body", Message: "request body must be a JSON object"},
		}))
		return
	}

	c, err := s.campaigns.Update(r.Context(), session.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		errors.WriteHTTP(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	if err := s.campaigns.Delete(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		errors.WriteHTTP(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleExecuteCampaign(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOr401(w, r)
	if !ok {
		return
	}

	var req struct {
		CampaignID string `json:"campaign_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CampaignID == "" {
		errors.WriteHTTP(w, errors.NewValidationError("invalid request body", []errors.FieldError{
			{Field: "campaign_id", Message: "campaign_id is required"},
		}))
		return
	}

	report, err := s.executor.Execute(r.Context(), session.UserID, req.CampaignID)
	if err != nil {
		errors.WriteHTTP(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handlePauseCampaign(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	if err := s.campaigns.Pause(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		errors.WriteHTTP(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(models.CampaignPaused)})
}

func (s *Server) handleCancelCampaign(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	if err := s.campaigns.Cancel(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		errors.WriteHTTP(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(models.CampaignCancelled)})
}

func (s *Server) handleCampaignStats(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	stats, err := s.campaigns.GetStats(r.Context(), session.UserID, chi.URLParam(r, "id"))
	if err != nil {
		errors.WriteHTTP(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	campaignID := r.URL.Query().Get("campaign_id")
	if campaignID == "" {
		errors.WriteHTTP(w, errors.NewValidationError("missing query parameter", []errors.FieldError{
			{Field: "campaign_id", Message: "campaign_id is required"},
		}))
		return
	}

	results, err := s.campaigns.ListResults(r.Context(), session.UserID, campaignID)
	if err != nil {
		errors.WriteHTTP(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Server) handleUpdateResult(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOr401(w, r)
	if !ok {
		return
	}

	var upd campaign.ResultStatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil || upd.ResultID == "" {
		errors.WriteHTTP(w, errors.NewValidationError("invalid request body", []errors.FieldError{
			{Field: "result_id", Message: "result_id is required"},
		}))
		return
	}

	res, err := s.campaigns.UpdateResultStatus(r.Context(), session.UserID, upd)
	if err != nil {
		errors.WriteHTTP(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	templates, err := s.templates.ListByUser(r.Context(), session.UserID)
	if err != nil {
		errors.WriteHTTP(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"templates": templates})
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOr401(w, r)
	if !ok {
		return
	}

	var tpl models.MessageTemplate
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		errors.WriteHTTP(w, errors.NewValidationError("invalid request body", []errors.FieldError{
			{Field: "body", Message: "request body must be a JSON object"},
		}))
		return
	}
	tpl.UserID = session.UserID

	id, err := s.templates.Create(r.Context(), &tpl)
	if err != nil {
		errors.WriteHTTP(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}
