// internal/server/server.go
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"campaign-engine/internal/campaign"
	"campaign-engine/internal/common/auth"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/integration"
	"campaign-engine/internal/providers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server bundles the HTTP handlers and their dependencies.
type Server struct {
	integrations *integration.Manager
	campaigns    *campaign.Service
	executor     *campaign.Executor
	templates    *campaign.TemplateStore
	vapi         *providers.VapiClient
	twilio       *providers.TwilioClient
	sendgrid     *providers.SendGridClient
	logger       logger.Logger
}

func New(integrations *integration.Manager, campaigns *campaign.Service, executor *campaign.Executor,
	templates *campaign.TemplateStore, vapi *providers.VapiClient, twilio *providers.TwilioClient,
	sendgrid *providers.SendGridClient, log logger.Logger) *Server {
	return &Server{
		integrations: integrations,
		campaigns:    campaigns,
		executor:     executor,
		templates:    templates,
		vapi:         vapi,
		twilio:       twilio,
		sendgrid:     sendgrid,
		logger:       log.WithFields(map[string]interface{}{"component": "http_server"}),
	}
}

// Router assembles the chi router. Everything under /api requires an
// authenticated session; health and metrics stay open.
func (s *Server) Router(sessions *auth.SessionClient) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(sessions))

		r.Route("/integrations", func(r chi.Router) {
			r.Get("/", s.handleIntegrationStatuses)
			r.Get("/{provider}", s.handleGetIntegration)
			r.Post("/{provider}", s.handleSaveIntegration)
			r.Post("/{provider}/test", s.handleTestIntegration)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", s.handleListCampaigns)
			r.Post("/", s.handleCreateCampaign)
			r.Post("/execute", s.handleExecuteCampaign)

			r.Get("/results", s.handleListResults)
			r.Post("/results", s.handleUpdateResult)

			r.Get("/templates", s.handleListTemplates)
			r.Post("/templates", s.handleCreateTemplate)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetCampaign)
				r.Put("/", s.handleUpdateCampaign)
				r.Delete("/", s.handleDeleteCampaign)
				r.Post("/pause", s.handlePauseCampaign)
				r.Post("/cancel", s.handleCancelCampaign)
				r.Get("/stats", s.handleCampaignStats)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
