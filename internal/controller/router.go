// internal/controller/router.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/unclebandit/crm-campaigns/internal/handler"
	"github.com/unclebandit/crm-campaigns/internal/service"
)

// Services groups what the API needs.
type Services struct {
	Templates *service.TemplateService
	Campaigns *service.CampaignService
	Tracking  *service.TrackingService
	Analytics *service.AnalyticsService
}

func NewRouter(svc Services, tracking *handler.TrackingHandler, log *zap.Logger) http.Handler {
	templates := &TemplateController{TemplateService: svc.Templates, Log: log}
	campaigns := &CampaignController{CampaignService: svc.Campaigns, AnalyticsService: svc.Analytics, Log: log}
	trackingAPI := &TrackingController{TrackingService: svc.Tracking, Log: log}
	analyticsAPI := &AnalyticsController{AnalyticsService: svc.Analytics, Log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Template routes
	r.Route("/templates", func(r chi.Router) {
		r.Post("/", templates.CreateTemplate)
		r.Get("/", templates.ListTemplates)
		r.Get("/{id}", templates.GetTemplate)
		r.Patch("/{id}", templates.UpdateTemplate)
		r.Delete("/{id}", templates.DeleteTemplate)
	})

	// Campaign routes
	r.Route("/campaigns", func(r chi.Router) {
		r.Post("/", campaigns.CreateCampaign)
		r.Get("/", campaigns.ListCampaigns)
		r.Get("/{id}", campaigns.GetCampaign)
		r.Patch("/{id}", campaigns.UpdateCampaign)
		r.Delete("/{id}", campaigns.DeleteCampaign)
		r.Post("/{id}/send", campaigns.SendCampaign)
		r.Post("/{id}/cancel", campaigns.CancelCampaign)
		r.Get("/{id}/snapshots", campaigns.Snapshots)
		r.Get("/{id}/tracking", trackingAPI.CampaignTracking)
		r.Get("/{id}/tracking/records", trackingAPI.Records)
	})

	r.Post("/tracking", trackingAPI.UpdateStatus)
	r.Get("/analytics", analyticsAPI.GetAnalytics)

	if tracking != nil {
		r.Mount("/track", tracking.Routes())
	}
	return r
}
