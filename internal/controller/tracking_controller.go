// internal/controller/tracking_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/crm-campaigns/internal/model"
	"github.com/unclebandit/crm-campaigns/internal/service"
)

type TrackingController struct {
	TrackingService *service.TrackingService
	Log             *zap.Logger
}

// CampaignTracking returns aggregated counts and rates.
func (c *TrackingController) CampaignTracking(w http.ResponseWriter, r *http.Request) {
	stats, err := c.TrackingService.CampaignTracking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

func (c *TrackingController) Records(w http.ResponseWriter, r *http.Request) {
	records, err := c.TrackingService.Records(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeData(w, http.StatusOK, records)
}

func (c *TrackingController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CampaignID     string               `json:"campaign_id"`
		RecipientEmail string               `json:"recipient_email"`
		Status         model.TrackingStatus `json:"status"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, c.Log, err)
		return
	}

	rec, err := c.TrackingService.UpdateStatus(r.Context(), body.CampaignID, body.RecipientEmail, body.Status)
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeData(w, http.StatusOK, rec)
}
