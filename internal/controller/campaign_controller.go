// internal/controller/campaign_controller.go
package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/crm-campaigns/internal/model"
	"github.com/unclebandit/crm-campaigns/internal/service"
)

type CampaignController struct {
	CampaignService  *service.CampaignService
	AnalyticsService *service.AnalyticsService
	Log              *zap.Logger
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string               `json:"name"`
		TemplateID  string               `json:"template_id"`
		Segment     model.Segment        `json:"segment"`
		Status      model.CampaignStatus `json:"status"`
		ScheduledAt *time.Time           `json:"scheduled_at"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, c.Log, err)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(r.Context(), body.Name, body.TemplateID, body.Segment, body.Status, body.ScheduledAt)
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeData(w, http.StatusCreated, campaign)
}

// ListCampaigns filters by ?status= when present.
func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	var (
		campaigns []model.Campaign
		err       error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		campaigns, err = c.CampaignService.ListCampaignsByStatus(r.Context(), model.CampaignStatus(status))
	} else {
		campaigns, err = c.CampaignService.ListCampaigns(r.Context())
	}
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeData(w, http.StatusOK, campaigns)
}

func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := c.CampaignService.GetCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeData(w, http.StatusOK, campaign)
}

func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var patch model.CampaignPatch
	if err := decode(r, &patch); err != nil {
		writeError(w, c.Log, err)
		return
	}

	campaign, err := c.CampaignService.UpdateCampaign(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeData(w, http.StatusOK, campaign)
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.CampaignService.DeleteCampaign(r.Context(), id); err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"id": id})
}

// SendCampaign answers once the campaign is sent or has failed. The
// dispatch keeps running if the client goes away.
func (c *CampaignController) SendCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	result, err := c.CampaignService.SendCampaign(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (c *CampaignController) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := c.CampaignService.CancelCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeData(w, http.StatusOK, campaign)
}

func (c *CampaignController) Snapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := c.AnalyticsService.Snapshots(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeData(w, http.StatusOK, snaps)
}
