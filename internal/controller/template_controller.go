// internal/controller/template_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/crm-campaigns/internal/model"
	"github.com/unclebandit/crm-campaigns/internal/service"
)

type TemplateController struct {
	TemplateService *service.TemplateService
	Log             *zap.Logger
}

func (c *TemplateController) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    string        `json:"name"`
		Subject string        `json:"subject"`
		Content string        `json:"content"`
		Segment model.Segment `json:"segment"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, c.Log, err)
		return
	}

	t, err := c.TemplateService.CreateTemplate(r.Context(), body.Name, body.Subject, body.Content, body.Segment)
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeData(w, http.StatusCreated, t)
}

// ListTemplates filters by ?segment= when present.
func (c *TemplateController) ListTemplates(w http.ResponseWriter, r *http.Request) {
	var (
		templates []model.Template
		err       error
	)
	if segment := r.URL.Query().Get("segment"); segment != "" {
		templates, err = c.TemplateService.ListTemplatesBySegment(r.Context(), model.Segment(segment))
	} else {
		templates, err = c.TemplateService.ListTemplates(r.Context())
	}
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeData(w, http.StatusOK, templates)
}

func (c *TemplateController) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := c.TemplateService.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

func (c *TemplateController) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var patch model.TemplatePatch
	if err := decode(r, &patch); err != nil {
		writeError(w, c.Log, err)
		return
	}

	t, err := c.TemplateService.UpdateTemplate(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

func (c *TemplateController) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.TemplateService.DeleteTemplate(r.Context(), id); err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"id": id})
}
