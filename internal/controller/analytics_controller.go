// internal/controller/analytics_controller.go
package controller

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/unclebandit/crm-campaigns/internal/analytics"
	appErrors "github.com/unclebandit/crm-campaigns/internal/errors"
	"github.com/unclebandit/crm-campaigns/internal/service"
)

type AnalyticsController struct {
	AnalyticsService *service.AnalyticsService
	Log              *zap.Logger
}

// GetAnalytics serves ?range=7d|30d|90d|all, 30d when absent.
func (c *AnalyticsController) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	rng, err := analytics.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, c.Log, appErrors.NewValidation("range", err.Error()))
		return
	}

	report, err := c.AnalyticsService.GetAnalytics(r.Context(), rng)
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeData(w, http.StatusOK, report)
}
