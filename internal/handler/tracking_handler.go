// internal/handler/tracking_handler.go
package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/crm-campaigns/internal/email"
	appErrors "github.com/unclebandit/crm-campaigns/internal/errors"
	"github.com/unclebandit/crm-campaigns/internal/model"
	"github.com/unclebandit/crm-campaigns/internal/queue"
)

// StatusUpdater records one tracking status for a recipient.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, campaignID, email string, status model.TrackingStatus) (*model.TrackingRecord, error)
}

// TrackingHandler serves the links embedded in sent emails. With a Queue
// set, events are published for the worker instead of written inline.
type TrackingHandler struct {
	Updater StatusUpdater
	Queue   queue.Queue
	// Secret verifies click links; it must match the Renderer's.
	Secret []byte
	Log    *zap.Logger
}

// 1x1 transparent GIF
var pixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00,
	0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00,
	0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02,
	0x44, 0x01, 0x00, 0x3b,
}

func (h *TrackingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/open/{campaignID}", h.Open)
	r.Get("/click/{campaignID}", h.Click)
	r.Post("/unsubscribe/{campaignID}", h.Unsubscribe)
	r.Post("/bounce/{campaignID}", h.Bounce)
	return r
}

// Open always answers with the pixel, whatever happened to the update.
func (h *TrackingHandler) Open(w http.ResponseWriter, r *http.Request) {
	if err := h.record(r, model.TrackingOpened); err != nil {
		h.logger().Warn("open not recorded", zap.String("campaign_id", chi.URLParam(r, "campaignID")), zap.Error(err))
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.WriteHeader(http.StatusOK)
	w.Write(pixel)
}

// Click redirects to u. Only absolute http(s) targets carrying a valid
// signature for this campaign and recipient are followed.
func (h *TrackingHandler) Click(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := q.Get("u")
	target, ok := safeTarget(raw)
	if !ok {
		http.Error(w, "invalid redirect target", http.StatusBadRequest)
		return
	}
	campaignID := chi.URLParam(r, "campaignID")
	if !email.VerifyClick(h.Secret, campaignID, q.Get("e"), raw, q.Get("s")) {
		h.logger().Warn("click signature rejected", zap.String("campaign_id", campaignID))
		http.Error(w, "invalid link signature", http.StatusForbidden)
		return
	}
	if err := h.record(r, model.TrackingClicked); err != nil {
		h.logger().Warn("click not recorded", zap.String("campaign_id", chi.URLParam(r, "campaignID")), zap.Error(err))
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *TrackingHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.record(r, model.TrackingUnsubscribed); err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("You have been unsubscribed.\n"))
}

func (h *TrackingHandler) Bounce(w http.ResponseWriter, r *http.Request) {
	if err := h.record(r, model.TrackingBounced); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TrackingHandler) record(r *http.Request, status model.TrackingStatus) error {
	campaignID := chi.URLParam(r, "campaignID")
	email := model.NormalizeEmail(r.FormValue("e"))
	if email == "" {
		return appErrors.NewValidation("e", "recipient email is required")
	}

	if h.Queue != nil {
		ev := queue.TrackingEvent{CampaignID: campaignID, RecipientEmail: email, Status: status}
		err := h.Queue.Publish(queue.TopicTrackingEvents, ev)
		if err == nil || !errors.Is(err, queue.ErrNoSubscribers) {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	_, err := h.Updater.UpdateStatus(ctx, campaignID, email, status)
	return err
}

func (h *TrackingHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case appErrors.IsValidation(err):
		http.Error(w, appErrors.Message(err), http.StatusBadRequest)
	case appErrors.IsNotFound(err):
		http.Error(w, appErrors.Message(err), http.StatusNotFound)
	default:
		h.logger().Error("tracking update failed", zap.Error(err))
		http.Error(w, appErrors.Message(err), http.StatusInternalServerError)
	}
}

func (h *TrackingHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func safeTarget(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}
