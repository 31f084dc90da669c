// internal/controller/response.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/crm-campaigns/internal/errors"
)

// Response is the envelope every API operation answers with.
type Response struct {
	Success bool                   `json:"success"`
	Data    any                    `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Fields  []appErrors.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

// writeError maps domain errors to a status and a message that is safe to
// show. Anything unrecognised is logged and answered with a generic 500.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := statusFor(err)
	resp := Response{Success: false, Error: appErrors.Message(err)}

	var verr *appErrors.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case appErrors.IsValidation(err):
		return http.StatusBadRequest
	case appErrors.IsScheduling(err):
		return http.StatusUnprocessableEntity
	case appErrors.IsNotFound(err):
		return http.StatusNotFound
	case appErrors.IsDependency(err), appErrors.IsInvalidState(err):
		return http.StatusConflict
	case errors.Is(err, appErrors.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return appErrors.NewValidation("body", "invalid request body: "+err.Error())
	}
	return nil
}
