// Package api serves the semantic query operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/devrev/meerkat-sub004/internal/middleware"
	"github.com/devrev/meerkat-sub004/internal/service/semantic"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 4 << 20

// Pinger reports whether the query engine is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the services behind the HTTP routes.
type Handler struct {
	semantic *semantic.Service
	health   Pinger
	logger   *slog.Logger
}

// NewHandler creates a Handler. health may be nil.
func NewHandler(svc *semantic.Service, health Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{semantic: svc, health: health, logger: logger}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"error", err)
		msg = "internal error"
	}
	h.writeJSON(w, status, errorBody{
		Code:      status,
		Message:   msg,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
}

// decode reads a JSON body into v, rejecting unknown fields and trailing data.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Code:    http.StatusRequestEntityTooLarge,
				Message: "request body too large",
			})
			return false
		}
		h.writeJSON(w, http.StatusBadRequest, errorBody{
			Code:      http.StatusBadRequest,
			Message:   "invalid request body: " + err.Error(),
			RequestID: middleware.RequestIDFromContext(r.Context()),
		})
		return false
	}
	if dec.More() {
		h.writeJSON(w, http.StatusBadRequest, errorBody{
			Code:    http.StatusBadRequest,
			Message: "invalid request body: trailing data",
		})
		return false
	}
	return true
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
