package api

import (
	"net/http"

	"github.com/devrev/meerkat-sub004/internal/domain"
	"github.com/devrev/meerkat-sub004/internal/service/semantic"
)

// dedupeResponse wraps the surviving filters.
type dedupeResponse struct {
	Filters domain.Filters `json:"filters"`
}

func (h *Handler) compile(w http.ResponseWriter, r *http.Request) {
	var req semantic.CompileRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.semantic.Compile(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) compileResolved(w http.ResponseWriter, r *http.Request) {
	var req semantic.ResolveRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.semantic.CompileWithResolution(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) dedupeFilters(w http.ResponseWriter, r *http.Request) {
	var req semantic.DedupeRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.writeJSON(w, http.StatusOK, dedupeResponse{Filters: h.semantic.DedupeFilters(r.Context(), req)})
}

func (h *Handler) runQuery(w http.ResponseWriter, r *http.Request) {
	var req semantic.CompileRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.semantic.Run(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}
