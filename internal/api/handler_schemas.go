package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/devrev/meerkat-sub004/internal/domain"
)

type listSchemasResponse struct {
	Schemas []domain.StoredSchema `json:"schemas"`
}

func (h *Handler) listSchemas(w http.ResponseWriter, r *http.Request) {
	schemas, err := h.semantic.ListSchemas(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listSchemasResponse{Schemas: schemas})
}

// createSchema registers a schema. ?replace=true overwrites an existing one.
func (h *Handler) createSchema(w http.ResponseWriter, r *http.Request) {
	replace := false
	if v := r.URL.Query().Get("replace"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, r, domain.ErrValidation("replace must be a boolean, got %q", v))
			return
		}
		replace = b
	}

	var schema domain.TableSchema
	if !h.decode(w, r, &schema) {
		return
	}
	stored, err := h.semantic.RegisterSchema(r.Context(), schema, replace)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if replace {
		status = http.StatusOK
	}
	h.writeJSON(w, status, stored)
}

func (h *Handler) getSchema(w http.ResponseWriter, r *http.Request) {
	stored, err := h.semantic.GetSchema(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stored)
}

func (h *Handler) deleteSchema(w http.ResponseWriter, r *http.Request) {
	if err := h.semantic.DeleteSchema(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
