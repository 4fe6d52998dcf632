package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/airmove-be/internal/models"
	"github.com/isdelr/airmove-be/internal/services"
)

// FacilityHandler serves the airport facility catalogue.
type FacilityHandler struct {
	service services.FacilityServiceProvider
}

// NewFacilityHandler creates a new FacilityHandler.
func NewFacilityHandler(service services.FacilityServiceProvider) *FacilityHandler {
	return &FacilityHandler{service: service}
}

// List returns facilities filtered by terminal, floor, category and q.
func (h *FacilityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.FacilityFilter{
		Terminal: q.Get("terminal"),
		Floor:    q.Get("floor"),
		Category: models.FacilityCategory(q.Get("category")),
		Query:    q.Get("q"),
	}

	facilities, err := h.service.ListFacilities(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, facilities)
}

// Get returns a single facility.
func (h *FacilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	facility, err := h.service.GetFacilityByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, facility)
}

// Categories lists the facility categories with their display names.
func (h *FacilityHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.Categories)
}
