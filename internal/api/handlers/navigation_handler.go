package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/airmove-be/internal/models"
	"github.com/isdelr/airmove-be/internal/services"
	"github.com/rs/zerolog/log"
)

// NavigationHandler drives guided rides.
type NavigationHandler struct {
	service services.NavigationServiceProvider
}

// NewNavigationHandler creates a new NavigationHandler.
func NewNavigationHandler(service services.NavigationServiceProvider) *NavigationHandler {
	return &NavigationHandler{service: service}
}

// Start opens a navigation session.
func (h *NavigationHandler) Start(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var payload struct {
		FacilityID string `json:"facilityId"`
		DeviceID   string `json:"deviceId"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	session, err := h.service.StartSession(r.Context(), uid, payload.FacilityID, payload.DeviceID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", uid).Msg("Failed to start navigation")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// Current returns the user's open session, or {"state":"idle"}.
func (h *NavigationHandler) Current(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	session, err := h.service.GetCurrentSession(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if session == nil {
		writeJSON(w, http.StatusOK, map[string]models.NavigationState{"state": models.NavIdle})
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Get returns one of the user's sessions.
func (h *NavigationHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	session, err := h.service.GetSession(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Action applies a user action such as confirm or end to a session.
func (h *NavigationHandler) Action(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Action     models.NavigationAction `json:"action"`
		FacilityID string                  `json:"facilityId"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	sessionID := chi.URLParam(r, "id")
	session, err := h.service.ApplyAction(r.Context(), uid, sessionID, payload.Action, payload.FacilityID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Str("action", string(payload.Action)).Msg("Navigation action rejected")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}
