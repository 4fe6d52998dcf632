package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/airmove-be/internal/models"
	"github.com/isdelr/airmove-be/internal/services"
	"github.com/rs/zerolog/log"
)

// ReservationHandler handles ride bookings.
type ReservationHandler struct {
	service services.ReservationServiceProvider
}

// NewReservationHandler creates a new ReservationHandler.
func NewReservationHandler(service services.ReservationServiceProvider) *ReservationHandler {
	return &ReservationHandler{service: service}
}

// Create books a ride for the authenticated user.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req models.ReservationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reservation, err := h.service.CreateReservation(r.Context(), uid, req)
	if err != nil {
		log.Warn().Err(err).Str("user_id", uid).Msg("Failed to create reservation")
		writeError(w, r, err)
		return
	}
	log.Info().Str("user_id", uid).Str("reservation_id", reservation.ID).Msg("Reservation created")
	writeJSON(w, http.StatusCreated, reservation)
}

// List returns the authenticated user's reservations.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	reservations, err := h.service.GetReservationsForUser(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reservations)
}

// Cancel cancels one of the authenticated user's reservations.
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	reservation, err := h.service.CancelReservation(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}
