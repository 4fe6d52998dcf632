package handlers

import (
	"io"
	"net/http"

	"github.com/isdelr/airmove-be/internal/models"
	"github.com/isdelr/airmove-be/internal/services"
	"github.com/rs/zerolog/log"
)

// QRHandler validates scanned tickets and renders QR codes.
type QRHandler struct {
	service services.TicketServiceProvider
}

// NewQRHandler creates a new QRHandler.
func NewQRHandler(service services.TicketServiceProvider) *QRHandler {
	return &QRHandler{service: service}
}

func readScan(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Could not read request body")
		return nil, false
	}
	return raw, true
}

// Validate checks the raw scanned text and echoes the decoded ticket.
func (h *QRHandler) Validate(w http.ResponseWriter, r *http.Request) {
	raw, ok := readScan(w, r)
	if !ok {
		return
	}
	payload, err := h.service.Validate(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// Generate renders a ticket as a PNG QR code.
func (h *QRHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var payload models.QRPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	png, err := h.service.Generate(payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		log.Warn().Err(err).Msg("Failed to write QR image")
	}
}

// CheckIn validates a scan and hands it to the robot.
func (h *QRHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	raw, ok := readScan(w, r)
	if !ok {
		return
	}

	payload, err := h.service.CheckIn(r.Context(), uid, raw)
	if err != nil {
		log.Warn().Err(err).Str("user_id", uid).Msg("Ticket check-in failed")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}
