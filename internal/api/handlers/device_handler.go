package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/airmove-be/internal/services"
)

// DeviceHandler serves the mobility fleet.
type DeviceHandler struct {
	service services.DeviceServiceProvider
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(service services.DeviceServiceProvider) *DeviceHandler {
	return &DeviceHandler{service: service}
}

// List returns the fleet; ?available=true limits it to free devices.
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	onlyAvailable := false
	if v := r.URL.Query().Get("available"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "available must be true or false")
			return
		}
		onlyAvailable = parsed
	}

	devices, err := h.service.ListDevices(r.Context(), onlyAvailable)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// Get returns a single device.
func (h *DeviceHandler) Get(w http.ResponseWriter, r *http.Request) {
	device, err := h.service.GetDeviceByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}
