package models

// QRPayload is the ticket encoded in a scannable QR code.
type QRPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Date string `json:"date,omitempty"`
}
