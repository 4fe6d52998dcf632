package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/airmove-be/internal/bridge"
	"github.com/isdelr/airmove-be/internal/models"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"
)

// QRImageSize is the edge length of generated QR codes in pixels.
const QRImageSize = 300

// TicketServiceProvider defines the interface for QR ticket handling.
type TicketServiceProvider interface {
	Validate(raw []byte) (models.QRPayload, error)
	Generate(payload models.QRPayload) ([]byte, error)
	CheckIn(ctx context.Context, userID string, raw []byte) (models.QRPayload, error)
}

// TicketService validates scanned tickets and renders new ones.
type TicketService struct {
	publisher    bridge.Publisher
	eventService EventServiceProvider
	now          func() time.Time
}

// NewTicketService creates a new TicketService.
func NewTicketService(publisher bridge.Publisher, eventService EventServiceProvider) *TicketService {
	return &TicketService{
		publisher:    publisher,
		eventService: eventService,
		now:          time.Now,
	}
}

// Validate decodes a scanned QR text and checks the required fields.
func (s *TicketService) Validate(raw []byte) (models.QRPayload, error) {
	var payload models.QRPayload
	if err := json.Unmarshal(bytes.TrimSpace(raw), &payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return models.QRPayload{}, fmt.Errorf("QR code field %q has the wrong type: %w", typeErr.Field, ErrValidation)
		}
		return models.QRPayload{}, fmt.Errorf("invalid QR code format: %w", ErrValidation)
	}
	if err := checkPayload(payload); err != nil {
		return models.QRPayload{}, err
	}
	return payload, nil
}

func checkPayload(p models.QRPayload) error {
	var missing []string
	if strings.TrimSpace(p.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.Type) == "" {
		missing = append(missing, "type")
	}
	if len(missing) > 0 {
		return fmt.Errorf("QR code is missing required fields (%s): %w", strings.Join(missing, ", "), ErrValidation)
	}
	return nil
}

// Generate renders the payload as a PNG QR code. An empty date defaults to today.
func (s *TicketService) Generate(payload models.QRPayload) ([]byte, error) {
	if err := checkPayload(payload); err != nil {
		return nil, err
	}
	if payload.Date == "" {
		payload.Date = s.now().Format("2006-01-02")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(string(data), qrcode.Highest, QRImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}

// CheckIn validates a scanned ticket and announces it to the robot.
func (s *TicketService) CheckIn(ctx context.Context, userID string, raw []byte) (models.QRPayload, error) {
	payload, err := s.Validate(raw)
	if err != nil {
		return models.QRPayload{}, err
	}

	msg := bridge.ScanCompleteMessage{Ticket: payload, UserID: userID, ScannedAt: s.now().UTC()}
	if err := s.publisher.Publish(ctx, bridge.TopicScanComplete, msg); err != nil {
		if errors.Is(err, bridge.ErrNotConnected) {
			return models.QRPayload{}, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
		}
		return models.QRPayload{}, err
	}

	log.Info().Str("user_id", userID).Str("ticket_id", payload.ID).Msg("Ticket checked in")
	s.eventService.CreateEvent(ctx, "scan.complete", "info",
		fmt.Sprintf("Ticket %s (%s) checked in.", payload.ID, payload.Type), &userID)
	return payload, nil
}
