package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/isdelr/airmove-be/internal/bridge"
	"github.com/isdelr/airmove-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTicketService(t *testing.T) (*TicketService, *recordingPublisher) {
	t.Helper()
	publisher := &recordingPublisher{}
	svc := NewTicketService(publisher, NewEventService(newTestDB(t)))
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc, publisher
}

func TestValidate(t *testing.T) {
	svc, _ := newTestTicketService(t)

	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"valid", `{"id":"KE123","name":"Hong Gildong","type":"boarding","date":"2026-03-01"}`, ""},
		{"date optional", `{"id":"KE123","name":"Hong Gildong","type":"boarding"}`, ""},
		{"not json", `KE123`, "invalid QR code format"},
		{"trailing garbage", `{"id":"KE123","name":"Hong","type":"boarding"} garbage`, "invalid QR code format"},
		{"two objects", `{"id":"KE123","name":"Hong","type":"boarding"}{"id":"X"}`, "invalid QR code format"},
		{"array", `[{"id":"KE123"}]`, "invalid QR code format"},
		{"missing fields", `{"id":"KE123","name":""}`, "missing required fields (name, type)"},
		{"wrong type", `{"id":123,"name":"Hong","type":"boarding"}`, `field "id" has the wrong type`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := svc.Validate([]byte(tt.raw))
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "KE123", payload.ID)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGenerate(t *testing.T) {
	svc, _ := newTestTicketService(t)

	png, err := svc.Generate(models.QRPayload{ID: "KE123", Name: "Hong", Type: "boarding"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = svc.Generate(models.QRPayload{ID: "KE123"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCheckIn(t *testing.T) {
	ctx := context.Background()
	svc, publisher := newTestTicketService(t)

	payload, err := svc.CheckIn(ctx, "user-1", []byte(`{"id":"KE123","name":"Hong","type":"boarding"}`))
	require.NoError(t, err)
	assert.Equal(t, "KE123", payload.ID)

	require.Len(t, publisher.messages, 1)
	assert.Equal(t, bridge.TopicScanComplete, publisher.messages[0].topic)
	msg, ok := publisher.messages[0].payload.(bridge.ScanCompleteMessage)
	require.True(t, ok)
	assert.Equal(t, "user-1", msg.UserID)
	assert.Equal(t, "KE123", msg.Ticket.ID)
}

func TestCheckIn_Errors(t *testing.T) {
	ctx := context.Background()
	svc, publisher := newTestTicketService(t)

	_, err := svc.CheckIn(ctx, "user-1", []byte(`{}`))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, publisher.messages)

	publisher.err = bridge.ErrNotConnected
	_, err = svc.CheckIn(ctx, "user-1", []byte(`{"id":"KE123","name":"Hong","type":"boarding"}`))
	assert.ErrorIs(t, err, ErrBridgeUnavailable)
}
