package services

import (
	"context"
	"testing"
	"time"

	"github.com/isdelr/airmove-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReservationService(t *testing.T) (*ReservationService, *recordingNotifier, string) {
	t.Helper()
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewReservationService(db, NewEventService(db), notifier, time.UTC)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }
	return svc, notifier, createTestUser(t, db, "rider@example.com")
}

func booking(date, clock string) models.ReservationRequest {
	return models.ReservationRequest{
		Date:        date,
		Time:        clock,
		Terminal:    "T1",
		Destination: "Gate 12",
	}
}

func TestParseSlot(t *testing.T) {
	tests := []struct {
		date, clock string
		wantErr     bool
	}{
		{"2026-03-01", "06:00", false},
		{"2026-03-01", "22:30", false},
		{"2026-03-01", "10:30", false},
		{"2026-03-01", "05:30", true},
		{"2026-03-01", "23:00", true},
		{"2026-03-01", "09:15", true},
		{"2026-02-30", "10:00", true},
		{"tomorrow", "10:00", true},
	}
	for _, tt := range tests {
		t.Run(tt.date+" "+tt.clock, func(t *testing.T) {
			_, err := ParseSlot(tt.date, tt.clock, time.UTC)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateReservation(t *testing.T) {
	ctx := context.Background()
	svc, _, userID := newTestReservationService(t)

	req := booking("2026-03-01", "10:30")
	req.SpecialRequests = "  wheelchair  "
	r, err := svc.CreateReservation(ctx, userID, req)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationBooked, r.Status)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC), r.ScheduledAt)
	assert.Equal(t, "wheelchair", r.SpecialRequests)

	list, err := svc.GetReservationsForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, r.ID, list[0].ID)
	assert.True(t, r.ScheduledAt.Equal(list[0].ScheduledAt))
}

func TestCreateReservation_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _, userID := newTestReservationService(t)

	missing := booking("2026-03-01", "10:30")
	missing.Destination = " "
	_, err := svc.CreateReservation(ctx, userID, missing)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateReservation(ctx, userID, booking("2026-03-01", "07:00"))
	assert.ErrorIs(t, err, ErrValidation, "slot in the past")

	unknown := booking("2026-03-01", "10:30")
	unknown.Terminal = "T9"
	_, err = svc.CreateReservation(ctx, userID, unknown)
	assert.ErrorIs(t, err, ErrValidation, "unknown terminal")

	_, err = svc.CreateReservation(ctx, "no-such-user", booking("2026-03-01", "10:30"))
	assert.ErrorIs(t, err, ErrNotFound, "account deleted after the token was issued")

	_, err = svc.CreateReservation(ctx, userID, booking("2026-03-01", "10:10"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetReservationsForUser_NewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _, userID := newTestReservationService(t)

	_, err := svc.CreateReservation(ctx, userID, booking("2026-03-01", "10:30"))
	require.NoError(t, err)
	_, err = svc.CreateReservation(ctx, userID, booking("2026-03-02", "09:00"))
	require.NoError(t, err)

	list, err := svc.GetReservationsForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].ScheduledAt.After(list[1].ScheduledAt))

	others, err := svc.GetReservationsForUser(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestCancelReservation(t *testing.T) {
	ctx := context.Background()
	svc, _, userID := newTestReservationService(t)

	r, err := svc.CreateReservation(ctx, userID, booking("2026-03-01", "10:30"))
	require.NoError(t, err)

	_, err = svc.CancelReservation(ctx, "someone-else", r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	cancelled, err := svc.CancelReservation(ctx, userID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, cancelled.Status)

	_, err = svc.CancelReservation(ctx, userID, r.ID)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.CancelReservation(ctx, userID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDispatchDueReservations(t *testing.T) {
	ctx := context.Background()
	svc, notifier, userID := newTestReservationService(t)

	due, err := svc.CreateReservation(ctx, userID, booking("2026-03-01", "10:30"))
	require.NoError(t, err)
	later, err := svc.CreateReservation(ctx, userID, booking("2026-03-01", "12:00"))
	require.NoError(t, err)
	cancelled, err := svc.CreateReservation(ctx, userID, booking("2026-03-01", "09:00"))
	require.NoError(t, err)
	_, err = svc.CancelReservation(ctx, userID, cancelled.ID)
	require.NoError(t, err)

	n, err := svc.DispatchDueReservations(ctx, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"reservation.ready"}, notifier.actions(UserChannel(userID)))

	// Already dispatched reservations are not sent twice.
	n, err = svc.DispatchDueReservations(ctx, time.Date(2026, 3, 1, 10, 31, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	list, err := svc.GetReservationsForUser(ctx, userID)
	require.NoError(t, err)
	statuses := map[string]models.ReservationStatus{}
	for _, r := range list {
		statuses[r.ID] = r.Status
	}
	assert.Equal(t, models.ReservationReady, statuses[due.ID])
	assert.Equal(t, models.ReservationBooked, statuses[later.ID])
	assert.Equal(t, models.ReservationCancelled, statuses[cancelled.ID])
}
