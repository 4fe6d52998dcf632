package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/airmove-be/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	firstSlotHour = 6
	lastSlotHour  = 22 // last bookable slot is 22:30
)

// ReservationServiceProvider defines the interface for reservation services.
type ReservationServiceProvider interface {
	CreateReservation(ctx context.Context, userID string, req models.ReservationRequest) (models.Reservation, error)
	GetReservationsForUser(ctx context.Context, userID string) ([]models.Reservation, error)
	CancelReservation(ctx context.Context, userID, reservationID string) (models.Reservation, error)
	DispatchDueReservations(ctx context.Context, now time.Time) (int, error)
}

// ReservationService provides business logic for ride reservations.
type ReservationService struct {
	db           *sql.DB
	eventService EventServiceProvider
	notifier     Notifier
	loc          *time.Location
	now          func() time.Time
}

// NewReservationService creates a new ReservationService. Booking times are
// interpreted in loc; nil means the server's local zone.
func NewReservationService(db *sql.DB, eventService EventServiceProvider, notifier Notifier, loc *time.Location) *ReservationService {
	if loc == nil {
		loc = time.Local
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ReservationService{
		db:           db,
		eventService: eventService,
		notifier:     notifier,
		loc:          loc,
		now:          time.Now,
	}
}

// ParseSlot validates a booking date and time and returns the slot start.
func ParseSlot(date, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date or time: %w", ErrValidation)
	}
	if t.Minute()%30 != 0 || t.Hour() < firstSlotHour || t.Hour() > lastSlotHour {
		return time.Time{}, fmt.Errorf("time must be a 30 minute slot between 06:00 and 22:30: %w", ErrValidation)
	}
	return t, nil
}

// CreateReservation books a ride for the user.
func (s *ReservationService) CreateReservation(ctx context.Context, userID string, req models.ReservationRequest) (models.Reservation, error) {
	req.Terminal = strings.TrimSpace(req.Terminal)
	req.Destination = strings.TrimSpace(req.Destination)
	if req.Date == "" || req.Time == "" || req.Terminal == "" || req.Destination == "" {
		return models.Reservation{}, fmt.Errorf("date, time, terminal and destination are required: %w", ErrValidation)
	}

	if !models.ValidTerminal(req.Terminal) {
		return models.Reservation{}, fmt.Errorf("unknown terminal %q: %w", req.Terminal, ErrValidation)
	}

	slot, err := ParseSlot(req.Date, req.Time, s.loc)
	if err != nil {
		return models.Reservation{}, err
	}
	if !slot.After(s.now()) {
		return models.Reservation{}, fmt.Errorf("reservation time must be in the future: %w", ErrValidation)
	}

	if err := requireUser(ctx, s.db, userID); err != nil {
		return models.Reservation{}, err
	}

	reservation := models.Reservation{
		ID:              uuid.New().String(),
		UserID:          userID,
		ScheduledAt:     slot.UTC(),
		Terminal:        req.Terminal,
		Destination:     req.Destination,
		SpecialRequests: strings.TrimSpace(req.SpecialRequests),
		Status:          models.ReservationBooked,
		CreatedAt:       s.now().UTC().Truncate(time.Second),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reservations (id, user_id, scheduled_at, terminal, destination, special_requests, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		reservation.ID, reservation.UserID, reservation.ScheduledAt, reservation.Terminal,
		reservation.Destination, reservation.SpecialRequests, reservation.Status, reservation.CreatedAt)
	if err != nil {
		return models.Reservation{}, err
	}

	s.eventService.CreateEvent(ctx, "reservation.create", "info",
		fmt.Sprintf("Reservation booked for %s at %s.", reservation.Destination, slot.Format("2006-01-02 15:04")), &reservation.ID)
	return reservation, nil
}

// GetReservationsForUser returns the user's reservations, newest slot first.
func (s *ReservationService) GetReservationsForUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, scheduled_at, terminal, destination, special_requests, status, created_at
		FROM reservations WHERE user_id = ? ORDER BY scheduled_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

func (s *ReservationService) getReservation(ctx context.Context, id string) (models.Reservation, error) {
	r, err := scanReservation(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, scheduled_at, terminal, destination, special_requests, status, created_at
		FROM reservations WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Reservation{}, fmt.Errorf("reservation %s: %w", id, ErrNotFound)
		}
		return models.Reservation{}, err
	}
	return r, nil
}

// CancelReservation cancels a booked or ready reservation owned by the user.
func (s *ReservationService) CancelReservation(ctx context.Context, userID, reservationID string) (models.Reservation, error) {
	r, err := s.getReservation(ctx, reservationID)
	if err != nil {
		return models.Reservation{}, err
	}
	if r.UserID != userID {
		return models.Reservation{}, fmt.Errorf("reservation %s: %w", reservationID, ErrNotFound)
	}
	if r.Status == models.ReservationCancelled {
		return models.Reservation{}, fmt.Errorf("reservation already cancelled: %w", ErrConflict)
	}

	if _, err := s.db.ExecContext(ctx, "UPDATE reservations SET status = ? WHERE id = ?", models.ReservationCancelled, r.ID); err != nil {
		return models.Reservation{}, err
	}
	r.Status = models.ReservationCancelled

	s.eventService.CreateEvent(ctx, "reservation.cancel", "warn", fmt.Sprintf("Reservation for %s was cancelled.", r.Destination), &r.ID)
	return r, nil
}

// DispatchDueReservations marks booked reservations whose slot has started
// as ready and notifies their owners. It returns how many were dispatched.
func (s *ReservationService) DispatchDueReservations(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, scheduled_at, terminal, destination, special_requests, status, created_at
		FROM reservations WHERE status = ? AND scheduled_at <= ?`,
		models.ReservationBooked, now.UTC())
	if err != nil {
		return 0, err
	}
	due, err := scanReservations(rows)
	rows.Close()
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, r := range due {
		res, err := s.db.ExecContext(ctx, "UPDATE reservations SET status = ? WHERE id = ? AND status = ?",
			models.ReservationReady, r.ID, models.ReservationBooked)
		if err != nil {
			log.Error().Err(err).Str("reservation_id", r.ID).Msg("Failed to mark reservation ready")
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// Cancelled between the read and the update.
			continue
		}
		r.Status = models.ReservationReady
		dispatched++

		s.eventService.CreateEvent(ctx, "reservation.ready", "info", fmt.Sprintf("Reservation for %s is ready.", r.Destination), &r.ID)
		s.notifier.Notify(UserChannel(r.UserID), "reservation.ready", r)
	}
	return dispatched, nil
}

func scanReservations(rows *sql.Rows) ([]models.Reservation, error) {
	reservations := []models.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

func scanReservation(scanner interface{ Scan(...interface{}) error }) (models.Reservation, error) {
	var r models.Reservation
	err := scanner.Scan(&r.ID, &r.UserID, &r.ScheduledAt, &r.Terminal, &r.Destination, &r.SpecialRequests, &r.Status, &r.CreatedAt)
	return r, err
}
