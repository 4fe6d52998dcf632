package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/airmove-be/internal/bridge"
	"github.com/isdelr/airmove-be/internal/models"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

// Robot commands sent on bridge.TopicRobotCommand.
const commandLuggageCheck = "luggage_check"

// NavigationServiceProvider defines the interface for guided rides.
type NavigationServiceProvider interface {
	StartSession(ctx context.Context, userID, facilityID, deviceID string) (models.NavigationSession, error)
	GetSession(ctx context.Context, userID, sessionID string) (models.NavigationSession, error)
	GetCurrentSession(ctx context.Context, userID string) (*models.NavigationSession, error)
	ApplyAction(ctx context.Context, userID, sessionID string, action models.NavigationAction, facilityID string) (models.NavigationSession, error)
	HandleRobotStatus(ctx context.Context, msg bridge.StatusMessage)
	ExpireStaleSessions(ctx context.Context, now time.Time, staleAfter time.Duration) (int, error)
	CloseUserSessions(ctx context.Context, userID string) (int, error)
}

// NavigationService drives the ride state machine and talks to the robot.
type NavigationService struct {
	db              *sql.DB
	facilityService FacilityServiceProvider
	eventService    EventServiceProvider
	publisher       bridge.Publisher
	notifier        Notifier
	now             func() time.Time

	// Serializes transitions so a robot status and a user action cannot
	// both move the same session.
	mu sync.Mutex
}

// NewNavigationService creates a new NavigationService.
func NewNavigationService(db *sql.DB, facilityService FacilityServiceProvider, eventService EventServiceProvider, publisher bridge.Publisher, notifier Notifier) *NavigationService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &NavigationService{
		db:              db,
		facilityService: facilityService,
		eventService:    eventService,
		publisher:       publisher,
		notifier:        notifier,
		now:             time.Now,
	}
}

// NextState returns the state reached by applying action in state from.
func NextState(from models.NavigationState, action models.NavigationAction) (models.NavigationState, bool) {
	switch {
	case from == models.NavConfirm && action == models.ActionConfirm:
		return models.NavLuggageCheck, true
	case from == models.NavLuggageCheck && action == models.ActionLuggageOK:
		return models.NavInTransit, true
	case (from == models.NavConfirm || from == models.NavLuggageCheck) && action == models.ActionCancel:
		return models.NavEnded, true
	case from == models.NavInTransit && action == models.ActionEnd:
		return models.NavEnded, true
	case from == models.NavInTransit && action == models.ActionRedirect:
		return models.NavInTransit, true
	case from == models.NavInTransit && action == models.ActionArrive:
		return models.NavArrived, true
	case from.Open() && action == models.ActionExpire:
		return models.NavEnded, true
	}
	return from, false
}

func userAction(action models.NavigationAction) bool {
	switch action {
	case models.ActionConfirm, models.ActionLuggageOK, models.ActionCancel, models.ActionEnd, models.ActionRedirect:
		return true
	}
	return false
}

// StartSession opens a session in the confirm state and reserves the device.
func (s *NavigationService) StartSession(ctx context.Context, userID, facilityID, deviceID string) (models.NavigationSession, error) {
	if facilityID == "" || deviceID == "" {
		return models.NavigationSession{}, fmt.Errorf("facilityId and deviceId are required: %w", ErrValidation)
	}
	facility, err := s.facilityService.GetFacilityByID(ctx, facilityID)
	if err != nil {
		return models.NavigationSession{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC().Truncate(time.Second)
	session := models.NavigationSession{
		ID:          ulid.Make().String(),
		UserID:      userID,
		FacilityID:  facility.ID,
		DeviceID:    deviceID,
		State:       models.NavConfirm,
		Destination: facility.Coordinates,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.NavigationSession{}, err
	}
	defer tx.Rollback()

	if err := requireUser(ctx, tx, userID); err != nil {
		return models.NavigationSession{}, err
	}

	var open int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM navigation_sessions WHERE user_id = ? AND state IN (?, ?, ?)",
		userID, models.NavConfirm, models.NavLuggageCheck, models.NavInTransit).Scan(&open); err != nil {
		return models.NavigationSession{}, err
	}
	if open > 0 {
		return models.NavigationSession{}, fmt.Errorf("user already has an active navigation: %w", ErrConflict)
	}

	var available bool
	if err := tx.QueryRowContext(ctx, "SELECT available FROM devices WHERE id = ?", deviceID).Scan(&available); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NavigationSession{}, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
		}
		return models.NavigationSession{}, err
	}
	if !available {
		return models.NavigationSession{}, fmt.Errorf("device %s is in use: %w", deviceID, ErrConflict)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE devices SET available = FALSE WHERE id = ?", deviceID); err != nil {
		return models.NavigationSession{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO navigation_sessions (id, user_id, facility_id, device_id, state, dest_x, dest_y, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.FacilityID, session.DeviceID, session.State,
		session.Destination.X, session.Destination.Y, session.CreatedAt, session.UpdatedAt); err != nil {
		return models.NavigationSession{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.NavigationSession{}, err
	}

	log.Info().Str("session_id", session.ID).Str("user_id", userID).Str("device_id", deviceID).Msg("Navigation session opened")
	s.eventService.CreateEvent(ctx, "navigation.create", "info",
		fmt.Sprintf("Navigation to '%s' requested with device %s.", facility.Name, deviceID), &session.ID)
	s.broadcast(session)
	return session, nil
}

// GetSession returns a session owned by the user.
func (s *NavigationService) GetSession(ctx context.Context, userID, sessionID string) (models.NavigationSession, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return models.NavigationSession{}, err
	}
	if session.UserID != userID {
		return models.NavigationSession{}, fmt.Errorf("navigation session %s: %w", sessionID, ErrNotFound)
	}
	return session, nil
}

// GetCurrentSession returns the user's open session, or nil when the user is idle.
func (s *NavigationService) GetCurrentSession(ctx context.Context, userID string) (*models.NavigationSession, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM navigation_sessions
		WHERE user_id = ? AND state IN (?, ?, ?)
		ORDER BY created_at DESC LIMIT 1`,
		userID, models.NavConfirm, models.NavLuggageCheck, models.NavInTransit))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// ApplyAction performs a user action on one of the user's sessions.
// facilityID is the new destination for a redirect and ignored otherwise.
func (s *NavigationService) ApplyAction(ctx context.Context, userID, sessionID string, action models.NavigationAction, facilityID string) (models.NavigationSession, error) {
	if !userAction(action) {
		return models.NavigationSession{}, fmt.Errorf("unknown action %q: %w", action, ErrValidation)
	}

	var target *models.Facility
	if action == models.ActionRedirect {
		if facilityID == "" {
			return models.NavigationSession{}, fmt.Errorf("redirect requires a facilityId: %w", ErrValidation)
		}
		f, err := s.facilityService.GetFacilityByID(ctx, facilityID)
		if err != nil {
			return models.NavigationSession{}, err
		}
		target = &f
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return models.NavigationSession{}, err
	}
	return s.transition(ctx, session, action, target)
}

// HandleRobotStatus applies a status report from the robot. Without a
// session id the report applies to every session in transit.
func (s *NavigationService) HandleRobotStatus(ctx context.Context, msg bridge.StatusMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets, err := s.statusTargets(ctx, msg.SessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", msg.SessionID).Msg("Failed to resolve sessions for robot status")
		return
	}

	for _, session := range targets {
		if !msg.Arrived() {
			progress := map[string]string{"sessionId": session.ID, "status": msg.Status}
			s.notifier.Notify(SessionChannel(session.ID), "navigation.progress", progress)
			s.notifier.Notify(UserChannel(session.UserID), "navigation.progress", progress)
			continue
		}
		if _, err := s.transition(ctx, session, models.ActionArrive, nil); err != nil {
			log.Warn().Err(err).Str("session_id", session.ID).Msg("Ignoring arrival for session")
		}
	}
}

func (s *NavigationService) statusTargets(ctx context.Context, sessionID string) ([]models.NavigationSession, error) {
	if sessionID != "" {
		session, err := s.getSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if session.State != models.NavInTransit {
			return nil, nil
		}
		return []models.NavigationSession{session}, nil
	}
	return s.querySessions(ctx, "SELECT "+sessionColumns+" FROM navigation_sessions WHERE state = ?", models.NavInTransit)
}

// ExpireStaleSessions ends open sessions that have not changed for staleAfter
// and frees their devices.
func (s *NavigationService) ExpireStaleSessions(ctx context.Context, now time.Time, staleAfter time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stale, err := s.querySessions(ctx, `
		SELECT `+sessionColumns+` FROM navigation_sessions
		WHERE state IN (?, ?, ?) AND updated_at < ?`,
		models.NavConfirm, models.NavLuggageCheck, models.NavInTransit, now.Add(-staleAfter).UTC().Truncate(time.Second))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, session := range stale {
		if _, err := s.transition(ctx, session, models.ActionExpire, nil); err != nil {
			log.Error().Err(err).Str("session_id", session.ID).Msg("Failed to expire navigation session")
			continue
		}
		expired++
	}
	return expired, nil
}

// CloseUserSessions expires every open session of the user, releasing the
// devices and telling a moving robot to stop. Run before deleting an account.
func (s *NavigationService) CloseUserSessions(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	open, err := s.querySessions(ctx, `
		SELECT `+sessionColumns+` FROM navigation_sessions
		WHERE user_id = ? AND state IN (?, ?, ?)`,
		userID, models.NavConfirm, models.NavLuggageCheck, models.NavInTransit)
	if err != nil {
		return 0, err
	}

	for _, session := range open {
		if _, err := s.transition(ctx, session, models.ActionExpire, nil); err != nil {
			return 0, err
		}
	}
	return len(open), nil
}

// transition validates the move, runs its robot side effect and persists the
// new state. The caller must hold s.mu.
func (s *NavigationService) transition(ctx context.Context, session models.NavigationSession, action models.NavigationAction, target *models.Facility) (models.NavigationSession, error) {
	next, ok := NextState(session.State, action)
	if !ok {
		return models.NavigationSession{}, fmt.Errorf("cannot %s a session in state %s: %w", action, session.State, ErrInvalidTransition)
	}

	if err := s.sideEffect(ctx, session, action, target); err != nil {
		return models.NavigationSession{}, err
	}

	prev := session.State
	now := s.now().UTC().Truncate(time.Second)
	session.State = next
	session.UpdatedAt = now
	if target != nil {
		session.FacilityID = target.ID
		session.Destination = target.Coordinates
	}
	if next == models.NavArrived {
		session.ArrivedAt = &now
	}

	if err := s.persist(ctx, session, prev); err != nil {
		return models.NavigationSession{}, err
	}

	level := "info"
	if action == models.ActionExpire {
		level = "warn"
	}
	log.Info().Str("session_id", session.ID).Str("from", string(prev)).Str("to", string(next)).Str("action", string(action)).Msg("Navigation state changed")
	s.eventService.CreateEvent(ctx, "navigation."+string(action), level,
		fmt.Sprintf("Navigation %s: %s -> %s.", session.ID, prev, next), &session.ID)
	s.broadcast(session)
	if next == models.NavArrived {
		s.notifier.Notify(UserChannel(session.UserID), "navigation.arrived", session)
	}
	return session, nil
}

func (s *NavigationService) sideEffect(ctx context.Context, session models.NavigationSession, action models.NavigationAction, target *models.Facility) error {
	var topic string
	var payload interface{}

	switch action {
	case models.ActionConfirm:
		topic = bridge.TopicRobotCommand
		payload = bridge.CommandMessage{SessionID: session.ID, DeviceID: session.DeviceID, Command: commandLuggageCheck}
	case models.ActionLuggageOK:
		facility, err := s.facilityService.GetFacilityByID(ctx, session.FacilityID)
		if err != nil {
			return err
		}
		topic = bridge.TopicNavigationStart
		payload = bridge.StartMessage{
			SessionID:   session.ID,
			DeviceID:    session.DeviceID,
			FacilityID:  facility.ID,
			Destination: facility.Coordinates,
			Terminal:    facility.Terminal,
			Floor:       facility.Floor,
		}
	case models.ActionEnd:
		topic = bridge.TopicNavigationControl
		payload = bridge.ControlMessage{SessionID: session.ID, Command: bridge.ControlStop}
	case models.ActionRedirect:
		dest := target.Coordinates
		topic = bridge.TopicNavigationControl
		payload = bridge.ControlMessage{SessionID: session.ID, Command: bridge.ControlRedirect, FacilityID: target.ID, Destination: &dest}
	case models.ActionExpire:
		if session.State == models.NavInTransit {
			// Best effort, the session is ended either way.
			err := s.publisher.Publish(ctx, bridge.TopicNavigationControl, bridge.ControlMessage{SessionID: session.ID, Command: bridge.ControlStop})
			if err != nil {
				log.Warn().Err(err).Str("session_id", session.ID).Msg("Could not tell robot to stop expired session")
			}
		}
		return nil
	default:
		return nil
	}

	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		log.Error().Err(err).Str("topic", topic).Str("session_id", session.ID).Msg("Failed to publish navigation command")
		if errors.Is(err, bridge.ErrNotConnected) {
			return fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
		}
		return err
	}
	return nil
}

func (s *NavigationService) persist(ctx context.Context, session models.NavigationSession, prev models.NavigationState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE navigation_sessions
		SET state = ?, facility_id = ?, dest_x = ?, dest_y = ?, updated_at = ?, arrived_at = ?
		WHERE id = ? AND state = ?`,
		session.State, session.FacilityID, session.Destination.X, session.Destination.Y,
		session.UpdatedAt, session.ArrivedAt, session.ID, prev)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s changed concurrently: %w", session.ID, ErrInvalidTransition)
	}

	if !session.State.Open() {
		if _, err := tx.ExecContext(ctx, "UPDATE devices SET available = TRUE WHERE id = ?", session.DeviceID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *NavigationService) broadcast(session models.NavigationSession) {
	s.notifier.Notify(SessionChannel(session.ID), "navigation.state", session)
	s.notifier.Notify(UserChannel(session.UserID), "navigation.state", session)
}

const sessionColumns = "id, user_id, facility_id, device_id, state, dest_x, dest_y, created_at, updated_at, arrived_at"

func (s *NavigationService) getSession(ctx context.Context, id string) (models.NavigationSession, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM navigation_sessions WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NavigationSession{}, fmt.Errorf("navigation session %s: %w", id, ErrNotFound)
		}
		return models.NavigationSession{}, err
	}
	return session, nil
}

func (s *NavigationService) querySessions(ctx context.Context, query string, args ...interface{}) ([]models.NavigationSession, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.NavigationSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func scanSession(scanner interface{ Scan(...interface{}) error }) (models.NavigationSession, error) {
	var session models.NavigationSession
	var arrivedAt sql.NullTime
	err := scanner.Scan(
		&session.ID, &session.UserID, &session.FacilityID, &session.DeviceID, &session.State,
		&session.Destination.X, &session.Destination.Y,
		&session.CreatedAt, &session.UpdatedAt, &arrivedAt,
	)
	if err != nil {
		return models.NavigationSession{}, err
	}
	if arrivedAt.Valid {
		t := arrivedAt.Time
		session.ArrivedAt = &t
	}
	return session, nil
}
