package monitoring

import (
	"context"
	"time"

	"github.com/isdelr/airmove-be/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const jobTimeout = 30 * time.Second

// Scheduler runs the periodic reservation and navigation jobs.
type Scheduler struct {
	reservationSvc services.ReservationServiceProvider
	navigationSvc  services.NavigationServiceProvider
	staleAfter     time.Duration
	cron           *cron.Cron
	now            func() time.Time
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(reservationSvc services.ReservationServiceProvider, navigationSvc services.NavigationServiceProvider, staleAfter time.Duration) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		reservationSvc: reservationSvc,
		navigationSvc:  navigationSvc,
		staleAfter:     staleAfter,
		cron: cron.New(cron.WithLogger(logger), cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		)),
		now: time.Now,
	}
}

// Start registers the jobs, runs them once and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@every 1m", s.dispatchReservations); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every 5m", s.reapStaleSessions); err != nil {
		return err
	}

	log.Info().Msg("Starting background scheduler...")
	s.dispatchReservations()
	s.reapStaleSessions()
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopping background scheduler.")
}

func (s *Scheduler) dispatchReservations() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.reservationSvc.DispatchDueReservations(ctx, s.now())
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: Failed to dispatch reservations")
		return
	}
	if n > 0 {
		log.Info().Int("count", n).Msg("Scheduler: Reservations ready")
	}
}

func (s *Scheduler) reapStaleSessions() {
	if s.staleAfter <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.navigationSvc.ExpireStaleSessions(ctx, s.now(), s.staleAfter)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: Failed to expire stale navigation sessions")
		return
	}
	if n > 0 {
		log.Warn().Int("count", n).Msg("Scheduler: Expired stale navigation sessions")
	}
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
