package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/airmove-be/internal/api"
	"github.com/isdelr/airmove-be/internal/auth"
	"github.com/isdelr/airmove-be/internal/bridge"
	"github.com/isdelr/airmove-be/internal/cache"
	"github.com/isdelr/airmove-be/internal/config"
	"github.com/isdelr/airmove-be/internal/database"
	"github.com/isdelr/airmove-be/internal/logger"
	"github.com/isdelr/airmove-be/internal/monitoring"
	"github.com/isdelr/airmove-be/internal/services"
	"github.com/isdelr/airmove-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// robotBridge is what the services and health check need from the MQTT link.
type robotBridge interface {
	bridge.Publisher
	Status() bridge.Status
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.AppEnv, cfg.LogLevel)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}
	if err := database.Seed(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed reference data")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up the robot bridge
	var robots robotBridge = bridge.Disabled{}
	var mqttBridge *bridge.Bridge
	if cfg.MQTTEnabled() {
		mqttBridge = bridge.New(cfg.MQTT)
		robots = mqttBridge
	} else {
		log.Warn().Msg("MQTT_BROKER_URL not set, robot commands are disabled")
	}

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db)
	facilityService := services.NewFacilityService(db)
	deviceService := services.NewDeviceService(db)
	reservationService := services.NewReservationService(db, eventService, hub, time.Local)
	ticketService := services.NewTicketService(robots, eventService)
	navigationService := services.NewNavigationService(db, facilityService, eventService, robots, hub)

	if mqttBridge != nil {
		mqttBridge.OnStatus(navigationService.HandleRobotStatus)
		go func() {
			if err := mqttBridge.Connect(context.Background()); err != nil {
				log.Error().Err(err).Msg("Robot bridge unavailable, continuing without it")
			}
		}()
	}

	deps := api.Deps{
		Hub:            hub,
		Tokens:         auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		Users:          userService,
		Facilities:     facilityService,
		Devices:        deviceService,
		Reservations:   reservationService,
		Tickets:        ticketService,
		Navigation:     navigationService,
		Events:         eventService,
		DB:             db,
		Bridge:         robots,
		LoginRateLimit: cfg.LoginRateLimit,
		AllowedOrigins: cfg.AllowedOrigins(),
		SecureCookies:  cfg.IsProduction(),
	}

	var limiter *cache.Cache
	if cfg.RedisEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		limiter, err = cache.New(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("Redis unavailable, login rate limiting is disabled")
		} else {
			deps.Limiter = limiter
			deps.Cache = limiter
		}
	}

	// Set up and run the background stats updater
	statUpdater := monitoring.NewStatUpdater(eventService)
	go statUpdater.Run()
	deps.HostStats = statUpdater

	// Set up and run the background scheduler
	scheduler := monitoring.NewScheduler(reservationService, navigationService, cfg.SessionStaleAfter)
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	router := api.NewRouter(deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	scheduler.Stop()
	statUpdater.Stop()
	if mqttBridge != nil {
		mqttBridge.Close()
	}
	hub.Stop()
	if limiter != nil {
		if err := limiter.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis client")
		}
	}

	log.Info().Msg("Server exiting")
}
