package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/airmove-be/internal/api/handlers"
	"github.com/isdelr/airmove-be/internal/auth"
	"github.com/isdelr/airmove-be/internal/services"
	"github.com/isdelr/airmove-be/internal/websocket"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Hub            *websocket.Hub
	Tokens         *auth.TokenManager
	Users          services.UserServiceProvider
	Facilities     services.FacilityServiceProvider
	Devices        services.DeviceServiceProvider
	Reservations   services.ReservationServiceProvider
	Tickets        services.TicketServiceProvider
	Navigation     services.NavigationServiceProvider
	Events         services.EventServiceProvider
	DB             handlers.Pinger
	Cache          handlers.CachePinger // nil when Redis is not configured
	Bridge         handlers.BridgeStatus
	HostStats      handlers.HostStats
	Limiter        Limiter // nil disables rate limiting
	LoginRateLimit int     // attempts per minute per IP
	AllowedOrigins []string
	SecureCookies  bool
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	userHandler := handlers.NewUserHandler(d.Users, d.Navigation, d.Tokens, d.SecureCookies)
	facilityHandler := handlers.NewFacilityHandler(d.Facilities)
	deviceHandler := handlers.NewDeviceHandler(d.Devices)
	reservationHandler := handlers.NewReservationHandler(d.Reservations)
	qrHandler := handlers.NewQRHandler(d.Tickets)
	navigationHandler := handlers.NewNavigationHandler(d.Navigation)
	eventHandler := handlers.NewEventHandler(d.Events)
	wsHandler := handlers.NewWebSocketHandler(d.Hub, d.Navigation, d.AllowedOrigins)
	healthHandler := handlers.NewHealthHandler(d.DB, d.Cache, d.Bridge, d.HostStats)

	r.Get("/health", healthHandler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(rateLimit(d.Limiter, "login", d.LoginRateLimit, time.Minute)).Post("/login", userHandler.Login)
			r.With(rateLimit(d.Limiter, "register", d.LoginRateLimit, time.Minute)).Post("/register", userHandler.Register)
			r.Post("/logout", userHandler.Logout)
			r.Get("/user", userHandler.GetByEmail)
			r.Get("/user/{id}", userHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(d.Tokens.Middleware)
				r.Get("/me", userHandler.GetMe)
				r.Put("/me", userHandler.UpdateMe)
				r.Post("/me/password", userHandler.ChangePassword)
				r.Delete("/me", userHandler.DeleteMe)
			})
		})

		r.Route("/facilities", func(r chi.Router) {
			r.Get("/", facilityHandler.List)
			r.Get("/categories", facilityHandler.Categories)
			r.Get("/{id}", facilityHandler.Get)
		})

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", deviceHandler.List)
			r.Get("/{id}", deviceHandler.Get)
		})

		r.Post("/qr/validate", qrHandler.Validate)
		r.Post("/qr/generate", qrHandler.Generate)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(d.Tokens.Middleware)

			r.Get("/ws", wsHandler.Serve)
			r.Get("/events", eventHandler.GetRecent)
			r.Post("/qr/checkin", qrHandler.CheckIn)

			r.Route("/reservations", func(r chi.Router) {
				r.Get("/", reservationHandler.List)
				r.Post("/", reservationHandler.Create)
				r.Delete("/{id}", reservationHandler.Cancel)
			})

			r.Route("/navigation", func(r chi.Router) {
				r.Post("/", navigationHandler.Start)
				r.Get("/current", navigationHandler.Current)
				r.Get("/{id}", navigationHandler.Get)
				r.Post("/{id}/actions", navigationHandler.Action)
			})
		})
	})

	return r
}
