package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/airmove-be/internal/auth"
	"github.com/isdelr/airmove-be/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles registration, login and user lookups.
type UserHandler struct {
	service      services.UserServiceProvider
	navigation   services.NavigationServiceProvider
	tokens       *auth.TokenManager
	secureCookie bool
}

// NewUserHandler creates a new UserHandler. secureCookie marks the session
// cookie Secure and should be set in production.
func NewUserHandler(service services.UserServiceProvider, navigation services.NavigationServiceProvider, tokens *auth.TokenManager, secureCookie bool) *UserHandler {
	return &UserHandler{service: service, navigation: navigation, tokens: tokens, secureCookie: secureCookie}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.Email == "" || payload.Name == "" || payload.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email, name and password are required")
		return
	}

	user, err := h.service.CreateUser(r.Context(), payload.Email, payload.Name, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed to register user")
		writeError(w, r, err)
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User registered")
	writeJSON(w, http.StatusOK, map[string]string{"userId": user.ID})
}

// Login handles user authentication and JWT generation.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.Email == "" || payload.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), payload.Email, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed authentication attempt")
		writeError(w, r, err)
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate JWT")
		writeMessage(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Expires:  time.Now().Add(h.tokens.TTL()),
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
		"token": token,
	})
}

// Logout clears the session cookie.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})
	w.WriteHeader(http.StatusNoContent)
}

// GetByEmail looks a user up by the email query parameter.
func (h *UserHandler) GetByEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeMessage(w, http.StatusBadRequest, "Email is required")
		return
	}

	user, err := h.service.GetUserByEmail(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Get handles retrieving a user by their ID.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, err := h.service.GetUserByID(r.Context(), id)
	if err != nil {
		log.Debug().Err(err).Str("user_id", id).Msg("Failed to get user by ID")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GetMe retrieves the currently authenticated user from the token.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUserByID(r.Context(), id)
	if err != nil {
		log.Warn().Err(err).Str("user_id", id).Msg("User from token not found in DB")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe changes the authenticated user's display name.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.UpdateUser(r.Context(), id, payload.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePassword handles changing the authenticated user's password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var payload struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	if err := h.service.UpdatePassword(r.Context(), id, payload.CurrentPassword, payload.NewPassword); err != nil {
		log.Warn().Err(err).Str("user_id", id).Msg("Failed to change password")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

// DeleteMe permanently deletes the authenticated user's account. An open
// navigation is expired first so its device is released.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	closed, err := h.navigation.CloseUserSessions(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("user_id", id).Msg("Failed to close navigation before account deletion")
		writeError(w, r, err)
		return
	}
	if closed > 0 {
		log.Info().Str("user_id", id).Int("sessions", closed).Msg("Expired open navigation for deleted account")
	}
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	log.Info().Str("user_id", id).Msg("User deleted")
	h.Logout(w, r)
}
