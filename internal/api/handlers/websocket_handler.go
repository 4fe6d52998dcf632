package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/isdelr/airmove-be/internal/services"
	ws "github.com/isdelr/airmove-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades HTTP connections and subscribes them to a
// live-update channel.
type WebSocketHandler struct {
	hub           *ws.Hub
	navigationSvc services.NavigationServiceProvider
	upgrader      websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. Browsers are only
// accepted from allowedOrigins; "*" allows any origin.
func NewWebSocketHandler(hub *ws.Hub, navigationSvc services.NavigationServiceProvider, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		navigationSvc: navigationSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// Serve handles the WebSocket connection request. ?channel= selects
// "user:{id}" (default) or "session:{id}" for a session the caller owns.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	channel, err := h.resolveChannel(r, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, channel, uid)
	h.hub.Add(client)

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleIncomingWSMessage)
		h.hub.Remove(client)
	}()
}

func (h *WebSocketHandler) resolveChannel(r *http.Request, uid string) (string, error) {
	channel := r.URL.Query().Get("channel")
	switch {
	case channel == "" || channel == services.UserChannel(uid):
		return services.UserChannel(uid), nil
	case strings.HasPrefix(channel, "session:"):
		sessionID := strings.TrimPrefix(channel, "session:")
		if _, err := h.navigationSvc.GetSession(r.Context(), uid, sessionID); err != nil {
			return "", err
		}
		return channel, nil
	default:
		return "", services.ErrForbidden
	}
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, message []byte) {
	var msg ws.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Warn().Err(err).Bytes("message", message).Msg("Error decoding websocket message")
		client.Reply(ws.NewErrorMessage("Invalid message"))
		return
	}

	switch msg.Action {
	case "ping":
		pong, _ := ws.NewMessage("pong", msg.Payload)
		client.Reply(pong)
	default:
		log.Warn().Str("action", msg.Action).Str("channel", client.Channel).Msg("Unknown websocket action received")
		client.Reply(ws.NewErrorMessage("Unknown action: " + msg.Action))
	}
}
