package websocket

import "github.com/rs/zerolog/log"

// delivery targets either every subscriber of channel or a single client.
type delivery struct {
	channel string
	client  *Client
	data    []byte
}

// Hub maintains the set of active clients and fans messages out to the
// clients subscribed to a channel. All map access happens in Run.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Channel name to the set of clients subscribed to it.
	subscriptions map[string]map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	deliveries chan delivery
	done       chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		deliveries:    make(chan delivery, 256),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			h.addSubscription(client)
			log.Info().Str("channel", client.Channel).Int("total_clients", len(h.clients)).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Str("channel", client.Channel).Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case d := <-h.deliveries:
			if d.client != nil {
				if h.clients[d.client] {
					h.send(d.client, d.data)
				}
				continue
			}
			for client := range h.subscriptions[d.channel] {
				h.send(client, d.data)
			}
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

// Stop ends Run and closes every client's send channel.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Add registers client unless the hub has stopped.
func (h *Hub) Add(client *Client) {
	select {
	case h.Register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Remove unregisters client unless the hub has stopped.
func (h *Hub) Remove(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// BroadcastTo queues raw data for every client subscribed to channel.
func (h *Hub) BroadcastTo(channel string, data []byte) {
	h.enqueue(delivery{channel: channel, data: data})
}

func (h *Hub) enqueue(d delivery) {
	select {
	case h.deliveries <- d:
	case <-h.done:
	}
}

func (h *Hub) send(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		log.Warn().Str("channel", client.Channel).Msg("Dropping slow websocket client")
		h.drop(client)
	}
}

// Notify encodes a Message and sends it to the channel's subscribers.
func (h *Hub) Notify(channel, action string, payload interface{}) {
	data, err := NewMessage(action, payload)
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode websocket message")
		return
	}
	h.BroadcastTo(channel, data)
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	if subs, ok := h.subscriptions[client.Channel]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscriptions, client.Channel)
		}
	}
}

func (h *Hub) addSubscription(client *Client) {
	if h.subscriptions[client.Channel] == nil {
		h.subscriptions[client.Channel] = make(map[*Client]bool)
	}
	h.subscriptions[client.Channel][client] = true
}
