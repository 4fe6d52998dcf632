// Package bridge connects the service to the robot fleet over MQTT.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/isdelr/airmove-be/internal/config"
	"github.com/rs/zerolog/log"
)

// ErrNotConnected is returned when publishing without a live broker connection.
var ErrNotConnected = errors.New("mqtt bridge is not connected")

const (
	statusQoS        = 1
	commandQoS       = 0
	disconnectQuiesc = 250 // ms
	handlerTimeout   = 10 * time.Second
)

// Publisher sends fire-and-forget messages to the robot.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// StatusHandler receives every valid robot status message.
type StatusHandler func(ctx context.Context, msg StatusMessage)

// Status is a snapshot of the bridge connection for health reporting.
type Status struct {
	Enabled       bool       `json:"enabled"`
	Connected     bool       `json:"connected"`
	ClientID      string     `json:"clientId,omitempty"`
	Reconnects    int        `json:"reconnects"`
	LastError     string     `json:"lastError,omitempty"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
}

// Bridge is the single long-lived MQTT connection of the process.
type Bridge struct {
	cfg      config.MQTTConfig
	clientID string
	client   mqtt.Client

	mu            sync.RWMutex
	handler       StatusHandler
	connected     bool
	reconnects    int
	lastErr       string
	lastMessageAt *time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a bridge for the configured broker. Call OnStatus before Connect.
func New(cfg config.MQTTConfig) *Bridge {
	b := newBridge(cfg)
	b.client = mqtt.NewClient(b.clientOptions())
	return b
}

func newBridge(cfg config.MQTTConfig) *Bridge {
	return &Bridge{
		cfg:      cfg,
		clientID: fmt.Sprintf("%s_%s", cfg.ClientPrefix, uuid.New().String()[:8]),
		done:     make(chan struct{}),
	}
}

func (b *Bridge) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(b.cfg.BrokerURL).
		SetClientID(b.clientID).
		SetUsername(b.cfg.Username).
		SetPassword(b.cfg.Password).
		SetConnectTimeout(b.cfg.ConnectTimeout).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(false).
		SetMaxReconnectInterval(maxDuration(b.cfg.ReconnectInterval, time.Second) * 10)

	opts.SetOnConnectHandler(b.onConnect)
	opts.SetConnectionLostHandler(b.onConnectionLost)
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		b.mu.Lock()
		b.reconnects++
		n := b.reconnects
		b.mu.Unlock()
		log.Info().Int("attempt", n).Msg("Reconnecting to MQTT broker")
	})
	return opts
}

// OnStatus registers the handler for robot status messages.
func (b *Bridge) OnStatus(h StatusHandler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

// Connect dials the broker, retrying up to MaxReconnectAttempts times.
// Once connected, lost connections are re-established automatically.
func (b *Bridge) Connect(ctx context.Context) error {
	attempts := b.cfg.MaxReconnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		log.Info().Str("broker", b.cfg.BrokerURL).Int("attempt", attempt).Msg("Connecting to MQTT broker")
		token := b.client.Connect()
		if !token.WaitTimeout(b.cfg.ConnectTimeout + time.Second) {
			err = fmt.Errorf("connect timed out after %s", b.cfg.ConnectTimeout)
		} else {
			err = token.Error()
		}
		if err == nil {
			b.startHeartbeat()
			return nil
		}

		b.setLastError(err)
		log.Warn().Err(err).Int("attempt", attempt).Msg("MQTT connection attempt failed")
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.cfg.ReconnectInterval):
		}
	}
	return fmt.Errorf("giving up on MQTT broker after %d attempts: %w", attempts, err)
}

// Close stops the heartbeat and disconnects from the broker.
func (b *Bridge) Close() {
	select {
	case <-b.done:
		return
	default:
		close(b.done)
	}
	b.wg.Wait()
	if b.client.IsConnected() {
		b.client.Disconnect(disconnectQuiesc)
	}
	b.mu.Lock()
	b.connected = false
	b.mu.Unlock()
	log.Info().Msg("MQTT bridge closed")
}

// Publish JSON-encodes payload and sends it without waiting for delivery
// beyond the local write.
func (b *Bridge) Publish(ctx context.Context, topic string, payload interface{}) error {
	if !b.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", topic, err)
	}

	token := b.client.Publish(topic, commandQoS, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		b.setLastError(err)
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	log.Debug().Str("topic", topic).RawJSON("payload", data).Msg("Published MQTT message")
	return nil
}

// Status reports the current connection state.
func (b *Bridge) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Status{
		Enabled:       true,
		Connected:     b.connected,
		ClientID:      b.clientID,
		Reconnects:    b.reconnects,
		LastError:     b.lastErr,
		LastMessageAt: b.lastMessageAt,
	}
}

func (b *Bridge) onConnect(c mqtt.Client) {
	b.mu.Lock()
	b.connected = true
	b.lastErr = ""
	b.mu.Unlock()

	log.Info().Str("client_id", b.clientID).Msg("Connected to MQTT broker")

	// Subscriptions do not survive a clean session, so renew them on every connect.
	token := c.Subscribe(TopicNavigationStatus, statusQoS, b.handleMessage)
	go func() {
		if !token.WaitTimeout(b.cfg.ConnectTimeout) {
			log.Error().Str("topic", TopicNavigationStatus).Msg("MQTT subscribe timed out")
			return
		}
		if err := token.Error(); err != nil {
			b.setLastError(err)
			log.Error().Err(err).Str("topic", TopicNavigationStatus).Msg("Failed to subscribe")
			return
		}
		log.Info().Str("topic", TopicNavigationStatus).Msg("Subscribed to robot status")
	}()
}

func (b *Bridge) onConnectionLost(_ mqtt.Client, err error) {
	b.mu.Lock()
	b.connected = false
	b.mu.Unlock()
	b.setLastError(err)
	log.Warn().Err(err).Msg("MQTT connection lost")
}

func (b *Bridge) handleMessage(_ mqtt.Client, m mqtt.Message) {
	now := time.Now()
	b.mu.Lock()
	b.lastMessageAt = &now
	handler := b.handler
	b.mu.Unlock()

	if m.Topic() != TopicNavigationStatus {
		return
	}

	msg, err := ParseStatus(m.Payload())
	if err != nil {
		log.Warn().Err(err).Str("topic", m.Topic()).Bytes("payload", m.Payload()).Msg("Dropping robot status message")
		return
	}
	log.Info().Str("status", msg.Status).Str("session_id", msg.SessionID).Msg("Robot status received")

	if handler == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	handler(ctx, msg)
}

func (b *Bridge) startHeartbeat() {
	if b.cfg.HeartbeatInterval <= 0 {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-b.done:
				return
			case t := <-ticker.C:
				if !b.client.IsConnectionOpen() {
					continue
				}
				ctx, cancel := context.WithTimeout(context.Background(), b.cfg.HeartbeatInterval)
				err := b.Publish(ctx, TopicHeartbeat, HeartbeatMessage{ClientID: b.clientID, Timestamp: t.UTC()})
				cancel()
				if err != nil {
					log.Warn().Err(err).Msg("Heartbeat publish failed")
				}
			}
		}
	}()
}

func (b *Bridge) setLastError(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	b.lastErr = err.Error()
	b.mu.Unlock()
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

// Disabled is the publisher used when no broker is configured.
type Disabled struct{}

// Publish always fails with ErrNotConnected.
func (Disabled) Publish(context.Context, string, interface{}) error { return ErrNotConnected }

// Status reports a disabled bridge.
func (Disabled) Status() Status { return Status{} }
