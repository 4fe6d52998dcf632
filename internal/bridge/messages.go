package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/isdelr/airmove-be/internal/models"
)

// Topics shared with the robot client.
const (
	TopicNavigationStart   = "navigation/start"
	TopicNavigationStatus  = "navigation/web"
	TopicNavigationControl = "navigation/control"
	TopicRobotCommand      = "robot/command"
	TopicScanComplete      = "scan/complete"
	TopicHeartbeat         = "robot/heartbeat"
)

// StatusArrived is the status the robot reports when it reaches the goal.
const StatusArrived = "arrived"

// Control commands sent on TopicNavigationControl.
const (
	ControlStop     = "stop"
	ControlRedirect = "redirect"
)

// StartMessage asks the robot to begin guiding a session to a destination.
type StartMessage struct {
	SessionID   string             `json:"sessionId"`
	DeviceID    string             `json:"deviceId"`
	FacilityID  string             `json:"facilityId"`
	Destination models.Coordinates `json:"destination"`
	Terminal    string             `json:"terminal"`
	Floor       string             `json:"floor"`
}

// ControlMessage stops or redirects a running session.
type ControlMessage struct {
	SessionID   string              `json:"sessionId"`
	Command     string              `json:"command"`
	FacilityID  string              `json:"facilityId,omitempty"`
	Destination *models.Coordinates `json:"destination,omitempty"`
}

// CommandMessage is a direct instruction to a device.
type CommandMessage struct {
	SessionID string `json:"sessionId,omitempty"`
	DeviceID  string `json:"deviceId"`
	Command   string `json:"command"`
}

// ScanCompleteMessage announces a validated ticket scan.
type ScanCompleteMessage struct {
	Ticket    models.QRPayload `json:"ticket"`
	UserID    string           `json:"userId"`
	ScannedAt time.Time        `json:"scannedAt"`
}

// HeartbeatMessage is published periodically while the bridge is connected.
type HeartbeatMessage struct {
	ClientID  string    `json:"clientId"`
	Timestamp time.Time `json:"ts"`
}

// StatusMessage is what the robot publishes on TopicNavigationStatus.
// SessionID is optional; older robot builds omit it.
type StatusMessage struct {
	Status    string `json:"status"`
	SessionID string `json:"sessionId,omitempty"`
}

// Arrived reports whether the robot reached its goal.
func (m StatusMessage) Arrived() bool {
	return m.Status == StatusArrived
}

// ParseStatus decodes a status payload. A payload without a status is rejected.
func ParseStatus(payload []byte) (StatusMessage, error) {
	var msg StatusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return StatusMessage{}, fmt.Errorf("malformed status payload: %w", err)
	}
	if msg.Status == "" {
		return StatusMessage{}, fmt.Errorf("status payload has no status field")
	}
	return msg, nil
}
